package integrations

import (
	"encoding/json"
	"net/http"

	"github.com/N8Nexus-ai/product/platform/httpkit"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for tenant integrations.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates the integrations handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the integration routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Configure)
	rg.POST("/:type/test", h.Test)
	rg.DELETE("/:type", h.Remove)
}

type configureRequest struct {
	Type   string          `json:"type" validate:"required,max=100"`
	Name   string          `json:"name" validate:"omitempty,max=200"`
	Config json.RawMessage `json:"config" validate:"required"`
}

func (h *Handler) Configure(c *gin.Context) {
	companyID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	integration, err := h.svc.Configure(c.Request.Context(), companyID, req.Type, req.Name, req.Config)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, integration)
}

func (h *Handler) List(c *gin.Context) {
	companyID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	integrations, err := h.svc.List(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"integrations": integrations})
}

func (h *Handler) Test(c *gin.Context) {
	companyID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	result, err := h.svc.Test(c.Request.Context(), companyID, c.Param("type"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Remove(c *gin.Context) {
	companyID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	if err := h.svc.Remove(c.Request.Context(), companyID, c.Param("type")); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "removed"})
}

func mustGetOrgID(c *gin.Context) (uuid.UUID, bool) {
	orgID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return uuid.UUID{}, false
	}
	return orgID, true
}
