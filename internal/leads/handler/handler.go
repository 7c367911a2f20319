package handler

import (
	"net/http"

	"github.com/N8Nexus-ai/product/internal/activity"
	"github.com/N8Nexus-ai/product/internal/leads/domain"
	"github.com/N8Nexus-ai/product/internal/leads/repository"
	"github.com/N8Nexus-ai/product/internal/leads/service"
	"github.com/N8Nexus-ai/product/internal/leads/transport"
	"github.com/N8Nexus-ai/product/platform/httpkit"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"

	defaultPageSize = 50
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc        *service.Service
	activities *activity.Repository
	val        *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, activities *activity.Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, activities: activities, val: val}
}

// RegisterRoutes registers the lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/activities", h.ListActivities)
	rg.POST("/:id/enrich", h.Enrich)
	rg.POST("/:id/score", h.Score)
	rg.POST("/:id/send-to-crm", h.SendToCRM)
	rg.POST("/:id/convert", h.MarkConverted)
}

func (h *Handler) Create(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		CompanyID:    orgID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		Source:       req.Source,
		CustomFields: req.CustomFields,
		CampaignID:   req.CampaignID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultPageSize
	}

	filter := repository.ListFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Status != "" {
		status := domain.Status(query.Status)
		filter.Status = &status
	}
	if query.Source != "" {
		filter.Source = &query.Source
	}
	if query.Search != "" {
		filter.Search = &query.Search
	}

	leads, total, err := h.svc.List(c.Request.Context(), orgID, filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ListLeadsResponse{
		Leads:  leads,
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

func (h *Handler) GetByID(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), orgID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), orgID, id, repository.UpdateParams{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		Source:       req.Source,
		CustomFields: req.CustomFields,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), orgID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "deleted"})
}

func (h *Handler) ListActivities(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	// Tenant check before exposing the trail.
	if _, err := h.svc.Get(c.Request.Context(), orgID, id); httpkit.HandleError(c, err) {
		return
	}

	activities, err := h.activities.ListByLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"activities": activities})
}

func (h *Handler) Enrich(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	if _, err := h.svc.Get(c.Request.Context(), orgID, id); httpkit.HandleError(c, err) {
		return
	}

	lead, err := h.svc.Enrich(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Score(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	if _, err := h.svc.Get(c.Request.Context(), orgID, id); httpkit.HandleError(c, err) {
		return
	}

	lead, err := h.svc.Score(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) SendToCRM(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	var req transport.SendToCRMRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	lead, err := h.svc.SendToCRM(c.Request.Context(), orgID, id, req.CRMType)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) MarkConverted(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}
	id, ok := mustParseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.MarkConverted(c.Request.Context(), orgID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func mustGetOrgID(c *gin.Context) (uuid.UUID, bool) {
	orgID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return uuid.UUID{}, false
	}
	return orgID, true
}

func mustParseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
