package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/httpkit"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxBodyBytes caps inbound webhook payloads.
const maxBodyBytes = 1 << 20

// Handler handles the channel endpoints and API key management.
type Handler struct {
	svc  *Service
	repo *Repository
	cfg  config.WebhookConfig
	val  *validator.Validator
}

// NewHandler creates the webhook handler.
func NewHandler(svc *Service, repo *Repository, cfg config.WebhookConfig, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, cfg: cfg, val: val}
}

type channelProcessor func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error)

func (h *Handler) handleChannel(c *gin.Context, process channelProcessor) {
	companyID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "request body is required", nil)
		return
	}

	result, err := process(c, companyID, body)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "success", "data": result})
}

func (h *Handler) HandleFacebook(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessFacebook(c.Request.Context(), companyID, body)
	})
}

func (h *Handler) HandleGoogle(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessGoogle(c.Request.Context(), companyID, body)
	})
}

func (h *Handler) HandleLinkedIn(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessLinkedIn(c.Request.Context(), companyID, body)
	})
}

func (h *Handler) HandleTypeform(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessTypeform(c.Request.Context(), companyID, body)
	})
}

func (h *Handler) HandleLandingPage(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessLandingPage(c.Request.Context(), companyID, body)
	})
}

func (h *Handler) HandleN8N(c *gin.Context) {
	h.handleChannel(c, func(c *gin.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
		return h.svc.ProcessN8N(c.Request.Context(), companyID, body)
	})
}

// HandleFacebookVerify answers the hub challenge Facebook sends when the
// webhook subscription is created.
func (h *Handler) HandleFacebookVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.cfg.GetFacebookVerifyToken() {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// ── API key management ────────────────────────────────────────────────────────

type createKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=200"`
	AllowedDomains []string `json:"allowedDomains" validate:"omitempty,dive,min=1,max=253"`
}

type apiKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains,omitempty"`
	IsActive       bool      `json:"isActive"`
}

func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	companyID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return
	}

	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "key generation failed", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), companyID, req.Name, hash, prefix, req.AllowedDomains)
	if httpkit.HandleError(c, err) {
		return
	}

	// The plaintext key is only shown once.
	httpkit.JSON(c, http.StatusCreated, gin.H{
		"key": plaintext,
		"apiKey": apiKeyResponse{
			ID:             key.ID,
			Name:           key.Name,
			KeyPrefix:      key.KeyPrefix,
			AllowedDomains: key.AllowedDomains,
			IsActive:       key.IsActive,
		},
	})
}

func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	companyID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return
	}

	keys, err := h.repo.ListByCompany(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, apiKeyResponse{
			ID:             key.ID,
			Name:           key.Name,
			KeyPrefix:      key.KeyPrefix,
			AllowedDomains: key.AllowedDomains,
			IsActive:       key.IsActive,
		})
	}
	httpkit.OK(c, gin.H{"apiKeys": out})
}

func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	companyID, ok := httpkit.OrgID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "organization identity is required", nil)
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key id", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID, companyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "revoke failed", nil)
		return
	}
	httpkit.OK(c, gin.H{"status": "revoked"})
}
