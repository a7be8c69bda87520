package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/dto"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/service"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/response"
)

type scoringConfigManager interface {
	Current() models.ScoringConfig
	Reload(ctx context.Context) (models.ScoringConfig, error)
	UpdateOverrides(ctx context.Context, overrides map[string]interface{}) (models.ScoringConfig, error)
}

// ScoringConfigHandler exposes the scoring configuration.
type ScoringConfigHandler struct {
	service scoringConfigManager
}

// NewScoringConfigHandler constructs the handler.
func NewScoringConfigHandler(svc *service.ScoringConfigService) *ScoringConfigHandler {
	return &ScoringConfigHandler{service: svc}
}

// Get godoc
// @Summary Active scoring configuration
// @Tags Scoring
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scoring-config [get]
func (h *ScoringConfigHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Current(), nil)
}

// Reload godoc
// @Summary Reload scoring documents from disk
// @Tags Scoring
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scoring-config/reload [post]
func (h *ScoringConfigHandler) Reload(c *gin.Context) {
	cfg, err := h.service.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// UpdateOverrides godoc
// @Summary Persist user overrides and activate them
// @Tags Scoring
// @Accept json
// @Produce json
// @Param payload body dto.UpdateScoringOverridesRequest true "Overrides"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scoring-config/overrides [put]
func (h *ScoringConfigHandler) UpdateOverrides(c *gin.Context) {
	var req dto.UpdateScoringOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid overrides payload"))
		return
	}
	cfg, err := h.service.UpdateOverrides(c.Request.Context(), req.Document())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
