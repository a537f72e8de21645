package resolution

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/linkage-labs/linkage/pkg/apperror"
)

// Handler handles HTTP requests for the resolution engine.
type Handler struct {
	svc     *Service
	configs *ConfigStore
}

// NewHandler creates a new resolution handler.
func NewHandler(svc *Service, configs *ConfigStore) *Handler {
	return &Handler{svc: svc, configs: configs}
}

// FindMatches handles POST /api/resolution/find-matches
func (h *Handler) FindMatches(c echo.Context) error {
	var req FindMatchesRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.Entity.Name == "" {
		return apperror.NewValidation("entity.name is required")
	}

	candidates, err := h.svc.FindMatches(c.Request().Context(), req.Entity, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// PotentialMatches handles GET /api/resolution/entities/:entityId/potential-matches
func (h *Handler) PotentialMatches(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	matches, err := h.svc.PotentialMatches(c.Request().Context(), c.Param("entityId"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entity_id": c.Param("entityId"),
		"matches":   matches,
		"count":     len(matches),
	})
}

// Analyze handles GET /api/resolution/analyze?source=...&target=...
func (h *Handler) Analyze(c echo.Context) error {
	sourceID, targetID := c.QueryParam("source"), c.QueryParam("target")
	if sourceID == "" || targetID == "" {
		return apperror.NewValidation("source and target query parameters are required")
	}

	analysis, confidence, err := h.svc.Analyze(c.Request().Context(), sourceID, targetID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"analysis":   analysis,
		"confidence": confidence,
	})
}

// Resolve handles POST /api/resolution/resolve
func (h *Handler) Resolve(c echo.Context) error {
	var input ResolutionDecisionInput
	if err := c.Bind(&input); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	result, err := h.svc.Resolve(c.Request().Context(), &input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetConfig handles GET /api/resolution/config
func (h *Handler) GetConfig(c echo.Context) error {
	cfg := h.configs.Load()
	return c.JSON(http.StatusOK, UpdateScoringConfigRequest{
		AttributeWeights:      cfg.AttributeWeights,
		LikelyRejectThreshold: cfg.LikelyRejectThreshold,
		ManualReviewThreshold: cfg.ManualReviewThreshold,
		AutoConfirmThreshold:  cfg.AutoConfirmThreshold,
		MatchThreshold:        cfg.MatchThreshold,
		PartialThreshold:      cfg.PartialThreshold,
		FuzzyIdentifiers:      cfg.FuzzyIdentifiers,
	})
}

// UpdateConfig handles PUT /api/resolution/config
func (h *Handler) UpdateConfig(c echo.Context) error {
	var req UpdateScoringConfigRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	next := ScoringConfig{
		AttributeWeights:      req.AttributeWeights,
		LikelyRejectThreshold: req.LikelyRejectThreshold,
		ManualReviewThreshold: req.ManualReviewThreshold,
		AutoConfirmThreshold:  req.AutoConfirmThreshold,
		MatchThreshold:        req.MatchThreshold,
		PartialThreshold:      req.PartialThreshold,
		FuzzyIdentifiers:      req.FuzzyIdentifiers,
	}
	if err := h.configs.Update(next); err != nil {
		return apperror.NewValidation(err.Error())
	}
	return h.GetConfig(c)
}
