package entity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/linkage-labs/linkage/pkg/apperror"
	"github.com/linkage-labs/linkage/pkg/mathutil"
)

// Handler handles HTTP requests for entities.
type Handler struct {
	svc *Service
}

// NewHandler creates a new entity handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/entities
func (h *Handler) Create(c echo.Context) error {
	var req CreateEntityRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	e, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, e)
}

// Get handles GET /api/entities/:entityId
func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("entityId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// List handles GET /api/entities
func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit = mathutil.ClampLimit(limit, 20, 100)
	if offset < 0 {
		offset = 0
	}

	resp, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Archive handles DELETE /api/entities/:entityId
func (h *Handler) Archive(c echo.Context) error {
	if err := h.svc.Archive(c.Request().Context(), c.Param("entityId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
