package feedback

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/consultacerta/portal/internal/platform/workflow"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ratings", h.Rate)
	api.POST("/ratings/dismiss", h.Dismiss)
}

func (h *Handler) Rate(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rating payload")
	}
	res, err := h.svc.Rate(c.Request().Context(), f)
	return workflow.Render(c, res, err)
}

func (h *Handler) Dismiss(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Submission().Dismiss())
}
