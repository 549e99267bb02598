package reminder

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/consultacerta/portal/internal/platform/guard"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

type Handler struct {
	svc      *Service
	sessions *session.Store
}

func NewHandler(svc *Service, sessions *session.Store) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reminders", guard.Middleware(h.sessions, guard.Restricted))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/dismiss", h.Dismiss)
}

func (h *Handler) List(c echo.Context) error {
	l, err := h.svc.List(c.Request().Context())
	if errors.Is(err, session.ErrNoSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) Create(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder payload")
	}
	res, err := h.svc.Create(c.Request().Context(), f)
	if errors.Is(err, session.ErrNoSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return workflow.Render(c, res, err)
}

func (h *Handler) Dismiss(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Submission().Dismiss())
}
