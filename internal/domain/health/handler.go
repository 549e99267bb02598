package health

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
	g := api.Group("/health-survey")
	g.GET("", h.GetPrompt)
	g.POST("/open", h.Open)
	g.POST("/close", h.Close)
	g.POST("/dismiss", h.Dismiss)
	g.POST("", h.Submit, guard.Middleware(h.sessions, guard.Restricted))
}

type submitResponse struct {
	workflow.Result
	Prompt PromptView `json:"prompt"`
}

func (h *Handler) GetPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Prompt())
}

// Open answers 303 when the patient has to sign in first.
func (h *Handler) Open(c echo.Context) error {
	v := h.svc.Open()
	if v.RedirectTo != "" {
		c.Response().Header().Set(echo.HeaderLocation, v.RedirectTo)
		return c.JSON(http.StatusSeeOther, v)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Close(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Close())
}

func (h *Handler) Dismiss(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Dismiss())
}

func (h *Handler) Submit(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid survey payload")
	}
	res, view, err := h.svc.Submit(c.Request().Context(), f)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, workflow.ErrInFlight), errors.Is(err, ErrAlreadySubmitted):
		return c.JSON(http.StatusConflict, submitResponse{Result: res, Prompt: view})
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(workflow.StatusCode(res), submitResponse{Result: res, Prompt: view})
}
