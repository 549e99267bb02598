package patient

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
	api.GET("/session", h.GetSession)
	api.POST("/login/dismiss", h.DismissLogin)
	api.POST("/register/dismiss", h.DismissRegistration)

	anon := api.Group("", guard.Middleware(h.sessions, guard.AnonymousOnly))
	anon.POST("/login", h.Login)
	anon.POST("/register", h.Register)

	restricted := api.Group("", guard.Middleware(h.sessions, guard.Restricted))
	restricted.POST("/logout", h.Logout)
	restricted.GET("/profile", h.GetProfile)
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, ok := h.sessions.Current()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Login(c echo.Context) error {
	var f LoginForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid login payload")
	}
	res, err := h.svc.Login(c.Request().Context(), f)
	return workflow.Render(c, res, err)
}

func (h *Handler) Register(c echo.Context) error {
	var f RegistrationForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration payload")
	}
	res, err := h.svc.Register(c.Request().Context(), f)
	return workflow.Render(c, res, err)
}

func (h *Handler) DismissLogin(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.LoginSubmission().Dismiss())
}

func (h *Handler) DismissRegistration(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.RegistrationSubmission().Dismiss())
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetProfile(c echo.Context) error {
	v, err := h.svc.Profile()
	if errors.Is(err, session.ErrNoSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}
