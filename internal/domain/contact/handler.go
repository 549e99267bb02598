package contact

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
	api.GET("/contacts", h.List)
	api.POST("/contacts/next", h.Next)
	api.POST("/contacts/prev", h.Prev)
	api.GET("/contact-messages/prefill", h.Prefill)
	api.POST("/contact-messages", h.Send)
	api.POST("/contact-messages/dismiss", h.Dismiss)
}

type listResponse struct {
	CarouselView
	Recipients []Recipient `json:"recipients"`
}

// List reloads the directory; ?refresh=false keeps the current card.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	v := h.svc.View()
	if c.QueryParam("refresh") != "false" || v.Total == 0 {
		v = h.svc.Load(ctx)
	}
	return c.JSON(http.StatusOK, listResponse{CarouselView: v, Recipients: h.svc.Recipients(ctx)})
}

func (h *Handler) Next(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Next())
}

func (h *Handler) Prev(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Prev())
}

func (h *Handler) Prefill(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Prefill(MessageForm{}))
}

func (h *Handler) Send(c echo.Context) error {
	var f MessageForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message payload")
	}
	res, err := h.svc.Send(c.Request().Context(), f)
	return workflow.Render(c, res, err)
}

func (h *Handler) Dismiss(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Submission().Dismiss())
}
