package content

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/consultacerta/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/guides", h.List)
	api.GET("/guides/:slug", h.Show)
}

// List returns every bucket, or one paginated bucket when ?category= is set.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	raw := c.QueryParam("category")
	if raw == "" {
		return c.JSON(http.StatusOK, h.svc.Catalog(ctx))
	}
	cat, ok := ParseCategory(raw)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category "+raw)
	}

	b, placeholder := h.svc.Bucket(ctx, cat)
	p := pagination.FromContext(c)
	resp := pagination.NewResponse(pagination.Window(b.Guides, p), len(b.Guides), p.Limit, p.Offset)
	resp.Links = p.Links(c.Request().URL.Path, url.Values{"category": {string(cat)}}.Encode(), len(b.Guides))
	return c.JSON(http.StatusOK, struct {
		*pagination.Response
		Label       string `json:"label"`
		Placeholder string `json:"placeholder,omitempty"`
	}{resp, b.Label, placeholder})
}

func (h *Handler) Show(c echo.Context) error {
	v, err := h.svc.Find(c.Request().Context(), c.Param("slug"))
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, Placeholder)
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, Placeholder)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}
