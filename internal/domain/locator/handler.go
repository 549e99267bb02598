package locator

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/consultacerta/portal/internal/platform/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/ubs", h.Search)
}

func (h *Handler) Search(c echo.Context) error {
	v, err := h.svc.Search(c.Request().Context(), Form{CEP: c.QueryParam("cep")})
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"fieldErrors": fe})
	}
	var le *LookupError
	if errors.As(err, &le) {
		return c.JSON(http.StatusBadGateway, echo.Map{"erro": le.Message})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}
