package workflow

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusCode maps a result onto the gateway's HTTP status.
func StatusCode(r Result) int {
	switch r.State {
	case StateFieldError:
		return http.StatusUnprocessableEntity
	case StateServerError:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Render writes r as JSON. A submission still in flight answers 409.
func Render(c echo.Context, r Result, err error) error {
	if errors.Is(err, ErrInFlight) {
		return c.JSON(http.StatusConflict, r)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(StatusCode(r), r)
}
