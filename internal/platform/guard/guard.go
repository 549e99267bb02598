// Package guard gates navigation on whether a patient is signed in. The
// decision is taken again on every request or command.
package guard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Access int

const (
	Public Access = iota
	Restricted
	AnonymousOnly
)

const (
	LoginRoute = "/entrar"
	HomeRoute  = "/"

	// Annotation is the cobra command annotation carrying an Access name.
	Annotation = "portal.access"
)

func (a Access) String() string {
	switch a {
	case Restricted:
		return "restricted"
	case AnonymousOnly:
		return "anonymous"
	default:
		return "public"
	}
}

func ParseAccess(s string) (Access, error) {
	switch s {
	case "", "public":
		return Public, nil
	case "restricted":
		return Restricted, nil
	case "anonymous":
		return AnonymousOnly, nil
	}
	return Public, fmt.Errorf("unknown access level %q", s)
}

type Decision struct {
	Allow      bool
	RedirectTo string
}

func Decide(access Access, signedIn bool) Decision {
	switch {
	case access == Restricted && !signedIn:
		return Decision{RedirectTo: LoginRoute}
	case access == AnonymousOnly && signedIn:
		return Decision{RedirectTo: HomeRoute}
	}
	return Decision{Allow: true}
}

// Redirect is returned when a decision sends the caller elsewhere.
type Redirect struct {
	To string
}

func (r *Redirect) Error() string {
	if r.To == LoginRoute {
		return "sign in required"
	}
	return "already signed in"
}

// Sessions is the part of the session store the guard needs.
type Sessions interface {
	SignedIn() bool
	Wait(ctx context.Context) error
}

// Check waits for the session to be restored and applies Decide.
func Check(ctx context.Context, sessions Sessions, access Access) error {
	if access == Public {
		return nil
	}
	if err := sessions.Wait(ctx); err != nil {
		return fmt.Errorf("wait for session: %w", err)
	}
	if d := Decide(access, sessions.SignedIn()); !d.Allow {
		return &Redirect{To: d.RedirectTo}
	}
	return nil
}

// Middleware answers a denied request with 303 and the target route, both
// in Location and in the JSON body for the front end router.
func Middleware(sessions Sessions, access Access) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := Check(c.Request().Context(), sessions, access)
			if err == nil {
				return next(c)
			}
			r, ok := err.(*Redirect)
			if !ok {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session not ready")
			}
			c.Response().Header().Set(echo.HeaderLocation, r.To)
			return c.JSON(http.StatusSeeOther, map[string]string{
				"redirect": r.To,
				"message":  r.Error(),
			})
		}
	}
}
