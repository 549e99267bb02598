package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/consultacerta/portal/internal/platform/workflow"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape returned %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/guides/:slug", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/guides/abc", nil))

	body := scrape(t, m)
	want := `portal_http_requests_total{method="GET",route="/api/guides/:slug",status="404"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("expected %s in scrape:\n%s", want, body)
	}
}

func TestMetrics_Observer(t *testing.T) {
	m := NewMetrics()
	obs := m.Observer()
	obs("health-survey", workflow.StateDeclined)
	obs("health-survey", workflow.StateDeclined)
	obs("login", workflow.StateSucceeded)

	body := scrape(t, m)
	for _, want := range []string{
		`portal_submissions_total{state="declined",workflow="health-survey"} 2`,
		`portal_submissions_total{state="succeeded",workflow="login"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in scrape", want)
		}
	}
}
