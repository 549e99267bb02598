package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultacerta/portal/internal/config"
	"github.com/consultacerta/portal/internal/platform/guard"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/platform/workflow"
)

// ---------------------------------------------------------------------------
// Output and exit status
// ---------------------------------------------------------------------------

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	err := printResult(&buf, workflow.Result{
		State:       workflow.StateFieldError,
		FieldErrors: validate.FieldErrors{"telefone": "Telefone já cadastrado", "email": "Email já cadastrado"},
	})
	if !errors.Is(err, errFieldErrors) {
		t.Fatalf("expected errFieldErrors, got %v", err)
	}
	want := "  email: Email já cadastrado\n  telefone: Telefone já cadastrado\n"
	if buf.String() != want {
		t.Errorf("field errors must print sorted, got %q", buf.String())
	}

	buf.Reset()
	ack := workflow.ServerUnavailable
	if err := printResult(&buf, workflow.Result{State: workflow.StateServerError, Ack: &ack}); !errors.Is(err, errServer) {
		t.Fatalf("expected errServer, got %v", err)
	}
	if !strings.Contains(buf.String(), ack.Title) || !strings.Contains(buf.String(), ack.Message) {
		t.Errorf("server acknowledgment not printed: %q", buf.String())
	}

	buf.Reset()
	declined := workflow.Ack{Kind: workflow.AckDeclined, Title: "Sem consulta ativa"}
	if err := printResult(&buf, workflow.Result{State: workflow.StateDeclined, Ack: &declined}); err != nil {
		t.Errorf("a declined outcome is not a failure, got %v", err)
	}
}

func TestReport(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		out  string
	}{
		{"already signed in", &guard.Redirect{To: guard.HomeRoute}, 0, "já está conectado"},
		{"sign in required", &guard.Redirect{To: guard.LoginRoute}, 1, "portal login"},
		{"field errors", errFieldErrors, 2, ""},
		{"server", errServer, 1, ""},
		{"other", errors.New("boom"), 1, "erro: boom"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if got := report(&buf, tc.err); got != tc.code {
			t.Errorf("%s: expected exit %d, got %d", tc.name, tc.code, got)
		}
		if !strings.Contains(buf.String(), tc.out) {
			t.Errorf("%s: expected output containing %q, got %q", tc.name, tc.out, buf.String())
		}
	}
}

// ---------------------------------------------------------------------------
// Command tree
// ---------------------------------------------------------------------------

func TestEveryRunnableCommandHasAccess(t *testing.T) {
	var walk func(*cobra.Command)
	walk = func(cmd *cobra.Command) {
		if cmd.RunE != nil {
			raw, ok := cmd.Annotations[guard.Annotation]
			if !ok {
				t.Errorf("%s has no access annotation", cmd.CommandPath())
			} else if _, err := guard.ParseAccess(raw); err != nil {
				t.Errorf("%s: %v", cmd.CommandPath(), err)
			}
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(newRootCmd())
}

func TestCommandAccessLevels(t *testing.T) {
	want := map[string]guard.Access{
		"serve":         guard.Public,
		"login":         guard.AnonymousOnly,
		"register":      guard.AnonymousOnly,
		"logout":        guard.Restricted,
		"whoami":        guard.Restricted,
		"reminders add": guard.Restricted,
		"survey":        guard.Restricted,
		"companion add": guard.Restricted,
		"rate":          guard.Public,
		"guides list":   guard.Public,
		"ubs":           guard.Public,
	}
	root := newRootCmd()
	for path, access := range want {
		cmd, _, err := root.Find(strings.Fields(path))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if got := cmd.Annotations[guard.Annotation]; got != access.String() {
			t.Errorf("%s: expected %s, got %s", path, access, got)
		}
	}
}

// backendEnv points every collection at srv and keeps credentials in memory.
func backendEnv(t *testing.T, srv *httptest.Server) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("SESSION_STORE", config.StoreMemory)
	for _, k := range []string{
		"API_BASE_PACIENTES", "API_BASE_ACOMPANHANTES", "API_BASE_CONSULTAS",
		"API_BASE_DADOS_SAUDE", "API_DADOS_SAUDE_PREDICAO", "API_BASE_CONTATOS",
		"API_BASE_AVALIACOES", "API_ENVIAR_LEMBRETES", "API_BASE_CONTEUDOS",
	} {
		t.Setenv(k, srv.URL+"/"+strings.ToLower(k))
	}
	t.Setenv("API_UBS_LOCALIZADOR", srv.URL)
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommand_RestrictedWithoutSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	backendEnv(t, srv)

	_, err := execute("whoami")
	var redirect *guard.Redirect
	if !errors.As(err, &redirect) || redirect.To != guard.LoginRoute {
		t.Fatalf("expected redirect to login, got %v", err)
	}
}

func TestSetup_GuardFailureReleasesApp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	backendEnv(t, srv)

	c := &cli{}
	cmd := withAccess(&cobra.Command{Use: "whoami"}, guard.Restricted)
	cmd.SetContext(context.Background())
	var redirect *guard.Redirect
	if err := c.setup(cmd); !errors.As(err, &redirect) {
		t.Fatalf("expected a redirect, got %v", err)
	}
	if c.app != nil {
		t.Error("an app rejected by the guard must not be kept")
	}

	public := withAccess(&cobra.Command{Use: "guides"}, guard.Public)
	public.SetContext(context.Background())
	if err := c.setup(public); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.app == nil {
		t.Fatal("expected an app for a permitted command")
	}
	c.app.Close()
}

func TestCommand_GuidesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api_base_conteudos" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "1", "titulo": "Como agendar sua consulta", "texto": "a", "tipo": "p"},
			{"id": "2", "titulo": "Teleconsulta: primeiros passos", "texto": "b", "tipo": "t"},
		})
	}))
	defer srv.Close()
	backendEnv(t, srv)

	out, err := execute("guides", "list", "--category", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Teleconsulta") || !strings.Contains(out, "teleconsulta-primeiros-passos") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "como-agendar") {
		t.Errorf("other categories must be filtered out, got %q", out)
	}
}

func TestCommand_UBSInvalidCEP(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()
	backendEnv(t, srv)

	out, err := execute("ubs", "123")
	if !errors.Is(err, errFieldErrors) {
		t.Fatalf("expected errFieldErrors, got %v", err)
	}
	if !strings.Contains(out, "cep:") {
		t.Errorf("expected cep field error, got %q", out)
	}
	if hits != 0 {
		t.Error("an invalid CEP must not reach the network")
	}
}

// ---------------------------------------------------------------------------
// Gateway
// ---------------------------------------------------------------------------

func newTestApp(t *testing.T, backendURL string) *app {
	t.Helper()
	cfg := &config.Config{
		Port:         "0",
		Env:          "test",
		HTTPTimeout:  2 * time.Second,
		CORSOrigins:  []string{"http://localhost:5173"},
		Timezone:     "America/Sao_Paulo",
		SessionStore: config.StoreMemory,
		SessionKey:   "paciente",
		Endpoints: config.Endpoints{
			Patients:      backendURL + "/pacientes",
			Consultations: backendURL + "/consultas",
			Content:       backendURL + "/conteudos",
			Contacts:      backendURL + "/contatos",
		},
	}
	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	if err := a.sessions.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return a
}

func TestBuildServer_Routes(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	e := buildServer(newTestApp(t, backend.URL))

	cases := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/session", http.StatusNoContent},
		{http.MethodGet, "/api/reminders", http.StatusSeeOther},
		{http.MethodGet, "/api/profile", http.StatusSeeOther},
		{http.MethodGet, "/api/health-survey", http.StatusOK},
		{http.MethodGet, "/api/ubs?cep=1", http.StatusUnprocessableEntity},
		{http.MethodGet, "/health/db", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.code {
			t.Errorf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.code, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reminders", nil))
	if loc := rec.Header().Get("Location"); loc != guard.LoginRoute {
		t.Errorf("expected redirect to %s, got %q", guard.LoginRoute, loc)
	}
}

func TestBuildServer_MetricsCountRequests(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	e := buildServer(newTestApp(t, backend.URL))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `portal_http_requests_total{method="GET",route="/health",status="200"}`) {
		t.Errorf("expected /health to be counted, got:\n%s", rec.Body.String())
	}
}

func TestBuildServer_RequestIDEchoed(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	e := buildServer(newTestApp(t, backend.URL))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on every response")
	}
}
