package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/credstore"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

// fakeBackend records every request it serves.
type fakeBackend struct {
	mu       sync.Mutex
	requests []string
	handler  http.HandlerFunc
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeBackend) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

func newScenario(t *testing.T, h http.HandlerFunc) (*Service, *session.Store, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{handler: h}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	client := backend.NewClient(5*time.Second, zerolog.Nop())
	repo := NewHTTPRepo(backend.NewResource(client, srv.URL+"/pacientes"))
	store := session.NewStore(credstore.NewMemory(), "paciente", session.NewTokenDecoder(""), zerolog.Nop())
	return NewService(repo, store, zerolog.Nop()), store, fb
}

func TestScenario_LoginSuccess(t *testing.T) {
	token := signedToken(t, "p-77", time.Now().Add(time.Hour))
	svc, store, fb := newScenario(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pacientes/login" {
			http.NotFound(w, r)
			return
		}
		var body Credentials
		json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "a@b.com" || body.Password != "Abc123!" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})

	res, err := svc.Login(context.Background(), LoginForm{Email: "a@b.com", Password: "Abc123!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != workflow.StateSucceeded || len(res.FieldErrors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	sess, ok := store.Current()
	if !ok || sess.Subject != "p-77" {
		t.Errorf("expected session for p-77, got %+v", sess)
	}
	if fb.count(http.MethodPost, "/pacientes/login") != 1 {
		t.Errorf("expected one login request, got %v", fb.requests)
	}
}

func TestScenario_LoginUnknownEmail(t *testing.T) {
	svc, store, _ := newScenario(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	res, _ := svc.Login(context.Background(), LoginForm{Email: "a@b.com", Password: "Abc123!"})
	if res.FieldErrors["email"] != "Email não cadastrado" {
		t.Errorf("expected email field error, got %+v", res)
	}
	if store.SignedIn() {
		t.Error("session must remain empty")
	}
}

func TestScenario_RegistrationDuplicateEmail(t *testing.T) {
	svc, store, fb := newScenario(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "1", "nome": "Outra", "email": "a@b.com", "telefone": "11988887777"},
			})
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"2"}`))
	})
	f := validRegistration()
	f.Name = "Ana Souza"
	res, _ := svc.Register(context.Background(), f)
	if res.State != workflow.StateFieldError || res.FieldErrors["email"] != MsgEmailTaken {
		t.Fatalf("expected email conflict, got %+v", res)
	}
	if n := fb.count(http.MethodPost, "/pacientes"); n != 0 {
		t.Errorf("expected no create request, got %d", n)
	}
	if store.SignedIn() {
		t.Error("session must remain empty")
	}
}
