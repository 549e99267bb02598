package companion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/platform/credstore"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

// ── Mocks ──

type mockRepo struct {
	existing  []Companion
	createErr error
	created   []Companion
	deleted   []string
}

func (m *mockRepo) List(context.Context) ([]Companion, error) { return m.existing, nil }

func (m *mockRepo) Create(_ context.Context, c Companion) (Companion, error) {
	if m.createErr != nil {
		return Companion{}, m.createErr
	}
	c.ID = "c-1"
	m.created = append(m.created, c)
	return c, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockPatients struct {
	err     error
	updates []patient.ProfileUpdate
}

func (m *mockPatients) Update(_ context.Context, _ string, u patient.ProfileUpdate) error {
	m.updates = append(m.updates, u)
	return m.err
}

func newTestService(t *testing.T, repo *mockRepo, patients *mockPatients) (*Service, *session.Store) {
	t.Helper()
	store := session.NewStore(credstore.NewMemory(), "paciente", session.NewTokenDecoder(""), zerolog.Nop())
	err := store.Login(context.Background(), session.ProfileCredential(session.Profile{
		ID: "p-1", Name: "Ana Souza", Email: "ana@b.com", Phone: "11912345678",
	}))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return NewService(repo, patients, store, zerolog.Nop()), store
}

func validForm() Form {
	return Form{
		Name:              "Carlos Souza",
		Phone:             "(11) 98765-4321",
		Email:             "carlos@b.com",
		EmailConfirmation: "carlos@b.com",
		Relationship:      "filho/a",
	}
}

func TestRegister_Success(t *testing.T) {
	repo := &mockRepo{}
	patients := &mockPatients{}
	svc, store := newTestService(t, repo, patients)

	res, err := svc.Register(context.Background(), validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != workflow.StateSucceeded || res.Ack.Title != "Acompanhante Registrado!" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(repo.created) != 1 || repo.created[0].PatientID != "p-1" || repo.created[0].Phone != "11987654321" {
		t.Errorf("unexpected create: %+v", repo.created)
	}
	if len(patients.updates) != 1 || !bool(patients.updates[0].Companions) {
		t.Errorf("expected patient flag update, got %+v", patients.updates)
	}
	if sess, _ := store.Current(); !sess.Companion {
		t.Error("session companion flag must be set")
	}
}

func TestRegister_Conflicts(t *testing.T) {
	tests := []struct {
		name     string
		existing []Companion
		mutate   func(*Form)
		field    string
		want     string
	}{
		{"companion email", []Companion{{Email: "carlos@b.com"}}, nil, "email", MsgEmailTaken},
		{"own email", nil, func(f *Form) { f.Email, f.EmailConfirmation = "ana@b.com", "ana@b.com" }, "email", MsgEmailSelf},
		{"companion phone", []Companion{{Phone: "11987654321"}}, nil, "telefone", MsgPhoneTaken},
		{"own phone", nil, func(f *Form) { f.Phone = "11 91234-5678" }, "telefone", MsgPhoneSelf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{existing: tt.existing}
			svc, _ := newTestService(t, repo, &mockPatients{})
			f := validForm()
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			res, _ := svc.Register(context.Background(), f)
			if res.State != workflow.StateFieldError || res.FieldErrors[tt.field] != tt.want {
				t.Errorf("expected %q on %s, got %+v", tt.want, tt.field, res)
			}
			if len(repo.created) != 0 {
				t.Error("no companion may be created on conflict")
			}
		})
	}
}

func TestRegister_FlagFailureDeletesCompanion(t *testing.T) {
	repo := &mockRepo{}
	svc, store := newTestService(t, repo, &mockPatients{err: errors.New("500")})
	res, _ := svc.Register(context.Background(), validForm())
	if res.State != workflow.StateServerError {
		t.Fatalf("expected server-error, got %s", res.State)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "c-1" {
		t.Errorf("expected compensating delete of c-1, got %v", repo.deleted)
	}
	if sess, _ := store.Current(); sess.Companion {
		t.Error("session must not be flagged after a failure")
	}
}

func TestRegister_InvalidRelationship(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{}, &mockPatients{})
	f := validForm()
	f.Relationship = "chefe"
	res, _ := svc.Register(context.Background(), f)
	if res.FieldErrors["parentesco"] == "" {
		t.Errorf("expected relationship error, got %+v", res)
	}
}

func TestHandler_Create(t *testing.T) {
	svc, store := newTestService(t, &mockRepo{}, &mockPatients{})
	h := NewHandler(svc, store)
	e := echo.New()
	body := `{"nome":"Carlos Souza","telefone":"11987654321","email":"carlos@b.com","emailConfirmado":"carlos@b.com","parentesco":"outro"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Acompanhante Registrado!") {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
