package feedback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/workflow"
)

type mockRepo struct {
	mu      sync.Mutex
	release chan struct{}
	err     error
	ratings []Rating
}

func (m *mockRepo) Create(ctx context.Context, r Rating) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, r)
	return m.err
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ratings)
}

var rateClock = time.Date(2025, 3, 10, 18, 45, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo, time.UTC, zerolog.Nop())
	svc.SetClock(func() time.Time { return rateClock })
	return svc
}

func TestRate_AcknowledgesWithoutWaiting(t *testing.T) {
	repo := &mockRepo{release: make(chan struct{})}
	svc := newTestService(repo)

	res, err := svc.Rate(context.Background(), Form{Specialty: "cardiologista", Score: 5, Comment: " ótimo atendimento "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != workflow.StateSucceeded || res.Ack.Title != "Obrigado pela sua avaliação!" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if repo.count() != 0 {
		t.Fatal("acknowledgment must not wait on the backend")
	}

	close(repo.release)
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	r := repo.ratings[0]
	if r.ID == "" || r.Score != 5 || r.Comment != "ótimo atendimento" || r.RatedAt != "2025-03-10T18:45:00" {
		t.Errorf("unexpected rating: %+v", r)
	}
}

func TestRate_BackendFailureOnlyLogged(t *testing.T) {
	repo := &mockRepo{err: errors.New("down")}
	svc := newTestService(repo)
	res, _ := svc.Rate(context.Background(), Form{Specialty: "neurologista", Score: 2})
	svc.Wait(context.Background())
	if res.State != workflow.StateSucceeded {
		t.Errorf("expected succeeded, got %s", res.State)
	}
}

func TestRate_Timeout(t *testing.T) {
	repo := &mockRepo{release: make(chan struct{})}
	svc := newTestService(repo)
	svc.SetTimeout(10 * time.Millisecond)
	svc.Rate(context.Background(), Form{Specialty: "ortopedista", Score: 3})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("background post must give up on its own deadline: %v", err)
	}
	if repo.count() != 0 {
		t.Error("timed out post must not be recorded")
	}
}

func TestRate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		form  Form
		field string
		msg   string
	}{
		{"missing specialty", Form{Score: 3}, "especialidade", "Campo obrigatório"},
		{"unknown specialty", Form{Specialty: "dentista", Score: 3}, "especialidade", "Selecione uma opção válida"},
		{"missing score", Form{Specialty: "cardiologista"}, "nota", "Campo obrigatório"},
		{"score too high", Form{Specialty: "cardiologista", Score: 6}, "nota", MsgMaxScore},
		{"score too low", Form{Specialty: "cardiologista", Score: -1}, "nota", MsgMinScore},
		{"long comment", Form{Specialty: "cardiologista", Score: 4, Comment: strings.Repeat("á", 501)}, "comentario", MsgCommentLen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			svc := newTestService(repo)
			res, _ := svc.Rate(context.Background(), tt.form)
			svc.Wait(context.Background())
			if res.State != workflow.StateFieldError || res.FieldErrors[tt.field] != tt.msg {
				t.Errorf("expected %s=%q, got %+v", tt.field, tt.msg, res.FieldErrors)
			}
			if repo.count() != 0 {
				t.Error("invalid ratings must not be sent")
			}
		})
	}
}

func TestHandler_Rate(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)
	h := NewHandler(svc)
	e := echo.New()

	body := `{"especialidade":"fisioterapeuta","nota":4,"comentario":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/ratings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Rate(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Wait(context.Background())
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if repo.count() != 1 {
		t.Errorf("expected one rating, got %d", repo.count())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ratings", strings.NewReader(`{"nota":9}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	h.Rate(e.NewContext(req, rec))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}
