package contact

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/credstore"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

type mockRepo struct {
	list  []Contact
	err   error
	calls int
}

func (m *mockRepo) List(context.Context) ([]Contact, error) {
	m.calls++
	return m.list, m.err
}

var directory = []Contact{
	{Name: "Ouvidoria", Email: "ouvidoria@hc.sp.gov.br", Phone: "(11) 2661-7041", Street: "Dr. Ovídio Pires de Campos", Number: "225", Neighborhood: "Cerqueira César", City: "São Paulo", CEP: "05403010"},
	{Name: "Telemedicina", Email: "tele@hc.sp.gov.br"},
}

func newTestService(repo Repository) (*Service, *session.Store) {
	store := session.NewStore(credstore.NewMemory(), "paciente", session.NewTokenDecoder(""), zerolog.Nop())
	return NewService(repo, store, zerolog.Nop()), store
}

func validMessage() MessageForm {
	return MessageForm{
		Name:      "Ana Souza",
		Email:     "ana@b.com",
		Subject:   "Remarcar consulta",
		Body:      "Gostaria de remarcar minha teleconsulta de quinta.",
		Recipient: "ouvidoria@hc.sp.gov.br",
	}
}

func TestContact_Address(t *testing.T) {
	want := "Rua Dr. Ovídio Pires de Campos, 225 • Cerqueira César. São Paulo - SP. 05403-010"
	if got := directory[0].Address(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestContact_DecodesNumericFields(t *testing.T) {
	var c Contact
	if err := json.Unmarshal([]byte(`{"nome":"X","numero":12,"cep":"01001000"}`), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Number != "12" || c.CEP != "01001000" {
		t.Errorf("unexpected contact: %+v", c)
	}
}

func TestLoad_FailureLeavesEmptyDirectory(t *testing.T) {
	svc, _ := newTestService(&mockRepo{err: errors.New("down")})
	v := svc.Load(context.Background())
	if v.Current != nil || v.Total != 0 || v.CanCycle {
		t.Errorf("unexpected view: %+v", v)
	}
}

func TestNavigation(t *testing.T) {
	svc, _ := newTestService(&mockRepo{list: directory})
	svc.Load(context.Background())
	if v := svc.Next(); v.Current.Name != "Telemedicina" || v.Index != 1 {
		t.Errorf("unexpected view: %+v", v)
	}
	if v := svc.Next(); v.Current.Name != "Ouvidoria" {
		t.Errorf("expected wrap to first, got %+v", v.Current)
	}
	if v := svc.Prev(); v.Current.Name != "Telemedicina" {
		t.Errorf("expected wrap to last, got %+v", v.Current)
	}
}

func TestSend_Success(t *testing.T) {
	repo := &mockRepo{list: directory}
	svc, _ := newTestService(repo)
	res, err := svc.Send(context.Background(), validMessage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != workflow.StateSucceeded || res.Ack.Title != "Dúvida enviada ao HC!" {
		t.Errorf("unexpected result: %+v", res)
	}
	if repo.calls != 1 {
		t.Errorf("directory must load once, got %d", repo.calls)
	}

	f := validMessage()
	f.Recipient = "Telemedicina"
	if res, _ := svc.Send(context.Background(), f); res.State != workflow.StateSucceeded {
		t.Errorf("recipient by name must be accepted, got %+v", res)
	}
}

func TestSend_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*MessageForm)
		field string
		msg   string
	}{
		{"subject leading space", func(f *MessageForm) { f.Subject = " Remarcar consulta" }, "assunto", MsgFormat},
		{"subject trailing space", func(f *MessageForm) { f.Subject = "Remarcar consulta " }, "assunto", MsgFormat},
		{"short subject", func(f *MessageForm) { f.Subject = "Remarcar" }, "assunto", MsgSubjectLen},
		{"short body", func(f *MessageForm) { f.Body = "Oi" }, "conteudo", MsgBodyLen},
		{"unknown recipient", func(f *MessageForm) { f.Recipient = "x@y.com" }, "destinatario", "Selecione uma opção válida"},
		{"missing recipient", func(f *MessageForm) { f.Recipient = "" }, "destinatario", "Campo obrigatório"},
		{"bad name", func(f *MessageForm) { f.Name = "Ana1" }, "nome", "Precisa ser apenas letras"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(&mockRepo{list: directory})
			f := validMessage()
			tt.edit(&f)
			res, _ := svc.Send(context.Background(), f)
			if res.State != workflow.StateFieldError || res.FieldErrors[tt.field] != tt.msg {
				t.Errorf("expected %s=%q, got %+v", tt.field, tt.msg, res.FieldErrors)
			}
		})
	}
}

func TestPrefill(t *testing.T) {
	svc, store := newTestService(&mockRepo{})
	f := svc.Prefill(MessageForm{Subject: "keep"})
	if f.Name != AnonymousName || f.Email != AnonymousEmail || f.Subject != "keep" {
		t.Errorf("unexpected anonymous prefill: %+v", f)
	}

	store.Login(context.Background(), session.ProfileCredential(session.Profile{ID: "1", Name: "Bruno Lima", Email: "b@c.com"}))
	f = svc.Prefill(MessageForm{})
	if f.Name != "Bruno Lima" || !strings.EqualFold(f.Email, "b@c.com") {
		t.Errorf("unexpected prefill: %+v", f)
	}
}
