package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient() *Client {
	return NewClient(2*time.Second, zerolog.Nop())
}

func TestClient_PostDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["nome"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := newTestClient().Post(context.Background(), srv.URL, map[string]string{"nome": "Ana"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "Ana" {
		t.Errorf("expected echo Ana, got %q", out["echo"])
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"erro":"CEP não encontrado"}`)
	}))
	defer srv.Close()

	err := newTestClient().Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("expected IsStatus 404, got %v", err)
	}
	if IsStatus(err, http.StatusUnauthorized, http.StatusInternalServerError) {
		t.Error("did not expect 401/500 match")
	}

	var body struct {
		Erro string `json:"erro"`
	}
	if !Decode(err, &body) || body.Erro != "CEP não encontrado" {
		t.Errorf("expected error body decoded, got %+v", body)
	}
}

func TestClient_EmptyBodyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out map[string]interface{}
	if err := newTestClient().Put(context.Background(), srv.URL, map[string]string{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := newTestClient().Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Error("transport failure must not be a StatusError")
	}
}

func TestResource_At(t *testing.T) {
	r := NewResource(newTestClient(), "http://api/pacientes/")
	if got := r.At("42"); got != "http://api/pacientes/42" {
		t.Errorf("At(42) = %q", got)
	}
	if got := r.At("login"); got != "http://api/pacientes/login" {
		t.Errorf("At(login) = %q", got)
	}
	if got := r.At("a b"); got != "http://api/pacientes/a%20b" {
		t.Errorf("At(a b) = %q", got)
	}
	if got := r.At(); got != "http://api/pacientes" {
		t.Errorf("At() = %q", got)
	}
	if got := r.Sub("ubs", "perto").At(); got != "http://api/pacientes/ubs/perto" {
		t.Errorf("Sub(ubs, perto) = %q", got)
	}
}

func TestResource_ListQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("idPaciente"); got != "7" {
			t.Errorf("expected idPaciente=7, got %q", got)
		}
		io.WriteString(w, `[{"id":"1"}]`)
	}))
	defer srv.Close()

	var out []map[string]string
	r := NewResource(newTestClient(), srv.URL)
	if err := r.List(context.Background(), url.Values{"idPaciente": {"7"}}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 item, got %d", len(out))
	}
}

func TestFlag_JSON(t *testing.T) {
	var v struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
		D Flag `json:"d"`
		E Flag `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"a":"s","b":"N","c":true,"d":null,"e":"S"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.A || v.B || !v.C || v.D || !v.E {
		t.Errorf("unexpected flags: %+v", v)
	}

	out, _ := json.Marshal(struct {
		X Flag `json:"x"`
	}{true})
	if string(out) != `{"x":"s"}` {
		t.Errorf("expected s encoding, got %s", out)
	}

	if err := json.Unmarshal([]byte(`{"a":"talvez"}`), &v); err == nil {
		t.Error("expected error for invalid flag")
	}
	if Flag(true).Upper() != "S" || Flag(false).Upper() != "N" {
		t.Error("unexpected Upper rendering")
	}
}
