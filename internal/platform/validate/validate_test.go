package validate

import (
	"strings"
	"testing"
)

type signupForm struct {
	Name, Email, EmailConfirm, Password string
}

func (f signupForm) Values() Values {
	return Values{"nome": f.Name, "email": f.Email, "confirmaEmail": f.EmailConfirm, "senha": f.Password}
}

func (signupForm) Schema() Schema {
	return Schema{
		{Name: "nome", Rules: NameRules()},
		{Name: "email", Rules: EmailRules()},
		{Name: "confirmaEmail", Rules: []Rule{Required(MsgRequired), Equals("email", "Emails não estão iguais")}},
		{Name: "senha", Rules: PasswordRules()},
	}
}

func TestCheck_Valid(t *testing.T) {
	f := signupForm{Name: "Ana Lúcia", Email: "a@b.com", EmailConfirm: "a@b.com", Password: "Abc123!"}
	if errs := Check(f); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestCheck_FirstFailingRuleWins(t *testing.T) {
	errs := Check(signupForm{})
	for _, field := range []string{"nome", "email", "confirmaEmail", "senha"} {
		if errs[field] != MsgRequired {
			t.Errorf("%s: expected %q, got %q", field, MsgRequired, errs[field])
		}
	}

	errs = Check(signupForm{Name: "Jo", Email: "a@b.com", EmailConfirm: "x@b.com", Password: "abc"})
	if errs["nome"] != MsgMinLetters {
		t.Errorf("nome: got %q", errs["nome"])
	}
	if errs["confirmaEmail"] != "Emails não estão iguais" {
		t.Errorf("confirmaEmail: got %q", errs["confirmaEmail"])
	}
	if errs["senha"] != MsgPassword {
		t.Errorf("senha: pattern must be reported before length, got %q", errs["senha"])
	}
	if _, ok := errs["email"]; ok {
		t.Error("valid email must not carry an error")
	}
}

func TestNamePattern(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Maria", true},
		{"José da Silva", true},
		{"Conceição", true},
		{"Ana  Paula", false},
		{" Ana", false},
		{"Ana1", false},
		{"Ana-Paula", false},
	}
	for _, tt := range tests {
		if got := NamePattern.MatchString(tt.in); got != tt.want {
			t.Errorf("NamePattern(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPhonePattern(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"(11) 91234-5678", true},
		{"11912345678", true},
		{"11 3456-7890", true},
		{"(01) 91234-5678", false},
		{"1191234567", false},
		{"(11) 81234-5678", false},
	}
	for _, tt := range tests {
		if got := PhonePattern.MatchString(tt.in); got != tt.want {
			t.Errorf("PhonePattern(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStrongPassword(t *testing.T) {
	rule := StrongPassword("weak")
	for _, ok := range []string{"Abc123!", "xY9#", "Senha@2024"} {
		if msg := rule(ok, nil); msg != "" {
			t.Errorf("%q should pass, got %q", ok, msg)
		}
	}
	for _, bad := range []string{"abc123!", "ABC123!", "Abcdef!", "Abc1234"} {
		if msg := rule(bad, nil); msg != "weak" {
			t.Errorf("%q should fail", bad)
		}
	}
}

func TestIntRange_Ages(t *testing.T) {
	rule := IntRange(0, 120, "min", "max", "nan")
	tests := []struct {
		in   string
		want string
	}{
		{"0", ""},
		{"45", ""},
		{"120", ""},
		{"-1", "min"},
		{"121", "max"},
		{"1000", "max"},
		{"30.5", "nan"},
		{"abc", "nan"},
		{"1e400", "nan"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := rule(tt.in, nil); got != tt.want {
			t.Errorf("IntRange(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhen_ConditionalRequirement(t *testing.T) {
	schema := Schema{{
		Name:  "tipo",
		Rules: []Rule{When(IsTrue("deficiencia"), Required(MsgRequired), OneOf(MsgOption, "surdez", "baixa visão"))},
	}}
	if errs := CheckValues(schema, Values{"deficiencia": "true"}); errs["tipo"] != MsgRequired {
		t.Errorf("expected required when flag set, got %v", errs)
	}
	if errs := CheckValues(schema, Values{"deficiencia": "true", "tipo": "outra"}); errs["tipo"] != MsgOption {
		t.Errorf("expected option error, got %v", errs)
	}
	for _, tipo := range []string{"", "surdez", "anything"} {
		if errs := CheckValues(schema, Values{"deficiencia": "false", "tipo": tipo}); errs != nil {
			t.Errorf("flag unset must never require a type (tipo=%q), got %v", tipo, errs)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	if fe.Err() != nil {
		t.Error("empty FieldErrors must be a nil error")
	}
	fe.Add("email", "first")
	fe.Add("email", "second")
	fe.Add("telefone", "dup")
	if fe["email"] != "first" {
		t.Errorf("Add must keep the first message, got %q", fe["email"])
	}
	if got := fe.Error(); got != "email: first; telefone: dup" {
		t.Errorf("unexpected Error(): %q", got)
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("(11) 91234-5678"); got != "11912345678" {
		t.Errorf("got %q", got)
	}
}

func TestEchoValidator(t *testing.T) {
	v := EchoValidator{}
	err := v.Validate(signupForm{})
	fe, ok := err.(FieldErrors)
	if !ok || fe["email"] != MsgRequired {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if err := v.Validate(struct{}{}); err == nil || !strings.Contains(err.Error(), "does not implement Form") {
		t.Errorf("expected non-form rejection, got %v", err)
	}
}
