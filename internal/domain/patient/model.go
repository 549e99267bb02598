package patient

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/session"
)

const (
	MsgEmailTaken      = "Email já cadastrado"
	MsgPhoneTaken      = "Telefone já cadastrado"
	MsgEmailUnknown    = "Email não cadastrado"
	MsgWrongPassword   = "Senha incorreta"
	MsgEmailsDiffer    = "Emails não estão iguais"
	MsgPasswordsDiffer = "Senhas não estão iguais"
)

// RegistrationForm is the "Criar perfil" form.
type RegistrationForm struct {
	Name              string `json:"nome"`
	Phone             string `json:"telefone"`
	Email             string `json:"email"`
	EmailConfirmation string `json:"emailConfirmado"`
	Password          string `json:"senha"`
	PasswordConfirm   string `json:"senhaConfirmada"`
	Companion         bool   `json:"acompanhante"`
}

func (f RegistrationForm) Values() validate.Values {
	return validate.Values{
		"nome":            f.Name,
		"telefone":        f.Phone,
		"email":           f.Email,
		"emailConfirmado": f.EmailConfirmation,
		"senha":           f.Password,
		"senhaConfirmada": f.PasswordConfirm,
		"acompanhante":    strconv.FormatBool(f.Companion),
	}
}

func (RegistrationForm) Schema() validate.Schema {
	return validate.Schema{
		{Name: "nome", Rules: validate.NameRules()},
		{Name: "telefone", Rules: validate.PhoneRules()},
		{Name: "email", Rules: validate.EmailRules()},
		{Name: "emailConfirmado", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.Equals("email", MsgEmailsDiffer),
		}},
		{Name: "senha", Rules: validate.PasswordRules()},
		{Name: "senhaConfirmada", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.Equals("senha", MsgPasswordsDiffer),
		}},
	}
}

// payload is the body of POST patients.
func (f RegistrationForm) payload() NewPatient {
	return NewPatient{
		Name:      strings.TrimSpace(f.Name),
		Phone:     validate.Digits(f.Phone),
		Email:     f.Email,
		Password:  f.Password,
		Companion: backend.Flag(f.Companion).Upper(),
	}
}

// LoginForm is the "Entrar" form.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

func (f LoginForm) Values() validate.Values {
	return validate.Values{"email": f.Email, "senha": f.Password}
}

func (LoginForm) Schema() validate.Schema {
	return validate.Schema{
		{Name: "email", Rules: validate.EmailRules()},
		{Name: "senha", Rules: validate.PasswordRules()},
	}
}

type NewPatient struct {
	Name      string `json:"nome"`
	Phone     string `json:"telefone"`
	Email     string `json:"email"`
	Password  string `json:"senha"`
	Companion string `json:"acompanhante"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// ProfileUpdate is the body of PUT patients/{id}. The backend replaces the
// record, so every field is sent.
type ProfileUpdate struct {
	Name       string       `json:"nome"`
	Phone      string       `json:"telefone"`
	Email      string       `json:"email"`
	Companions backend.Flag `json:"acompanhantes"`
	HealthData backend.Flag `json:"dadosSaude"`
}

// UpdateFrom builds the PUT body from the signed-in session.
func UpdateFrom(s session.Session) ProfileUpdate {
	return ProfileUpdate{
		Name:       s.Name,
		Phone:      s.Phone,
		Email:      s.Email,
		Companions: backend.Flag(s.Companion),
		HealthData: backend.Flag(s.HealthDataSubmitted),
	}
}

// View is what the profile screen shows.
type View struct {
	Name       string `json:"nome"`
	FirstName  string `json:"primeiroNome"`
	Email      string `json:"email"`
	Phone      string `json:"telefone"`
	Companion  bool   `json:"acompanhantes"`
	HealthData bool   `json:"dadosSaude"`
}

var phoneDigits = regexp.MustCompile(`^(\d{2})(\d{5})(\d{4})$`)

// FormatPhone renders an 11 digit mobile number as (11) 91234-5678. Other
// shapes are returned unchanged.
func FormatPhone(digits string) string {
	return phoneDigits.ReplaceAllString(digits, "($1) $2-$3")
}

func viewOf(s session.Session) View {
	return View{
		Name:       s.Name,
		FirstName:  s.FirstName(),
		Email:      s.Email,
		Phone:      FormatPhone(s.Phone),
		Companion:  s.Companion,
		HealthData: s.HealthDataSubmitted,
	}
}
