package companion

import "github.com/consultacerta/portal/internal/platform/validate"

const (
	MsgEmailTaken = "Acompanhante já cadastrado com esse email"
	MsgEmailSelf  = "Você já foi cadastrado com esse email"
	MsgPhoneTaken = "Acompanhante já cadastrado com esse telefone"
	MsgPhoneSelf  = "Você já foi cadastrado com esse telefone"
)

// Relationships are the accepted parentesco values.
var Relationships = []string{
	"filho/a", "cuidador/a", "neto/a", "amigo/a",
	"conjuge", "segundo_grau", "terceiro_grau", "outro",
}

type Companion struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"nome"`
	Phone        string `json:"telefone"`
	Email        string `json:"email"`
	Relationship string `json:"parentesco"`
	PatientID    string `json:"idPaciente"`
}

type Form struct {
	Name              string `json:"nome"`
	Phone             string `json:"telefone"`
	Email             string `json:"email"`
	EmailConfirmation string `json:"emailConfirmado"`
	Relationship      string `json:"parentesco"`
}

func (f Form) Values() validate.Values {
	return validate.Values{
		"nome":            f.Name,
		"telefone":        f.Phone,
		"email":           f.Email,
		"emailConfirmado": f.EmailConfirmation,
		"parentesco":      f.Relationship,
	}
}

func (Form) Schema() validate.Schema {
	return validate.Schema{
		{Name: "nome", Rules: validate.NameRules()},
		{Name: "telefone", Rules: validate.PhoneRules()},
		{Name: "email", Rules: validate.EmailRules()},
		{Name: "emailConfirmado", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.Equals("email", "Emails não estão iguais"),
		}},
		{Name: "parentesco", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.OneOf(validate.MsgOption, Relationships...),
		}},
	}
}

func (f Form) companion(patientID string) Companion {
	return Companion{
		Name:         f.Name,
		Phone:        validate.Digits(f.Phone),
		Email:        f.Email,
		Relationship: f.Relationship,
		PatientID:    patientID,
	}
}
