package health

import (
	"strconv"
	"strings"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/validate"
)

const (
	MsgMinAge = "Idade mínima é 0"
	MsgMaxAge = "Idade máxima é 120"
)

var (
	Sexes        = []string{"f", "m"}
	Disabilities = []string{"surdez", "baixa visão", "mobilidade reduzida"}
)

// Record is a health survey entry as the health-data collection stores it.
type Record struct {
	ID             string       `json:"id,omitempty"`
	Age            int          `json:"idade"`
	Sex            string       `json:"genero"`
	Hypertension   backend.Flag `json:"tem_hipertensao"`
	Diabetes       backend.Flag `json:"tem_diabetes"`
	Alcohol        backend.Flag `json:"consome_alcool"`
	Disability     backend.Flag `json:"possui_deficiencia"`
	DisabilityType *string      `json:"tipo_deficiencia"`
	SubmittedAt    string       `json:"data_agendamento"`
	PatientID      string       `json:"id_paciente"`
	ConsultationID string       `json:"id_consulta"`
	ConsultationAt string       `json:"data_consulta"`
}

type Form struct {
	Age            string `json:"idade"`
	Sex            string `json:"sexo"`
	Hypertension   bool   `json:"temHipertensao"`
	Diabetes       bool   `json:"temDiabetes"`
	Alcohol        bool   `json:"consomeAlcool"`
	Disability     bool   `json:"possuiDeficiencia"`
	DisabilityType string `json:"tipoDeficiencia"`
}

func (f Form) Values() validate.Values {
	return validate.Values{
		"idade":             f.Age,
		"sexo":              f.Sex,
		"temHipertensao":    strconv.FormatBool(f.Hypertension),
		"temDiabetes":       strconv.FormatBool(f.Diabetes),
		"consomeAlcool":     strconv.FormatBool(f.Alcohol),
		"possuiDeficiencia": strconv.FormatBool(f.Disability),
		"tipoDeficiencia":   f.DisabilityType,
	}
}

func (Form) Schema() validate.Schema {
	return validate.Schema{
		{Name: "idade", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.IntRange(0, 120, MsgMinAge, MsgMaxAge, validate.MsgOnlyNumbers),
		}},
		{Name: "sexo", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.OneOf(validate.MsgOption, Sexes...),
		}},
		{Name: "tipoDeficiencia", Rules: []validate.Rule{
			validate.When(validate.IsTrue("possuiDeficiencia"),
				validate.Required(validate.MsgRequired),
				validate.OneOf(validate.MsgOption, Disabilities...),
			),
		}},
	}
}

// record maps a validated form. The disability type is only carried when
// the disability flag is set.
func (f Form) record() Record {
	age, _ := strconv.ParseFloat(strings.TrimSpace(f.Age), 64)
	r := Record{
		Age:          int(age),
		Sex:          f.Sex,
		Hypertension: backend.Flag(f.Hypertension),
		Diabetes:     backend.Flag(f.Diabetes),
		Alcohol:      backend.Flag(f.Alcohol),
		Disability:   backend.Flag(f.Disability),
	}
	if f.Disability {
		t := f.DisabilityType
		r.DisabilityType = &t
	}
	return r
}
