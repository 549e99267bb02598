package reminder

import (
	"time"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/validate"
)

const (
	// InputLayout is the datetime-local format the form submits.
	InputLayout = "2006-01-02T15:04"
	// StampLayout is how creation timestamps are sent to the backend.
	StampLayout = "2006-01-02T15:04:05"
	// DisplayLayout renders a consultation time for the patient.
	DisplayLayout = "02/01/2006 às 15:04"

	MsgPast        = "Sua consulta já aconteceu"
	MsgTooFar      = "Não são marcadas consultas tão afrente"
	MsgInvalidDate = "Data inválida"
	Placeholder    = "Conteúdo indisponível, servidor fora do ar."
)

var Specialties = []string{"fisioterapeuta", "cardiologista", "neurologista", "optometrista", "ortopedista"}

type Consultation struct {
	ID          string       `json:"id,omitempty"`
	Specialty   string       `json:"especialidade"`
	ScheduledAt string       `json:"dataConsulta"`
	Active      backend.Flag `json:"ativa"`
	PatientID   string       `json:"idPaciente"`
	CreatedAt   string       `json:"dataAgendamento"`
}

// Dispatch is the body sent to the reminder e-mail service.
type Dispatch struct {
	Name        string `json:"nome"`
	Email       string `json:"email"`
	Phone       string `json:"telefone"`
	Specialty   string `json:"especialidade"`
	ScheduledAt string `json:"data_consulta"`
	PatientID   string `json:"id_paciente"`
}

// Item is one row of the reminder list.
type Item struct {
	ID        string `json:"id"`
	Specialty string `json:"especialidade"`
	When      string `json:"horario"`
	Active    bool   `json:"ativa"`
}

type Listing struct {
	Items       []Item `json:"items"`
	Placeholder string `json:"placeholder,omitempty"`
}

type Form struct {
	Specialty   string `json:"especialidade"`
	ScheduledAt string `json:"dataConsulta"`

	now time.Time
	loc *time.Location
}

func (f Form) Values() validate.Values {
	return validate.Values{"especialidade": f.Specialty, "dataConsulta": f.ScheduledAt}
}

func (f Form) Schema() validate.Schema {
	return validate.Schema{
		{Name: "especialidade", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.OneOf(validate.MsgOption, Specialties...),
		}},
		{Name: "dataConsulta", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			Window(f.now, f.loc),
		}},
	}
}

// Window accepts a local datetime d with now <= d < now + 1 month.
func Window(now time.Time, loc *time.Location) validate.Rule {
	return func(v string, _ validate.Values) string {
		if v == "" {
			return ""
		}
		d, err := ParseLocal(v, loc)
		if err != nil {
			return MsgInvalidDate
		}
		if d.Before(now) {
			return MsgPast
		}
		if !d.Before(now.AddDate(0, 1, 0)) {
			return MsgTooFar
		}
		return ""
	}
}

// ParseLocal reads a datetime-local value, with or without seconds.
func ParseLocal(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(InputLayout, v, loc)
	if err == nil {
		return d, nil
	}
	return time.ParseInLocation(StampLayout, v, loc)
}

// Display renders a stored consultation time, falling back to the raw value.
func Display(v string, loc *time.Location) string {
	d, err := ParseLocal(v, loc)
	if err != nil {
		return v
	}
	return d.Format(DisplayLayout)
}
