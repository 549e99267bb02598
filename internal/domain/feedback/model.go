package feedback

import (
	"strconv"

	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/validate"
)

const (
	MsgMinScore   = "Nota mínima é 1"
	MsgMaxScore   = "Nota máxima é 5"
	MsgCommentLen = "Comentário pode ter no máximo 500 caracteres"

	maxComment = 500
)

// Rating is the body posted to the ratings collection.
type Rating struct {
	ID        string `json:"id"`
	Specialty string `json:"especialidade"`
	Score     int    `json:"nota"`
	Comment   string `json:"comentario"`
	RatedAt   string `json:"data_avaliacao"`
}

type Form struct {
	Specialty string `json:"especialidade"`
	Score     int    `json:"nota"`
	Comment   string `json:"comentario"`
}

func (f Form) Values() validate.Values {
	score := ""
	if f.Score != 0 {
		score = strconv.Itoa(f.Score)
	}
	return validate.Values{"especialidade": f.Specialty, "nota": score, "comentario": f.Comment}
}

func (Form) Schema() validate.Schema {
	return validate.Schema{
		{Name: "especialidade", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.OneOf(validate.MsgOption, reminder.Specialties...),
		}},
		{Name: "nota", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.IntRange(1, 5, MsgMinScore, MsgMaxScore, validate.MsgOnlyNumbers),
		}},
		{Name: "comentario", Rules: []validate.Rule{
			validate.MaxLength(maxComment, MsgCommentLen),
		}},
	}
}
