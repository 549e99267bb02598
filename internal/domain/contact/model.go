package contact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/platform/validate"
)

const (
	MsgFormat     = "Formatação inválida"
	MsgSubjectLen = "Precisa de pelo menos 10 caracteres"
	MsgBodyLen    = "Precisa de pelo menos 30 caracteres"

	// Prefill values used when nobody is signed in.
	AnonymousName  = "Nome"
	AnonymousEmail = "e@mail.com"
)

var (
	subjectPattern = regexp.MustCompile(`^[^\s][\p{L}\p{N}\p{P}\s]*[^\s]$`)
	cepPattern     = regexp.MustCompile(`^(\d{5})(\d{3})$`)
)

// Text decodes a JSON string or number into its textual form. The contacts
// collection is not consistent about numero and cep.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(v)
	case float64:
		*t = Text(fmt.Sprintf("%.0f", v))
	default:
		return fmt.Errorf("invalid text %s", string(data))
	}
	return nil
}

// Contact is one entry of the hospital contact directory.
type Contact struct {
	Name         string `json:"nome"`
	Email        string `json:"email"`
	Phone        string `json:"telefone"`
	Street       string `json:"rua"`
	Number       Text   `json:"numero"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
	CEP          Text   `json:"cep"`
}

// Address renders "Rua X, 12 • Bairro. Cidade - SP. 01001-000".
func (c Contact) Address() string {
	cep := cepPattern.ReplaceAllString(string(c.CEP), "$1-$2")
	return fmt.Sprintf("Rua %s, %s • %s. %s - SP. %s", c.Street, c.Number, c.Neighborhood, c.City, cep)
}

// Card is the carousel view of the current contact.
type Card struct {
	Name    string `json:"nome"`
	Email   string `json:"email"`
	Phone   string `json:"telefone"`
	Address string `json:"endereco"`
}

func cardOf(c Contact) *Card {
	return &Card{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address()}
}

type CarouselView struct {
	Current  *Card `json:"current,omitempty"`
	Index    int   `json:"index"`
	Total    int   `json:"total"`
	CanCycle bool  `json:"canCycle"`
}

// Recipient is one option of the destinatario select.
type Recipient struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
}

type MessageForm struct {
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Subject   string `json:"assunto"`
	Body      string `json:"conteudo"`
	Recipient string `json:"destinatario"`

	directory []Contact
}

func (f MessageForm) Values() validate.Values {
	return validate.Values{
		"nome":         f.Name,
		"email":        f.Email,
		"assunto":      f.Subject,
		"conteudo":     f.Body,
		"destinatario": f.Recipient,
	}
}

func (f MessageForm) Schema() validate.Schema {
	return validate.Schema{
		{Name: "nome", Rules: validate.NameRules()},
		{Name: "email", Rules: validate.EmailRules()},
		{Name: "assunto", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.Pattern(subjectPattern, MsgFormat),
			validate.MinLength(10, MsgSubjectLen),
		}},
		{Name: "conteudo", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.MinLength(30, MsgBodyLen),
		}},
		{Name: "destinatario", Rules: []validate.Rule{
			validate.Required(validate.MsgRequired),
			validate.Func(func(v string, _ validate.Values) string {
				if v == "" {
					return ""
				}
				if _, ok := f.recipient(v); ok {
					return ""
				}
				return validate.MsgOption
			}),
		}},
	}
}

// recipient resolves the destinatario value, an e-mail or a directory name.
func (f MessageForm) recipient(v string) (Contact, bool) {
	v = strings.TrimSpace(v)
	return lo.Find(f.directory, func(c Contact) bool {
		return strings.EqualFold(c.Email, v) || c.Name == v
	})
}
