package locator

import (
	"fmt"

	"github.com/consultacerta/portal/internal/platform/validate"
)

const (
	MsgInvalidCEP  = "Por favor, digite um CEP válido com 8 dígitos."
	MsgSearchError = "Ocorreu um erro ao buscar as UBS."
	MsgUnreachable = "Não foi possível conectar ao serviço de busca de UBS."
	MsgNoneFound   = "Nenhuma UBS encontrada na cidade."
)

// Clinic is one nearby UBS. Distance is absent when the service could not
// locate the CEP.
type Clinic struct {
	Name      string   `json:"nome"`
	Address   string   `json:"endereco"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Distance  *float64 `json:"distancia_km,omitempty"`
}

// DistanceLabel renders the distance with two decimals, or "" when unknown.
func (c Clinic) DistanceLabel() string {
	if c.Distance == nil || *c.Distance == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f km", *c.Distance)
}

// Result is the locator service response.
type Result struct {
	CEP     string   `json:"cep"`
	City    string   `json:"cidade"`
	State   string   `json:"uf"`
	Clinics []Clinic `json:"ubs_proximas"`
}

type errorBody struct {
	Message string `json:"erro"`
}

// LookupError is a failed search with the message shown to the patient.
type LookupError struct {
	Message string
	Err     error
}

func (e *LookupError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *LookupError) Unwrap() error { return e.Err }

type Form struct {
	CEP string `json:"cep" query:"cep"`
}

func (f Form) Values() validate.Values { return validate.Values{"cep": f.CEP} }

func (Form) Schema() validate.Schema {
	return validate.Schema{{Name: "cep", Rules: []validate.Rule{
		validate.Func(func(v string, _ validate.Values) string {
			if len(validate.Digits(v)) != 8 {
				return MsgInvalidCEP
			}
			return ""
		}),
	}}}
}

// ClinicView is a clinic as the result list shows it.
type ClinicView struct {
	Name     string `json:"nome"`
	Address  string `json:"endereco"`
	Distance string `json:"distancia,omitempty"`
}

type View struct {
	CEP     string       `json:"cep"`
	Heading string       `json:"heading"`
	Clinics []ClinicView `json:"ubs"`
	Empty   string       `json:"empty,omitempty"`
}
