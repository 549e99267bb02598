package locator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/validate"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Search finds the clinics near a CEP. An invalid CEP is reported as
// validate.FieldErrors without any request; backend failures as
// *LookupError.
func (s *Service) Search(ctx context.Context, f Form) (View, error) {
	if errs := validate.Check(f); errs != nil {
		return View{}, errs
	}
	cep := validate.Digits(f.CEP)

	res, err := s.repo.Nearby(ctx, cep)
	if err != nil {
		return View{}, s.lookupError(err)
	}

	v := View{
		CEP:     cep,
		Heading: fmt.Sprintf("Encontradas em %s - %s:", res.City, res.State),
		Clinics: lo.Map(res.Clinics, func(c Clinic, _ int) ClinicView {
			return ClinicView{Name: c.Name, Address: c.Address, Distance: c.DistanceLabel()}
		}),
	}
	if len(v.Clinics) == 0 {
		v.Empty = MsgNoneFound
	}
	return v, nil
}

func (s *Service) lookupError(err error) *LookupError {
	var se *backend.StatusError
	if !errors.As(err, &se) {
		s.logger.Warn().Err(err).Msg("clinic locator unreachable")
		return &LookupError{Message: MsgUnreachable, Err: err}
	}
	var body errorBody
	if backend.Decode(err, &body) && body.Message != "" {
		return &LookupError{Message: body.Message, Err: err}
	}
	return &LookupError{Message: MsgSearchError, Err: err}
}
