package reminder

import (
	"context"
	"fmt"
	"net/url"

	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	ListByPatient(ctx context.Context, patientID string) ([]Consultation, error)
	Create(ctx context.Context, c Consultation) (Consultation, error)
	Delete(ctx context.Context, id string) error
	Dispatch(ctx context.Context, d Dispatch) error
}

type httpRepo struct {
	consultations backend.Resource
	notify        backend.Resource
}

func NewHTTPRepo(consultations, notify backend.Resource) Repository {
	return &httpRepo{consultations: consultations, notify: notify}
}

func (r *httpRepo) ListByPatient(ctx context.Context, patientID string) ([]Consultation, error) {
	var out []Consultation
	q := url.Values{"idPaciente": []string{patientID}}
	if err := r.consultations.List(ctx, q, &out); err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Create(ctx context.Context, c Consultation) (Consultation, error) {
	var out Consultation
	if err := r.consultations.Create(ctx, c, &out); err != nil {
		return Consultation{}, fmt.Errorf("create consultation: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	if err := r.consultations.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete consultation %s: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Dispatch(ctx context.Context, d Dispatch) error {
	if err := r.notify.Create(ctx, d, nil); err != nil {
		return fmt.Errorf("dispatch reminder: %w", err)
	}
	return nil
}
