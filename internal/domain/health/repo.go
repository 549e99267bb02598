package health

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	Create(ctx context.Context, r Record) (Record, error)
	Delete(ctx context.Context, id string) error
	Predict(ctx context.Context, r Record) error
}

// Consultations finds the appointment a survey is linked to.
type Consultations interface {
	ListByPatient(ctx context.Context, patientID string) ([]reminder.Consultation, error)
}

type ProfileWriter interface {
	Update(ctx context.Context, id string, u patient.ProfileUpdate) error
}

type httpRepo struct {
	records    backend.Resource
	prediction backend.Resource
}

func NewHTTPRepo(records, prediction backend.Resource) Repository {
	return &httpRepo{records: records, prediction: prediction}
}

func (r *httpRepo) Create(ctx context.Context, rec Record) (Record, error) {
	var out Record
	if err := r.records.Create(ctx, rec, &out); err != nil {
		return Record{}, fmt.Errorf("create health data: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	if err := r.records.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete health data %s: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Predict(ctx context.Context, rec Record) error {
	if err := r.prediction.Create(ctx, rec, nil); err != nil {
		return fmt.Errorf("request prediction: %w", err)
	}
	return nil
}
