package companion

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Companion, error)
	Create(ctx context.Context, c Companion) (Companion, error)
	Delete(ctx context.Context, id string) error
}

// ProfileWriter updates the owning patient's record.
type ProfileWriter interface {
	Update(ctx context.Context, id string, u patient.ProfileUpdate) error
}

type httpRepo struct {
	res backend.Resource
}

func NewHTTPRepo(res backend.Resource) Repository {
	return &httpRepo{res: res}
}

func (r *httpRepo) List(ctx context.Context) ([]Companion, error) {
	var out []Companion
	if err := r.res.List(ctx, nil, &out); err != nil {
		return nil, fmt.Errorf("list companions: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Create(ctx context.Context, c Companion) (Companion, error) {
	var out Companion
	if err := r.res.Create(ctx, c, &out); err != nil {
		return Companion{}, fmt.Errorf("create companion: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	if err := r.res.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete companion %s: %w", id, err)
	}
	return nil
}
