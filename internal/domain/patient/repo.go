package patient

import (
	"context"

	"github.com/consultacerta/portal/internal/session"
)

type Repository interface {
	List(ctx context.Context) ([]session.Profile, error)
	Create(ctx context.Context, p NewPatient) (session.Profile, error)
	Update(ctx context.Context, id string, u ProfileUpdate) error
	Delete(ctx context.Context, id string) error
	Login(ctx context.Context, c Credentials) (string, error)
}
