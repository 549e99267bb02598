package contact

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Contact, error)
}

type httpRepo struct {
	res backend.Resource
}

func NewHTTPRepo(res backend.Resource) Repository {
	return &httpRepo{res: res}
}

func (r *httpRepo) List(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := r.res.List(ctx, nil, &out); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}
