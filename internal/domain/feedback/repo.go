package feedback

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	Create(ctx context.Context, r Rating) error
}

type httpRepo struct {
	res backend.Resource
}

func NewHTTPRepo(res backend.Resource) Repository {
	return &httpRepo{res: res}
}

func (r *httpRepo) Create(ctx context.Context, rating Rating) error {
	if err := r.res.Create(ctx, rating, nil); err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}
