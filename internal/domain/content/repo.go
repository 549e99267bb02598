package content

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Guide, error)
}

type httpRepo struct {
	res backend.Resource
}

func NewHTTPRepo(res backend.Resource) Repository {
	return &httpRepo{res: res}
}

func (r *httpRepo) List(ctx context.Context) ([]Guide, error) {
	var out []Guide
	if err := r.res.List(ctx, nil, &out); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return out, nil
}
