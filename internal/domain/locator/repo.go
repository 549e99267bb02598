package locator

import (
	"context"
	"fmt"
	"net/url"

	"github.com/consultacerta/portal/internal/platform/backend"
)

type Repository interface {
	Nearby(ctx context.Context, cep string) (Result, error)
}

type httpRepo struct {
	res backend.Resource
}

// NewHTTPRepo queries {base}/ubs/perto?cep=.
func NewHTTPRepo(base backend.Resource) Repository {
	return &httpRepo{res: base.Sub("ubs", "perto")}
}

func (r *httpRepo) Nearby(ctx context.Context, cep string) (Result, error) {
	var out Result
	if err := r.res.List(ctx, url.Values{"cep": {cep}}, &out); err != nil {
		return Result{}, fmt.Errorf("nearby clinics for %s: %w", cep, err)
	}
	return out, nil
}
