package patient

import (
	"context"
	"fmt"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/session"
)

type httpRepo struct {
	res backend.Resource
}

func NewHTTPRepo(res backend.Resource) Repository {
	return &httpRepo{res: res}
}

func (r *httpRepo) List(ctx context.Context) ([]session.Profile, error) {
	var out []session.Profile
	if err := r.res.List(ctx, nil, &out); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Create(ctx context.Context, p NewPatient) (session.Profile, error) {
	var out session.Profile
	if err := r.res.Create(ctx, p, &out); err != nil {
		return session.Profile{}, fmt.Errorf("create patient: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Update(ctx context.Context, id string, u ProfileUpdate) error {
	if err := r.res.Update(ctx, id, u, nil); err != nil {
		return fmt.Errorf("update patient %s: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	if err := r.res.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Login(ctx context.Context, c Credentials) (string, error) {
	var out tokenResponse
	if err := r.res.PostTo(ctx, "login", c, &out); err != nil {
		return "", fmt.Errorf("patient login: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("patient login: empty token")
	}
	return out.Token, nil
}
