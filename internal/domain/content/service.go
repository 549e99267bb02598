package content

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var ErrNotFound = errors.New("guide not found")

// ErrUnavailable is returned when the content collection could not be read.
var ErrUnavailable = errors.New(Placeholder)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) load(ctx context.Context) ([]Guide, error) {
	guides, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load guides")
		return nil, ErrUnavailable
	}
	return guides, nil
}

// Catalog groups every guide into its bucket. An unreachable or empty
// collection yields empty buckets and the placeholder.
func (s *Service) Catalog(ctx context.Context) Catalog {
	guides, err := s.load(ctx)
	byCategory := lo.GroupBy(guides, func(g Guide) Category { return g.Category })

	cat := Catalog{Buckets: lo.Map(Categories, func(c Category, _ int) Bucket {
		return Bucket{
			Category: c,
			Label:    c.Label(),
			Guides: lo.Map(byCategory[c], func(g Guide, _ int) Summary {
				return Summary{ID: g.ID, Title: g.Title, Slug: g.Slug()}
			}),
		}
	})}
	for i := range cat.Buckets {
		if cat.Buckets[i].Guides == nil {
			cat.Buckets[i].Guides = []Summary{}
		}
	}
	if err != nil || len(guides) == 0 {
		cat.Placeholder = Placeholder
	}
	return cat
}

// Bucket returns the guides of one category.
func (s *Service) Bucket(ctx context.Context, c Category) (Bucket, string) {
	cat := s.Catalog(ctx)
	b, _ := lo.Find(cat.Buckets, func(b Bucket) bool { return b.Category == c })
	return b, cat.Placeholder
}

// Find looks a guide up by the slug of its title.
func (s *Service) Find(ctx context.Context, slug string) (View, error) {
	guides, err := s.load(ctx)
	if err != nil {
		return View{}, err
	}
	g, ok := lo.Find(guides, func(g Guide) bool { return g.Slug() == Slug(slug) })
	if !ok {
		return View{}, ErrNotFound
	}
	return viewOf(g), nil
}
