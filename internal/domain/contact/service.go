package contact

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

var sent = workflow.Ack{
	Kind:    workflow.AckSuccess,
	Title:   "Dúvida enviada ao HC!",
	Message: "Acompanhe seu email para continuar a conversa por lá.",
}

type Service struct {
	repo     Repository
	sessions *session.Store
	logger   zerolog.Logger
	carousel *Carousel
	sub      *workflow.Submission
}

func NewService(repo Repository, sessions *session.Store, logger zerolog.Logger, opts ...workflow.Option) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		carousel: NewCarousel(nil),
		sub:      workflow.New("contact-message", logger, opts...),
	}
}

func (s *Service) Submission() *workflow.Submission { return s.sub }

func (s *Service) Carousel() *Carousel { return s.carousel }

// Load refreshes the directory. A failed fetch leaves an empty directory.
func (s *Service) Load(ctx context.Context) CarouselView {
	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load contacts")
		items = nil
	}
	s.carousel.Set(items)
	return s.View()
}

// ensureLoaded fetches the directory the first time it is needed.
func (s *Service) ensureLoaded(ctx context.Context) {
	if s.carousel.Len() == 0 {
		s.Load(ctx)
	}
}

func (s *Service) View() CarouselView {
	v := CarouselView{Index: s.carousel.Index(), Total: s.carousel.Len(), CanCycle: s.carousel.CanCycle()}
	if c, ok := s.carousel.Current(); ok {
		v.Current = cardOf(c)
	}
	return v
}

func (s *Service) Next() CarouselView {
	s.carousel.Next()
	return s.View()
}

func (s *Service) Prev() CarouselView {
	s.carousel.Prev()
	return s.View()
}

// Recipients lists the destinatario options in directory order.
func (s *Service) Recipients(ctx context.Context) []Recipient {
	s.ensureLoaded(ctx)
	return lo.Map(s.carousel.Items(), func(c Contact, _ int) Recipient {
		return Recipient{Name: c.Name, Email: c.Email}
	})
}

// Prefill fills name and e-mail from the signed-in patient, or with the
// anonymous placeholders.
func (s *Service) Prefill(f MessageForm) MessageForm {
	if sess, ok := s.sessions.Current(); ok {
		f.Name, f.Email = sess.Name, sess.Email
		return f
	}
	f.Name, f.Email = AnonymousName, AnonymousEmail
	return f
}

// Send validates and records a message. The hospital has no message
// endpoint, so delivery is a log entry.
func (s *Service) Send(ctx context.Context, f MessageForm) (workflow.Result, error) {
	s.ensureLoaded(ctx)
	f.directory = s.carousel.Items()
	return s.sub.Submit(ctx, f, workflow.Plan{
		Steps: []workflow.Step{{Name: "deliver message", Run: func(context.Context) error {
			to, _ := f.recipient(f.Recipient)
			s.logger.Info().
				Str("to", to.Email).
				Str("from", strings.TrimSpace(f.Email)).
				Str("name", strings.TrimSpace(f.Name)).
				Str("subject", f.Subject).
				Int("length", len(f.Body)).
				Msg("contact message")
			return nil
		}}},
		Success: sent,
	})
}
