package feedback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/workflow"
)

const defaultSendTimeout = 10 * time.Second

var thanks = workflow.Ack{
	Kind:    workflow.AckSuccess,
	Title:   "Obrigado pela sua avaliação!",
	Message: "Clique em OK para voltar à página inicial.",
}

// Service accepts ratings. The acknowledgment never waits on the backend:
// ratings are posted in the background and failures are only logged.
type Service struct {
	repo    Repository
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
	logger  zerolog.Logger
	sub     *workflow.Submission

	wg sync.WaitGroup
}

func NewService(repo Repository, loc *time.Location, logger zerolog.Logger, opts ...workflow.Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:    repo,
		loc:     loc,
		now:     time.Now,
		timeout: defaultSendTimeout,
		logger:  logger,
		sub:     workflow.New("rating", logger, opts...),
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetTimeout bounds each background post.
func (s *Service) SetTimeout(d time.Duration) { s.timeout = d }

func (s *Service) Submission() *workflow.Submission { return s.sub }

func (s *Service) Rate(ctx context.Context, f Form) (workflow.Result, error) {
	return s.sub.Submit(ctx, f, workflow.Plan{
		Steps: []workflow.Step{{Name: "send rating", Run: func(context.Context) error {
			s.send(Rating{
				ID:        uuid.New().String(),
				Specialty: f.Specialty,
				Score:     f.Score,
				Comment:   strings.TrimSpace(f.Comment),
				RatedAt:   s.now().In(s.loc).Format(reminder.StampLayout),
			})
			return nil
		}}},
		Success: thanks,
	})
}

// send posts r on a detached goroutine with its own deadline.
func (s *Service) send(r Rating) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.Create(ctx, r); err != nil {
			s.logger.Warn().Err(err).Str("rating_id", r.ID).Msg("rating not delivered")
			return
		}
		s.logger.Debug().Str("rating_id", r.ID).Msg("rating delivered")
	}()
}

// Wait blocks until every background post finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
