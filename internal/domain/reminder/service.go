package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

var registered = workflow.Ack{
	Kind:    workflow.AckSuccess,
	Title:   "Lembrete Registrado! Ele será enviado por email",
	Message: "Clique em OK para voltar à página inicial.",
}

type Service struct {
	repo     Repository
	sessions *session.Store
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
	sub      *workflow.Submission
}

func NewService(repo Repository, sessions *session.Store, loc *time.Location, logger zerolog.Logger, opts ...workflow.Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		sub:      workflow.New("reminder", logger, opts...),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Submission() *workflow.Submission { return s.sub }

// List returns the signed-in patient's consultations. Failures and empty
// lists render the placeholder.
func (s *Service) List(ctx context.Context) (Listing, error) {
	sess, err := s.sessions.Require()
	if err != nil {
		return Listing{}, err
	}
	all, err := s.repo.ListByPatient(ctx, sess.Subject)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load reminders")
		return Listing{Items: []Item{}, Placeholder: Placeholder}, nil
	}
	// Some backends ignore the idPaciente filter.
	mine := lo.Filter(all, func(c Consultation, _ int) bool { return c.PatientID == sess.Subject })
	items := lo.Map(mine, func(c Consultation, _ int) Item {
		return Item{
			ID:        c.ID,
			Specialty: c.Specialty,
			When:      Display(c.ScheduledAt, s.loc),
			Active:    bool(c.Active),
		}
	})
	if len(items) == 0 {
		return Listing{Items: items, Placeholder: Placeholder}, nil
	}
	return Listing{Items: items}, nil
}

// Create registers a consultation and asks the reminder service to e-mail
// the patient about it.
func (s *Service) Create(ctx context.Context, f Form) (workflow.Result, error) {
	sess, err := s.sessions.Require()
	if err != nil {
		return workflow.Result{}, err
	}
	now := s.now().In(s.loc)
	f.now, f.loc = now, s.loc
	return s.sub.Submit(ctx, f, s.plan(f, sess, now))
}

func (s *Service) plan(f Form, sess session.Session, now time.Time) workflow.Plan {
	var created Consultation
	return workflow.Plan{
		Steps: []workflow.Step{
			{
				Name: "create consultation",
				Run: func(ctx context.Context) (err error) {
					created, err = s.repo.Create(ctx, Consultation{
						Specialty:   f.Specialty,
						ScheduledAt: f.ScheduledAt,
						Active:      backend.Flag(true),
						PatientID:   sess.Subject,
						CreatedAt:   now.Format(StampLayout),
					})
					return err
				},
				Compensate: func(ctx context.Context) error {
					if created.ID == "" {
						return nil
					}
					return s.repo.Delete(ctx, created.ID)
				},
			},
			{Name: "dispatch reminder", Run: func(ctx context.Context) error {
				return s.repo.Dispatch(ctx, Dispatch{
					Name:        sess.Name,
					Email:       sess.Email,
					Phone:       sess.Phone,
					Specialty:   f.Specialty,
					ScheduledAt: f.ScheduledAt,
					PatientID:   sess.Subject,
				})
			}},
		},
		Success: registered,
	}
}
