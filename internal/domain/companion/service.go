package companion

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

var registered = workflow.Ack{
	Kind:    workflow.AckSuccess,
	Title:   "Acompanhante Registrado!",
	Message: "Agora o seu acompanhante também irá receber as informações de lembrete.",
}

type Service struct {
	repo     Repository
	patients ProfileWriter
	sessions *session.Store
	logger   zerolog.Logger
	sub      *workflow.Submission
}

func NewService(repo Repository, patients ProfileWriter, sessions *session.Store, logger zerolog.Logger, opts ...workflow.Option) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		sessions: sessions,
		logger:   logger,
		sub:      workflow.New("companion", logger, opts...),
	}
}

func (s *Service) Submission() *workflow.Submission { return s.sub }

func (s *Service) Register(ctx context.Context, f Form) (workflow.Result, error) {
	sess, err := s.sessions.Require()
	if err != nil {
		return workflow.Result{}, err
	}
	return s.sub.Submit(ctx, f, s.plan(f, sess))
}

func (s *Service) plan(f Form, sess session.Session) workflow.Plan {
	var created Companion
	return workflow.Plan{
		Steps: []workflow.Step{
			{Name: "check duplicates", Run: func(ctx context.Context) error {
				return s.checkDuplicates(ctx, f, sess)
			}},
			{
				Name: "create companion",
				Run: func(ctx context.Context) (err error) {
					created, err = s.repo.Create(ctx, f.companion(sess.Subject))
					return err
				},
				Compensate: func(ctx context.Context) error {
					if created.ID == "" {
						return nil
					}
					return s.repo.Delete(ctx, created.ID)
				},
			},
			{Name: "flag patient", Run: func(ctx context.Context) error {
				next := sess
				next.Companion = true
				return s.patients.Update(ctx, sess.Subject, patient.UpdateFrom(next))
			}},
		},
		Success: registered,
		Commit: func(ctx context.Context) {
			if err := s.sessions.Update(ctx, func(cur *session.Session) { cur.Companion = true }); err != nil {
				s.logger.Warn().Err(err).Msg("companion flag not applied to session")
			}
		},
	}
}

// checkDuplicates reports the first collision with an existing companion or
// with the patient's own contact data.
func (s *Service) checkDuplicates(ctx context.Context, f Form, sess session.Session) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	phone := validate.Digits(f.Phone)
	switch {
	case lo.ContainsBy(existing, func(c Companion) bool { return c.Email == f.Email }):
		return validate.Conflict("email", MsgEmailTaken)
	case sess.Email == f.Email:
		return validate.Conflict("email", MsgEmailSelf)
	case lo.ContainsBy(existing, func(c Companion) bool { return validate.Digits(c.Phone) == phone }):
		return validate.Conflict("telefone", MsgPhoneTaken)
	case validate.Digits(sess.Phone) == phone:
		return validate.Conflict("telefone", MsgPhoneSelf)
	}
	return nil
}
