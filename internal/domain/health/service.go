package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

var completed = workflow.Ack{
	Kind:    workflow.AckSuccess,
	Title:   "Cadastro concluido!",
	Message: "Isso será usado para te ajudar ainda mais.",
}

// ErrAlreadySubmitted is returned by Submit once the patient completed the
// survey. Nothing is sent to the backend.
var ErrAlreadySubmitted = errors.New("health: survey already submitted")

// NoActiveAppointment ends a survey submitted by a patient without a
// qualifying consultation.
func NoActiveAppointment() *workflow.Decline {
	return workflow.Declined(
		"Nenhuma teleconsulta ativa",
		"Registre um lembrete da sua teleconsulta antes de preencher seus dados de saúde.",
	)
}

type Service struct {
	repo          Repository
	consultations Consultations
	patients      ProfileWriter
	sessions      *session.Store
	loc           *time.Location
	now           func() time.Time
	logger        zerolog.Logger

	sub    *workflow.Submission
	prompt *Prompt
}

func NewService(repo Repository, consultations Consultations, patients ProfileWriter, sessions *session.Store, loc *time.Location, logger zerolog.Logger, opts ...workflow.Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:          repo,
		consultations: consultations,
		patients:      patients,
		sessions:      sessions,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
		sub:           workflow.New("health-survey", logger, opts...),
		prompt:        NewPrompt(),
	}
	sessions.Subscribe(func(e session.Event) {
		if e.Session == nil {
			s.prompt.Sync(false, false)
			return
		}
		s.prompt.Sync(true, e.Session.HealthDataSubmitted)
	})
	return s
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Submission() *workflow.Submission { return s.sub }

func (s *Service) Prompt() PromptView {
	return s.prompt.View(s.sessions.SignedIn())
}

func (s *Service) Open() PromptView {
	return s.prompt.Invoke(s.sessions.SignedIn())
}

// Close abandons the open form and drops whatever it retained.
func (s *Service) Close() PromptView {
	s.sub.Reset()
	return s.prompt.Close()
}

func (s *Service) Dismiss() PromptView {
	s.sub.Dismiss()
	return s.prompt.Dismiss(s.sessions.SignedIn())
}

// Submit runs the survey workflow and advances the prompt with its outcome.
func (s *Service) Submit(ctx context.Context, f Form) (workflow.Result, PromptView, error) {
	sess, err := s.sessions.Require()
	if err != nil {
		return workflow.Result{}, s.Prompt(), err
	}
	if sess.HealthDataSubmitted || s.done() {
		return s.sub.Snapshot(), s.Prompt(), ErrAlreadySubmitted
	}
	res, err := s.sub.Submit(ctx, f, s.plan(f, sess))
	if err != nil {
		return res, s.Prompt(), err
	}
	return res, s.prompt.Submitted(res), nil
}

// done reports whether the prompt has moved past the form for good.
func (s *Service) done() bool {
	switch s.prompt.State() {
	case PromptConfirmation, PromptAlreadyDone:
		return true
	}
	return false
}

func (s *Service) plan(f Form, sess session.Session) workflow.Plan {
	var (
		consultation reminder.Consultation
		created      Record
	)
	return workflow.Plan{
		Steps: []workflow.Step{
			{Name: "find active consultation", Run: func(ctx context.Context) error {
				all, err := s.consultations.ListByPatient(ctx, sess.Subject)
				if err != nil {
					return err
				}
				c, ok := lo.Find(all, func(c reminder.Consultation) bool {
					return c.PatientID == sess.Subject && bool(c.Active)
				})
				if !ok {
					return NoActiveAppointment()
				}
				consultation = c
				return nil
			}},
			{
				Name: "create health data",
				Run: func(ctx context.Context) (err error) {
					rec := f.record()
					rec.SubmittedAt = s.now().In(s.loc).Format(reminder.StampLayout)
					rec.PatientID = sess.Subject
					rec.ConsultationID = consultation.ID
					rec.ConsultationAt = consultation.ScheduledAt
					created, err = s.repo.Create(ctx, rec)
					return err
				},
				Compensate: func(ctx context.Context) error {
					if created.ID == "" {
						return nil
					}
					return s.repo.Delete(ctx, created.ID)
				},
			},
			{Name: "request prediction", Run: func(ctx context.Context) error {
				err := s.repo.Predict(ctx, created)
				if backend.IsStatus(err, http.StatusNotFound) {
					d := NoActiveAppointment()
					d.Err = err
					return d
				}
				return err
			}},
			{Name: "flag patient", Run: func(ctx context.Context) error {
				next := sess
				next.HealthDataSubmitted = true
				return s.patients.Update(ctx, sess.Subject, patient.UpdateFrom(next))
			}},
		},
		Success: completed,
		Commit: func(ctx context.Context) {
			if err := s.sessions.Update(ctx, func(cur *session.Session) { cur.HealthDataSubmitted = true }); err != nil {
				s.logger.Warn().Err(err).Msg("health flag not applied to session")
			}
		},
	}
}
