package patient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

type Service struct {
	repo     Repository
	sessions *session.Store
	logger   zerolog.Logger

	registration *workflow.Submission
	login        *workflow.Submission
}

func NewService(repo Repository, sessions *session.Store, logger zerolog.Logger, opts ...workflow.Option) *Service {
	return &Service{
		repo:         repo,
		sessions:     sessions,
		logger:       logger,
		registration: workflow.New("registration", logger, opts...),
		login:        workflow.New("login", logger, opts...),
	}
}

func (s *Service) RegistrationSubmission() *workflow.Submission { return s.registration }
func (s *Service) LoginSubmission() *workflow.Submission        { return s.login }

// Register creates a patient profile and signs it in.
func (s *Service) Register(ctx context.Context, f RegistrationForm) (workflow.Result, error) {
	return s.registration.Submit(ctx, f, s.registrationPlan(f))
}

func (s *Service) registrationPlan(f RegistrationForm) workflow.Plan {
	var created session.Profile
	return workflow.Plan{
		Steps: []workflow.Step{
			{Name: "check duplicates", Run: func(ctx context.Context) error {
				return s.checkDuplicates(ctx, f)
			}},
			{
				Name: "create patient",
				Run: func(ctx context.Context) (err error) {
					created, err = s.repo.Create(ctx, f.payload())
					if backend.IsStatus(err, http.StatusConflict) {
						return validate.Conflict("email", MsgEmailTaken)
					}
					return err
				},
				// A profile that cannot be signed in is removed so a retry
				// does not collide with it.
				Compensate: func(ctx context.Context) error {
					if created.ID == "" {
						s.logger.Warn().Str("email", f.Email).Msg("created patient has no id to remove")
						return nil
					}
					return s.repo.Delete(ctx, created.ID)
				},
			},
			{Name: "sign in", Run: func(ctx context.Context) error {
				return s.sessions.Login(ctx, session.ProfileCredential(created))
			}},
		},
		Success: workflow.Success("Perfil criado!"),
	}
}

// checkDuplicates scans the patient collection for the submitted email and
// phone. It is advisory: the backend may still reject the write.
func (s *Service) checkDuplicates(ctx context.Context, f RegistrationForm) error {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	phone := validate.Digits(f.Phone)
	errs := validate.FieldErrors{}
	if lo.ContainsBy(profiles, func(p session.Profile) bool { return p.Email == f.Email }) {
		errs.Add("email", MsgEmailTaken)
	}
	if lo.ContainsBy(profiles, func(p session.Profile) bool { return validate.Digits(p.Phone) == phone }) {
		errs.Add("telefone", MsgPhoneTaken)
	}
	return errs.Err()
}

// Login exchanges email and password for a token and signs it in.
func (s *Service) Login(ctx context.Context, f LoginForm) (workflow.Result, error) {
	return s.login.Submit(ctx, f, s.loginPlan(f))
}

func (s *Service) loginPlan(f LoginForm) workflow.Plan {
	var token string
	return workflow.Plan{
		Steps: []workflow.Step{
			{Name: "authenticate", Run: func(ctx context.Context) (err error) {
				token, err = s.repo.Login(ctx, Credentials{Email: f.Email, Password: f.Password})
				switch {
				case backend.IsStatus(err, http.StatusNotFound):
					return validate.Conflict("email", MsgEmailUnknown)
				case backend.IsStatus(err, http.StatusUnauthorized):
					return validate.Conflict("senha", MsgWrongPassword)
				}
				return err
			}},
			{Name: "sign in", Run: func(ctx context.Context) error {
				return s.sessions.Login(ctx, session.TokenCredential(token))
			}},
		},
		Success: workflow.Success("Login realizado!"),
	}
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.registration.Reset()
	s.login.Reset()
	return nil
}

func (s *Service) Profile() (View, error) {
	sess, err := s.sessions.Require()
	if err != nil {
		return View{}, err
	}
	return viewOf(sess), nil
}

// SetFlags writes the session's flags back to the patient record.
func (s *Service) SetFlags(ctx context.Context, sess session.Session) error {
	return s.repo.Update(ctx, sess.Subject, UpdateFrom(sess))
}
