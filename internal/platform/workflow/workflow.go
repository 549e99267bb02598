// Package workflow runs the validate, submit, resolve lifecycle shared by
// every patient form. A submission validates its form locally, then runs an
// ordered Plan of backend steps. When step k fails the compensations of the
// steps before it run in reverse order and the error is classified into one
// of the user-facing channels: field errors, a declined business outcome or
// the generic server acknowledgment.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/validate"
)

type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateSubmitting  State = "submitting"
	StateSucceeded   State = "succeeded"
	StateFieldError  State = "field-error"
	StateServerError State = "server-error"
	StateDeclined    State = "declined"
)

// Terminal reports whether s ends a submission.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFieldError, StateServerError, StateDeclined:
		return true
	}
	return false
}

type AckKind string

const (
	AckSuccess  AckKind = "success"
	AckDeclined AckKind = "declined"
	AckError    AckKind = "error"
)

// Ack is an acknowledgment the user has to dismiss explicitly.
type Ack struct {
	Kind    AckKind `json:"kind"`
	Title   string  `json:"title"`
	Message string  `json:"message,omitempty"`
}

// ServerUnavailable is shown for every failure that is not a field error or
// a declined outcome.
var ServerUnavailable = Ack{
	Kind:    AckError,
	Title:   "Erro ao acessar servidor",
	Message: "Aguarde um pouco e tente novamente.",
}

func Success(title string) Ack {
	return Ack{Kind: AckSuccess, Title: title}
}

// ErrInFlight is returned by Submit while another submission of the same
// Submission has not resolved.
var ErrInFlight = errors.New("workflow: submission already in flight")

// Decline is a distinguished business outcome, such as a patient without an
// active appointment. Steps return it to end the plan with its own
// acknowledgment instead of the generic server error.
type Decline struct {
	Ack Ack
	Err error
}

func Declined(title, message string) *Decline {
	return &Decline{Ack: Ack{Kind: AckDeclined, Title: title, Message: message}}
}

func (d *Decline) Error() string {
	if d.Err != nil {
		return fmt.Sprintf("declined: %s: %v", d.Ack.Title, d.Err)
	}
	return "declined: " + d.Ack.Title
}

func (d *Decline) Unwrap() error { return d.Err }

// Step is one backend request of a multi-step submission. Compensate undoes
// Run and may be nil.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Plan is what a form submits once it validates.
type Plan struct {
	Steps   []Step
	Success Ack
	// Commit applies the optimistic local update after every step succeeded.
	Commit func(ctx context.Context)
}

// Result is the observable state of a Submission.
type Result struct {
	State       State                `json:"state"`
	Loading     bool                 `json:"loading"`
	FieldErrors validate.FieldErrors `json:"fieldErrors,omitempty"`
	Ack         *Ack                 `json:"ack,omitempty"`
}

// Observer is told about every terminal outcome.
type Observer func(workflow string, state State)

type Option func(*Submission)

// WithObserver adds o to the observers of a submission. Nil observers are
// ignored.
func WithObserver(o Observer) Option {
	return func(s *Submission) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Submission holds the lifecycle state of one form.
type Submission struct {
	name      string
	logger    zerolog.Logger
	observers []Observer

	mu          sync.Mutex
	state       State
	loading     bool
	inFlight    bool
	generation  uint64
	fieldErrors validate.FieldErrors
	ack         *Ack
	form        validate.Form
}

func New(name string, logger zerolog.Logger, opts ...Option) *Submission {
	s := &Submission{
		name:   name,
		logger: logger.With().Str("workflow", name).Logger(),
		state:  StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Submission) Name() string { return s.name }

// Submit validates form and, when it passes, runs plan.
func (s *Submission) Submit(ctx context.Context, form validate.Form, plan Plan) (Result, error) {
	s.mu.Lock()
	if s.inFlight {
		r := s.snapshotLocked()
		s.mu.Unlock()
		return r, ErrInFlight
	}
	s.inFlight = true
	s.state = StateValidating
	s.form = form
	s.ack = nil
	s.fieldErrors = nil
	gen := s.generation
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		if s.generation == gen {
			s.loading = false
		}
		s.mu.Unlock()
	}()

	if errs := validate.Check(form); errs != nil {
		return s.resolve(gen, Result{State: StateFieldError, FieldErrors: errs}, form), nil
	}

	s.mu.Lock()
	s.state = StateSubmitting
	s.loading = true
	s.mu.Unlock()

	if err := s.run(ctx, plan.Steps); err != nil {
		return s.resolve(gen, s.classify(err), form), nil
	}

	if plan.Commit != nil {
		plan.Commit(context.WithoutCancel(ctx))
	}
	ack := plan.Success
	return s.resolve(gen, Result{State: StateSucceeded, Ack: &ack}, nil), nil
}

func (s *Submission) run(ctx context.Context, steps []Step) error {
	for k, step := range steps {
		if err := step.Run(ctx); err != nil {
			s.compensate(ctx, steps[:k])
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

// compensate undoes done in reverse order. Failures are logged and do not
// stop the remaining compensations.
func (s *Submission) compensate(ctx context.Context, done []Step) {
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(cctx); err != nil {
			s.logger.Error().Err(err).Str("step", step.Name).Msg("compensation failed")
			continue
		}
		s.logger.Info().Str("step", step.Name).Msg("step compensated")
	}
}

func (s *Submission) classify(err error) Result {
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		return Result{State: StateFieldError, FieldErrors: fe}
	}
	var d *Decline
	if errors.As(err, &d) {
		ack := d.Ack
		return Result{State: StateDeclined, Ack: &ack}
	}
	s.logger.Error().Err(err).Msg("submission failed")
	ack := ServerUnavailable
	return Result{State: StateServerError, Ack: &ack}
}

// resolve stores r unless Reset ran since the submission started. retain is
// the form kept for resubmission; nil clears it.
func (s *Submission) resolve(gen uint64, r Result, retain validate.Form) Result {
	for _, o := range s.observers {
		o(s.name, r.State)
	}
	if r.State == StateDeclined {
		retain = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug().Str("state", string(r.State)).Msg("late result ignored")
		return r
	}
	s.state = r.State
	s.fieldErrors = r.FieldErrors
	s.ack = r.Ack
	s.form = retain
	return r
}

// Dismiss clears the acknowledgment and returns to idle. A form retained by
// a server error stays available through Form.
func (s *Submission) Dismiss() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked()
	}
	s.state = StateIdle
	s.ack = nil
	s.fieldErrors = nil
	return s.snapshotLocked()
}

// Reset abandons the current state. A submission still in flight resolves
// without touching it.
func (s *Submission) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = StateIdle
	s.loading = false
	s.ack = nil
	s.fieldErrors = nil
	s.form = nil
}

// Form returns the form retained for resubmission, if any.
func (s *Submission) Form() validate.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *Submission) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Submission) snapshotLocked() Result {
	r := Result{State: s.state, Loading: s.loading}
	if len(s.fieldErrors) > 0 {
		r.FieldErrors = make(validate.FieldErrors, len(s.fieldErrors))
		for k, v := range s.fieldErrors {
			r.FieldErrors[k] = v
		}
	}
	if s.ack != nil {
		ack := *s.ack
		r.Ack = &ack
	}
	return r
}
