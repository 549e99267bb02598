package health

import (
	"sync"

	"github.com/consultacerta/portal/internal/platform/guard"
	"github.com/consultacerta/portal/internal/platform/workflow"
)

type PromptState string

const (
	PromptHidden        PromptState = "hidden-cta"
	PromptOpen          PromptState = "open-form"
	PromptConfirmation  PromptState = "confirmation"
	PromptAlreadyDone   PromptState = "already-done"
	PromptNoAppointment PromptState = "no-active-appointment"
)

const (
	LabelSignedIn  = "Termine seu cadastro!"
	LabelAnonymous = "Crie um perfil personalizado"
)

// PromptView is what the survey panel renders.
type PromptView struct {
	State      PromptState `json:"state"`
	Label      string      `json:"label,omitempty"`
	RedirectTo string      `json:"redirect,omitempty"`
}

// Prompt is the disclosure machine around the health survey: a call to
// action that opens the form, then one of the outcome acknowledgments.
type Prompt struct {
	mu    sync.Mutex
	state PromptState
}

func NewPrompt() *Prompt {
	return &Prompt{state: PromptHidden}
}

func (p *Prompt) State() PromptState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Prompt) View(signedIn bool) PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked(signedIn)
}

func (p *Prompt) viewLocked(signedIn bool) PromptView {
	v := PromptView{State: p.state}
	if p.state == PromptHidden {
		v.Label = LabelAnonymous
		if signedIn {
			v.Label = LabelSignedIn
		}
	}
	return v
}

// Invoke is the call to action. Anonymous patients are sent to the login
// route and the form stays closed.
func (p *Prompt) Invoke(signedIn bool) PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !signedIn {
		v := p.viewLocked(false)
		v.RedirectTo = guard.LoginRoute
		return v
	}
	if p.state == PromptHidden {
		p.state = PromptOpen
	}
	return p.viewLocked(true)
}

// Submitted moves the open form to the outcome of a submission. Field and
// server errors keep the form open.
func (p *Prompt) Submitted(r workflow.Result) PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PromptOpen || p.state == PromptHidden {
		switch r.State {
		case workflow.StateSucceeded:
			p.state = PromptConfirmation
		case workflow.StateDeclined:
			p.state = PromptNoAppointment
		case workflow.StateFieldError, workflow.StateServerError:
			p.state = PromptOpen
		}
	}
	return p.viewLocked(true)
}

// Close abandons the open form.
func (p *Prompt) Close() PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PromptOpen {
		p.state = PromptHidden
	}
	return p.viewLocked(true)
}

// Dismiss acknowledges the current outcome.
func (p *Prompt) Dismiss(signedIn bool) PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case PromptConfirmation:
		p.state = PromptAlreadyDone
	case PromptNoAppointment:
		p.state = PromptHidden
	}
	return p.viewLocked(signedIn)
}

// Sync aligns the machine with the session. A completed survey hides the
// call to action; an open form or a pending acknowledgment is left for the
// submission that owns it. Signing out brings the call to action back.
func (p *Prompt) Sync(signedIn, done bool) PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !signedIn:
		p.state = PromptHidden
	case done && (p.state == PromptHidden || p.state == PromptNoAppointment):
		p.state = PromptAlreadyDone
	case !done && p.state == PromptAlreadyDone:
		p.state = PromptHidden
	}
	return p.viewLocked(signedIn)
}
