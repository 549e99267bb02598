package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/backend"
	"github.com/consultacerta/portal/internal/platform/credstore"
)

type EventKind string

const (
	EventRestore EventKind = "restore"
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
	EventUpdate  EventKind = "update"
)

// Event is delivered to subscribers after every change. Session is nil when
// nobody is signed in.
type Event struct {
	Kind    EventKind `json:"kind"`
	Session *Session  `json:"session,omitempty"`
}

// Store is the process-wide source of truth for who is signed in. Only
// Login, Logout, Update and Restore write it.
type Store struct {
	creds   credstore.Store
	key     string
	decoder Decoder
	logger  zerolog.Logger

	mu      sync.RWMutex
	current *Session
	cred    Credential

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int

	ready     chan struct{}
	readyOnce sync.Once
}

func NewStore(creds credstore.Store, key string, decoder Decoder, logger zerolog.Logger) *Store {
	return &Store{
		creds:   creds,
		key:     key,
		decoder: decoder,
		logger:  logger.With().Str("component", "session").Logger(),
		subs:    make(map[int]func(Event)),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first Restore finished, whatever its outcome.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Wait blocks until Ready or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restore loads the persisted credential. An expired or undecodable
// credential is removed and leaves the store empty.
func (s *Store) Restore(ctx context.Context) error {
	defer s.readyOnce.Do(func() { close(s.ready) })

	raw, err := s.creds.Get(ctx, s.key)
	if errors.Is(err, credstore.ErrNotFound) {
		s.set(nil, Credential{}, EventRestore)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}

	cred, sess, err := s.resolve(raw)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			s.logger.Info().Msg("stored credential expired, clearing")
		} else {
			s.logger.Warn().Err(err).Msg("stored credential unreadable, clearing")
		}
		if derr := s.creds.Delete(ctx, s.key); derr != nil {
			s.logger.Error().Err(derr).Msg("failed to clear stored credential")
		}
		s.set(nil, Credential{}, EventRestore)
		return nil
	}
	s.set(&sess, cred, EventRestore)
	return nil
}

func (s *Store) resolve(raw string) (Credential, Session, error) {
	cred, err := parseCredential(raw)
	if err != nil {
		return Credential{}, Session{}, err
	}
	sess, err := s.decode(cred)
	return cred, sess, err
}

func (s *Store) decode(c Credential) (Session, error) {
	if c.profile != nil {
		sess := c.profile.session()
		if !sess.complete() {
			return Session{}, ErrIncomplete
		}
		return sess, nil
	}
	return s.decoder.Decode(c.token)
}

// Login populates the session from c and persists it. A credential that
// does not decode leaves the store untouched; the error is logged and
// returned.
func (s *Store) Login(ctx context.Context, c Credential) error {
	sess, err := s.decode(c)
	if err != nil {
		s.logger.Warn().Err(err).Bool("token", c.IsToken()).Msg("login credential rejected")
		return fmt.Errorf("login: %w", err)
	}
	raw, err := c.encode()
	if err != nil {
		return err
	}
	if err := s.creds.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.set(&sess, c, EventLogin)
	s.logger.Info().Str("subject", sess.Subject).Msg("patient signed in")
	return nil
}

func (s *Store) Logout(ctx context.Context) error {
	s.set(nil, Credential{}, EventLogout)
	if err := s.creds.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Current returns a copy of the signed-in session.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) SignedIn() bool {
	_, ok := s.Current()
	return ok
}

// Require returns the current session or ErrNoSession.
func (s *Store) Require() (Session, error) {
	sess, ok := s.Current()
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Update applies fn to the session after a successful submission changed a
// server-side flag. Profile credentials are re-persisted with the new flags;
// a token credential keeps its original claims until the next login.
func (s *Store) Update(ctx context.Context, fn func(*Session)) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoSession
	}
	next := *s.current
	fn(&next)
	s.current = &next
	cred := s.cred
	if cred.profile != nil {
		p := *cred.profile
		p.Name, p.Email, p.Phone = next.Name, next.Email, next.Phone
		p.Companions = backend.Flag(next.Companion)
		p.HealthData = backend.Flag(next.HealthDataSubmitted)
		cred = ProfileCredential(p)
		s.cred = cred
	}
	s.mu.Unlock()

	snapshot := next
	s.notify(Event{Kind: EventUpdate, Session: &snapshot})

	if cred.profile == nil {
		return nil
	}
	raw, err := cred.encode()
	if err != nil {
		return err
	}
	if err := s.creds.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}

// Subscribe registers fn for change events and returns its cancel func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) set(sess *Session, c Credential, kind EventKind) {
	s.mu.Lock()
	s.current = sess
	s.cred = c
	s.mu.Unlock()

	var snapshot *Session
	if sess != nil {
		cp := *sess
		snapshot = &cp
	}
	s.notify(Event{Kind: kind, Session: snapshot})
}

func (s *Store) notify(e Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
