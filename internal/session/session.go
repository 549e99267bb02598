// Package session holds the single authenticated patient of a portal
// process. A Session is derived from a persisted credential, either a signed
// token issued by the patients login endpoint or the profile object returned
// by registration.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/consultacerta/portal/internal/platform/backend"
)

var (
	ErrNoSession  = errors.New("no active session")
	ErrExpired    = errors.New("credential expired")
	ErrIncomplete = errors.New("credential is missing identity fields")
)

type Session struct {
	Subject             string     `json:"sub"`
	Name                string     `json:"nome"`
	Email               string     `json:"email"`
	Phone               string     `json:"telefone"`
	Companion           bool       `json:"acompanhantes"`
	HealthDataSubmitted bool       `json:"dadosSaude"`
	ExpiresAt           *time.Time `json:"exp,omitempty"`
}

func (s Session) complete() bool {
	return s.Subject != "" && s.Name != "" && s.Email != ""
}

// FirstName is the greeting name shown in the header.
func (s Session) FirstName() string {
	if i := strings.IndexByte(s.Name, ' '); i > 0 {
		return s.Name[:i]
	}
	return s.Name
}

// Profile is a patient record as the patients collection returns it.
type Profile struct {
	ID         string       `json:"id"`
	Name       string       `json:"nome"`
	Phone      string       `json:"telefone"`
	Email      string       `json:"email"`
	Companions backend.Flag `json:"acompanhantes"`
	HealthData backend.Flag `json:"dadosSaude"`
}

func (p Profile) session() Session {
	return Session{
		Subject:             p.ID,
		Name:                p.Name,
		Email:               p.Email,
		Phone:               p.Phone,
		Companion:           bool(p.Companions),
		HealthDataSubmitted: bool(p.HealthData),
	}
}

// Claims is the payload of a patient token.
type Claims struct {
	jwt.RegisteredClaims
	Name       string       `json:"nome"`
	Email      string       `json:"email"`
	Phone      string       `json:"telefone"`
	Companions backend.Flag `json:"acompanhantes"`
	HealthData backend.Flag `json:"dadosSaude"`
}

func (c *Claims) session() Session {
	s := Session{
		Subject:             c.Subject,
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		Companion:           bool(c.Companions),
		HealthDataSubmitted: bool(c.HealthData),
	}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time
		s.ExpiresAt = &exp
	}
	return s
}

// Credential is what Login accepts and what the store persists.
type Credential struct {
	token   string
	profile *Profile
}

func TokenCredential(token string) Credential {
	return Credential{token: strings.TrimSpace(token)}
}

func ProfileCredential(p Profile) Credential {
	return Credential{profile: &p}
}

func (c Credential) IsToken() bool { return c.profile == nil }

// encode renders the credential in its persisted form.
func (c Credential) encode() (string, error) {
	if c.profile == nil {
		return c.token, nil
	}
	b, err := json.Marshal(c.profile)
	if err != nil {
		return "", fmt.Errorf("encode profile credential: %w", err)
	}
	return string(b), nil
}

// parseCredential recognises a persisted profile object by its leading
// brace; anything else is treated as a token.
func parseCredential(raw string) (Credential, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return TokenCredential(raw), nil
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Credential{}, fmt.Errorf("decode profile credential: %w", err)
	}
	return ProfileCredential(p), nil
}

// Decoder turns a token into a Session.
type Decoder interface {
	Decode(token string) (Session, error)
}

// TokenDecoder verifies HS256 signatures when a key is configured. Without a
// key the payload is read unverified, as the browser client does, and only
// the expiry is checked.
type TokenDecoder struct {
	key []byte
	now func() time.Time
}

func NewTokenDecoder(signingKey string) *TokenDecoder {
	d := &TokenDecoder{now: time.Now}
	if signingKey != "" {
		d.key = []byte(signingKey)
	}
	return d
}

// WithClock replaces the time source used for expiry checks.
func (d *TokenDecoder) WithClock(now func() time.Time) *TokenDecoder {
	d.now = now
	return d
}

func (d *TokenDecoder) Decode(token string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("decode token: empty")
	}
	claims := &Claims{}
	if d.key != nil {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return d.key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(d.now))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrExpired
		}
		if err != nil {
			return Session{}, fmt.Errorf("parse token: %w", err)
		}
	} else {
		parser := jwt.NewParser(jwt.WithoutClaimsValidation())
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return Session{}, fmt.Errorf("parse token: %w", err)
		}
		if claims.ExpiresAt != nil && !d.now().Before(claims.ExpiresAt.Time) {
			return Session{}, ErrExpired
		}
	}

	s := claims.session()
	if !s.complete() {
		return Session{}, ErrIncomplete
	}
	return s, nil
}
