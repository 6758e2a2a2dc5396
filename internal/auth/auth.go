// Package auth provides the sign-in gate for mutating affordances. Users are
// a static list with bcrypt password hashes; sessions live in memory.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is used when Config.SessionTTL is zero.
const DefaultSessionTTL = 12 * time.Hour

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// UserConfig is one configured account.
type UserConfig struct {
	Email        string `mapstructure:"email"`
	Name         string `mapstructure:"name"`
	PasswordHash string `mapstructure:"password_hash"`
}

// Config lists accounts and the session lifetime.
type Config struct {
	Users      []UserConfig  `mapstructure:"users"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// User is the signed-in identity.
type User struct {
	Email string
	Name  string
}

// Session is issued by SignIn.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Authenticator is the contract views use to decide whether to render
// create/edit/delete affordances.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	CurrentUser() *User
	SignOut()
}

// Static authenticates against a fixed user list and holds one session.
type Static struct {
	mu      sync.Mutex
	users   map[string]UserConfig
	ttl     time.Duration
	now     func() time.Time
	session *Session
}

// Option configures Static.
type Option func(*Static)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Static) { s.now = now }
}

// NewStatic builds an authenticator from cfg.
func NewStatic(cfg Config, opts ...Option) *Static {
	s := &Static{users: make(map[string]UserConfig, len(cfg.Users)), ttl: cfg.SessionTTL, now: time.Now}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	for _, u := range cfg.Users {
		s.users[normalizeEmail(u.Email)] = u
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// SignIn verifies the password and replaces any existing session.
func (s *Static) SignIn(_ context.Context, email, password string) (Session, error) {
	u, ok := s.users[normalizeEmail(email)]
	if !ok || u.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	name := u.Name
	if name == "" {
		name = u.Email
	}
	sess := Session{
		Token:     uuid.NewString(),
		User:      User{Email: u.Email, Name: name},
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
	return sess, nil
}

// CurrentUser returns nil when signed out or when the session expired.
func (s *Static) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	if !s.now().Before(s.session.ExpiresAt) {
		s.session = nil
		return nil
	}
	u := s.session.User
	return &u
}

func (s *Static) SignOut() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// HashPassword returns a bcrypt hash suitable for UserConfig.PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// SignedIn reports whether a has a current user. A nil authenticator is
// treated as signed out.
func SignedIn(a Authenticator) bool {
	return a != nil && a.CurrentUser() != nil
}
