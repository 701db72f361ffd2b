// Package session holds the authenticated session and its gate.
//
// The token is kept in a credential.Store, never in a package-level
// variable; callers receive a *Session and pass it where it is needed.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/credential"
	"github.com/nhle/pmsterm/internal/model"
)

// ErrLoginRequired means there is no usable session and the user must log
// in. Errors wrapping it may carry the underlying cause.
var ErrLoginRequired = errors.New("login required")

// Claims are the fields read from the session token. They are parsed
// without verifying the signature; only the server can do that.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims reads the claims of a JWT session token. Servers may issue
// opaque tokens, so callers treat an error as "no claims", not as an
// invalid session.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parsing token claims: %w", err)
	}
	var c Claims
	if id, ok := mc["id"].(string); ok {
		c.UserID = id
	} else if sub, ok := mc["sub"].(string); ok {
		c.UserID = sub
	}
	c.ExpiresAt = unixClaim(mc["exp"])
	c.IssuedAt = unixClaim(mc["iat"])
	return c, nil
}

func unixClaim(v interface{}) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0)
	case int64:
		return time.Unix(n, 0)
	}
	return time.Time{}
}

// Session is an authenticated user and the token that proves it.
type Session struct {
	Token  string
	User   model.User
	Claims Claims
}

// Manager restores, creates and ends sessions for one API host.
type Manager struct {
	store  credential.Store
	key    string
	client *api.Client
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l.With().Str("component", "session").Logger() }
}

// NewManager returns a Manager storing its token under host's session key.
// client must be unauthenticated; the manager derives authenticated copies.
func NewManager(store credential.Store, host string, client *api.Client, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		key:    credential.SessionKey(host),
		client: client,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client returns an API client authenticated as s.
func (m *Manager) Client(s *Session) *api.Client {
	if s == nil {
		return m.client
	}
	return m.client.WithToken(s.Token)
}

// Restore loads the stored token and confirms it by fetching the profile.
// A missing or expired token, or any profile failure, yields an error
// wrapping ErrLoginRequired. A token the server rejects is deleted.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	token, err := m.store.Get(m.key)
	if errors.Is(err, credential.ErrNotFound) || (err == nil && token == "") {
		return nil, ErrLoginRequired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginRequired, err)
	}

	claims, err := ParseClaims(token)
	if err != nil {
		m.log.Debug().Err(err).Msg("token has no readable claims")
	}
	if claims.Expired(m.now()) {
		m.forget()
		return nil, fmt.Errorf("%w: session expired", ErrLoginRequired)
	}

	user, err := m.client.WithToken(token).Profile(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			m.forget()
		}
		return nil, fmt.Errorf("%w: %v", ErrLoginRequired, err)
	}
	return &Session{Token: token, User: *user, Claims: claims}, nil
}

// Login authenticates with email and password and stores the new token.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	res, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	claims, err := ParseClaims(res.Token)
	if err != nil {
		m.log.Debug().Err(err).Msg("token has no readable claims")
	}
	if err := m.store.Set(m.key, res.Token); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	m.log.Info().Str("user", res.User.Username).Msg("logged in")
	return &Session{Token: res.Token, User: res.User, Claims: claims}, nil
}

// Logout deletes the stored token.
func (m *Manager) Logout() error {
	if err := m.store.Delete(m.key); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	m.log.Info().Msg("logged out")
	return nil
}

func (m *Manager) forget() {
	if err := m.store.Delete(m.key); err != nil {
		m.log.Warn().Err(err).Msg("clearing rejected token")
	}
}
