// Package session holds the signed-in session, refreshes it before expiry and
// notifies subscribers when it changes.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/keyring"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

// Event names the reason a listener is called.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives every session change. session is nil when signed out.
type Listener func(event Event, session *models.Session)

// TokenStore persists the refresh token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Provider owns the client's view of the current session.
type Provider struct {
	auth   storage.AuthService
	tokens TokenStore
	lead   time.Duration
	now    func() time.Time

	// refreshMu serializes calls that replace the session.
	refreshMu sync.Mutex

	mu        sync.Mutex
	current   *models.Session
	loaded    bool
	listeners map[int]Listener
	nextID    int
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithRefreshLead sets how long before expiry a session is refreshed.
func WithRefreshLead(d time.Duration) Option {
	return func(p *Provider) { p.lead = d }
}

// NewProvider returns a Provider that signs in through auth and keeps the
// refresh token in tokens. A nil tokens keeps sessions in memory only.
func NewProvider(auth storage.AuthService, tokens TokenStore, opts ...Option) *Provider {
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	p := &Provider{
		auth:      auth,
		tokens:    tokens,
		lead:      constants.SessionRefreshLeadSec * time.Second,
		now:       time.Now,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers l for session changes and returns its unsubscribe func.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Snapshot returns the in-memory session without contacting the backend.
func (p *Provider) Snapshot() *models.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.current)
}

// Current returns a valid session, restoring it from the token store on
// first use and refreshing it when it is about to expire. It returns nil
// with no error when nobody is signed in.
func (p *Provider) Current(ctx context.Context) (*models.Session, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.Lock()
	current, loaded := clone(p.current), p.loaded
	p.mu.Unlock()

	if !loaded {
		token, err := p.tokens.Load()
		if err != nil {
			if !errors.Is(err, keyring.ErrNotFound) {
				logger.Warn("Could not read stored session", "error", err)
			}
			p.set(nil, EventInitialSession)
			return nil, nil
		}
		return p.refresh(ctx, token, EventInitialSession)
	}

	if current == nil {
		return nil, nil
	}
	if p.now().Add(p.lead).Before(current.ExpiresAt) {
		return current, nil
	}
	return p.refresh(ctx, current.RefreshToken, EventTokenRefreshed)
}

func (p *Provider) refresh(ctx context.Context, token string, event Event) (*models.Session, error) {
	next, err := p.auth.RefreshSession(ctx, token)
	if err != nil {
		if storage.IsUnauthorized(err) {
			logger.Info("Stored session rejected, signing out", "error", err)
			p.clearTokens()
			p.set(nil, EventSignedOut)
			return nil, nil
		}
		return nil, err
	}
	p.saveTokens(next.RefreshToken)
	p.set(&next, event)
	return clone(&next), nil
}

// SignIn authenticates with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	s, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.saveTokens(s.RefreshToken)
	p.set(&s, EventSignedIn)
	return clone(&s), nil
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	s, err := p.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.saveTokens(s.RefreshToken)
	p.set(&s, EventSignedIn)
	return clone(&s), nil
}

// SignInWithOAuth returns the provider URL the user must open.
func (p *Provider) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	return p.auth.SignInWithOAuth(ctx, provider, redirectTo)
}

// SignOut revokes the session. If the backend rejects the call for any
// reason other than an already-invalid session, the session is kept and
// the error returned.
func (p *Provider) SignOut(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.Lock()
	current := clone(p.current)
	p.mu.Unlock()

	if current != nil {
		if err := p.auth.SignOut(ctx, *current); err != nil && !storage.IsUnauthorized(err) {
			return err
		}
	}
	p.clearTokens()
	p.set(nil, EventSignedOut)
	return nil
}

func (p *Provider) set(s *models.Session, event Event) {
	p.mu.Lock()
	p.current = clone(s)
	p.loaded = true
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(event, clone(s))
	}
}

func (p *Provider) saveTokens(token string) {
	if err := p.tokens.Save(token); err != nil {
		logger.Warn("Could not persist session; it will end when the program exits", "error", err)
	}
}

func (p *Provider) clearTokens() {
	if err := p.tokens.Clear(); err != nil {
		logger.Warn("Could not clear stored session", "error", err)
	}
}

func clone(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// MemoryTokens is a TokenStore that forgets everything on exit.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokens) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", keyring.ErrNotFound
	}
	return m.token, nil
}

func (m *MemoryTokens) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokens) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
