package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julianstephens/tally/internal/auth"
	"github.com/julianstephens/tally/internal/config"
	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/keyring"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/session"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/storage/postgres"
	"github.com/julianstephens/tally/internal/storage/remote"
	"github.com/julianstephens/tally/internal/storage/sqlite"
	"github.com/julianstephens/tally/internal/storage/sqlstore"
	"github.com/julianstephens/tally/internal/validation"
)

type Context struct {
	Config   *config.Config
	Store    storage.Provider
	Sessions *session.Provider
	Habits   *habits.Service
}

// NewContext wires the backend selected by cfg. The store is not loaded.
func NewContext(cfg *config.Config) (*Context, error) {
	store, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	return WithStore(cfg, store, keyring.NewTokenStore(store.Location())), nil
}

// WithStore builds a Context around an existing store. A nil tokens keeps
// the session in memory.
func WithStore(cfg *config.Config, store storage.Provider, tokens session.TokenStore) *Context {
	sessions := session.NewProvider(store, tokens)
	return &Context{
		Config:   cfg,
		Store:    store,
		Sessions: sessions,
		Habits:   habits.NewService(sessions, store),
	}
}

// OpenBackend returns the provider cfg.Backend points at.
func OpenBackend(cfg *config.Config) (storage.Provider, error) {
	opts := sqlstore.Options{
		SessionTTL: cfg.SessionTTL,
		OAuth:      auth.NewOAuth(cfg.Google),
	}

	switch cfg.Kind() {
	case config.BackendRemote:
		// No timeout: requests fail only when the transport does.
		client, err := remote.New(cfg.Backend, &http.Client{})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendPostgres:
		connStr := cfg.Backend
		if connStr == config.KeyringBackend {
			stored, err := keyring.GetConnectionString()
			if err != nil {
				if errors.Is(err, keyring.ErrNotFound) {
					return nil, errors.New("no connection string found in keyring. Use 'tally keyring set' to store one")
				}
				return nil, fmt.Errorf("failed to read connection string from keyring: %w", err)
			}
			return postgres.New(stored, opts), nil
		}
		if _, err := postgres.ValidateConnString(connStr); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, errors.New("PostgreSQL connection strings with embedded credentials are not allowed. " +
					"Store it with 'tally keyring set' and set TALLY_BACKEND=postgres, or use .pgpass")
			}
			return nil, err
		}
		return postgres.New(connStr, opts), nil
	default:
		path := cfg.Backend
		if path == "" {
			path = sqlite.DefaultPath(cfg.ConfigDir)
		} else if expanded, err := config.ExpandHome(path); err == nil {
			path = expanded
		}
		return sqlite.NewStore(path, opts), nil
	}
}

// RequireSession returns the current session or an error telling the user
// to sign in.
func (c *Context) RequireSession(ctx context.Context) (models.Session, error) {
	s, err := c.Sessions.Current(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if s == nil {
		return models.Session{}, errors.New("not signed in. Run 'tally auth login' first")
	}
	return *s, nil
}

// FindHabit resolves a habit by id or case-insensitive name.
func (c *Context) FindHabit(ctx context.Context, ref string) (models.Habit, error) {
	list, err := c.Habits.List(ctx)
	if err != nil {
		return models.Habit{}, err
	}
	key := validation.NormalizeName(ref)
	for _, h := range list {
		if h.ID == ref || validation.NormalizeName(h.Name) == key {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("habit %q not found", ref)
}

// FormatQuantity renders n without trailing zeros.
func FormatQuantity(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
