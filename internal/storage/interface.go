package storage

import (
	"context"
	"time"

	"github.com/julianstephens/tally/internal/models"
)

// AuthService issues and revokes sessions.
type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (models.Session, error)
	SignUp(ctx context.Context, email, password string) (models.Session, error)
	// SignInWithOAuth returns the provider authorization URL the user must visit.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	RefreshSession(ctx context.Context, refreshToken string) (models.Session, error)
	SignOut(ctx context.Context, session models.Session) error
}

// HabitStore reads and writes habit data. Every call is scoped to the user
// the session's access token identifies; rows of other users are invisible.
type HabitStore interface {
	// ListHabits returns active and archived habits ordered by created_at ascending.
	ListHabits(ctx context.Context, session models.Session) ([]models.Habit, error)
	GetHabit(ctx context.Context, session models.Session, id string) (models.Habit, error)
	InsertHabit(ctx context.Context, session models.Session, habit models.NewHabit) (models.Habit, error)
	UpdateHabit(ctx context.Context, session models.Session, id string, update models.HabitUpdate) (models.Habit, error)
	// DeleteHabit removes the habit and its logs.
	DeleteHabit(ctx context.Context, session models.Session, id string) error

	UpsertProfile(ctx context.Context, session models.Session, profile models.Profile) error

	InsertHabitLog(ctx context.Context, session models.Session, log models.NewHabitLog) (models.HabitLog, error)
	// ListHabitLogs returns logs at or after since, oldest first.
	ListHabitLogs(ctx context.Context, session models.Session, since time.Time) ([]models.HabitLog, error)
}

// TokenVerifier resolves an access token to its user.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (models.User, error)
}

// Provider is a complete backend: lifecycle plus the auth and data surfaces.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	AuthService
	HabitStore
	TokenVerifier

	// Location is a non-sensitive description of where data lives.
	Location() string
}
