// Package storagetest holds the behavior suite every backend must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

// Factory returns a ready-to-use provider backed by fresh, empty storage.
type Factory func(t *testing.T) storage.Provider

func ptr(f float64) *float64 { return &f }

// SignUp registers a throwaway account and returns its session.
func SignUp(t *testing.T, p storage.Provider, email string) models.Session {
	t.Helper()
	session, err := p.SignUp(context.Background(), email, "correct horse")
	if err != nil {
		t.Fatalf("SignUp(%q) error = %v", email, err)
	}
	return session
}

// Run exercises the auth and habit contract against the provider.
func Run(t *testing.T, newProvider Factory) {
	t.Run("Auth", func(t *testing.T) { testAuth(t, newProvider(t)) })
	t.Run("HabitLifecycle", func(t *testing.T) { testHabitLifecycle(t, newProvider(t)) })
	t.Run("DuplicateNames", func(t *testing.T) { testDuplicateNames(t, newProvider(t)) })
	t.Run("RowScoping", func(t *testing.T) { testRowScoping(t, newProvider(t)) })
	t.Run("Logs", func(t *testing.T) { testLogs(t, newProvider(t)) })
	t.Run("Profile", func(t *testing.T) { testProfile(t, newProvider(t)) })
}

func testAuth(t *testing.T, p storage.Provider) {
	ctx := context.Background()

	session := SignUp(t, p, "Ada@Example.com")
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("SignUp() returned incomplete session %+v", session)
	}
	if session.User.Email != "ada@example.com" {
		t.Errorf("SignUp() email = %q, want normalized %q", session.User.Email, "ada@example.com")
	}

	if _, err := p.SignUp(ctx, "ada@example.com", "another pass"); !storage.IsDuplicate(err) {
		t.Errorf("second SignUp() error = %v, want duplicate kind", err)
	}
	if _, err := p.SignUp(ctx, "bob@example.com", "123"); !storage.IsInvalid(err) {
		t.Errorf("SignUp() short password error = %v, want invalid kind", err)
	}

	signedIn, err := p.SignInWithPassword(ctx, " ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	if signedIn.User.ID != session.User.ID {
		t.Errorf("SignInWithPassword() user = %q, want %q", signedIn.User.ID, session.User.ID)
	}

	_, err = p.SignInWithPassword(ctx, "ada@example.com", "wrong")
	if !storage.IsUnauthorized(err) {
		t.Fatalf("SignInWithPassword() wrong password error = %v, want unauthorized", err)
	}
	var se *storage.Error
	if errors.As(err, &se) && se.Message != storage.MsgInvalidCredentials {
		t.Errorf("SignInWithPassword() message = %q, want %q", se.Message, storage.MsgInvalidCredentials)
	}
	if _, err := p.SignInWithPassword(ctx, "nobody@example.com", "whatever"); !storage.IsUnauthorized(err) {
		t.Errorf("SignInWithPassword() unknown user error = %v, want unauthorized", err)
	}

	user, err := p.VerifyAccessToken(ctx, signedIn.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if user.ID != session.User.ID {
		t.Errorf("VerifyAccessToken() user = %q, want %q", user.ID, session.User.ID)
	}
	if _, err := p.VerifyAccessToken(ctx, "garbage"); !storage.IsUnauthorized(err) {
		t.Errorf("VerifyAccessToken(garbage) error = %v, want unauthorized", err)
	}

	refreshed, err := p.RefreshSession(ctx, signedIn.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshSession() error = %v", err)
	}
	if refreshed.RefreshToken == signedIn.RefreshToken {
		t.Error("RefreshSession() did not rotate the refresh token")
	}
	if _, err := p.RefreshSession(ctx, signedIn.RefreshToken); !storage.IsUnauthorized(err) {
		t.Errorf("reusing a rotated refresh token error = %v, want unauthorized", err)
	}

	if err := p.SignOut(ctx, refreshed); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := p.RefreshSession(ctx, refreshed.RefreshToken); !storage.IsUnauthorized(err) {
		t.Errorf("RefreshSession() after SignOut error = %v, want unauthorized", err)
	}

	if _, err := p.SignInWithOAuth(ctx, "myspace", ""); !storage.IsInvalid(err) {
		t.Errorf("SignInWithOAuth(unknown) error = %v, want invalid", err)
	}
}

func testHabitLifecycle(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	session := SignUp(t, p, "lifecycle@example.com")

	if _, err := p.ListHabits(ctx, models.Session{}); !storage.IsUnauthorized(err) {
		t.Errorf("ListHabits() without session error = %v, want unauthorized", err)
	}

	coffee, err := p.InsertHabit(ctx, session, models.NewHabit{
		UserID: session.User.ID, Name: "Coffee", Unit: "cups", DefaultQuantity: ptr(1), Active: true,
	})
	if err != nil {
		t.Fatalf("InsertHabit() error = %v", err)
	}
	if coffee.ID == "" || coffee.CreatedAt.IsZero() || coffee.UserID != session.User.ID {
		t.Errorf("InsertHabit() returned %+v, want id, created_at and owner set", coffee)
	}
	running, err := p.InsertHabit(ctx, session, models.NewHabit{
		UserID: session.User.ID, Name: "Running", Unit: "km", WeeklyLimit: ptr(20), Active: true,
	})
	if err != nil {
		t.Fatalf("InsertHabit() error = %v", err)
	}

	habits, err := p.ListHabits(ctx, session)
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	if len(habits) != 2 || habits[0].ID != coffee.ID || habits[1].ID != running.ID {
		t.Fatalf("ListHabits() = %+v, want [Coffee Running] in creation order", habits)
	}
	if habits[0].DefaultQuantity == nil || *habits[0].DefaultQuantity != 1 || habits[0].WeeklyLimit != nil {
		t.Errorf("ListHabits()[0] quantities = %v/%v, want 1/nil", habits[0].DefaultQuantity, habits[0].WeeklyLimit)
	}

	updated, err := p.UpdateHabit(ctx, session, coffee.ID, models.HabitUpdate{
		Name: "Espresso", DefaultQuantity: ptr(2), WeeklyLimit: ptr(10), Active: false,
	})
	if err != nil {
		t.Fatalf("UpdateHabit() error = %v", err)
	}
	if updated.Name != "Espresso" || updated.Unit != "cups" || updated.Active {
		t.Errorf("UpdateHabit() = %+v, want renamed, archived, unit kept", updated)
	}

	got, err := p.GetHabit(ctx, session, coffee.ID)
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if got.WeeklyLimit == nil || *got.WeeklyLimit != 10 || !got.CreatedAt.Equal(coffee.CreatedAt) {
		t.Errorf("GetHabit() = %+v, want weekly limit 10 and original created_at %v", got, coffee.CreatedAt)
	}

	if _, err := p.UpdateHabit(ctx, session, "missing", models.HabitUpdate{Name: "x"}); !storage.IsNotFound(err) {
		t.Errorf("UpdateHabit(missing) error = %v, want not found", err)
	}

	if _, err := p.InsertHabitLog(ctx, session, models.NewHabitLog{HabitID: running.ID, Quantity: 5}); err != nil {
		t.Fatalf("InsertHabitLog() error = %v", err)
	}
	if err := p.DeleteHabit(ctx, session, running.ID); err != nil {
		t.Fatalf("DeleteHabit() error = %v", err)
	}
	if _, err := p.GetHabit(ctx, session, running.ID); !storage.IsNotFound(err) {
		t.Errorf("GetHabit() after delete error = %v, want not found", err)
	}
	logs, err := p.ListHabitLogs(ctx, session, time.Time{})
	if err != nil {
		t.Fatalf("ListHabitLogs() error = %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("ListHabitLogs() after delete = %d logs, want 0", len(logs))
	}
	if err := p.DeleteHabit(ctx, session, running.ID); !storage.IsNotFound(err) {
		t.Errorf("second DeleteHabit() error = %v, want not found", err)
	}
}

func testDuplicateNames(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	session := SignUp(t, p, "dupes@example.com")

	coffee, err := p.InsertHabit(ctx, session, models.NewHabit{UserID: session.User.ID, Name: "Coffee", Unit: "cups", Active: true})
	if err != nil {
		t.Fatalf("InsertHabit() error = %v", err)
	}
	if _, err := p.InsertHabit(ctx, session, models.NewHabit{UserID: session.User.ID, Name: "coffee ", Unit: "mugs", Active: true}); !storage.IsDuplicate(err) {
		t.Errorf("InsertHabit(coffee) error = %v, want duplicate", err)
	}

	tea, err := p.InsertHabit(ctx, session, models.NewHabit{UserID: session.User.ID, Name: "Tea", Unit: "cups", Active: true})
	if err != nil {
		t.Fatalf("InsertHabit(Tea) error = %v", err)
	}
	if _, err := p.UpdateHabit(ctx, session, tea.ID, models.HabitUpdate{Name: "COFFEE", Active: true}); !storage.IsDuplicate(err) {
		t.Errorf("UpdateHabit(Tea -> COFFEE) error = %v, want duplicate", err)
	}
	if _, err := p.UpdateHabit(ctx, session, coffee.ID, models.HabitUpdate{Name: "Coffee", Active: true}); err != nil {
		t.Errorf("UpdateHabit() keeping its own name error = %v", err)
	}

	other := SignUp(t, p, "other@example.com")
	if _, err := p.InsertHabit(ctx, other, models.NewHabit{UserID: other.User.ID, Name: "Coffee", Unit: "cups", Active: true}); err != nil {
		t.Errorf("InsertHabit() same name for another user error = %v", err)
	}
}

func testRowScoping(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	alice := SignUp(t, p, "alice@example.com")
	bob := SignUp(t, p, "bob@example.com")

	habit, err := p.InsertHabit(ctx, alice, models.NewHabit{UserID: alice.User.ID, Name: "Smoking", Unit: "cigarettes", Active: true})
	if err != nil {
		t.Fatalf("InsertHabit() error = %v", err)
	}

	habits, err := p.ListHabits(ctx, bob)
	if err != nil {
		t.Fatalf("ListHabits(bob) error = %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("ListHabits(bob) = %d habits, want 0", len(habits))
	}
	if _, err := p.GetHabit(ctx, bob, habit.ID); !storage.IsNotFound(err) {
		t.Errorf("GetHabit(bob, alice's) error = %v, want not found", err)
	}
	if err := p.DeleteHabit(ctx, bob, habit.ID); !storage.IsNotFound(err) {
		t.Errorf("DeleteHabit(bob, alice's) error = %v, want not found", err)
	}
	if _, err := p.InsertHabit(ctx, bob, models.NewHabit{UserID: alice.User.ID, Name: "Sneaky", Unit: "x", Active: true}); !storage.IsUnauthorized(err) {
		t.Errorf("InsertHabit() for another user error = %v, want unauthorized", err)
	}
	if _, err := p.InsertHabitLog(ctx, bob, models.NewHabitLog{HabitID: habit.ID, Quantity: 1}); !storage.IsNotFound(err) {
		t.Errorf("InsertHabitLog(bob, alice's) error = %v, want not found", err)
	}
}

func testLogs(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	session := SignUp(t, p, "logs@example.com")

	weed, err := p.InsertHabit(ctx, session, models.NewHabit{UserID: session.User.ID, Name: "Weed", Unit: "grams", DefaultQuantity: ptr(0.1), Active: true})
	if err != nil {
		t.Fatalf("InsertHabit() error = %v", err)
	}

	old := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 10, 13, 8, 30, 0, 0, time.UTC)
	if _, err := p.InsertHabitLog(ctx, session, models.NewHabitLog{HabitID: weed.ID, Quantity: 0.5, LoggedAt: old}); err != nil {
		t.Fatalf("InsertHabitLog(old) error = %v", err)
	}
	entry, err := p.InsertHabitLog(ctx, session, models.NewHabitLog{HabitID: weed.ID, Quantity: 0.2, LoggedAt: recent})
	if err != nil {
		t.Fatalf("InsertHabitLog(recent) error = %v", err)
	}
	if entry.ID == "" || entry.UserID != session.User.ID || !entry.LoggedAt.Equal(recent) {
		t.Errorf("InsertHabitLog() = %+v", entry)
	}

	if _, err := p.InsertHabitLog(ctx, session, models.NewHabitLog{HabitID: weed.ID, Quantity: 0}); !storage.IsInvalid(err) {
		t.Errorf("InsertHabitLog(0) error = %v, want invalid", err)
	}

	logs, err := p.ListHabitLogs(ctx, session, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListHabitLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].ID != entry.ID || logs[0].Quantity != 0.2 {
		t.Errorf("ListHabitLogs(since week start) = %+v, want only the recent entry", logs)
	}

	if _, err := p.UpdateHabit(ctx, session, weed.ID, models.HabitUpdate{Name: "Weed", Active: false}); err != nil {
		t.Fatalf("UpdateHabit(archive) error = %v", err)
	}
	if _, err := p.InsertHabitLog(ctx, session, models.NewHabitLog{HabitID: weed.ID, Quantity: 1}); !storage.IsInvalid(err) {
		t.Errorf("InsertHabitLog(archived) error = %v, want invalid", err)
	}
}

func testProfile(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	session := SignUp(t, p, "profile@example.com")

	if err := p.UpsertProfile(ctx, session, models.Profile{ID: session.User.ID, Timezone: "Europe/London"}); err != nil {
		t.Fatalf("UpsertProfile() error = %v", err)
	}
	if err := p.UpsertProfile(ctx, session, models.Profile{ID: session.User.ID, Timezone: "Asia/Tokyo"}); err != nil {
		t.Fatalf("second UpsertProfile() error = %v", err)
	}
	if err := p.UpsertProfile(ctx, session, models.Profile{ID: session.User.ID, Timezone: "Mars/Olympus"}); !storage.IsInvalid(err) {
		t.Errorf("UpsertProfile(bad tz) error = %v, want invalid", err)
	}
	if err := p.UpsertProfile(ctx, session, models.Profile{ID: "someone-else", Timezone: "UTC"}); !storage.IsUnauthorized(err) {
		t.Errorf("UpsertProfile(other id) error = %v, want unauthorized", err)
	}
}
