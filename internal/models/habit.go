package models

import "time"

// Habit is a tracked habit owned by a single user.
type Habit struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	DefaultQuantity *float64  `json:"default_quantity"`
	WeeklyLimit     *float64  `json:"weekly_limit"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Archived reports whether the habit is hidden from the primary list.
func (h Habit) Archived() bool {
	return !h.Active
}

// NewHabit holds the fields supplied when inserting a habit.
// The backend assigns ID and CreatedAt.
type NewHabit struct {
	UserID          string   `json:"user_id"`
	Name            string   `json:"name"`
	Unit            string   `json:"unit"`
	DefaultQuantity *float64 `json:"default_quantity"`
	WeeklyLimit     *float64 `json:"weekly_limit"`
	Active          bool     `json:"active"`
}

// HabitUpdate holds the mutable fields of a habit. Unit is fixed at creation.
type HabitUpdate struct {
	Name            string   `json:"name"`
	DefaultQuantity *float64 `json:"default_quantity"`
	WeeklyLimit     *float64 `json:"weekly_limit"`
	Active          bool     `json:"active"`
}

// HabitLog is one recorded occurrence of a habit.
type HabitLog struct {
	ID       string    `json:"id"`
	HabitID  string    `json:"habit_id"`
	UserID   string    `json:"user_id"`
	Quantity float64   `json:"quantity"`
	LoggedAt time.Time `json:"logged_at"`
}

// NewHabitLog holds the fields supplied when logging an occurrence.
type NewHabitLog struct {
	HabitID  string    `json:"habit_id"`
	Quantity float64   `json:"quantity"`
	LoggedAt time.Time `json:"logged_at"`
}
