package models

import "time"

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is proof of authentication issued by the auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is no longer valid at t.
func (s Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Profile stores per-user preferences synced from the client.
type Profile struct {
	ID        string    `json:"id"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
