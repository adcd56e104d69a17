// Package router decides which screen is shown for the current session.
package router

import (
	"sync"

	"github.com/julianstephens/tally/internal/models"
)

// Path names a screen.
type Path string

const (
	PathLogin     Path = "/login"
	PathHabits    Path = "/habits"
	PathHabitForm Path = "/habits/form"
	PathStats     Path = "/stats"

	// Landing is where an authenticated user starts.
	Landing = PathHabits
)

// Status is the authentication state the controller is in.
type Status int

const (
	StatusChecking Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "checking"
	}
}

// Controller tracks the session status and the per-run profile sync.
type Controller struct {
	mu       sync.Mutex
	status   Status
	session  *models.Session
	synced   string
	inFlight bool
}

// New returns a Controller in the checking state.
func New() *Controller {
	return &Controller{}
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Session returns the session the controller last saw, or nil.
func (c *Controller) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession records a session notification. A nil session means signed out.
func (c *Controller) SetSession(s *models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.status = StatusUnauthenticated
		c.session = nil
		return
	}
	cp := *s
	c.session = &cp
	c.status = StatusAuthenticated
}

// Redirect reports where to navigate from current, if anywhere.
func (c *Controller) Redirect(current Path) (Path, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusUnauthenticated:
		if current != PathLogin {
			return PathLogin, true
		}
	case StatusAuthenticated:
		if current == PathLogin {
			return Landing, true
		}
	}
	return current, false
}

// BeginProfileSync claims the profile upsert for the signed-in user. It
// returns false when no user is signed in, the user was already synced
// this run, or an upsert is in flight.
func (c *Controller) BeginProfileSync() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusAuthenticated || c.inFlight {
		return "", false
	}
	id := c.session.User.ID
	if id == "" || id == c.synced {
		return "", false
	}
	c.inFlight = true
	return id, true
}

// FinishProfileSync releases the claim. A nil err marks userID as synced.
func (c *Controller) FinishProfileSync(userID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err == nil {
		c.synced = userID
	}
}
