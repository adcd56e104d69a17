package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/session"
)

type sessionChangedMsg struct {
	event   session.Event
	session *models.Session
}

// sessionFeed is a one-slot mailbox: a newer notification replaces one the
// UI has not consumed yet.
type sessionFeed struct {
	mu     sync.Mutex
	ch     chan sessionChangedMsg
	closed bool
}

func newSessionFeed() *sessionFeed {
	return &sessionFeed{ch: make(chan sessionChangedMsg, 1)}
}

func (f *sessionFeed) push(event session.Event, s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- sessionChangedMsg{event: event, session: s}
}

func (f *sessionFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// wait blocks until the next notification. It yields nil once closed.
func (f *sessionFeed) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-f.ch
		if !ok {
			return nil
		}
		return msg
	}
}
