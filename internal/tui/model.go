// Package tui is the interactive habit tracker.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/router"
	"github.com/julianstephens/tally/internal/session"
	"github.com/julianstephens/tally/internal/tui/components/habitform"
	"github.com/julianstephens/tally/internal/tui/components/habitlist"
	"github.com/julianstephens/tally/internal/tui/components/login"
	"github.com/julianstephens/tally/internal/tui/components/stats"
	"github.com/julianstephens/tally/internal/utils"
)

// Deps are the collaborators the TUI drives.
type Deps struct {
	Sessions *session.Provider
	Habits   *habits.Service
	// Timezone is the IANA name synced to the profile. Defaults to the
	// machine's zone.
	Timezone string
}

type Model struct {
	sessions    *session.Provider
	habits      *habits.Service
	router      *router.Controller
	feed        *sessionFeed
	unsubscribe func()
	timezone    string
	loc         *time.Location

	path     router.Path
	previous router.Path
	// entered is false until the current path's screen has loaded.
	entered  bool
	checkErr string

	keys      KeyMap
	help      help.Model
	spinner   spinner.Model
	loginView login.Model
	listView  habitlist.Model
	formView  habitform.Model
	statsView stats.Model

	quitting bool
	width    int
	height   int
}

// NewModel subscribes to session changes. Call Close when the program exits.
func NewModel(deps Deps) Model {
	tz := deps.Timezone
	if tz == "" {
		tz = utils.LocalTimezone()
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		logger.Warn("Unknown timezone, using UTC", "timezone", tz, "error", err)
		tz, loc = "UTC", time.UTC
	}

	feed := newSessionFeed()
	unsubscribe := deps.Sessions.Subscribe(func(event session.Event, s *models.Session) {
		feed.push(event, s)
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		sessions:    deps.Sessions,
		habits:      deps.Habits,
		router:      router.New(),
		feed:        feed,
		unsubscribe: unsubscribe,
		timezone:    tz,
		loc:         loc,
		path:        router.Landing,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		loginView:   login.New(),
		listView:    habitlist.New(0, 0),
		formView:    habitform.New(),
		statsView:   stats.New(0, 0),
	}
}

// Close releases the session subscription.
func (m Model) Close() {
	m.unsubscribe()
	m.feed.close()
}

// Path is the screen being shown.
func (m Model) Path() router.Path { return m.path }

// Status is the authentication state.
func (m Model) Status() router.Status { return m.router.Status() }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSession(), m.feed.wait(), m.spinner.Tick)
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Quit, m.keys.Help}
	if m.router.Status() == router.StatusChecking {
		if m.checkErr != "" {
			keys = append(keys, m.keys.Retry)
		}
		return keys
	}
	switch m.path {
	case router.PathHabits:
		lk := habitlist.DefaultKeyMap()
		manage := lk.Manage
		manage.SetHelp("e", strings.ToLower(m.listView.ManageLabel()))
		keys = append(keys, lk.Select, manage, lk.Log, lk.Stats, lk.SignOut)
	case router.PathStats:
		sk := stats.DefaultKeyMap()
		keys = append(keys, sk.Back, sk.Refresh)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Quit, m.keys.Help}
	var actions []key.Binding
	switch m.path {
	case router.PathHabitForm:
		fk := habitform.DefaultKeyMap()
		actions = []key.Binding{fk.Next, fk.Prev, fk.Save, fk.Archive, fk.Delete, fk.CancelDelete, fk.Preset, fk.Back}
	default:
		actions = m.ShortHelp()[len(global):]
	}
	return [][]key.Binding{global, actions}
}
