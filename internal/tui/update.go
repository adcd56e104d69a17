package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	errs "github.com/julianstephens/tally/internal/errors"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/router"
	"github.com/julianstephens/tally/internal/tui/components/habitform"
	"github.com/julianstephens/tally/internal/tui/components/habitlist"
	"github.com/julianstephens/tally/internal/tui/components/login"
	"github.com/julianstephens/tally/internal/tui/components/stats"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - 6
		if h < 0 {
			h = 0
		}
		m.loginView.SetSize(msg.Width-4, h)
		m.listView.SetSize(msg.Width-4, h)
		m.statsView.SetSize(msg.Width-4, h)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.router.Status() == router.StatusChecking {
			if m.checkErr != "" && key.Matches(msg, m.keys.Retry) {
				m.checkErr = ""
				return m, m.loadSession()
			}
			return m, nil
		}
		if m.path != router.PathLogin && m.path != router.PathHabitForm && key.Matches(msg, m.keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case spinner.TickMsg:
		if m.router.Status() != router.StatusChecking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case initialSessionMsg:
		if msg.err != nil {
			logger.Error("Initial session check failed", "error", msg.err)
			m.checkErr = errs.UserMessage(msg.err, msg.err.Error())
			return m, nil
		}
		m.checkErr = ""
		return m.applySession(msg.session)

	case sessionChangedMsg:
		logger.Debug("Session changed", "event", msg.event)
		m.checkErr = ""
		next, cmd := m.applySession(msg.session)
		return next, tea.Batch(cmd, m.feed.wait())

	case profileSyncedMsg:
		m.router.FinishProfileSync(msg.userID, msg.err)
		if msg.err != nil {
			logger.Warn("Profile sync failed", "user", msg.userID, "error", msg.err)
		}
		// A user who signed in while the claim was held has not been synced.
		// A failure for the same user waits for the next notification.
		if s := m.router.Session(); s != nil && s.User.ID != msg.userID {
			if userID, ok := m.router.BeginProfileSync(); ok {
				return m, m.syncProfile(userID, *s)
			}
		}
		return m, nil

	case loginDoneMsg:
		var cmd tea.Cmd
		switch {
		case msg.err != nil:
			cmd = m.loginView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
		case msg.authURL != "":
			cmd = m.loginView.SetAuthURL(msg.authURL)
		}
		return m, cmd

	case signedOutMsg:
		if msg.err != nil {
			m.listView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
		}
		return m, nil

	case habitsLoadedMsg:
		if msg.err != nil {
			m.listView.SetFetchError(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		m.listView.SetHabits(msg.habits)
		return m, nil

	case habitLoadedMsg:
		// Ignore loads for a form that is no longer shown.
		if msg.id != m.formView.ID() {
			return m, nil
		}
		if msg.err != nil {
			m.formView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		m.formView.SetHabit(msg.habit)
		return m, nil

	case habitSavedMsg:
		if msg.err != nil {
			m.formView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		return m.navigate(m.back())

	case habitDeletedMsg:
		if msg.err != nil {
			m.formView.DeleteFailed(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		return m.navigate(m.back())

	case habitLoggedMsg:
		if msg.err != nil {
			m.listView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		m.listView.SetNotice(fmt.Sprintf("Logged %s %s of %s",
			strconv.FormatFloat(msg.entry.Quantity, 'f', -1, 64), msg.habit.Unit, msg.habit.Name))
		return m, nil

	case summaryLoadedMsg:
		if msg.err != nil {
			m.statsView.SetError(errs.UserMessage(msg.err, msg.err.Error()))
			return m, nil
		}
		m.statsView.SetSummary(msg.summary)
		return m, nil

	// Component requests
	case login.SubmitMsg:
		return m, m.submitLogin(msg)
	case habitlist.AddHabitMsg:
		m.formView = habitform.New()
		return m.navigate(router.PathHabitForm)
	case habitlist.EditHabitMsg:
		m.formView = habitform.NewEdit(msg.ID)
		return m.navigate(router.PathHabitForm)
	case habitlist.LogHabitMsg:
		return m, m.logHabit(msg.Habit)
	case habitlist.ShowStatsMsg:
		return m.navigate(router.PathStats)
	case habitlist.SignOutMsg:
		return m, signOut(m.sessions)
	case habitform.SaveMsg:
		return m, m.saveHabit(msg.Request)
	case habitform.DeleteMsg:
		return m, m.deleteHabit(msg.ID)
	case habitform.BackMsg, stats.BackMsg:
		return m.navigate(m.back())
	case stats.RefreshMsg:
		m.statsView.SetLoading()
		return m, m.loadSummary()
	}

	return m.updateScreen(msg)
}

// applySession records s and performs any redirect or profile sync it
// calls for.
func (m Model) applySession(s *models.Session) (tea.Model, tea.Cmd) {
	m.router.SetSession(s)

	var cmds []tea.Cmd
	if userID, ok := m.router.BeginProfileSync(); ok {
		cmds = append(cmds, m.syncProfile(userID, *m.router.Session()))
	}

	var next tea.Model = m
	var cmd tea.Cmd
	if to, ok := m.router.Redirect(m.path); ok {
		next, cmd = m.navigate(to)
	} else if !m.entered {
		next, cmd = m.navigate(m.path)
	}
	return next, tea.Batch(append(cmds, cmd)...)
}

func (m Model) back() router.Path {
	if m.previous == "" || m.previous == m.path || m.previous == router.PathLogin {
		return router.Landing
	}
	return m.previous
}

// navigate shows path and starts whatever loading the screen needs.
func (m Model) navigate(path router.Path) (tea.Model, tea.Cmd) {
	if path != m.path {
		m.previous = m.path
	}
	m.path = path
	m.entered = true

	switch path {
	case router.PathLogin:
		cmd := m.loginView.Reset()
		return m, cmd
	case router.PathHabits:
		m.listView.SetLoading()
		return m, m.loadHabits()
	case router.PathHabitForm:
		if m.formView.Editing() {
			return m, tea.Batch(m.formView.Init(), m.loadHabit(m.formView.ID()))
		}
		return m, m.formView.Init()
	case router.PathStats:
		m.statsView.SetLoading()
		return m, m.loadSummary()
	}
	return m, nil
}

func (m Model) updateScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.router.Status() == router.StatusChecking {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.path {
	case router.PathLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case router.PathHabits:
		m.listView, cmd = m.listView.Update(msg)
	case router.PathHabitForm:
		m.formView, cmd = m.formView.Update(msg)
	case router.PathStats:
		m.statsView, cmd = m.statsView.Update(msg)
	}
	return m, cmd
}
