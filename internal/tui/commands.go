package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/session"
	"github.com/julianstephens/tally/internal/tui/components/login"
)

type initialSessionMsg struct {
	session *models.Session
	err     error
}

type profileSyncedMsg struct {
	userID string
	err    error
}

type habitsLoadedMsg struct {
	habits []models.Habit
	err    error
}

type habitLoadedMsg struct {
	id    string
	habit models.Habit
	err   error
}

type habitSavedMsg struct {
	habit models.Habit
	err   error
}

type habitDeletedMsg struct {
	err error
}

type habitLoggedMsg struct {
	habit models.Habit
	entry models.HabitLog
	err   error
}

type summaryLoadedMsg struct {
	summary habits.Summary
	err     error
}

type loginDoneMsg struct {
	authURL string
	err     error
}

type signedOutMsg struct {
	err error
}

func (m Model) loadSession() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		s, err := sessions.Current(context.Background())
		return initialSessionMsg{session: s, err: err}
	}
}

func (m Model) syncProfile(userID string, s models.Session) tea.Cmd {
	svc, tz := m.habits, m.timezone
	return func() tea.Msg {
		return profileSyncedMsg{userID: userID, err: svc.SyncProfile(context.Background(), s, tz)}
	}
}

func (m Model) loadHabits() tea.Cmd {
	svc := m.habits
	return func() tea.Msg {
		list, err := svc.List(context.Background())
		return habitsLoadedMsg{habits: list, err: err}
	}
}

func (m Model) loadHabit(id string) tea.Cmd {
	svc := m.habits
	return func() tea.Msg {
		h, err := svc.Get(context.Background(), id)
		return habitLoadedMsg{id: id, habit: h, err: err}
	}
}

func (m Model) saveHabit(req habits.SaveRequest) tea.Cmd {
	svc := m.habits
	return func() tea.Msg {
		h, err := svc.Save(context.Background(), req)
		return habitSavedMsg{habit: h, err: err}
	}
}

func (m Model) deleteHabit(id string) tea.Cmd {
	svc := m.habits
	return func() tea.Msg {
		return habitDeletedMsg{err: svc.Delete(context.Background(), id)}
	}
}

func (m Model) logHabit(h models.Habit) tea.Cmd {
	svc := m.habits
	return func() tea.Msg {
		entry, err := svc.Log(context.Background(), h, nil)
		return habitLoggedMsg{habit: h, entry: entry, err: err}
	}
}

func (m Model) loadSummary() tea.Cmd {
	svc, loc := m.habits, m.loc
	return func() tea.Msg {
		s, err := svc.WeeklySummary(context.Background(), loc)
		return summaryLoadedMsg{summary: s, err: err}
	}
}

func (m Model) submitLogin(msg login.SubmitMsg) tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch msg.Action {
		case login.ActionSignUp:
			_, err = sessions.SignUp(ctx, msg.Email, msg.Password)
		case login.ActionGoogle:
			var u string
			u, err = sessions.SignInWithOAuth(ctx, constants.OAuthProviderGoogle, "")
			return loginDoneMsg{authURL: u, err: err}
		default:
			_, err = sessions.SignIn(ctx, msg.Email, msg.Password)
		}
		return loginDoneMsg{err: err}
	}
}

func signOut(sessions *session.Provider) tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: sessions.SignOut(context.Background())}
	}
}
