package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/router"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	if m.router.Status() == router.StatusChecking {
		content = m.viewChecking()
	} else {
		switch m.path {
		case router.PathLogin:
			content = m.loginView.View()
		case router.PathHabits:
			content = m.listView.View()
		case router.PathHabitForm:
			content = m.formView.View()
		case router.PathStats:
			content = m.statsView.View()
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		docStyle.Render(content),
		m.help.View(m),
	)
}

func (m Model) viewHeader() string {
	title := headerStyle.Render(constants.AppName)
	if s := m.router.Session(); s != nil {
		return lipgloss.JoinHorizontal(lipgloss.Top, title, userStyle.Render(s.User.Email))
	}
	return title
}

func (m Model) viewChecking() string {
	if m.checkErr != "" {
		return dangerStyle.Render("Could not check your session: "+m.checkErr) + "\n\n" +
			warningStyle.Render("Press r to retry.")
	}
	return m.spinner.View() + " Checking session..."
}
