package login

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Action is what the user chose to do with the credentials.
type Action string

const (
	ActionSignIn Action = "signin"
	ActionSignUp Action = "signup"
	ActionGoogle Action = "google"
)

// SubmitMsg carries a completed login form.
type SubmitMsg struct {
	Action   Action
	Email    string
	Password string
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	urlStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
)

type fields struct {
	email    string
	password string
	action   Action
}

type Model struct {
	form    *huh.Form
	fields  *fields
	busy    bool
	err     string
	authURL string
	width   int
}

func New() Model {
	m := Model{fields: &fields{action: ActionSignIn}}
	m.form = m.buildForm()
	return m
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.fields.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.password),
			huh.NewSelect[Action]().
				Title("Action").
				Options(
					huh.NewOption("Sign in", ActionSignIn),
					huh.NewOption("Sign up", ActionSignUp),
					huh.NewOption("Continue with Google", ActionGoogle),
				).
				Value(&m.fields.action),
		),
	).WithShowHelp(true)
}

// Reset rebuilds the form keeping the typed email.
func (m *Model) Reset() tea.Cmd {
	m.busy = false
	m.fields.password = ""
	m.form = m.buildForm()
	if m.width > 0 {
		m.form = m.form.WithWidth(m.width)
	}
	return m.form.Init()
}

// SetError shows an auth failure verbatim and lets the user try again.
func (m *Model) SetError(msg string) tea.Cmd {
	m.err = msg
	m.authURL = ""
	return m.Reset()
}

// SetAuthURL shows the provider URL the user must open.
func (m *Model) SetAuthURL(u string) tea.Cmd {
	m.err = ""
	m.authURL = u
	return m.Reset()
}

// Busy reports whether a submission is pending.
func (m Model) Busy() bool { return m.busy }

func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		m.err = ""
		submit := SubmitMsg{Action: m.fields.action, Email: m.fields.email, Password: m.fields.password}
		return m, tea.Batch(cmd, func() tea.Msg { return submit })
	}
	return m, cmd
}

func (m Model) View() string {
	view := titleStyle.Render("Sign in to tally") + "\n"
	if m.busy {
		return view + "Signing in...\n"
	}
	view += m.form.View()
	if m.err != "" {
		view += "\n" + errorStyle.Render(m.err) + "\n"
	}
	if m.authURL != "" {
		view += "\nOpen this URL to continue:\n" + urlStyle.Render(m.authURL) + "\n"
	}
	return view
}

func (m *Model) SetSize(width, height int) {
	if width <= 0 {
		return
	}
	m.width = width
	m.form = m.form.WithWidth(width)
}
