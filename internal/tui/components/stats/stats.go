package stats

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/habits"
)

type BackMsg struct{}

type RefreshMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	overStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type KeyMap struct {
	Back    key.Binding
	Refresh key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Back:    key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

type Model struct {
	keys    KeyMap
	table   table.Model
	summary habits.Summary
	loading bool
	err     string
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithHeight(height),
		table.WithFocused(true),
	)
	return Model{keys: DefaultKeyMap(), table: t}
}

func columns(width int) []table.Column {
	name := 20
	if width > 60 {
		name = width - 40
	}
	return []table.Column{
		{Title: "Habit", Width: name},
		{Title: "This week", Width: 12},
		{Title: "Limit", Width: 10},
		{Title: "", Width: 6},
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Rows renders one table row per weekly total.
func Rows(totals []habits.WeeklyTotal) []table.Row {
	rows := make([]table.Row, 0, len(totals))
	for _, t := range totals {
		limit := "-"
		if t.Habit.WeeklyLimit != nil {
			limit = format(*t.Habit.WeeklyLimit)
		}
		flag := ""
		if t.Over() {
			flag = "over"
		}
		rows = append(rows, table.Row{
			t.Habit.Name,
			fmt.Sprintf("%s %s", format(t.Total), t.Habit.Unit),
			limit,
			flag,
		})
	}
	return rows
}

func (m *Model) SetLoading() {
	m.loading = true
	m.err = ""
}

func (m *Model) SetSummary(s habits.Summary) {
	m.loading = false
	m.err = ""
	m.summary = s
	m.table.SetRows(Rows(s.Totals))
}

func (m *Model) SetError(msg string) {
	m.loading = false
	m.err = msg
	m.table.SetRows(nil)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return RefreshMsg{} }
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	title := "This week"
	if !m.summary.WeekStart.IsZero() {
		title = fmt.Sprintf("Week of %s", m.summary.WeekStart.Format(constants.DateFormat))
	}
	view := titleStyle.Render(title) + "\n"
	switch {
	case m.loading:
		return view + "Loading stats...\n"
	case m.err != "":
		return view + errorStyle.Render(m.err) + "\n"
	case len(m.summary.Totals) == 0:
		return view + "No active habits yet.\n"
	}

	view += m.table.View() + "\n"
	over := 0
	for _, t := range m.summary.Totals {
		if t.Over() {
			over++
		}
	}
	if over > 0 {
		view += "\n" + overStyle.Render(fmt.Sprintf("%d habit(s) over their weekly limit", over)) + "\n"
	}
	return view
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	m.table.SetHeight(height)
}
