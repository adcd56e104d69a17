package habitlist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/models"
)

// AddHabitMsg asks for the create form.
type AddHabitMsg struct{}

// EditHabitMsg asks for the edit form of ID.
type EditHabitMsg struct {
	ID string
}

// LogHabitMsg asks to record one occurrence of Habit.
type LogHabitMsg struct {
	Habit models.Habit
}

type ShowStatsMsg struct{}

type SignOutMsg struct{}

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

type Item struct {
	habits.Item
}

func (i Item) Title() string {
	if i.Tag == "" {
		return i.Item.Title()
	}
	return i.Item.Title() + " " + tagStyle.Render("["+i.Tag+"]")
}

func (i Item) Description() string {
	if i.Kind == habits.ItemAdd {
		return "create a new habit"
	}
	return i.Habit.Unit
}

func (i Item) FilterValue() string { return i.Item.Title() }

type KeyMap struct {
	Select  key.Binding
	Manage  key.Binding
	Log     key.Binding
	Stats   key.Binding
	SignOut key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Manage: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Log: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "log"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stats"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sign out"),
		),
	}
}

type Model struct {
	list    list.Model
	keys    KeyMap
	habits  []models.Habit
	manage  bool
	loading bool
	err     string
	notice  string
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	m := Model{list: l, keys: DefaultKeyMap()}
	m.list.AdditionalShortHelpKeys = m.helpKeys
	m.list.AdditionalFullHelpKeys = m.helpKeys
	m.refreshItems()
	return m
}

func (m Model) helpKeys() []key.Binding {
	manage := m.keys.Manage
	manage.SetHelp("e", "edit/done")
	return []key.Binding{m.keys.Select, manage, m.keys.Log, m.keys.Stats, m.keys.SignOut}
}

// SetLoading marks a fetch in progress and clears stale messages.
func (m *Model) SetLoading() {
	m.loading = true
	m.err = ""
}

// SetHabits replaces the list contents after a fetch.
func (m *Model) SetHabits(list []models.Habit) {
	m.loading = false
	m.err = ""
	m.habits = list
	m.refreshItems()
}

// SetError shows msg inline. A failed fetch leaves the list empty.
func (m *Model) SetError(msg string) {
	m.loading = false
	m.err = msg
	m.notice = ""
}

// SetFetchError empties the list and shows msg.
func (m *Model) SetFetchError(msg string) {
	m.habits = nil
	m.refreshItems()
	m.SetError(msg)
}

// SetNotice shows a transient confirmation.
func (m *Model) SetNotice(msg string) {
	m.notice = msg
	m.err = ""
}

// Manage reports whether manage mode is on.
func (m Model) Manage() bool { return m.manage }

// ManageLabel is the text of the manage toggle.
func (m Model) ManageLabel() string { return habits.ManageLabel(m.manage) }

func (m *Model) refreshItems() {
	rows := habits.ListItems(m.habits, m.manage)
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = Item{Item: r}
	}
	m.list.SetItems(items)
}

func (m Model) selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			i, ok := m.selected()
			if !ok || !i.Navigable {
				return m, nil
			}
			if i.Kind == habits.ItemAdd {
				return m, func() tea.Msg { return AddHabitMsg{} }
			}
			id := i.Habit.ID
			return m, func() tea.Msg { return EditHabitMsg{ID: id} }
		case key.Matches(msg, m.keys.Manage):
			m.manage = !m.manage
			m.refreshItems()
			return m, nil
		case key.Matches(msg, m.keys.Log):
			if i, ok := m.selected(); ok && i.Kind == habits.ItemHabit && i.Habit.Active {
				h := i.Habit
				return m, func() tea.Msg { return LogHabitMsg{Habit: h} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Stats):
			return m, func() tea.Msg { return ShowStatsMsg{} }
		case key.Matches(msg, m.keys.SignOut):
			return m, func() tea.Msg { return SignOutMsg{} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	view := m.list.View()
	if m.loading {
		view = "\n  Loading habits...\n" + view
	}
	if m.err != "" {
		view = "\n  " + errorStyle.Render(m.err) + "\n" + view
	} else if m.notice != "" {
		view = "\n  " + noticeStyle.Render(m.notice) + "\n" + view
	}
	return view
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
