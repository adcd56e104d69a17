// Package habitform is the add and edit screen for a habit.
package habitform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/validation"
)

// SaveMsg asks to persist the form.
type SaveMsg struct {
	Request habits.SaveRequest
}

// DeleteMsg asks to delete the habit being edited.
type DeleteMsg struct {
	ID string
}

// BackMsg asks to leave the form.
type BackMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(18)
	readOnlyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dangerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	fieldName = iota
	fieldUnit
	fieldDefault
	fieldLimit
	fieldCount
)

type KeyMap struct {
	Next         key.Binding
	Prev         key.Binding
	Save         key.Binding
	Archive      key.Binding
	Delete       key.Binding
	CancelDelete key.Binding
	Preset       key.Binding
	Back         key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:         key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:         key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Save:         key.NewBinding(key.WithKeys("ctrl+s", "enter"), key.WithHelp("ctrl+s", "save")),
		Archive:      key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "archive/unarchive")),
		Delete:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
		CancelDelete: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel delete")),
		Preset:       key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "next preset")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

type Model struct {
	keys     KeyMap
	inputs   []textinput.Model
	focus    int
	id       string
	unit     string
	archived bool
	guard    habits.DeleteGuard
	preset   int
	loading  bool
	busy     bool
	err      string
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 64
	ti.Width = 32
	return ti
}

// New returns an empty create form.
func New() Model {
	m := Model{
		keys:   DefaultKeyMap(),
		preset: -1,
		inputs: []textinput.Model{
			newInput("Coffee"),
			newInput("cups"),
			newInput("optional"),
			newInput("optional"),
		},
	}
	m.inputs[fieldName].Focus()
	return m
}

// NewEdit returns a form waiting for the habit id to load.
func NewEdit(id string) Model {
	m := New()
	m.id = id
	m.loading = true
	return m
}

// Editing reports whether the form edits an existing habit.
func (m Model) Editing() bool { return m.id != "" }

// ID is the habit being edited, empty when creating.
func (m Model) ID() string { return m.id }

// SetHabit fills the form from a loaded habit.
func (m *Model) SetHabit(h models.Habit) {
	m.loading = false
	m.id = h.ID
	m.unit = h.Unit
	m.archived = !h.Active
	m.inputs[fieldName].SetValue(h.Name)
	m.inputs[fieldUnit].SetValue(h.Unit)
	m.inputs[fieldDefault].SetValue(validation.FormatNumber(h.DefaultQuantity))
	m.inputs[fieldLimit].SetValue(validation.FormatNumber(h.WeeklyLimit))
}

// SetError shows msg and ends any pending operation.
func (m *Model) SetError(msg string) {
	m.loading = false
	m.busy = false
	m.err = msg
}

// DeleteFailed shows msg after a failed delete and disarms the guard.
func (m *Model) DeleteFailed(msg string) {
	m.guard.Cancel()
	m.SetError(msg)
}

// Input returns the current field values.
func (m Model) Input() validation.HabitInput {
	return validation.HabitInput{
		Name:            m.inputs[fieldName].Value(),
		Unit:            m.inputs[fieldUnit].Value(),
		DefaultQuantity: m.inputs[fieldDefault].Value(),
		WeeklyLimit:     m.inputs[fieldLimit].Value(),
	}
}

// Archived is the local archive toggle.
func (m Model) Archived() bool { return m.archived }

// DeleteLabel is the delete control text.
func (m Model) DeleteLabel() string { return m.guard.Label() }

// Err is the inline message, if any.
func (m Model) Err() string { return m.err }

func (m *Model) move(delta int) {
	i := m.focus
	for {
		i = (i + delta + fieldCount) % fieldCount
		// Unit is fixed once the habit exists.
		if !m.Editing() || i != fieldUnit {
			break
		}
	}
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m *Model) applyPreset() {
	if len(habits.Presets) == 0 {
		return
	}
	m.preset = (m.preset + 1) % len(habits.Presets)
	in := habits.Presets[m.preset].Apply(m.Input())
	m.inputs[fieldName].SetValue(in.Name)
	m.inputs[fieldUnit].SetValue(in.Unit)
	m.inputs[fieldDefault].SetValue(in.DefaultQuantity)
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.loading {
		if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Next):
			m.move(1)
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.move(-1)
			return m, nil
		case key.Matches(msg, m.keys.Save):
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.err = ""
			req := habits.SaveRequest{ID: m.id, Input: m.Input(), Archived: m.archived}
			if m.Editing() {
				req.Input.Unit = m.unit
			}
			return m, func() tea.Msg { return SaveMsg{Request: req} }
		case key.Matches(msg, m.keys.Archive):
			if m.Editing() {
				m.archived = !m.archived
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if !m.Editing() || m.busy {
				return m, nil
			}
			if m.guard.Press() {
				m.busy = true
				id := m.id
				return m, func() tea.Msg { return DeleteMsg{ID: id} }
			}
			return m, nil
		case key.Matches(msg, m.keys.CancelDelete):
			m.guard.Cancel()
			return m, nil
		case key.Matches(msg, m.keys.Preset):
			if !m.Editing() {
				m.applyPreset()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	title := "Add Habit"
	if m.Editing() {
		title = "Edit Habit"
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	if m.loading {
		b.WriteString("Loading habit...\n")
		if m.err != "" {
			b.WriteString(errorStyle.Render(m.err) + "\n")
		}
		return b.String()
	}

	labels := []string{"Name", "Unit", "Default quantity", "Weekly limit"}
	for i, label := range labels {
		value := m.inputs[i].View()
		if i == fieldUnit && m.Editing() {
			value = readOnlyStyle.Render(m.unit + " (fixed)")
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value) + "\n")
	}

	if m.Editing() {
		status := "active"
		if m.archived {
			status = "archived"
		}
		b.WriteString(fmt.Sprintf("\n%s %s\n", labelStyle.Render("Status"), status))
	} else if m.preset >= 0 {
		b.WriteString(hintStyle.Render(fmt.Sprintf("\npreset: %s", habits.Presets[m.preset].Name)) + "\n")
	}

	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}

	hints := []string{"ctrl+s save", "esc back"}
	if m.Editing() {
		archive := "ctrl+a archive"
		if m.archived {
			archive = "ctrl+a unarchive"
		}
		hints = append(hints, archive)
		if m.guard.Armed() {
			b.WriteString("\n" + dangerStyle.Render(m.guard.Label()+": press ctrl+d again") + "\n")
			hints = append(hints, "ctrl+x cancel")
		} else {
			hints = append(hints, "ctrl+d "+strings.ToLower(m.guard.Label()))
		}
	} else {
		hints = append(hints, "ctrl+p preset")
	}
	b.WriteString("\n" + hintStyle.Render(strings.Join(hints, " • ")))
	return b.String()
}
