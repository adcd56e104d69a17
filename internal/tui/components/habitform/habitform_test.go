package habitform

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/models"
)

var (
	ctrlA = tea.KeyMsg{Type: tea.KeyCtrlA}
	ctrlD = tea.KeyMsg{Type: tea.KeyCtrlD}
	ctrlP = tea.KeyMsg{Type: tea.KeyCtrlP}
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	ctrlX = tea.KeyMsg{Type: tea.KeyCtrlX}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func loadedEdit() Model {
	m := NewEdit("h1")
	m.SetHabit(models.Habit{ID: "h1", Name: "Coffee", Unit: "cups", Active: true})
	return m
}

func TestCreateForm(t *testing.T) {
	m := New()
	if m.Editing() {
		t.Fatal("New() is in edit mode")
	}

	m, _ = m.Update(ctrlP)
	in := m.Input()
	if in.Name != "Weed" || in.Unit != "grams" || in.DefaultQuantity != "0.1" {
		t.Errorf("preset filled %+v", in)
	}

	m, cmd := m.Update(ctrlD)
	if cmd != nil {
		t.Error("delete available on the create form")
	}
	m, _ = m.Update(ctrlA)
	if m.Archived() {
		t.Error("archive toggle available on the create form")
	}

	_, cmd = m.Update(ctrlS)
	msg, ok := cmd().(SaveMsg)
	if !ok || msg.Request.ID != "" || msg.Request.Input.Unit != "grams" {
		t.Errorf("save produced %#v", msg)
	}
}

func TestEditFormWaitsForLoad(t *testing.T) {
	m := NewEdit("h1")
	m, cmd := m.Update(ctrlS)
	if cmd != nil {
		t.Error("save accepted before the habit loaded")
	}
	_, cmd = m.Update(esc)
	if _, ok := cmd().(BackMsg); !ok {
		t.Error("esc while loading did not go back")
	}
}

func TestEditFormUnitFixed(t *testing.T) {
	m := loadedEdit()
	m, _ = m.Update(tab)
	if m.focus != fieldDefault {
		t.Errorf("focus after tab = %d, want default quantity (unit skipped)", m.focus)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != fieldName {
		t.Errorf("focus after shift+tab = %d, want name", m.focus)
	}

	m.inputs[fieldUnit].SetValue("mugs")
	m, _ = m.Update(ctrlA)
	m, cmd := m.Update(ctrlS)
	msg := cmd().(SaveMsg)
	if msg.Request.ID != "h1" || msg.Request.Input.Unit != "cups" || !msg.Request.Archived {
		t.Errorf("save request = %+v", msg.Request)
	}

	if _, cmd = m.Update(ctrlS); cmd != nil {
		t.Error("second save accepted while the first is pending")
	}
}

func TestDeleteNeedsTwoPresses(t *testing.T) {
	m := loadedEdit()

	m, cmd := m.Update(ctrlD)
	if cmd != nil || m.DeleteLabel() != habits.LabelConfirmDelete {
		t.Fatalf("first press: label=%q cmd=%v", m.DeleteLabel(), cmd != nil)
	}
	m, cmd = m.Update(ctrlX)
	if cmd != nil || m.DeleteLabel() != habits.LabelDelete {
		t.Fatalf("cancel: label=%q cmd=%v", m.DeleteLabel(), cmd != nil)
	}

	m, _ = m.Update(ctrlD)
	m, cmd = m.Update(ctrlD)
	if cmd == nil {
		t.Fatal("second press did not request delete")
	}
	if msg, ok := cmd().(DeleteMsg); !ok || msg.ID != "h1" {
		t.Fatalf("second press produced %#v, want DeleteMsg{h1}", msg)
	}

	m.DeleteFailed("Could not delete habit. Please try again.")
	if m.DeleteLabel() != habits.LabelDelete || m.Err() == "" {
		t.Errorf("after failure label=%q err=%q", m.DeleteLabel(), m.Err())
	}
	if _, cmd = m.Update(ctrlD); cmd != nil {
		t.Error("one press after a failure deleted")
	}
}
