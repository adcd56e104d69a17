// Package validation checks habit form input before it reaches the backend.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
)

// Field identifies the form input a problem belongs to.
type Field string

const (
	FieldName            Field = "name"
	FieldUnit            Field = "unit"
	FieldDefaultQuantity Field = "default_quantity"
	FieldWeeklyLimit     Field = "weekly_limit"
)

// HabitInput is the raw text of the habit form.
type HabitInput struct {
	Name            string
	Unit            string
	DefaultQuantity string
	WeeklyLimit     string
}

// Habit is validated, normalized form input.
type Habit struct {
	Name            string
	Unit            string
	DefaultQuantity *float64
	WeeklyLimit     *float64
}

// Problem is a validation failure tied to a field.
type Problem struct {
	Field   Field
	Message string
}

func (p *Problem) Error() string {
	return p.Message
}

// ValidateHabit trims and parses in. Checks run in order and the first
// failure is returned.
func ValidateHabit(in HabitInput) (Habit, error) {
	name := strings.TrimSpace(in.Name)
	unit := strings.TrimSpace(in.Unit)
	if name == "" {
		return Habit{}, &Problem{Field: FieldName, Message: constants.MsgNameAndUnitRequired}
	}
	if unit == "" {
		return Habit{}, &Problem{Field: FieldUnit, Message: constants.MsgNameAndUnitRequired}
	}

	def, err := ParseOptionalNumber(in.DefaultQuantity)
	if err != nil {
		return Habit{}, &Problem{Field: FieldDefaultQuantity, Message: constants.MsgDefaultQuantityNumeric}
	}
	limit, err := ParseOptionalNumber(in.WeeklyLimit)
	if err != nil {
		return Habit{}, &Problem{Field: FieldWeeklyLimit, Message: constants.MsgWeeklyLimitNumeric}
	}

	return Habit{Name: name, Unit: unit, DefaultQuantity: def, WeeklyLimit: limit}, nil
}

// ParseOptionalNumber returns nil for blank input and an error for anything
// that is not a finite decimal number. Trailing text and hex floats are
// rejected.
func ParseOptionalNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if digits := strings.TrimLeft(s, "+-"); len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return nil, fmt.Errorf("parse %q: hexadecimal not allowed", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("parse %q: not a finite number", s)
	}
	return &v, nil
}

// NormalizeName is the key habit names are compared on.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HasDuplicateName reports whether any habit other than editingID already
// uses name. Pass an empty editingID when creating.
func HasDuplicateName(existing []models.Habit, name, editingID string) bool {
	key := NormalizeName(name)
	for _, h := range existing {
		if h.ID == editingID && editingID != "" {
			continue
		}
		if NormalizeName(h.Name) == key {
			return true
		}
	}
	return false
}

// FormatNumber renders an optional number for a form field.
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
