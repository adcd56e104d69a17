package habits

import (
	"strconv"

	"github.com/julianstephens/tally/internal/validation"
)

// Preset is a quick-start habit for the create form.
type Preset struct {
	Name            string
	Unit            string
	DefaultQuantity float64
}

// Presets in display order.
var Presets = []Preset{
	{Name: "Weed", Unit: "grams", DefaultQuantity: 0.1},
	{Name: "Alcohol", Unit: "drinks", DefaultQuantity: 1},
	{Name: "Smoking", Unit: "cigarettes", DefaultQuantity: 1},
	{Name: "Coffee", Unit: "cups", DefaultQuantity: 1},
	{Name: "Running", Unit: "km", DefaultQuantity: 1},
	{Name: "Calories", Unit: "kcal", DefaultQuantity: 100},
}

// Apply fills the name, unit and default quantity of in. The weekly limit
// is left as typed.
func (p Preset) Apply(in validation.HabitInput) validation.HabitInput {
	in.Name = p.Name
	in.Unit = p.Unit
	in.DefaultQuantity = strconv.FormatFloat(p.DefaultQuantity, 'f', -1, 64)
	return in
}
