package habits

import "github.com/julianstephens/tally/internal/models"

// Partition splits habits into active and archived, keeping their order.
func Partition(habits []models.Habit) (active, archived []models.Habit) {
	for _, h := range habits {
		if h.Active {
			active = append(active, h)
		} else {
			archived = append(archived, h)
		}
	}
	return active, archived
}

// ItemKind distinguishes list rows.
type ItemKind int

const (
	ItemHabit ItemKind = iota
	ItemAdd
)

const (
	TagEdit     = "Edit"
	TagArchived = "Archived"
	LabelAdd    = "Add Habit"
)

// Item is one row of the habit list.
type Item struct {
	Kind  ItemKind
	Habit models.Habit
	// Tag is empty outside manage mode.
	Tag string
	// Navigable rows open a screen when chosen.
	Navigable bool
}

// Title is the row text.
func (i Item) Title() string {
	if i.Kind == ItemAdd {
		return LabelAdd
	}
	return i.Habit.Name
}

// ListItems builds the rows of the habit list. Outside manage mode only
// active habits are shown and only the add row navigates. In manage mode
// archived habits follow the active ones and every habit opens its form.
func ListItems(habits []models.Habit, manage bool) []Item {
	active, archived := Partition(habits)
	items := make([]Item, 0, len(habits)+1)
	for _, h := range active {
		it := Item{Kind: ItemHabit, Habit: h}
		if manage {
			it.Tag = TagEdit
			it.Navigable = true
		}
		items = append(items, it)
	}
	if manage {
		for _, h := range archived {
			items = append(items, Item{Kind: ItemHabit, Habit: h, Tag: TagArchived, Navigable: true})
		}
	}
	return append(items, Item{Kind: ItemAdd, Navigable: true})
}

// ManageLabel is the text of the manage-mode toggle.
func ManageLabel(manage bool) string {
	if manage {
		return "Done"
	}
	return "Edit"
}
