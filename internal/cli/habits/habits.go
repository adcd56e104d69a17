package habits

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/tally/internal/cli"
	habitsvc "github.com/julianstephens/tally/internal/habits"
	"github.com/julianstephens/tally/internal/utils"
	"github.com/julianstephens/tally/internal/validation"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Edit      HabitEditCmd      `cmd:"" help:"Edit a habit's name, default quantity or weekly limit."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit and its logs."`
	Log       HabitLogCmd       `cmd:"" help:"Record an occurrence of a habit."`
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return cli.FormatQuantity(*v)
}

type HabitAddCmd struct {
	Name    string `arg:"" help:"Habit name."`
	Unit    string `help:"Unit the habit is measured in (fixed after creation)." required:""`
	Default string `help:"Default quantity logged when none is given."`
	Limit   string `help:"Weekly limit."`
	Preset  string `help:"Fill unit and default quantity from a preset (Weed, Alcohol, Smoking, Coffee, Running, Calories)."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	in := validation.HabitInput{Name: c.Name, Unit: c.Unit, DefaultQuantity: c.Default, WeeklyLimit: c.Limit}
	if c.Preset != "" {
		p, ok := findPreset(c.Preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", c.Preset)
		}
		name := in.Name
		in = p.Apply(in)
		in.Name = name
		if c.Default != "" {
			in.DefaultQuantity = c.Default
		}
	}

	h, err := ctx.Habits.Save(context.Background(), habitsvc.SaveRequest{Input: in})
	if err != nil {
		return err
	}
	fmt.Printf("Added habit: %s (%s)\n", h.Name, h.Unit)
	return nil
}

func findPreset(name string) (habitsvc.Preset, bool) {
	key := validation.NormalizeName(name)
	for _, p := range habitsvc.Presets {
		if validation.NormalizeName(p.Name) == key {
			return p, true
		}
	}
	return habitsvc.Preset{}, false
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	all, err := ctx.Habits.List(context.Background())
	if err != nil {
		return err
	}

	active, archived := habitsvc.Partition(all)
	list := active
	if c.Archived {
		list = append(list, archived...)
	}
	if len(list) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, h := range list {
		status := ""
		if h.Archived() {
			status = "ARCHIVED"
		}
		rows = append(rows, []string{h.Name, h.Unit, optional(h.DefaultQuantity), optional(h.WeeklyLimit), status})
	}
	fmt.Println(renderTable([]string{"Name", "Unit", "Default", "Weekly limit", ""}, rows))
	return nil
}

type HabitEditCmd struct {
	Habit        string `arg:"" help:"Habit name or ID."`
	Name         string `help:"New name."`
	Default      string `help:"New default quantity."`
	Limit        string `help:"New weekly limit."`
	ClearDefault bool   `help:"Remove the default quantity."`
	ClearLimit   bool   `help:"Remove the weekly limit."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	in := validation.HabitInput{
		Name:            h.Name,
		Unit:            h.Unit,
		DefaultQuantity: validation.FormatNumber(h.DefaultQuantity),
		WeeklyLimit:     validation.FormatNumber(h.WeeklyLimit),
	}
	if c.Name != "" {
		in.Name = c.Name
	}
	switch {
	case c.ClearDefault:
		in.DefaultQuantity = ""
	case c.Default != "":
		in.DefaultQuantity = c.Default
	}
	switch {
	case c.ClearLimit:
		in.WeeklyLimit = ""
	case c.Limit != "":
		in.WeeklyLimit = c.Limit
	}

	updated, err := ctx.Habits.Save(bg, habitsvc.SaveRequest{ID: h.ID, Input: in, Archived: h.Archived()})
	if err != nil {
		return err
	}
	fmt.Printf("Updated habit: %s\n", updated.Name)
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Habit, false)
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Habit, true)
}

func setActive(ctx *cli.Context, ref string, active bool) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, ref)
	if err != nil {
		return err
	}
	if h.Active == active {
		fmt.Printf("Habit %q is already %s\n", h.Name, activeWord(active))
		return nil
	}
	if _, err := ctx.Habits.SetActive(bg, h.ID, active); err != nil {
		return err
	}
	fmt.Printf("Habit %q %s\n", h.Name, activeWord(active))
	return nil
}

func activeWord(active bool) string {
	if active {
		return "unarchived"
	}
	return "archived"
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

// confirm asks before destructive actions; replaced in tests.
var confirm = func(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Delete %q and all of its logs?", h.Name))
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				ok = false
			} else {
				return err
			}
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			return nil
		}
	}

	if err := ctx.Habits.Delete(bg, h.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted habit: %s\n", h.Name)
	return nil
}

type HabitLogCmd struct {
	Habit    string `arg:"" help:"Habit name or ID."`
	Quantity string `short:"q" help:"Quantity to record (default: the habit's default quantity, or 1)."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}
	q, err := validation.ParseOptionalNumber(c.Quantity)
	if err != nil {
		return fmt.Errorf("quantity must be a number")
	}

	entry, err := ctx.Habits.Log(bg, h, q)
	if err != nil {
		return err
	}
	fmt.Printf("Logged %s %s of %s\n", cli.FormatQuantity(entry.Quantity), h.Unit, h.Name)
	return nil
}

// StatsCmd prints this week's totals against each weekly limit.
type StatsCmd struct {
	Timezone string `help:"IANA timezone the week is computed in (default: system timezone)."`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	loc, err := resolveLocation(c.Timezone)
	if err != nil {
		return err
	}
	sum, err := ctx.Habits.WeeklySummary(context.Background(), loc)
	if err != nil {
		return err
	}

	fmt.Printf("Week of %s\n", sum.WeekStart.Format("Mon Jan 2"))
	if len(sum.Totals) == 0 {
		fmt.Println("No active habits.")
		return nil
	}
	rows := make([][]string, 0, len(sum.Totals))
	for _, t := range sum.Totals {
		flag := ""
		if t.Over() {
			flag = "OVER"
		}
		rows = append(rows, []string{
			t.Habit.Name,
			cli.FormatQuantity(t.Total) + " " + t.Habit.Unit,
			optional(t.Habit.WeeklyLimit),
			fmt.Sprintf("%d", t.Count),
			flag,
		})
	}
	fmt.Println(renderTable([]string{"Habit", "This week", "Limit", "Logs", ""}, rows))
	return nil
}

func resolveLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = utils.LocalTimezone()
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}
