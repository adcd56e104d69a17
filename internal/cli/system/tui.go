package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/tui"
)

type TuiCmd struct {
	Timezone string `help:"IANA timezone synced to your profile and used for weekly stats (default: system timezone)."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	m := tui.NewModel(tui.Deps{
		Sessions: ctx.Sessions,
		Habits:   ctx.Habits,
		Timezone: c.Timezone,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
