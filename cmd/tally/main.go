package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/cli/account"
	"github.com/julianstephens/tally/internal/cli/habits"
	"github.com/julianstephens/tally/internal/cli/system"
	"github.com/julianstephens/tally/internal/config"
	"github.com/julianstephens/tally/internal/constants"
	errs "github.com/julianstephens/tally/internal/errors"
	"github.com/julianstephens/tally/internal/logger"
)

var CLI struct {
	Version   kong.VersionFlag
	Backend   string `help:"SQLite path, PostgreSQL connection string, 'postgres' to use the keyring, or the URL of a tally server. Credentials must NOT be embedded in PostgreSQL connection strings." type:"string"`
	ConfigDir string `help:"Directory holding the database, logs and .env file." type:"path" placeholder:"DIR"`
	Debug     bool   `help:"Write debug logs to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize tally storage."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the backend over HTTP."`
	Auth    account.AuthCmd   `cmd:"" help:"Sign in, sign up and sign out."`
	Habit   habits.HabitCmd   `cmd:"" help:"Manage and log habits."`
	Stats   habits.StatsCmd   `cmd:"" help:"Show this week's totals."`
	Keyring system.KeyringCmd `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

// selfLoading commands open or initialize the store themselves.
var selfLoading = map[string]bool{
	"init":  true,
	"tui":   true,
	"serve": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Track habits and weekly limits"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.ConfigDir)
	if err != nil {
		fail(err)
	}
	if CLI.Backend != "" {
		cfg.Backend = CLI.Backend
	}
	cfg.Debug = cfg.Debug || CLI.Debug

	command := strings.Fields(ctx.Command())[0]

	logCfg := logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir, Stderr: command == "serve"}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	appCtx := &cli.Context{Config: cfg}
	if command != "keyring" {
		appCtx, err = cli.NewContext(cfg)
		if err != nil {
			fail(err)
		}
		defer appCtx.Store.Close()

		if !selfLoading[command] {
			if err := appCtx.Store.Load(); err != nil {
				fail(err)
			}
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		logger.Error("Command failed", "command", ctx.Command(), "error", err)
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errs.Format(err))
	os.Exit(1)
}
