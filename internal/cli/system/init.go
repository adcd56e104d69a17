package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/config"
)

type InitCmd struct {
	Force bool `help:"Delete the existing SQLite database before initializing."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if ctx.Config.Kind() != config.BackendSQLite {
			return errors.New("--force is only supported for the SQLite backend")
		}
		dbPath := ctx.Store.Location()
		if _, err := os.Stat(dbPath); err == nil {
			// Close first so the file is not held open.
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized tally storage at: %s\n", ctx.Store.Location())
	return nil
}
