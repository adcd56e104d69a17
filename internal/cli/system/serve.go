package system

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/config"
	"github.com/julianstephens/tally/internal/instance"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/server"
)

type ServeCmd struct {
	Addr    string   `help:"Address to listen on (default: TALLY_ADDR or :8080)."`
	Origins []string `help:"Allowed CORS origins." default:"*"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if ctx.Config.Kind() == config.BackendRemote {
		return fmt.Errorf("serve needs a database backend, not %s", ctx.Store.Location())
	}
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.Addr
	}

	release, err := instance.Acquire(instance.LockPath(ctx.Config.ConfigDir), addr)
	if err != nil {
		return err
	}
	defer release()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx.Store, server.Options{AllowedOrigins: c.Origins})
	logger.Info("Serving tally", "addr", addr, "backend", ctx.Store.Location())
	fmt.Printf("Listening on %s (backend: %s)\n", addr, ctx.Store.Location())
	return srv.ListenAndServe(sigCtx, addr)
}
