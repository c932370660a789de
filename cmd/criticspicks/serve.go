package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/session"
	"github.com/vadimtrunov/CriticsPicks/internal/web"
)

// newServeCmd returns the "serve" subcommand for the HTTP dashboard.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long:  "Serve the critics' picks dashboard over HTTP. Each browser gets its own pagination session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides web.port)")
	return cmd
}

// runServe wires the shared caches into a session manager and serves the
// dashboard until interrupted.
func runServe(cmd *cobra.Command, port int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Web.Port
	}

	logger := config.SetupLogger(cfg.App.LogLevel)
	svc, err := initServices(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions := session.NewManager[string](svc.newController)
	handler := web.NewHandler(sessions, logger)
	go handler.PruneEvery(ctx, cfg.Web.SessionIdle/2, cfg.Web.SessionIdle)

	srv := web.NewServer(port, handler, logger)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
