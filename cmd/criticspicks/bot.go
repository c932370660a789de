package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/frontend/telegram"
	"github.com/vadimtrunov/CriticsPicks/internal/session"
)

// newBotCmd returns the "bot" subcommand for running the Telegram bot.
func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		Long:  "Serve critics' picks in Telegram. Every user pages through their own session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd)
		},
	}
}

// runBot initializes services and runs the Telegram bot until interrupted.
func runBot(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Telegram == nil {
		return errors.New(
			"telegram configuration is required: set telegram.bot_token in config or CRITICSPICKS_TELEGRAM_BOT_TOKEN env var",
		)
	}

	logger := config.SetupLogger(cfg.App.LogLevel)
	svc, err := initServices(cfg, logger)
	if err != nil {
		return err
	}

	bot, err := telegram.New(
		cfg.Telegram.BotToken,
		cfg.Telegram.AllowedUserIDs,
		session.NewManager[int64](svc.newController),
		logger,
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("telegram bot starting")
	return bot.Start(ctx)
}
