package main

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/httpclient"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// Lipgloss styles used across commands.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray

	styleTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true) // cyan bold
	styleRating = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginBottom(1)
)

// loadConfig loads and validates the configuration. The default path may be
// absent, in which case defaults and the environment are used; a path given
// explicitly with --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	load := config.LoadOptional
	if f := cmd.Flag("config"); f != nil && f.Changed {
		load = config.Load
	}
	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// services holds the process-wide fetch stack shared by every session.
type services struct {
	client *picks.Client
	pages  *picks.PageCache
	images *picks.ImageCache
	logger *slog.Logger
}

// initServices creates the API client and the shared caches.
func initServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.HTTP.Timeout
	hcfg.MaxAttempts = cfg.HTTP.MaxAttempts
	hcfg.RequestsPerMinute = cfg.HTTP.RequestsPerMinute
	hcfg.UserAgent = "criticspicks/" + version

	client, err := picks.New(cfg.NYT.BaseURL, cfg.NYT.APIKey, httpclient.New(hcfg, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("create picks client: %w", err)
	}
	logger.Info("picks client initialized", slog.String("url", sanitizeURL(client.Endpoint())))

	return &services{
		client: client,
		pages:  picks.NewPageCache(client, logger),
		images: picks.NewImageCache(),
		logger: logger,
	}, nil
}

// newController returns a fresh session controller over the shared caches.
func (s *services) newController() *picks.Controller {
	return picks.NewController(s.pages, s.images, picks.WithLogger(s.logger))
}

// sanitizeURL strips credentials, query params, and fragment from a URL for safe logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
