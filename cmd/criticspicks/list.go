package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// newListCmd returns the "list" subcommand that prints one page and exits.
func newListCmd() *cobra.Command {
	var (
		offset int
		images bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of critics' picks",
		Example: "  criticspicks list\n" +
			"  criticspicks list --offset 40\n" +
			"  criticspicks list --images",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := picks.ValidateOffset(offset); err != nil {
				return err
			}
			return runList(cmd, offset, images)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset (a non-negative multiple of 20)")
	cmd.Flags().BoolVar(&images, "images", false, "list image URLs instead of picks")
	return cmd
}

// runList fetches the page at offset and prints it.
func runList(cmd *cobra.Command, offset int, images bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := config.SetupLogger(cfg.App.LogLevel)
	svc, err := initServices(cfg, logger)
	if err != nil {
		return err
	}

	page, err := svc.pages.FetchPage(cmd.Context(), offset)
	if err != nil {
		return fmt.Errorf("fetch picks at offset %d: %w", offset, err)
	}

	printPage(cmd.OutOrStdout(), svc.newController(), page, images)
	return nil
}

// printPage writes a page with a header and the attribution line.
func printPage(w io.Writer, ctrl *picks.Controller, page *core.Page, images bool) {
	header := fmt.Sprintf("Critics’ Picks · page %d", page.Offset/picks.BatchSize+1)
	if page.HasMore {
		header += fmt.Sprintf(" · next: --offset %d", page.Offset+picks.BatchSize)
	}
	fmt.Fprintln(w, styleHeader.Render(header))

	if images {
		fmt.Fprint(w, renderImages(ctrl, page))
	} else {
		fmt.Fprint(w, renderPicks(ctrl, page))
	}
	fmt.Fprintln(w, attribution(page))
}
