package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
)

const version = "0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "criticspicks",
		Short: "Browse the New York Times critics' picks",
		Long: "Critics' Picks pages through the New York Times movie critics' picks,\n" +
			"twenty at a time, in the terminal, a browser, Telegram or over MCP.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to configuration file")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newBrowseCmd(),
		newListCmd(),
		newServeCmd(),
		newBotCmd(),
		newMCPServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("Critics' Picks v%s\n", version)
		},
	}
}
