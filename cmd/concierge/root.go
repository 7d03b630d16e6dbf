package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Turn-based conversational assistant service",
	Long: `Concierge routes user queries through a supervising decision step to
zero or more tool invocations, persists conversation state across turns,
and returns a structured reply over HTTP.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
}
