package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamtrack/core/cmd/teamtrack/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "teamtrack",
		Short: "TeamTrack dashboard service",
		Long:  `TeamTrack is a small team task-tracking service: personal daily tasks, shared team views, weekly completion summaries and peer-to-peer requests, persisted in a hosted remote store.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewPruneCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
