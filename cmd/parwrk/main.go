package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parwrk/internal/cli"
	"parwrk/internal/cli/commands"
	"parwrk/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "parwrk",
		Short:   "Distributed test-suite work distributor",
		Long:    `A work-distribution server and worker for running test suites across many processes and hosts. The server leases adaptively sized example batches to workers, recovers work from crashed workers, and tracks retries and flakes.`,
		Version: version,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
