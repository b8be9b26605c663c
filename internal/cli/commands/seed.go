package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parwrk/internal/client"
	"parwrk/internal/config"
	"parwrk/internal/discovery"
	"parwrk/internal/domain"
)

// SeedCommand handles the seed command
type SeedCommand struct {
	config  *config.Config
	scanner *discovery.Scanner
	filter  *discovery.Filter
	client  *client.Client
}

// NewSeedCommand creates a new SeedCommand
func NewSeedCommand(cfg *config.Config, scanner *discovery.Scanner, filter *discovery.Filter, c *client.Client) *SeedCommand {
	return &SeedCommand{config: cfg, scanner: scanner, filter: filter, client: c}
}

// Execute runs the command
func (sc *SeedCommand) Execute(cmd *cobra.Command, args []string) error {
	examples, err := sc.scanner.Scan(sc.config.TestPath)
	if err != nil {
		return err
	}
	examples = sc.filter.ByName(examples, sc.config.Flags.NameFilter)

	if len(examples) == 0 {
		color.Yellow("No examples to seed")
		return nil
	}

	if err := sc.client.WaitForServer(sc.config.Timeout); err != nil {
		return err
	}
	if err := sc.client.Seed(domain.SeedRequest{
		MaxRetries: sc.config.Flags.MaxRetries,
		Examples:   examples,
	}); err != nil {
		return err
	}

	color.Green("Seeded %d example(s) into run %q", len(examples), sc.config.RunID)
	return nil
}
