package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parwrk/internal/client"
	"parwrk/internal/config"
)

// ShutdownCommand handles the shutdown command
type ShutdownCommand struct {
	config *config.Config
	client *client.Client
}

// NewShutdownCommand creates a new ShutdownCommand
func NewShutdownCommand(cfg *config.Config, c *client.Client) *ShutdownCommand {
	return &ShutdownCommand{config: cfg, client: c}
}

// Execute runs the command
func (sc *ShutdownCommand) Execute(cmd *cobra.Command, args []string) error {
	if err := sc.client.Shutdown(); err != nil {
		return err
	}
	color.Green("Shutdown requested")
	return nil
}
