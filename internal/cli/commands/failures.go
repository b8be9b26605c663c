package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parwrk/internal/config"
	"parwrk/internal/storage"
	"parwrk/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	config  *config.Config
	storage storage.Storage
	viewer  ui.Viewer
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(cfg *config.Config, st storage.Storage, viewer ui.Viewer) *FailuresCommand {
	return &FailuresCommand{config: cfg, storage: st, viewer: viewer}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	report, err := fc.storage.Load(fc.config.RunID)
	if err != nil {
		return fmt.Errorf("no saved report for run %q, fetch one with the report command first: %w", fc.config.RunID, err)
	}
	return fc.viewer.View(report)
}
