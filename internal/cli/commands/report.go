package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parwrk/internal/client"
	"parwrk/internal/config"
	"parwrk/internal/storage"
	"parwrk/internal/ui"
)

// ReportCommand handles the report command
type ReportCommand struct {
	config    *config.Config
	client    *client.Client
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
}

// NewReportCommand creates a new ReportCommand
func NewReportCommand(cfg *config.Config, c *client.Client, st storage.Storage, formatter *ui.Formatter, viewer ui.Viewer) *ReportCommand {
	return &ReportCommand{config: cfg, client: c, storage: st, formatter: formatter, viewer: viewer}
}

// Execute runs the command
func (rc *ReportCommand) Execute(cmd *cobra.Command, args []string) error {
	report, err := rc.client.Report()
	if err != nil {
		return err
	}

	if err := rc.storage.Save(rc.config.RunID, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	rc.formatter.PrintReport(report)

	if rc.config.Flags.Interactive && report.Meta.Failures > 0 {
		return rc.viewer.View(report)
	}
	return nil
}
