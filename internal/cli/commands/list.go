package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parwrk/internal/config"
	"parwrk/internal/discovery"
	"parwrk/internal/domain"
	"parwrk/internal/storage"
	"parwrk/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(cfg *config.Config, scanner *discovery.Scanner, filter *discovery.Filter, formatter *ui.Formatter, st storage.Storage) *ListCommand {
	return &ListCommand{config: cfg, scanner: scanner, filter: filter, formatter: formatter, storage: st}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	examples, err := lc.scanner.Scan(lc.config.TestPath)
	if err != nil {
		return err
	}
	examples = lc.filter.ByName(examples, lc.config.Flags.NameFilter)

	if len(examples) == 0 {
		color.Yellow("No examples found")
		return nil
	}

	// Mark files that failed in the last saved report, when one exists.
	failedPaths := make(map[string]struct{})
	if report, err := lc.storage.Load(lc.config.RunID); err == nil {
		for _, ex := range report.Examples {
			if ex.Status == domain.StatusFailed {
				failedPaths[ex.FilePath] = struct{}{}
			}
		}
	}

	lc.formatter.PrintExampleList(examples, failedPaths)
	return nil
}
