package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
}

// NewFormatter creates a new Formatter
func NewFormatter(cfg *config.Config) *Formatter {
	return &Formatter{config: cfg}
}

// PrintReport displays a run report as a statistics table followed by the
// failed examples and the slowest files.
func (f *Formatter) PrintReport(report *domain.Report) {
	meta := report.Meta

	fmt.Print("\n")
	color.Cyan("╔═══════════════════════════════════════════════════════════════╗")
	color.Cyan("║                        Run Statistics                         ║")
	color.Cyan("╚═══════════════════════════════════════════════════════════════╝\n")

	fmt.Println("┌─────────────────────────────────┬─────────────────────────────┐")

	fmt.Printf("│ %-31s │ ", "Passed")
	color.Green("%-27d │\n", meta.Passes)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Failed")
	color.Red("%-27d │\n", meta.Failures)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Pending")
	color.Yellow("%-27d │\n", meta.Pending)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Unexecuted")
	color.White("%-27d │\n", meta.Unexecuted)
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Flaky")
	color.Yellow("%-27d │\n", len(report.Flakes))
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Total Run Time")
	color.White("%-27s │\n", fmt.Sprintf("%.2fs", meta.TotalRunTime))
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Average Run Time")
	color.White("%-27s │\n", fmt.Sprintf("%.3fs", meta.AverageRunTime))
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "First Started At")
	color.White("%-27s │\n", truncate(meta.FirstStartedAt, 27))
	fmt.Println("├─────────────────────────────────┼─────────────────────────────┤")

	fmt.Printf("│ %-31s │ ", "Last Finished At")
	color.White("%-27s │\n", truncate(meta.LastFinishedAt, 27))

	fmt.Println("└─────────────────────────────────┴─────────────────────────────┘")

	fmt.Println()
	switch {
	case meta.Failures == 0 && meta.Unexecuted == 0:
		color.Green("✓ All examples passed!")
	case meta.Failures == 0:
		color.Yellow("⚠ No failures, but %d example(s) were never executed", meta.Unexecuted)
	default:
		color.Red("✗ %d example(s) failed", meta.Failures)
		fmt.Println()
		f.printFailures(report)
	}

	if len(report.Flakes) > 0 {
		fmt.Println()
		f.printFlakes(report)
	}
	if len(report.FileTotals) > 0 {
		fmt.Println()
		f.printSlowestFiles(report, 5)
	}
}

// printFailures lists failed examples grouped by file.
func (f *Formatter) printFailures(report *domain.Report) {
	byFile := make(map[string][]domain.Example)
	for _, ex := range report.Examples {
		if ex.Status == domain.StatusFailed {
			byFile[ex.FilePath] = append(byFile[ex.FilePath], ex)
		}
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for i, file := range files {
		connector := "├──"
		if i == len(files)-1 {
			connector = "└──"
		}
		color.Cyan("%s %s", connector, file)

		failures := byFile[file]
		sort.Slice(failures, func(a, b int) bool { return failures[a].ID < failures[b].ID })
		childPrefix := "│   "
		if i == len(files)-1 {
			childPrefix = "    "
		}
		for j, ex := range failures {
			caseConnector := "├──"
			if j == len(failures)-1 {
				caseConnector = "└──"
			}
			color.Red("%s%s %s", childPrefix, caseConnector, ex.ID)
		}
	}
}

// printFlakes lists examples that failed at least once but ended up passing.
func (f *Formatter) printFlakes(report *domain.Report) {
	color.Yellow("Flaky examples (failed then passed):")

	ids := make([]string, 0, len(report.Flakes))
	for id := range report.Flakes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		color.Yellow("  %s (%d failure(s))", id, report.Flakes[id])
	}
}

func (f *Formatter) printSlowestFiles(report *domain.Report, limit int) {
	type fileTime struct {
		file  string
		total float64
	}
	files := make([]fileTime, 0, len(report.FileTotals))
	for file, total := range report.FileTotals {
		files = append(files, fileTime{file, total})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].total > files[j].total })
	if len(files) > limit {
		files = files[:limit]
	}

	color.Cyan("Slowest files:")
	for _, ft := range files {
		fmt.Printf("  %8.2fs  %s\n", ft.total, ft.file)
	}
}

// PrintExampleList prints discovered examples as a tree. failedPaths is
// optional; files in this set are marked [F] in red (from the last saved
// report).
func (f *Formatter) PrintExampleList(examples []domain.Example, failedPaths map[string]struct{}) {
	color.Green("Found %d example(s):\n", len(examples))

	for i, ex := range examples {
		failMarker := ""
		if len(failedPaths) > 0 {
			if _, ok := failedPaths[ex.FilePath]; ok {
				failMarker = " " + color.RedString("[F]")
			}
		}

		if i == len(examples)-1 {
			color.Cyan("└── %s%s", ex.ID, failMarker)
		} else {
			color.Cyan("├── %s%s", ex.ID, failMarker)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-1]) + "…"
}
