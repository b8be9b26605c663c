package ui

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// ErrorViewer displays a run's failures in an interactive TUI: the failed
// examples on the left, the selected example's captured output on the right.
type ErrorViewer struct {
	config *config.Config
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(cfg *config.Config) *ErrorViewer {
	return &ErrorViewer{config: cfg}
}

// View displays the report's failures. Returns immediately when there are
// none.
func (ev *ErrorViewer) View(report *domain.Report) error {
	var failures []domain.Example
	for _, ex := range report.Examples {
		if ex.Status == domain.StatusFailed {
			failures = append(failures, ex)
		}
	}
	if len(failures) == 0 {
		color.Green("✓ No failures found!")
		return nil
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	for i, ex := range failures {
		list.AddItem(fmt.Sprintf("[yellow]%d.[white] %s", i+1, ex.ID), "", 0, nil)
	}
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)
	list.SetBorder(true).SetTitle(fmt.Sprintf(" Failed examples (%d) ", len(failures)))

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true).
		SetScrollable(true)
	detailsView.SetBorder(true).SetTitle(" Output ")

	showDetails := func(index int) {
		if index < 0 || index >= len(failures) {
			return
		}
		ex := failures[index]
		header := fmt.Sprintf("[yellow]%s[white]\n[gray]file: %s  run time: %.2fs[white]\n\n", ex.ID, ex.FilePath, ex.RunTime)
		output := ex.Output
		if output == "" {
			output = "[gray](no output captured)[white]"
		}
		detailsView.SetText(header + tview.Escape(output)).ScrollToBeginning()
	}
	list.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		showDetails(index)
	})
	showDetails(0)

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[gray]↑/↓ select  tab switch pane  q quit[white]")

	columns := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(detailsView, 0, 2, false)
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(columns, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q':
			app.Stop()
			return nil
		case event.Key() == tcell.KeyTab:
			if list.HasFocus() {
				app.SetFocus(detailsView)
			} else {
				app.SetFocus(list)
			}
			return nil
		}
		return event
	})

	return app.SetRoot(layout, true).Run()
}
