package ui

import "parwrk/internal/domain"

// Viewer displays run failures in an interactive TUI
type Viewer interface {
	View(report *domain.Report) error
}
