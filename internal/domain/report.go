package domain

// ReportMeta aggregates counts and timing statistics over a completed queue.
type ReportMeta struct {
	Passes         int     `json:"passes"`
	Failures       int     `json:"failures"`
	Pending        int     `json:"pending"`
	Unexecuted     int     `json:"unexecuted"`
	TotalRunTime   float64 `json:"total_run_time"`
	AverageRunTime float64 `json:"average_run_time"`
	FirstStartedAt string  `json:"first_started_at"`
	LastFinishedAt string  `json:"last_finished_at"`
}

// Report is the full projection of a run: every completed example, per-file
// cumulative run times, aggregate meta, and the flake map (examples that
// failed at least once but ultimately did not end up failed).
type Report struct {
	FileTotals map[string]float64 `json:"file_totals"`
	Meta       ReportMeta         `json:"meta"`
	Examples   map[string]Example `json:"examples"`
	Flakes     map[string]int     `json:"flakes,omitempty"`
}
