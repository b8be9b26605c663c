package store

import (
	"time"

	"parwrk/internal/domain"
)

// CompletedStore holds finished examples and produces the aggregate report.
type CompletedStore struct {
	*Store[domain.Example]
}

// NewCompletedStore wraps an adapter as the completed queue.
func NewCompletedStore(a Adapter) *CompletedStore {
	return &CompletedStore{Store: NewStore[domain.Example](a)}
}

// Dump computes the run report in one pass over all completed examples:
// status counts, total and average run time, earliest start, latest finish,
// and per-file cumulative run times. It is a read-only projection; calling
// it twice with unchanged input yields identical output.
func (c *CompletedStore) Dump() (*domain.Report, error) {
	examples, err := c.All()
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		FileTotals: make(map[string]float64),
		Examples:   make(map[string]domain.Example, len(examples)),
	}

	var (
		firstStarted time.Time
		lastFinished time.Time
	)

	for id, example := range examples {
		report.Examples[id] = example
		report.FileTotals[example.FilePath] += example.RunTime
		report.Meta.TotalRunTime += example.RunTime

		switch example.Status {
		case domain.StatusPassed:
			report.Meta.Passes++
		case domain.StatusFailed:
			report.Meta.Failures++
		case domain.StatusPending:
			report.Meta.Pending++
		}

		if startedAt, err := time.Parse(time.RFC3339Nano, example.StartedAt); err == nil {
			if firstStarted.IsZero() || startedAt.Before(firstStarted) {
				firstStarted = startedAt
			}
		}
		if finishedAt, err := time.Parse(time.RFC3339Nano, example.FinishedAt); err == nil {
			if lastFinished.IsZero() || finishedAt.After(lastFinished) {
				lastFinished = finishedAt
			}
		}
	}

	if n := len(examples); n > 0 {
		report.Meta.AverageRunTime = report.Meta.TotalRunTime / float64(n)
	}
	if !firstStarted.IsZero() {
		report.Meta.FirstStartedAt = firstStarted.Format(time.RFC3339Nano)
	}
	if !lastFinished.IsZero() {
		report.Meta.LastFinishedAt = lastFinished.Format(time.RFC3339Nano)
	}
	return report, nil
}
