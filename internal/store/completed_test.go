package store

import (
	"math"
	"testing"

	"parwrk/internal/domain"
)

func TestCompletedStore_Dump(t *testing.T) {
	c := NewCompletedStore(newMemoryAdapter(NewRegistry(), "completed"))

	t.Run("empty store yields an empty report", func(t *testing.T) {
		report, err := c.Dump()
		if err != nil {
			t.Fatalf("dump: %v", err)
		}
		if report.Meta.Passes != 0 || report.Meta.AverageRunTime != 0 {
			t.Errorf("expected zeroed meta, got %+v", report.Meta)
		}
	})

	seed := []Pair[domain.Example]{
		{Key: "a.rb:1", Value: domain.Example{
			ID: "a.rb:1", FilePath: "a.rb", Status: domain.StatusPassed, RunTime: 0.2,
			StartedAt: "2026-08-30T10:00:00Z", FinishedAt: "2026-08-30T10:00:01Z",
		}},
		{Key: "a.rb:2", Value: domain.Example{
			ID: "a.rb:2", FilePath: "a.rb", Status: domain.StatusFailed, RunTime: 0.3,
			StartedAt: "2026-08-30T10:00:02Z", FinishedAt: "2026-08-30T10:00:05Z",
		}},
		{Key: "b.rb:1", Value: domain.Example{
			ID: "b.rb:1", FilePath: "b.rb", Status: domain.StatusPending, RunTime: 0.1,
			StartedAt: "2026-08-30T09:59:59Z", FinishedAt: "2026-08-30T10:00:00Z",
		}},
	}
	if err := c.MultiSet(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := c.Dump()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	t.Run("status counts", func(t *testing.T) {
		if report.Meta.Passes != 1 || report.Meta.Failures != 1 || report.Meta.Pending != 1 {
			t.Errorf("expected 1/1/1 status counts, got %+v", report.Meta)
		}
	})

	t.Run("run time aggregates", func(t *testing.T) {
		if math.Abs(report.Meta.TotalRunTime-0.6) > 1e-9 {
			t.Errorf("expected total 0.6, got %v", report.Meta.TotalRunTime)
		}
		if math.Abs(report.Meta.AverageRunTime-0.2) > 1e-9 {
			t.Errorf("expected average 0.2, got %v", report.Meta.AverageRunTime)
		}
		if math.Abs(report.FileTotals["a.rb"]-0.5) > 1e-9 {
			t.Errorf("expected a.rb total 0.5, got %v", report.FileTotals["a.rb"])
		}
	})

	t.Run("wall clock bounds", func(t *testing.T) {
		if report.Meta.FirstStartedAt != "2026-08-30T09:59:59Z" {
			t.Errorf("unexpected first started at %q", report.Meta.FirstStartedAt)
		}
		if report.Meta.LastFinishedAt != "2026-08-30T10:00:05Z" {
			t.Errorf("unexpected last finished at %q", report.Meta.LastFinishedAt)
		}
	})

	t.Run("examples are included by id", func(t *testing.T) {
		if len(report.Examples) != 3 {
			t.Fatalf("expected 3 examples, got %d", len(report.Examples))
		}
		if report.Examples["a.rb:2"].Status != domain.StatusFailed {
			t.Errorf("expected a.rb:2 to be failed")
		}
	})
}
