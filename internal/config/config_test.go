package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.StoreURI != DefaultStoreURI {
		t.Errorf("expected store uri %q, got %q", DefaultStoreURI, cfg.StoreURI)
	}
	if cfg.GroupBy != DefaultGroupBy {
		t.Errorf("expected group by %q, got %q", DefaultGroupBy, cfg.GroupBy)
	}
	if cfg.RunID != "main" {
		t.Errorf("expected default run id main, got %q", cfg.RunID)
	}
	if cfg.WorkerID == "" {
		t.Error("expected a generated worker id")
	}
	if cfg.Timeout != time.Duration(DefaultTimeoutSeconds)*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("PARWRK_PORT", "9999")
	t.Setenv("PARWRK_STORE_URI", "file:///tmp/queues")
	t.Setenv("PARWRK_RUN", "ci-42")
	t.Setenv("PARWRK_GROUP_BY", "file")

	cfg := New()

	if cfg.Port != 9999 {
		t.Errorf("expected env port, got %d", cfg.Port)
	}
	if cfg.StoreURI != "file:///tmp/queues" {
		t.Errorf("expected env store uri, got %q", cfg.StoreURI)
	}
	if cfg.RunID != "ci-42" {
		t.Errorf("expected env run id, got %q", cfg.RunID)
	}
	if cfg.GroupBy != "file" {
		t.Errorf("expected env group by, got %q", cfg.GroupBy)
	}
}

func TestNew_InvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("PARWRK_PORT", "not-a-number")

	cfg := New()
	if cfg.Port != DefaultPort {
		t.Errorf("expected default port on bad env, got %d", cfg.Port)
	}
}

func TestApplyFlags(t *testing.T) {
	t.Setenv("PARWRK_PORT", "9999")

	cfg := New()
	cfg.ApplyFlags(Flags{
		Port:       7777,
		RunID:      "flag-run",
		Timeout:    30,
		MaxRetries: 2,
	})

	t.Run("flags beat environment", func(t *testing.T) {
		if cfg.Port != 7777 {
			t.Errorf("expected flag port, got %d", cfg.Port)
		}
		if cfg.RunID != "flag-run" {
			t.Errorf("expected flag run id, got %q", cfg.RunID)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected flag timeout, got %v", cfg.Timeout)
		}
	})

	t.Run("unset flags keep existing values", func(t *testing.T) {
		if cfg.Bind != DefaultBind {
			t.Errorf("expected default bind, got %q", cfg.Bind)
		}
		if cfg.GroupBy != DefaultGroupBy {
			t.Errorf("expected default group by, got %q", cfg.GroupBy)
		}
	})

	t.Run("raw flags stay accessible", func(t *testing.T) {
		if cfg.Flags.MaxRetries != 2 {
			t.Errorf("expected max retries flag 2, got %d", cfg.Flags.MaxRetries)
		}
	})
}

func TestHistoryStoreURI(t *testing.T) {
	cfg := New()

	t.Run("defaults to a file store under the temp dir", func(t *testing.T) {
		uri := cfg.HistoryStoreURI()
		if !strings.HasPrefix(uri, "file://") {
			t.Errorf("expected file scheme, got %q", uri)
		}
	})

	t.Run("explicit uri wins", func(t *testing.T) {
		cfg.HistoryURI = "memory:///"
		if cfg.HistoryStoreURI() != "memory:///" {
			t.Errorf("expected explicit uri, got %q", cfg.HistoryStoreURI())
		}
	})
}

func TestReportPath(t *testing.T) {
	cfg := New()
	cfg.OutputDir = "out"

	want := filepath.Join("out", "ci-1", "report.json")
	if got := cfg.ReportPath("ci-1"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
