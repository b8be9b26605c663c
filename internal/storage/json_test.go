package storage

import (
	"os"
	"path/filepath"
	"testing"

	"parwrk/internal/config"
	"parwrk/internal/domain"
)

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	cfg := &config.Config{OutputDir: t.TempDir()}
	st := NewJSONStorage(cfg)

	report := &domain.Report{
		FileTotals: map[string]float64{"a.rb": 0.5},
		Meta:       domain.ReportMeta{Passes: 2, Failures: 1},
		Examples: map[string]domain.Example{
			"a.rb:1": {ID: "a.rb:1", FilePath: "a.rb", Status: domain.StatusFailed},
		},
		Flakes: map[string]int{"a.rb:2": 1},
	}

	if err := st.Save("ci-1", report); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := st.Load("ci-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Meta.Passes != 2 || loaded.Meta.Failures != 1 {
		t.Errorf("unexpected meta %+v", loaded.Meta)
	}
	if loaded.Examples["a.rb:1"].Status != domain.StatusFailed {
		t.Errorf("unexpected examples %+v", loaded.Examples)
	}
	if loaded.Flakes["a.rb:2"] != 1 {
		t.Errorf("unexpected flakes %+v", loaded.Flakes)
	}

	t.Run("no stray temp files remain", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(cfg.OutputDir, "ci-1"))
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "report.json" {
			t.Errorf("expected only report.json, got %v", entries)
		}
	})
}

func TestJSONStorage_LoadMissing(t *testing.T) {
	st := NewJSONStorage(&config.Config{OutputDir: t.TempDir()})

	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing report")
	}
}
