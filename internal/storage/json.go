package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"parwrk/internal/domain"
)

// Save writes a run's report to its JSON output file. The write goes through
// a temp file so a crash never leaves a truncated report behind.
func (s *JSONStorage) Save(runID string, report *domain.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := s.cfg.ReportPath(runID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the saved report for a run.
func (s *JSONStorage) Load(runID string) (*domain.Report, error) {
	data, err := os.ReadFile(s.cfg.ReportPath(runID))
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}
