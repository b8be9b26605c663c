package storage

import (
	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// Storage persists and loads run reports (e.g. for the failures viewer).
type Storage interface {
	Save(runID string, report *domain.Report) error
	Load(runID string) (*domain.Report, error)
}

// JSONStorage stores reports as JSON files under the configured output dir,
// one subdirectory per run.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
