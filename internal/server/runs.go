package server

import (
	"fmt"
	"path"

	"parwrk/internal/domain"
	"parwrk/internal/store"
)

// runStores bundles every store belonging to one run. A bundle is opened per
// request so the file backend re-lists directories mutated by other
// processes; the run lock makes the bundle's mutations atomic.
type runStores struct {
	pending    *store.PendingStore
	processing *store.ProcessingStore
	completed  *store.CompletedStore
	failures   *store.FailureCounter
	metadata   *store.Store[string]
	workers    *store.Store[domain.Worker]
}

func (s *Server) openRun(runID string) (*runStores, error) {
	open := func(category string) (store.Adapter, error) {
		return s.queues.Open(path.Join(runID, category))
	}

	pending, err := open("pending")
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	processing, err := open("processing")
	if err != nil {
		return nil, fmt.Errorf("open processing store: %w", err)
	}
	completed, err := open("completed")
	if err != nil {
		return nil, fmt.Errorf("open completed store: %w", err)
	}
	failures, err := open("failure_counts")
	if err != nil {
		return nil, fmt.Errorf("open failure counts: %w", err)
	}
	metadata, err := open("metadata")
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	workers, err := open("workers")
	if err != nil {
		return nil, fmt.Errorf("open workers store: %w", err)
	}

	return &runStores{
		pending:    store.NewPendingStore(pending, s.cfg.GroupBy),
		processing: store.NewProcessingStore(processing, s.clock),
		completed:  store.NewCompletedStore(completed),
		failures:   store.NewFailureCounter(failures),
		metadata:   store.NewStore[string](metadata),
		workers:    store.NewStore[domain.Worker](workers),
	}, nil
}

// lens returns the non-sentinel sizes of the three example queues.
func (rs *runStores) lens() (pending, processing, completed int, err error) {
	if pending, err = rs.pending.Len(); err != nil {
		return
	}
	if processing, err = rs.processing.Len(); err != nil {
		return
	}
	completed, err = rs.completed.Len()
	return
}
