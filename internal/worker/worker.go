package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"parwrk/internal/client"
	"parwrk/internal/config"
	"parwrk/internal/domain"
	"parwrk/internal/execution"
	"parwrk/internal/ui"
)

const (
	pollInterval = 500 * time.Millisecond

	// A worker busy executing a long batch still needs to look alive, so a
	// background heartbeat pings whenever no request has gone out recently.
	heartbeatAfter = 10 * time.Second
	heartbeatCheck = time.Second
)

// Worker pulls batches from the server, executes them, and reports results
// until the run completes.
type Worker struct {
	config   *config.Config
	log      *zap.Logger
	client   *client.Client
	executor execution.Executor
	progress *ui.ProgressBar

	lastRequest atomic.Int64

	passed, failed, pending int
}

// New creates a new Worker
func New(cfg *config.Config, log *zap.Logger, c *client.Client, executor execution.Executor) *Worker {
	return &Worker{config: cfg, log: log, client: c, executor: executor}
}

// SetProgress sets the progress bar for the worker
func (w *Worker) SetProgress(progress *ui.ProgressBar) {
	w.progress = progress
}

// Run drives the pop/execute/complete loop. It returns this worker's failure
// count as reported by the server, so the caller can derive an exit code.
func (w *Worker) Run(ctx context.Context) (int, error) {
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(heartbeatCtx)

	var results []domain.Example
	seeded := false
	waitBudget := w.config.Timeout

	for {
		if err := ctx.Err(); err != nil {
			return w.failureCount(), err
		}

		w.touch()
		batch, err := w.next(results)
		results = nil

		switch {
		case err == nil:
			seeded = true
			waitBudget = w.config.Timeout
			w.log.Debug("popped batch", zap.Int("size", len(batch)))
			results = w.executor.Execute(ctx, batch)
			w.tally(results)

		case errors.Is(err, client.ErrRunCompleted):
			if w.progress != nil {
				w.progress.Finish()
			}
			return w.failureCount(), nil

		case errors.Is(err, client.ErrNotSeeded), errors.Is(err, client.ErrNoExamples):
			if !seeded && errors.Is(err, client.ErrNotSeeded) {
				waitBudget -= pollInterval
				if waitBudget <= 0 {
					return w.failureCount(), fmt.Errorf("run %q was never seeded", w.config.RunID)
				}
			}
			select {
			case <-ctx.Done():
				return w.failureCount(), ctx.Err()
			case <-time.After(pollInterval):
			}

		default:
			return w.failureCount(), err
		}
	}
}

// next pops the next batch, folding pending results into the same round trip
// when there are any.
func (w *Worker) next(results []domain.Example) ([]domain.Example, error) {
	if results == nil {
		return w.client.Pop()
	}
	return w.client.CompleteAndPop(results)
}

func (w *Worker) tally(results []domain.Example) {
	for _, ex := range results {
		switch ex.Status {
		case domain.StatusPassed:
			w.passed++
		case domain.StatusFailed:
			w.failed++
		case domain.StatusPending:
			w.pending++
		}
	}
	if w.progress != nil {
		w.progress.Update(w.passed, w.failed, w.pending)
	}
}

// failureCount prefers the server's tally, which includes retries resolved by
// other workers; the local count covers a server that went away.
func (w *Worker) failureCount() int {
	if n, err := strconv.Atoi(w.client.LastStatus()); err == nil {
		return n
	}
	return w.failed
}

func (w *Worker) touch() {
	w.lastRequest.Store(time.Now().UnixNano())
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, w.lastRequest.Load()))
			if idle < heartbeatAfter {
				continue
			}
			w.touch()
			if err := w.client.Heartbeat(); err != nil {
				w.log.Debug("heartbeat failed", zap.Error(err))
			}
		}
	}
}
