package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"parwrk/internal/client"
	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// stubExecutor marks every example passed or failed without running anything.
type stubExecutor struct {
	fail map[string]bool
}

func (s *stubExecutor) Execute(ctx context.Context, examples []domain.Example) []domain.Example {
	results := make([]domain.Example, len(examples))
	for i, ex := range examples {
		if s.fail[ex.ID] {
			ex.Status = domain.StatusFailed
		} else {
			ex.Status = domain.StatusPassed
		}
		ex.RunTime = 0.01
		results[i] = ex
	}
	return results
}

func newWorkerAgainst(t *testing.T, handler http.Handler, executor *stubExecutor) *Worker {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		ServerURI: ts.URL,
		RunID:     "main",
		WorkerID:  "w1",
		Timeout:   2 * time.Second,
	}
	return New(cfg, zap.NewNop(), client.New(cfg), executor)
}

func TestWorker_RunUntilCompleted(t *testing.T) {
	var completions atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pop":
			w.Header().Set(domain.HeaderStatus, "1")
			json.NewEncoder(w).Encode([]domain.Example{{ID: "a.rb:1", FilePath: "a.rb"}})
		case "/complete_and_pop":
			var results []domain.Example
			json.NewDecoder(r.Body).Decode(&results)
			if len(results) != 1 || results[0].Status != domain.StatusPassed {
				t.Errorf("unexpected results %+v", results)
			}
			completions.Add(1)
			w.Header().Set(domain.HeaderStatus, "0")
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	w := newWorkerAgainst(t, handler, &stubExecutor{})

	failures, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if completions.Load() != 1 {
		t.Errorf("expected one completion round trip, got %d", completions.Load())
	}
}

func TestWorker_ReportsServerFailureCount(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pop":
			json.NewEncoder(w).Encode([]domain.Example{{ID: "bad.rb:1", FilePath: "bad.rb"}})
		case "/complete_and_pop":
			w.Header().Set(domain.HeaderStatus, "1")
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	w := newWorkerAgainst(t, handler, &stubExecutor{fail: map[string]bool{"bad.rb:1": true}})

	failures, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if failures != 1 {
		t.Errorf("expected the server's failure count, got %d", failures)
	}
}

func TestWorker_NeverSeeded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	w := newWorkerAgainst(t, handler, &stubExecutor{})
	w.config.Timeout = 50 * time.Millisecond

	if _, err := w.Run(context.Background()); err == nil {
		t.Error("expected an error when the run is never seeded")
	}
}

func TestWorker_WaitsOutEmptyPolls(t *testing.T) {
	var polls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pop":
			if polls.Add(1) < 3 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	w := newWorkerAgainst(t, handler, &stubExecutor{})

	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if polls.Load() < 3 {
		t.Errorf("expected repeated polling, got %d", polls.Load())
	}
}
