package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"parwrk/internal/domain"
	"parwrk/internal/store"
)

// runContext carries one worker-scoped request through its critical section.
type runContext struct {
	r        *http.Request
	runID    string
	workerID string
	stores   *runStores

	// after runs best-effort side effects once the run lock is released.
	after func()
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func textResponse(status int, msg string) *response {
	return &response{status: status, contentType: "text/plain", body: []byte(msg)}
}

func jsonResponse(status int, v any) (*response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return &response{status: status, contentType: "application/json", body: body}, nil
}

// withRun wraps a handler with the per-run critical section: require the run
// header, acquire the run lock, open the run's stores, track the worker, and
// stamp the worker-status header on the way out.
func (s *Server) withRun(fn func(*runContext) (*response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := r.Header.Get(domain.HeaderRun)
		if runID == "" {
			http.Error(w, "missing "+domain.HeaderRun+" header", http.StatusBadRequest)
			return
		}

		lock, err := s.queues.RunLock(runID)
		if err != nil {
			s.fail(w, err)
			return
		}

		rc := &runContext{r: r, runID: runID, workerID: r.Header.Get(domain.HeaderWorker)}

		var (
			resp         *response
			workerStatus string
		)
		err = func() error {
			if err := lock.Lock(); err != nil {
				return err
			}
			defer lock.Unlock()

			var err error
			if rc.stores, err = s.openRun(runID); err != nil {
				return err
			}
			if err = s.touchRun(rc); err != nil {
				return err
			}
			if resp, err = fn(rc); err != nil {
				return err
			}
			workerStatus, err = s.workerStatus(rc)
			return err
		}()
		if err != nil {
			s.fail(w, err)
			return
		}

		if rc.after != nil {
			rc.after()
		}

		if rc.workerID != "" {
			w.Header().Set(domain.HeaderStatus, workerStatus)
		}
		if resp.contentType != "" {
			w.Header().Set("Content-Type", resp.contentType)
		}
		w.WriteHeader(resp.status)
		if r.Method != http.MethodHead {
			w.Write(resp.body)
		}
	}
}

// fail surfaces storage and lock errors as server errors; the design treats
// the underlying store as reliable, so these are not retried internally.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// touchRun records the run's first-seen timestamp and updates the calling
// worker's liveness record.
func (s *Server) touchRun(rc *runContext) error {
	now := s.clock.Now().Format(time.RFC3339Nano)

	if _, ok, err := rc.stores.metadata.Get("started_at"); err != nil {
		return err
	} else if !ok {
		if err := rc.stores.metadata.Set("started_at", now); err != nil {
			return err
		}
	}

	if rc.workerID == "" {
		return nil
	}
	worker, _, err := rc.stores.workers.Get(rc.workerID)
	if err != nil {
		return err
	}
	if worker.FirstSeenAt == "" {
		worker.FirstSeenAt = now
	}
	worker.LastSeenAt = now
	return rc.stores.workers.Set(rc.workerID, worker)
}

// workerStatus computes the X-Parwrk-Status header: the worker's failure
// count, "0" when it has none and the run has completed work, "1" otherwise.
func (s *Server) workerStatus(rc *runContext) (string, error) {
	if rc.workerID == "" {
		return "", nil
	}
	worker, _, err := rc.stores.workers.Get(rc.workerID)
	if err != nil {
		return "", err
	}
	if worker.Failed > 0 {
		return strconv.Itoa(worker.Failed), nil
	}
	completedAny, err := rc.stores.completed.Len()
	if err != nil {
		return "", err
	}
	if completedAny > 0 {
		return "0", nil
	}
	return "1", nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHeartbeat(rc *runContext) (*response, error) {
	return textResponse(http.StatusOK, "OK"), nil
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Shutting down.")
	if s.cfg.SingleRun {
		s.triggerShutdown()
	}
}

// handleSeed resets the run and repopulates the pending queue: examples are
// decorated with predicted run times from history, sorted, and written in
// order; the bucket threshold is recomputed as a running average of the
// previous threshold and the incoming set's mean + standard deviation.
func (s *Server) handleSeed(rc *runContext) (*response, error) {
	var req domain.SeedRequest
	if err := json.NewDecoder(rc.r.Body).Decode(&req); err != nil {
		return textResponse(http.StatusBadRequest, "malformed seed payload"), nil
	}

	ids := make([]string, len(req.Examples))
	for i, ex := range req.Examples {
		ids[i] = ex.ID
	}
	history, err := s.history.MultiGet(ids)
	if err != nil {
		return nil, err
	}
	historyEmpty, err := s.history.Empty()
	if err != nil {
		return nil, err
	}

	examples := make([]domain.Example, len(req.Examples))
	copy(examples, req.Examples)
	known := make([]float64, 0, len(examples))
	for i := range examples {
		if runTime, ok := history[examples[i].ID]; ok {
			rt := runTime
			examples[i].ExpectedRunTime = &rt
			known = append(known, runTime)
		} else {
			examples[i].ExpectedRunTime = nil
		}
	}

	// Without any history there is nothing to predict with; fall back to
	// file order so by-file batching still groups correctly.
	if s.cfg.GroupBy == store.GroupByFile || historyEmpty {
		sort.SliceStable(examples, func(i, j int) bool {
			return examples[i].FilePath < examples[j].FilePath
		})
	} else {
		sort.SliceStable(examples, func(i, j int) bool {
			return expectedOrInf(examples[i]) > expectedOrInf(examples[j])
		})
	}

	prevMax, err := rc.stores.pending.BucketMax()
	if err != nil {
		return nil, err
	}
	newMax := bucketMaximum(known)
	if prevMax > 0 {
		newMax = (prevMax + newMax) / 2
	}

	if err := rc.stores.pending.Clear(); err != nil {
		return nil, err
	}
	if err := rc.stores.processing.Clear(); err != nil {
		return nil, err
	}
	if err := rc.stores.failures.Clear(); err != nil {
		return nil, err
	}
	if err := rc.stores.completed.Clear(); err != nil {
		return nil, err
	}

	if err := rc.stores.pending.SetMaxRetries(req.MaxRetries); err != nil {
		return nil, err
	}
	if err := rc.stores.pending.SetBucketMax(newMax); err != nil {
		return nil, err
	}

	pairs := make([]store.Pair[domain.Example], len(examples))
	for i, ex := range examples {
		pairs[i] = store.Pair[domain.Example]{Key: ex.ID, Value: ex}
	}
	if err := rc.stores.pending.MultiSet(pairs); err != nil {
		return nil, err
	}

	return textResponse(http.StatusOK, "OK"), nil
}

// handleReport projects the completed queue into the run report, augmented
// with the count of unexecuted examples and the flake map.
func (s *Server) handleReport(rc *runContext) (*response, error) {
	report, err := rc.stores.completed.Dump()
	if err != nil {
		return nil, err
	}

	pendingLen, processingLen, _, err := rc.stores.lens()
	if err != nil {
		return nil, err
	}
	report.Meta.Unexecuted = pendingLen + processingLen

	counts, err := rc.stores.failures.All()
	if err != nil {
		return nil, err
	}
	flakes := make(map[string]int)
	for id, count := range counts {
		if ex, ok := report.Examples[id]; ok && ex.Status == domain.StatusFailed {
			continue
		}
		flakes[id] = count
	}
	report.Flakes = flakes

	return jsonResponse(http.StatusOK, report)
}

func expectedOrInf(ex domain.Example) float64 {
	if ex.ExpectedRunTime == nil {
		return math.Inf(1)
	}
	return *ex.ExpectedRunTime
}

// bucketMaximum is mean + population standard deviation of the known run
// times, rounded to two decimals; 0 when nothing is known.
func bucketMaximum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Round((mean+math.Sqrt(variance))*100) / 100
}
