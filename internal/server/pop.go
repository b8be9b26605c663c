package server

import (
	"encoding/json"
	"math"
	"net/http"

	"go.uber.org/zap"

	"parwrk/internal/domain"
	"parwrk/internal/store"
)

// Lease tuning. A popped batch must be completed before its lease expires or
// another worker may reclaim it.
const (
	leaseMultiplier       = 2.0
	leaseUnknownRunTime   = 10.0
	leaseDefaultBucketMax = 30.0
	leaseFloorSeconds     = 20.0
)

// handlePop hands the caller the next batch of pending examples, reclaiming
// expired leases when the pending queue has drained.
func (s *Server) handlePop(rc *runContext) (*response, error) {
	return s.popResponse(rc)
}

// handleCompleteAndPop records the caller's finished examples and then
// behaves exactly like pop. Failed examples below the retry limit go back to
// the pending queue instead of the completed one; everything else is final.
func (s *Server) handleCompleteAndPop(rc *runContext) (*response, error) {
	var results []domain.Example
	if err := json.NewDecoder(rc.r.Body).Decode(&results); err != nil {
		return textResponse(http.StatusBadRequest, "malformed completion payload"), nil
	}

	ids := make([]string, len(results))
	for i, ex := range results {
		ids[i] = ex.ID
	}
	inProcessing, err := rc.stores.processing.MultiGet(ids)
	if err != nil {
		return nil, err
	}
	maxRetries, err := rc.stores.pending.MaxRetries()
	if err != nil {
		return nil, err
	}

	var failedIDs []string
	for _, ex := range results {
		if _, ok := inProcessing[ex.ID]; ok && ex.Status == domain.StatusFailed {
			failedIDs = append(failedIDs, ex.ID)
		}
	}
	failureCounts, err := rc.stores.failures.Counts(failedIDs)
	if err != nil {
		return nil, err
	}

	var (
		terminal    []store.Pair[domain.Example]
		retries     []store.Pair[domain.Example]
		retryCounts []store.Pair[int]
		deleteIDs   []string
	)
	statusTally := map[domain.Status]int{}
	for _, ex := range results {
		// Results for examples no longer leased to anyone are stale, most
		// likely a duplicate delivery after a reclaimed lease.
		if _, ok := inProcessing[ex.ID]; !ok {
			continue
		}
		deleteIDs = append(deleteIDs, ex.ID)
		ex.CompletionThreshold = 0

		if ex.Status == domain.StatusFailed && failureCounts[ex.ID] < maxRetries {
			retries = append(retries, store.Pair[domain.Example]{Key: ex.ID, Value: ex})
			retryCounts = append(retryCounts, store.Pair[int]{Key: ex.ID, Value: failureCounts[ex.ID] + 1})
			continue
		}
		terminal = append(terminal, store.Pair[domain.Example]{Key: ex.ID, Value: ex})
		statusTally[ex.Status]++
	}

	if err := rc.stores.completed.MultiSet(terminal); err != nil {
		return nil, err
	}
	if err := rc.stores.processing.Delete(deleteIDs...); err != nil {
		return nil, err
	}
	if err := rc.stores.pending.MultiSet(retries); err != nil {
		return nil, err
	}
	if err := rc.stores.failures.MultiSet(retryCounts); err != nil {
		return nil, err
	}

	if err := s.recordWorkerCounts(rc, statusTally); err != nil {
		return nil, err
	}

	resp, err := s.popResponse(rc)
	if err != nil {
		return nil, err
	}

	// History only feeds future predictions, so it is written outside the
	// run lock.
	rc.after = func() { s.recordRunTimes(results) }
	return resp, nil
}

// popResponse implements the shared pop policy:
//
//	batch available            -> 200 with the batch
//	all queues empty           -> 204, the run was never seeded
//	completed, none in flight  -> 410, the run is over
//	in flight with stale lease -> reclaim and pop once more
//	otherwise                  -> 404, try again later
func (s *Server) popResponse(rc *runContext) (*response, error) {
	batch, err := s.shiftAndLease(rc)
	if err != nil {
		return nil, err
	}
	if len(batch) > 0 {
		return jsonResponse(http.StatusOK, batch)
	}

	pendingLen, processingLen, completedLen, err := rc.stores.lens()
	if err != nil {
		return nil, err
	}
	if pendingLen == 0 && processingLen == 0 && completedLen == 0 {
		return textResponse(http.StatusNoContent, ""), nil
	}
	if completedLen > 0 && processingLen == 0 {
		return textResponse(http.StatusGone, "That's a wrap. All examples have been completed."), nil
	}

	if processingLen > 0 {
		reclaimed, err := s.reclaimExpired(rc)
		if err != nil {
			return nil, err
		}
		if reclaimed {
			batch, err = s.shiftAndLease(rc)
			if err != nil {
				return nil, err
			}
			if len(batch) > 0 {
				return jsonResponse(http.StatusOK, batch)
			}
		}
	}

	return textResponse(http.StatusNotFound, "No examples to run, yet."), nil
}

// reclaimExpired moves every example with a lapsed lease back to the pending
// queue, preserving the processing queue's order.
func (s *Server) reclaimExpired(rc *runContext) (bool, error) {
	expired, err := rc.stores.processing.Expired()
	if err != nil || len(expired) == 0 {
		return false, err
	}

	keys, err := rc.stores.processing.Keys()
	if err != nil {
		return false, err
	}
	var (
		pairs []store.Pair[domain.Example]
		ids   []string
	)
	for _, key := range keys {
		ex, ok := expired[key]
		if !ok {
			continue
		}
		ex.CompletionThreshold = 0
		pairs = append(pairs, store.Pair[domain.Example]{Key: key, Value: ex})
		ids = append(ids, key)
	}
	if err := rc.stores.pending.MultiSet(pairs); err != nil {
		return false, err
	}
	if err := rc.stores.processing.Delete(ids...); err != nil {
		return false, err
	}

	s.log.Info("reclaimed expired leases", zap.String("run", rc.runID), zap.Int("count", len(ids)))
	return true, nil
}

// shiftAndLease moves the next batch from pending to processing, stamping
// each example with a completion deadline generous enough to cover slow runs
// without stranding work behind a dead worker.
func (s *Server) shiftAndLease(rc *runContext) ([]domain.Example, error) {
	batch, err := rc.stores.pending.ShiftBucket()
	if err != nil || len(batch) == 0 {
		return nil, err
	}

	var sum float64
	for _, ex := range batch {
		if ex.ExpectedRunTime != nil {
			sum += *ex.ExpectedRunTime
		} else {
			sum += leaseUnknownRunTime
		}
	}
	bucketMax, err := rc.stores.pending.BucketMax()
	if err != nil {
		return nil, err
	}
	if bucketMax <= 0 {
		bucketMax = leaseDefaultBucketMax
	}

	lease := math.Max(leaseMultiplier*sum, leaseMultiplier*bucketMax)
	lease = math.Max(lease, leaseFloorSeconds)
	threshold := float64(s.clock.Now().UnixNano())/1e9 + lease

	pairs := make([]store.Pair[domain.Example], len(batch))
	for i, ex := range batch {
		ex.CompletionThreshold = threshold
		pairs[i] = store.Pair[domain.Example]{Key: ex.ID, Value: ex}
	}
	if err := rc.stores.processing.MultiSet(pairs); err != nil {
		return nil, err
	}
	return batch, nil
}

// recordWorkerCounts folds a completion's status tally into the calling
// worker's record.
func (s *Server) recordWorkerCounts(rc *runContext, tally map[domain.Status]int) error {
	if rc.workerID == "" || len(tally) == 0 {
		return nil
	}
	worker, _, err := rc.stores.workers.Get(rc.workerID)
	if err != nil {
		return err
	}
	worker.Passed += tally[domain.StatusPassed]
	worker.Failed += tally[domain.StatusFailed]
	worker.Pending += tally[domain.StatusPending]
	return rc.stores.workers.Set(rc.workerID, worker)
}

// recordRunTimes merges observed run times into the history store. Failures
// here only degrade future predictions, so they are logged and swallowed.
func (s *Server) recordRunTimes(results []domain.Example) {
	var pairs []store.Pair[float64]
	for _, ex := range results {
		if ex.RunTime > 0 {
			pairs = append(pairs, store.Pair[float64]{Key: ex.ID, Value: ex.RunTime})
		}
	}
	if len(pairs) == 0 {
		return
	}
	if err := s.history.MultiSet(pairs); err != nil {
		s.log.Warn("record run times", zap.Error(err))
	}
}
