package store

import (
	"parwrk/internal/domain"
)

const (
	bucketMaxKey  = SentinelPrefix + "run_time_bucket_maximum"
	maxRetriesKey = SentinelPrefix + "max_retries"

	// multiGetChunk bounds how many values one MultiGet pulls while walking
	// keys in storage order.
	multiGetChunk = 24
)

// GroupByFile selects batches of examples sharing one file path; GroupByTimings
// fills batches up to the run-time bucket threshold.
const (
	GroupByFile    = "file"
	GroupByTimings = "timings"
)

// PendingStore holds not-yet-claimed examples in seed order and owns the
// adaptive batching algorithm plus the per-run configuration sentinels.
type PendingStore struct {
	*Store[domain.Example]
	groupBy string
}

// NewPendingStore wraps an adapter as the pending queue. groupBy selects the
// shift-bucket policy; timing mode still falls back to file mode while no
// bucket threshold is known.
func NewPendingStore(a Adapter, groupBy string) *PendingStore {
	return &PendingStore{Store: NewStore[domain.Example](a), groupBy: groupBy}
}

// BucketMax returns the persisted run-time bucket threshold, 0 when unset.
func (p *PendingStore) BucketMax() (float64, error) {
	v, ok, err := getSentinel[float64](p.adapter, bucketMaxKey)
	if err != nil || !ok {
		return 0, err
	}
	return v, nil
}

// SetBucketMax persists the run-time bucket threshold.
func (p *PendingStore) SetBucketMax(v float64) error {
	return setSentinel(p.adapter, bucketMaxKey, v)
}

// MaxRetries returns the persisted retry budget, 0 when unset.
func (p *PendingStore) MaxRetries() (int, error) {
	v, ok, err := getSentinel[int](p.adapter, maxRetriesKey)
	if err != nil || !ok {
		return 0, err
	}
	return v, nil
}

// SetMaxRetries persists the retry budget.
func (p *PendingStore) SetMaxRetries(v int) error {
	return setSentinel(p.adapter, maxRetriesKey, v)
}

// ShiftBucket removes and returns the next ordered batch of examples. The
// read and the delete happen together; callers hold the run lock, which
// makes the operation atomic across concurrent poppers.
func (p *PendingStore) ShiftBucket() ([]domain.Example, error) {
	max, err := p.BucketMax()
	if err != nil {
		return nil, err
	}
	if p.groupBy == GroupByFile || max <= 0 {
		return p.bucketByFile()
	}
	return p.bucketByTimings(max)
}

// bucketByFile consumes keys in storage order as long as the file path
// matches the first entry's. Assumes examples were seeded pre-sorted by file.
func (p *PendingStore) bucketByFile() ([]domain.Example, error) {
	var (
		bucket   []domain.Example
		consumed []string
		filePath string
	)

	err := p.walk(func(key string, example domain.Example) bool {
		if len(bucket) == 0 {
			filePath = example.FilePath
		} else if example.FilePath != filePath {
			return false
		}
		bucket = append(bucket, example)
		consumed = append(consumed, key)
		return true
	})
	if err != nil {
		return nil, err
	}

	if err := p.Delete(consumed...); err != nil {
		return nil, err
	}
	return bucket, nil
}

// bucketByTimings consumes keys in storage order, accumulating expected run
// times until the total exceeds the threshold; the crossing example is still
// included, and a batch always holds at least one example so a single slow
// test cannot starve the queue.
func (p *PendingStore) bucketByTimings(max float64) ([]domain.Example, error) {
	var (
		bucket   []domain.Example
		consumed []string
		total    float64
	)

	err := p.walk(func(key string, example domain.Example) bool {
		expected := max
		if example.ExpectedRunTime != nil {
			expected = *example.ExpectedRunTime
		}
		total += expected
		bucket = append(bucket, example)
		consumed = append(consumed, key)
		return total <= max
	})
	if err != nil {
		return nil, err
	}

	if err := p.Delete(consumed...); err != nil {
		return nil, err
	}
	return bucket, nil
}

// walk visits examples in storage order, fetching values in chunks, until fn
// returns false.
func (p *PendingStore) walk(fn func(key string, example domain.Example) bool) error {
	keys, err := p.Keys()
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += multiGetChunk {
		end := start + multiGetChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		examples, err := p.MultiGet(chunk)
		if err != nil {
			return err
		}
		for _, key := range chunk {
			example, ok := examples[key]
			if !ok {
				continue
			}
			if !fn(key, example) {
				return nil
			}
		}
	}
	return nil
}
