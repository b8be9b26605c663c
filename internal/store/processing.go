package store

import (
	"github.com/jonboulle/clockwork"

	"parwrk/internal/domain"
)

// ProcessingStore holds claimed-but-unfinished examples, each stamped with a
// lease deadline.
type ProcessingStore struct {
	*Store[domain.Example]
	clock clockwork.Clock
}

// NewProcessingStore wraps an adapter as the processing queue.
func NewProcessingStore(a Adapter, clock clockwork.Clock) *ProcessingStore {
	return &ProcessingStore{Store: NewStore[domain.Example](a), clock: clock}
}

// Expired returns every entry whose lease deadline is strictly in the past.
// These are leases abandoned by crashed or hung workers, eligible to be
// returned to the pending queue.
func (p *ProcessingStore) Expired() (map[string]domain.Example, error) {
	keys, err := p.Keys()
	if err != nil {
		return nil, err
	}

	now := float64(p.clock.Now().UnixNano()) / 1e9
	expired := make(map[string]domain.Example)

	for start := 0; start < len(keys); start += multiGetChunk {
		end := start + multiGetChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		examples, err := p.MultiGet(chunk)
		if err != nil {
			return nil, err
		}
		for _, key := range chunk {
			example, ok := examples[key]
			if !ok {
				continue
			}
			if example.CompletionThreshold > 0 && example.CompletionThreshold < now {
				expired[key] = example
			}
		}
	}
	return expired, nil
}
