package store

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"parwrk/internal/domain"
)

func TestProcessingStore_Expired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewProcessingStore(newMemoryAdapter(NewRegistry(), "processing"), clock)

	now := float64(clock.Now().UnixNano()) / 1e9
	seed := []Pair[domain.Example]{
		{Key: "live", Value: domain.Example{ID: "live", CompletionThreshold: now + 30}},
		{Key: "stale", Value: domain.Example{ID: "stale", CompletionThreshold: now + 5}},
		{Key: "unleased", Value: domain.Example{ID: "unleased"}},
	}
	if err := p.MultiSet(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	t.Run("nothing expired before the deadline", func(t *testing.T) {
		expired, err := p.Expired()
		if err != nil {
			t.Fatalf("expired: %v", err)
		}
		if len(expired) != 0 {
			t.Errorf("expected no expired leases, got %v", expired)
		}
	})

	t.Run("only lapsed leases expire", func(t *testing.T) {
		clock.Advance(10 * time.Second)

		expired, err := p.Expired()
		if err != nil {
			t.Fatalf("expired: %v", err)
		}
		if len(expired) != 1 {
			t.Fatalf("expected 1 expired lease, got %d", len(expired))
		}
		if _, ok := expired["stale"]; !ok {
			t.Errorf("expected stale lease to expire, got %v", expired)
		}
	})

	t.Run("entries without a lease never expire", func(t *testing.T) {
		clock.Advance(time.Hour)

		expired, err := p.Expired()
		if err != nil {
			t.Fatalf("expired: %v", err)
		}
		if _, ok := expired["unleased"]; ok {
			t.Error("expected unleased entry to stay put")
		}
		if len(expired) != 2 {
			t.Errorf("expected both leased entries expired after an hour, got %d", len(expired))
		}
	})
}
