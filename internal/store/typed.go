package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pair is one ordered key/value pair for typed multi-key writes.
type Pair[T any] struct {
	Key   string
	Value T
}

// Store wraps an adapter with JSON (de)serialization for one record type and
// hides sentinel keys from iteration. The specialized queue types compose a
// Store rather than inheriting from it.
type Store[T any] struct {
	adapter Adapter
}

// NewStore wraps an adapter with a typed JSON codec.
func NewStore[T any](a Adapter) *Store[T] {
	return &Store[T]{adapter: a}
}

// Get returns the value for key, reporting whether it exists.
func (s *Store[T]) Get(key string) (T, bool, error) {
	var v T
	raw, ok, err := s.adapter.Get(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, true, nil
}

// Set writes one value.
func (s *Store[T]) Set(key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.adapter.Set(key, raw)
}

// MultiGet returns the values for the requested keys, omitting missing ones.
// Callers that care about order iterate their own key slice.
func (s *Store[T]) MultiGet(keys []string) (map[string]T, error) {
	raw, err := s.adapter.MultiGet(keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for k, b := range raw {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// MultiSet writes the pairs in order; new keys are appended to the storage
// order in the order given.
func (s *Store[T]) MultiSet(pairs []Pair[T]) error {
	if len(pairs) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		raw, err := json.Marshal(p.Value)
		if err != nil {
			return fmt.Errorf("encode %q: %w", p.Key, err)
		}
		entries = append(entries, Entry{Key: p.Key, Value: raw})
	}
	return s.adapter.MultiSet(entries)
}

// Delete removes the given keys; missing keys are not an error.
func (s *Store[T]) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.adapter.Delete(keys...)
}

// Keys returns all keys in storage order, excluding sentinel keys.
func (s *Store[T]) Keys() ([]string, error) {
	all, err := s.adapter.Keys()
	if err != nil {
		return nil, err
	}
	keys := all[:0:0]
	for _, k := range all {
		if !strings.HasPrefix(k, SentinelPrefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len returns the number of non-sentinel entries.
func (s *Store[T]) Len() (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Empty reports whether the store has no non-sentinel entries.
func (s *Store[T]) Empty() (bool, error) {
	n, err := s.Len()
	return n == 0, err
}

// Clear removes everything in the scope, sentinels included.
func (s *Store[T]) Clear() error {
	return s.adapter.Clear()
}

// All returns every non-sentinel entry as a map.
func (s *Store[T]) All() (map[string]T, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	return s.MultiGet(keys)
}

// getSentinel reads an internal bookkeeping value of any JSON type.
func getSentinel[V any](s Adapter, key string) (V, bool, error) {
	var v V
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode sentinel %q: %w", key, err)
	}
	return v, true, nil
}

func setSentinel[V any](s Adapter, key string, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode sentinel %q: %w", key, err)
	}
	return s.Set(key, raw)
}
