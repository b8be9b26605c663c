package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"parwrk/internal/domain"
)

// eachAdapter runs a subtest against every backend the test environment can
// provide (mysql needs a live server, so it is exercised indirectly through
// the shared adapter contract).
func eachAdapter(t *testing.T, fn func(t *testing.T, open func(scope string) Adapter)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		registry := NewRegistry()
		fn(t, func(scope string) Adapter {
			return newMemoryAdapter(registry, scope)
		})
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		fn(t, func(scope string) Adapter {
			a, err := newFileAdapter(filepath.Join(dir, scope), 4)
			if err != nil {
				t.Fatalf("open file adapter: %v", err)
			}
			return a
		})
	})
}

func TestAdapter_InsertionOrder(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(string) Adapter) {
		a := open("pending")

		entries := []Entry{
			{Key: "c", Value: []byte(`1`)},
			{Key: "a", Value: []byte(`2`)},
			{Key: "b", Value: []byte(`3`)},
		}
		if err := a.MultiSet(entries); err != nil {
			t.Fatalf("multi set: %v", err)
		}

		keys, err := a.Keys()
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		want := []string{"c", "a", "b"}
		if !reflect.DeepEqual(keys, want) {
			t.Errorf("expected keys %v, got %v", want, keys)
		}

		t.Run("updating an existing key keeps its position", func(t *testing.T) {
			if err := a.Set("a", []byte(`99`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			keys, err := a.Keys()
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if !reflect.DeepEqual(keys, want) {
				t.Errorf("expected keys %v after update, got %v", want, keys)
			}
		})

		t.Run("deleted then re-set keys append at the end", func(t *testing.T) {
			if err := a.Delete("c"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := a.Set("c", []byte(`4`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			keys, err := a.Keys()
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			want := []string{"a", "b", "c"}
			if !reflect.DeepEqual(keys, want) {
				t.Errorf("expected keys %v, got %v", want, keys)
			}
		})
	})
}

func TestAdapter_GetAndClear(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(string) Adapter) {
		a := open("completed")

		if _, ok, err := a.Get("missing"); err != nil || ok {
			t.Errorf("expected missing key, got ok=%v err=%v", ok, err)
		}

		if err := a.Set("x", []byte(`"value"`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		raw, ok, err := a.Get("x")
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if string(raw) != `"value"` {
			t.Errorf("expected raw value, got %s", raw)
		}

		got, err := a.MultiGet([]string{"x", "missing"})
		if err != nil {
			t.Fatalf("multi get: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 hit, got %d", len(got))
		}

		if err := a.Clear(); err != nil {
			t.Fatalf("clear: %v", err)
		}
		keys, err := a.Keys()
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("expected empty store after clear, got %v", keys)
		}
	})
}

func TestStore_SentinelsHiddenFromIteration(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(string) Adapter) {
		a := open("pending")
		s := NewStore[int](a)

		if err := setSentinel(a, SentinelPrefix+"budget", 3); err != nil {
			t.Fatalf("set sentinel: %v", err)
		}
		if err := s.Set("one", 1); err != nil {
			t.Fatalf("set: %v", err)
		}

		keys, err := s.Keys()
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if !reflect.DeepEqual(keys, []string{"one"}) {
			t.Errorf("expected sentinel hidden, got keys %v", keys)
		}

		n, err := s.Len()
		if err != nil || n != 1 {
			t.Errorf("expected len 1, got %d (err %v)", n, err)
		}

		v, ok, err := getSentinel[int](a, SentinelPrefix+"budget")
		if err != nil || !ok || v != 3 {
			t.Errorf("expected sentinel readable, got v=%d ok=%v err=%v", v, ok, err)
		}
	})
}

func TestFileAdapter_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	a, err := newFileAdapter(dir, 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries := []Entry{
		{Key: "spec/b_spec.rb:1", Value: []byte(`1`)},
		{Key: "spec/a_spec.rb:2", Value: []byte(`2`)},
	}
	if err := a.MultiSet(entries); err != nil {
		t.Fatalf("multi set: %v", err)
	}

	// A second adapter over the same directory simulates a server restart.
	b, err := newFileAdapter(dir, 4)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	keys, err := b.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"spec/b_spec.rb:1", "spec/a_spec.rb:2"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("expected order %v after reopen, got %v", want, keys)
	}

	if err := b.Set("spec/c_spec.rb:3", []byte(`3`)); err != nil {
		t.Fatalf("set after reopen: %v", err)
	}
	keys, err = b.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if keys[len(keys)-1] != "spec/c_spec.rb:3" {
		t.Errorf("expected new key appended, got %v", keys)
	}
}

func TestFactory_SchemeSelection(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		f, err := NewFactory("memory:///", 4)
		if err != nil {
			t.Fatalf("new factory: %v", err)
		}
		if f.Scheme() != "memory" {
			t.Errorf("expected memory scheme, got %q", f.Scheme())
		}
		if _, err := f.Open("run/pending"); err != nil {
			t.Errorf("open: %v", err)
		}
	})

	t.Run("file", func(t *testing.T) {
		f, err := NewFactory("file://"+t.TempDir(), 4)
		if err != nil {
			t.Fatalf("new factory: %v", err)
		}
		a, err := f.Open("run/pending")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := a.Set("k", []byte(`1`)); err != nil {
			t.Errorf("set: %v", err)
		}
	})

	t.Run("unknown scheme", func(t *testing.T) {
		if _, err := NewFactory("redis://localhost", 4); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})
}

func TestFactory_RunLockIsCached(t *testing.T) {
	f, err := NewFactory("memory:///", 4)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	l1, err := f.RunLock("main")
	if err != nil {
		t.Fatalf("run lock: %v", err)
	}
	l2, err := f.RunLock("main")
	if err != nil {
		t.Fatalf("run lock: %v", err)
	}
	if l1 != l2 {
		t.Error("expected the same lock instance for one run id")
	}

	other, err := f.RunLock("other")
	if err != nil {
		t.Fatalf("run lock: %v", err)
	}
	if l1 == other {
		t.Error("expected distinct locks for distinct run ids")
	}
}

func exampleWithTime(id, file string, expected float64) domain.Example {
	return domain.Example{ID: id, FilePath: file, ExpectedRunTime: &expected}
}
