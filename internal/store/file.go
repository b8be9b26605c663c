package store

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const fileExt = ".wrk.json"

// fileAdapter stores one file per key under a scope directory. Writes are
// atomic (temp file + fsync + rename) so a crash never leaves a partially
// written record. Filenames carry a zero-padded insertion counter before the
// URL-safe base64 key so that a plain sorted directory listing reproduces
// insertion order.
//
// The key index is derived from a single directory listing and cached until
// a local mutation invalidates it. Mutation by other processes therefore
// requires re-opening the adapter; cross-process correctness is the run
// lock's job.
type fileAdapter struct {
	dir      string
	poolSize int

	mu      sync.Mutex
	index   map[string]string // key -> absolute filename
	order   []string
	counter uint64
}

func newFileAdapter(dir string, poolSize int) (*fileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if poolSize <= 0 {
		poolSize = 1
	}
	return &fileAdapter{dir: dir, poolSize: poolSize}, nil
}

func (f *fileAdapter) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	filename, ok, err := f.lookupLocked(key)
	f.mu.Unlock()
	if err != nil || !ok {
		return nil, false, err
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return raw, true, nil
}

func (f *fileAdapter) Set(key string, value []byte) error {
	f.mu.Lock()
	filename, err := f.filenameLocked(key)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	if err := writeAtomic(filename, value); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}

	f.mu.Lock()
	f.rememberLocked(key, filename)
	f.mu.Unlock()
	return nil
}

func (f *fileAdapter) MultiGet(keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	filenames := make(map[string]string, len(keys))
	for _, k := range keys {
		filename, ok, err := f.lookupLocked(k)
		if err != nil {
			f.mu.Unlock()
			return nil, err
		}
		if ok {
			filenames[k] = filename
		}
	}
	f.mu.Unlock()

	var (
		outMu sync.Mutex
		out   = make(map[string][]byte, len(filenames))
	)
	err := f.fanOut(len(keys), func(i int) error {
		key := keys[i]
		filename, ok := filenames[key]
		if !ok {
			return nil
		}
		raw, err := os.ReadFile(filename)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("read %q: %w", key, err)
		}
		outMu.Lock()
		out[key] = raw
		outMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fileAdapter) MultiSet(entries []Entry) error {
	f.mu.Lock()
	filenames := make([]string, len(entries))
	for i, e := range entries {
		filename, err := f.filenameLocked(e.Key)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		filenames[i] = filename
		f.rememberLocked(e.Key, filename)
	}
	f.mu.Unlock()

	return f.fanOut(len(entries), func(i int) error {
		if err := writeAtomic(filenames[i], entries[i].Value); err != nil {
			return fmt.Errorf("write %q: %w", entries[i].Key, err)
		}
		return nil
	})
}

func (f *fileAdapter) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, key := range keys {
		// Glob rather than trusting the index alone: another process may
		// have written the key under a different counter prefix.
		matches, err := filepath.Glob(filepath.Join(f.dir, "*_"+encodeKey(key)+fileExt))
		if err != nil {
			return fmt.Errorf("glob %q: %w", key, err)
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete %q: %w", key, err)
			}
		}
		f.forgetLocked(key)
	}
	return nil
}

func (f *fileAdapter) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureIndexLocked(); err != nil {
		return nil, err
	}
	keys := make([]string, len(f.order))
	copy(keys, f.order)
	return keys, nil
}

func (f *fileAdapter) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("clear store dir: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("recreate store dir: %w", err)
	}
	f.index = nil
	f.order = nil
	f.counter = 0
	return nil
}

// fanOut runs fn for each index across a bounded pool of goroutines and
// blocks until all complete, returning the first error observed.
func (f *fileAdapter) fanOut(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := f.poolSize
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(i); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func (f *fileAdapter) ensureIndexLocked() error {
	if f.index != nil {
		return nil
	}

	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("list store dir: %w", err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	f.index = make(map[string]string, len(names))
	f.order = f.order[:0]
	f.counter = 0
	for _, name := range names {
		key, counter, ok := decodeFilename(name)
		if !ok {
			continue
		}
		if counter >= f.counter {
			f.counter = counter + 1
		}
		if _, seen := f.index[key]; !seen {
			f.order = append(f.order, key)
		}
		f.index[key] = filepath.Join(f.dir, name)
	}
	return nil
}

func (f *fileAdapter) lookupLocked(key string) (string, bool, error) {
	if err := f.ensureIndexLocked(); err != nil {
		return "", false, err
	}
	filename, ok := f.index[key]
	return filename, ok, nil
}

// filenameLocked returns the existing filename for a key, or assigns the
// next counter-prefixed one.
func (f *fileAdapter) filenameLocked(key string) (string, error) {
	if err := f.ensureIndexLocked(); err != nil {
		return "", err
	}
	if filename, ok := f.index[key]; ok {
		return filename, nil
	}
	name := fmt.Sprintf("%012d_%s%s", f.counter, encodeKey(key), fileExt)
	f.counter++
	return filepath.Join(f.dir, name), nil
}

func (f *fileAdapter) rememberLocked(key, filename string) {
	if f.index == nil {
		return
	}
	if _, ok := f.index[key]; !ok {
		f.order = append(f.order, key)
	}
	f.index[key] = filename
}

func (f *fileAdapter) forgetLocked(key string) {
	if f.index == nil {
		return
	}
	if _, ok := f.index[key]; !ok {
		return
	}
	delete(f.index, key)
	for i, existing := range f.order {
		if existing == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func writeAtomic(filename string, value []byte) error {
	tmp := filename + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(value); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}

func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeFilename(name string) (key string, counter uint64, ok bool) {
	base := strings.TrimSuffix(name, fileExt)
	sep := strings.IndexByte(base, '_')
	if sep <= 0 {
		return "", 0, false
	}
	counter, err := strconv.ParseUint(base[:sep], 10, 64)
	if err != nil {
		return "", 0, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(base[sep+1:])
	if err != nil {
		return "", 0, false
	}
	return string(raw), counter, true
}
