package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parwrk/internal/domain"
)

// Scanner discovers test files under a root directory.
type Scanner struct {
	suffix   string
	skipDirs map[string]bool
}

// NewScanner creates a Scanner matching files with the given suffix and
// skipping the named directories.
func NewScanner(suffix string, skipDirs []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{suffix: suffix, skipDirs: skipMap}
}

// Scan walks root and returns one example per matching file. Example ids are
// root-relative slash paths so the same suite seeds identically from any
// checkout location.
func (s *Scanner) Scan(root string) ([]domain.Example, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	var examples []domain.Example
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			// Skip hidden directories (starting with .)
			if strings.HasPrefix(name, ".") && name != "." && name != ".." {
				return filepath.SkipDir
			}
			if s.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), s.suffix) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		examples = append(examples, domain.Example{ID: id, FilePath: id})
		return nil
	})

	return examples, err
}
