package discovery

import (
	"path/filepath"
	"strings"

	"parwrk/internal/domain"
)

// Filter narrows a discovered example set by file-name pattern.
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// ByName keeps examples whose file name matches the pattern. Wildcard
// patterns like "*_user_spec.rb" or "*payment*" are supported; a pattern
// without wildcards is a substring match.
func (f *Filter) ByName(examples []domain.Example, pattern string) []domain.Example {
	if pattern == "" {
		return examples
	}

	var filtered []domain.Example
	for _, ex := range examples {
		if matchName(filepath.Base(ex.FilePath), pattern) {
			filtered = append(filtered, ex)
		}
	}
	return filtered
}

func matchName(name, pattern string) bool {
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(name, pattern)
	}

	// filepath.Match anchors both ends, so "*payment*" misses names where
	// the fragment spans a separator; fall back to matching the non-wildcard
	// fragments in order.
	parts := strings.Split(pattern, "*")
	rest := name
	matchedAny := false
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
		matchedAny = true
	}
	return matchedAny
}
