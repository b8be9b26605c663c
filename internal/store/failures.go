package store

// FailureCounter tracks consecutive observed failures per example id. Counts
// only ever increase; they drive retry eligibility and flake detection.
type FailureCounter struct {
	*Store[int]
}

// NewFailureCounter wraps an adapter as the failure-count store.
func NewFailureCounter(a Adapter) *FailureCounter {
	return &FailureCounter{Store: NewStore[int](a)}
}

// Counts returns the current failure counts for the given ids; ids that have
// never failed are absent from the result.
func (f *FailureCounter) Counts(ids []string) (map[string]int, error) {
	return f.MultiGet(ids)
}
