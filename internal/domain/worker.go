package domain

// Worker tracks liveness and completion counters for one worker id within a
// run. Records are created on first request and updated on every request;
// they are never deleted (cleanup belongs to the surrounding deployment).
type Worker struct {
	FirstSeenAt string `json:"first_seen_at,omitempty"`
	LastSeenAt  string `json:"last_seen_at,omitempty"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Pending     int    `json:"pending"`
}
