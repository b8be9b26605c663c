package domain

// Status is the three-way outcome of an executed example.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Example is one unit of work: a single test case identified by an opaque ID
// that is stable across runs. Before seeding only ID and FilePath are set.
// ExpectedRunTime is decorated at seed time from the run-time history; the
// execution fields are filled in by the worker that ran it.
type Example struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`

	// ExpectedRunTime is the predicted run time in seconds. nil means no
	// history exists for this example; unknown examples sort as slowest.
	ExpectedRunTime *float64 `json:"expected_run_time,omitempty"`

	Status     Status  `json:"status,omitempty"`
	RunTime    float64 `json:"run_time,omitempty"`
	StartedAt  string  `json:"started_at,omitempty"`
	FinishedAt string  `json:"finished_at,omitempty"`

	// Output is the captured command output of a failed example.
	Output string `json:"output,omitempty"`

	// CompletionThreshold is the lease deadline in epoch seconds. It is set
	// only while the example sits in the processing queue; a threshold in the
	// past marks the lease as abandoned and eligible for reclaim.
	CompletionThreshold float64 `json:"completion_threshold,omitempty"`
}

// SeedRequest is the payload of a Seed call: the full example set for a run
// plus the retry budget for failing examples.
type SeedRequest struct {
	MaxRetries int       `json:"max_retries"`
	Examples   []Example `json:"examples"`
}
