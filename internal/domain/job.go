package domain

// Job status values.
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// JobRecord tracks the lifecycle of one asynchronous Monte Carlo batch.
// Corresponds to the jobs table.
type JobRecord struct {
	JobID      string `json:"job_id"`
	BatchID    string `json:"batch_id"`
	Filename   string `json:"filename"`
	StrategyID string `json:"strategy_id"`
	Method     string `json:"method"`
	Seed       int64  `json:"seed"`

	Status        string `json:"status"`
	Error         string `json:"error,omitempty"` // set when Status is FAILED
	RequestedRuns int    `json:"requested_runs"`
	CompletedRuns int    `json:"completed_runs"`

	SubmittedAtMs int64 `json:"submitted_at_ms"`
	StartedAtMs   int64 `json:"started_at_ms,omitempty"`
	FinishedAtMs  int64 `json:"finished_at_ms,omitempty"`

	// Summary is set once the batch completes. Nil while pending/running
	// and for failed or cancelled jobs.
	Summary *MonteCarloSummary `json:"summary,omitempty"`
}
