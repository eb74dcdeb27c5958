package models

import "time"

// PairState is a step of the per-pair state machine.
type PairState string

const (
	StatePending    PairState = "pending"
	StateCloning    PairState = "cloning"
	StateExtracting PairState = "extracting"
	StateDone       PairState = "done"
	StateFailed     PairState = "failed"
)

// Run modes.
const (
	ModeFull   = "full"
	ModeDemo   = "demo"
	ModeDelete = "delete"
)

// Pair status constants
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// SourceInventory summarizes the definitions found in one side's extracted sources.
type SourceInventory struct {
	Files     int `json:"files"`
	Functions int `json:"functions"`
	Types     int `json:"types"`
}

// PairResult is the outcome of materializing a single pair.
type PairResult struct {
	ProgramName string        // Pair identity
	Status      string        // "SUCCEEDED" or "FAILED"
	State       PairState     // Last state reached
	Reason      string        // Failure reason, empty on success
	Error       error         // Underlying error if the pair failed
	CFiles      int           // Files copied for the C side
	RustFiles   int           // Files copied for the Rust side
	Duration    time.Duration // Time taken for this pair

	CInventory    *SourceInventory // Optional inventory of the C side
	RustInventory *SourceInventory // Optional inventory of the Rust side
}

// Succeeded reports whether the pair was materialized.
func (r *PairResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// RunReport aggregates per-pair results for one run.
type RunReport struct {
	ID         string
	Mode       string
	OutputRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []PairResult // In load order
}

// Total returns the number of pairs in the report.
func (r *RunReport) Total() int {
	return len(r.Results)
}

// SucceededCount returns the number of succeeded pairs.
func (r *RunReport) SucceededCount() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Succeeded() {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed pairs.
func (r *RunReport) FailedCount() int {
	return r.Total() - r.SucceededCount()
}

// Failed returns the failed results in load order.
func (r *RunReport) Failed() []PairResult {
	var failed []PairResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Duration returns the wall-clock time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CacheEntry associates a repository URL with its local checkout.
type CacheEntry struct {
	RepositoryURL string    `json:"repository_url"`
	LocalPath     string    `json:"local_path"`
	ClonedAt      time.Time `json:"cloned_at"`
}
