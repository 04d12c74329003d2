package importer

import "time"

// Result state values.
const (
	StateRunning               = "running"
	StateCompleted             = "completed"
	StateCompletedWithFailures = "completed_with_failures"
	StateFailed                = "failed"
)

// Result summarizes one import scan.
type Result struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "running", "completed", "completed_with_failures", "failed"
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Roots       int        `json:"roots"`
	Candidates  int        `json:"candidates"`
	Imported    int        `json:"imported"`
	Undetected  []string   `json:"undetected,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// snapshot returns a copy that is safe to read without synchronization.
func (r *Result) snapshot() *Result {
	cp := *r
	cp.Undetected = append([]string(nil), r.Undetected...)
	return &cp
}
