package batch

import "time"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of indexing one document in a bulk operation.
// Each result is independent of the others in its batch.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Message renders a failed result as "id: reason". Empty for successes.
func (r Result) Message() string {
	if r.err == nil {
		return ""
	}
	return r.id + ": " + r.err.Error()
}

// Report summarizes one full reindex run.
type Report struct {
	RunID      string    `json:"runId"`
	Filter     string    `json:"filter,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Indexed    int       `json:"indexed"`
	Errors     []string  `json:"errors"`
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
