package engine

import (
	"context"
	"time"

	"github.com/arccheck/arccheck/internal/report"
)

// Result is the outcome of one completed scan.
type Result struct {
	ID         string        `json:"id" yaml:"id"`
	Profile    Profile       `json:"profile" yaml:"profile"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Rows       report.Report `json:"rows" yaml:"rows"`
}

// Duration is the wall time the scan took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Result) clone() Result {
	r.Rows = r.Rows.Clone()
	return r
}

// Task is a handle on a running or finished scan.
type Task struct {
	id      string
	profile Profile
	done    chan struct{}
	result  Result
}

func newTask(id string, profile Profile) *Task {
	return &Task{id: id, profile: profile, done: make(chan struct{})}
}

// ID returns the scan's unique identifier.
func (t *Task) ID() string { return t.id }

// Profile returns the profile being run.
func (t *Task) Profile() Profile { return t.profile }

// Done is closed when the scan has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the scan finishes or ctx is done. Cancelling ctx only
// stops the wait; the scan keeps running.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result.clone(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the scan result and whether the scan has finished.
func (t *Task) Result() (Result, bool) {
	select {
	case <-t.done:
		return t.result.clone(), true
	default:
		return Result{}, false
	}
}

func (t *Task) finish(res Result) {
	t.result = res
	close(t.done)
}
