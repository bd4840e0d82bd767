// Package engine runs diagnostic collection profiles in the background and
// holds the resulting report.
//
// An Engine runs at most one scan at a time. RunAgentCheck and
// RunExtensionsScan return immediately with a Task; the scan itself runs on
// its own goroutine and cannot be cancelled.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/report"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("a scan is already in progress")

// Hooks observe a scan. Every hook is optional and is called on the scan
// goroutine.
type Hooks struct {
	ScanStarted  func(id string, profile Profile)
	StageStarted func(profile Profile, stage string)
	// Status receives the human-readable progress messages that are also
	// written to the log.
	Status       func(message string)
	ScanFinished func(Result)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for status messages.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks sets the scan hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine owns the report, the scan guard and the readers.
type Engine struct {
	readers Readers
	hooks   Hooks
	logger  *zap.Logger
	now     func() time.Time

	scanning atomic.Bool

	mu     sync.Mutex
	report report.Report
	last   *Result
}

// New returns an idle Engine with an empty report.
func New(readers Readers, opts ...Option) *Engine {
	e := &Engine{
		readers: readers,
		logger:  zap.NewNop(),
		now:     time.Now,
		report:  report.Report{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAgentCheck starts the agent check profile.
func (e *Engine) RunAgentCheck() (*Task, error) {
	return e.Start(ProfileAgentCheck)
}

// RunExtensionsScan starts the extensions profile.
func (e *Engine) RunExtensionsScan() (*Task, error) {
	return e.Start(ProfileExtensions)
}

// Start runs profile on a new goroutine. It returns ErrScanInProgress, and
// leaves the report untouched, when a scan is already running.
func (e *Engine) Start(profile Profile) (*Task, error) {
	if profile != ProfileAgentCheck && profile != ProfileExtensions {
		return nil, fmt.Errorf("unknown profile %q", profile)
	}
	if !e.scanning.CompareAndSwap(false, true) {
		e.logger.Debug("scan rejected", zap.String("profile", string(profile)))
		return nil, ErrScanInProgress
	}

	t := newTask(uuid.NewString(), profile)
	go e.run(t)
	return t, nil
}

// Scanning reports whether a scan is running.
func (e *Engine) Scanning() bool {
	return e.scanning.Load()
}

// Report returns a copy of the current report. While a scan runs it holds
// the rows collected so far.
func (e *Engine) Report() report.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.Clone()
}

// Last returns the most recently completed result.
func (e *Engine) Last() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Result{}, false
	}
	return e.last.clone(), true
}

func (e *Engine) run(t *Task) {
	res := Result{ID: t.id, Profile: t.profile, StartedAt: e.now()}

	defer func() {
		res.FinishedAt = e.now()
		res.Rows = e.Report()

		e.status(finishMessage(t.profile, res.Rows.Len()))

		e.mu.Lock()
		last := res.clone()
		e.last = &last
		e.mu.Unlock()

		e.scanning.Store(false)
		defer t.finish(res)
		e.scanFinished(res.clone())
	}()

	if e.hooks.ScanStarted != nil {
		e.hooks.ScanStarted(t.id, t.profile)
	}
	e.status(startMessage(t.profile))

	e.mu.Lock()
	e.report = report.Report{}
	e.mu.Unlock()

	for _, st := range e.stages(t.profile) {
		if e.hooks.StageStarted != nil {
			e.hooks.StageStarted(t.profile, st.name)
		}
		rows := e.collect(st)

		e.mu.Lock()
		e.report.Append(rows...)
		e.mu.Unlock()
	}
}

// scanFinished fires the ScanFinished hook. A panicking hook is logged; the
// scan is already complete by then.
func (e *Engine) scanFinished(res Result) {
	if e.hooks.ScanFinished == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scan finished hook failed", zap.String("scan_id", res.ID), zap.Any("panic", r))
		}
	}()
	e.hooks.ScanFinished(res)
}

// collect runs one stage. A panicking reader becomes an ERROR row.
func (e *Engine) collect(st stage) (rows report.Report) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("reader failed", zap.String("stage", st.name), zap.Any("panic", r))
			rows = report.Report{{
				Component: st.name,
				Status:    "failed",
				Alert:     fmt.Sprintf("reader failed: %v", r),
				Severity:  report.SeverityError,
			}}
		}
	}()
	return st.collect()
}

func (e *Engine) status(msg string) {
	e.logger.Info(msg)
	if e.hooks.Status != nil {
		e.hooks.Status(msg)
	}
}
