package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arccheck/arccheck/internal/procprobe"
	"github.com/arccheck/arccheck/internal/report"
)

type processFunc func([]procprobe.CoreProcess) report.Report

func (f processFunc) CheckCoreProcesses(specs []procprobe.CoreProcess) report.Report { return f(specs) }

type configFunc func() report.ComponentStatus

func (f configFunc) ReadAgentConfig() report.ComponentStatus { return f() }

type extensionsFunc func() report.Report

func (f extensionsFunc) EnumerateExtensions() report.Report { return f() }

type eventsFunc func() (report.ComponentStatus, bool)

func (f eventsFunc) QueryRecentEvents() (report.ComponentStatus, bool) { return f() }

func missingProcesses(specs []procprobe.CoreProcess) report.Report {
	var rows report.Report
	for _, s := range specs {
		rows = append(rows, report.ComponentStatus{
			Component: s.Component,
			Status:    "not running",
			Alert:     "process not started",
			Severity:  s.MissingSeverity,
		})
	}
	return rows
}

func configRow() report.ComponentStatus {
	return report.ComponentStatus{Component: "Agent Configuration", Status: "configuration found"}
}

func noEvents() (report.ComponentStatus, bool) { return report.ComponentStatus{}, false }

func agentReaders() Readers {
	return Readers{
		Processes:     processFunc(missingProcesses),
		CoreProcesses: procprobe.DefaultCoreProcesses("himds.exe", "azcmagent.exe"),
		Config:        configFunc(configRow),
		Events:        eventsFunc(noEvents),
	}
}

func wait(t *testing.T, task *Task) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := task.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestRunAgentCheckOrder(t *testing.T) {
	e := New(agentReaders())

	task, err := e.RunAgentCheck()
	require.NoError(t, err)
	res := wait(t, task)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "HIMDS Service", res.Rows[0].Component)
	assert.Equal(t, report.SeverityError, res.Rows[0].Severity)
	assert.Equal(t, "Azure Arc Agent", res.Rows[1].Component)
	assert.Equal(t, report.SeverityWarning, res.Rows[1].Severity)
	assert.Equal(t, "Agent Configuration", res.Rows[2].Component)

	assert.Equal(t, ProfileAgentCheck, res.Profile)
	assert.Equal(t, task.ID(), res.ID)
	assert.False(t, e.Scanning())
	assert.Equal(t, res.Rows, e.Report())
}

func TestRunAgentCheckIncludesEventRow(t *testing.T) {
	readers := agentReaders()
	readers.Events = eventsFunc(func() (report.ComponentStatus, bool) {
		return report.ComponentStatus{Component: "Event Log", Alert: "error detected", Severity: report.SeverityError}, true
	})

	task, err := New(readers).RunAgentCheck()
	require.NoError(t, err)
	res := wait(t, task)

	require.Len(t, res.Rows, 4)
	assert.Equal(t, "Event Log", res.Rows[3].Component)
}

func TestRunExtensionsScan(t *testing.T) {
	e := New(Readers{Extensions: extensionsFunc(func() report.Report {
		return report.Report{
			{Component: "Extension", Status: "installed", Details: "Microsoft.Azure.A"},
			{Component: "Extension", Status: "installed", Details: "Microsoft.Azure.B"},
		}
	})})

	task, err := e.RunExtensionsScan()
	require.NoError(t, err)
	res := wait(t, task)

	assert.Equal(t, ProfileExtensions, task.Profile())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Microsoft.Azure.A", res.Rows[0].Details)
}

func TestReportReplacedNotMerged(t *testing.T) {
	readers := agentReaders()
	readers.Extensions = extensionsFunc(func() report.Report {
		return report.Report{{Component: "Extension", Status: "installed"}}
	})
	e := New(readers)

	task, err := e.RunAgentCheck()
	require.NoError(t, err)
	wait(t, task)
	require.Equal(t, 3, e.Report().Len())

	task, err = e.RunExtensionsScan()
	require.NoError(t, err)
	wait(t, task)

	assert.Equal(t, 1, e.Report().Len())
	last, ok := e.Last()
	require.True(t, ok)
	assert.Equal(t, ProfileExtensions, last.Profile)
}

func TestConcurrentScanRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	readers := agentReaders()
	readers.Config = configFunc(func() report.ComponentStatus {
		close(entered)
		<-release
		return configRow()
	})
	e := New(readers)

	first, err := e.RunAgentCheck()
	require.NoError(t, err)
	<-entered
	assert.True(t, e.Scanning())

	second, err := e.RunExtensionsScan()
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrScanInProgress)

	_, err = e.RunAgentCheck()
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(release)
	res := wait(t, first)
	assert.Len(t, res.Rows, 3, "rejected scans must not touch the report")
	assert.False(t, e.Scanning())

	again, err := e.RunAgentCheck()
	require.NoError(t, err)
	wait(t, again)
}

func TestReaderPanicBecomesErrorRow(t *testing.T) {
	readers := agentReaders()
	readers.Config = configFunc(func() report.ComponentStatus { panic("boom") })
	e := New(readers)

	task, err := e.RunAgentCheck()
	require.NoError(t, err)
	res := wait(t, task)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, report.ComponentStatus{
		Component: StageConfiguration,
		Status:    "failed",
		Alert:     "reader failed: boom",
		Severity:  report.SeverityError,
	}, res.Rows[2])
	assert.False(t, e.Scanning())
}

func TestNilReadersContributeNothing(t *testing.T) {
	task, err := New(Readers{}).RunExtensionsScan()
	require.NoError(t, err)

	res := wait(t, task)

	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestHooksFireInOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}

	e := New(agentReaders(), WithHooks(Hooks{
		ScanStarted:  func(_ string, p Profile) { record("start " + string(p)) },
		StageStarted: func(_ Profile, stage string) { record("stage " + stage) },
		Status:       func(msg string) { record("status " + msg) },
		ScanFinished: func(r Result) { record("finish " + r.Rows.Summary()) },
	}))

	task, err := e.RunAgentCheck()
	require.NoError(t, err)
	wait(t, task)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"start agent",
		"status checking agent...",
		"stage Core Processes",
		"stage Agent Configuration",
		"stage Event Log",
		"status check complete - 3 components analyzed",
		"finish 3 components: 1 OK, 1 warning, 1 error",
	}, events)
}

func TestPanickingFinishHookReleasesGuard(t *testing.T) {
	e := New(agentReaders(), WithHooks(Hooks{
		ScanFinished: func(Result) { panic("hook exploded") },
	}))

	task, err := e.RunAgentCheck()
	require.NoError(t, err)
	res := wait(t, task)
	assert.Len(t, res.Rows, 3)
	assert.False(t, e.Scanning())

	task, err = e.RunAgentCheck()
	require.NoError(t, err, "the guard must be released after a failing hook")
	wait(t, task)
}

func TestExtensionsStatusMessages(t *testing.T) {
	var msgs []string
	e := New(Readers{Extensions: extensionsFunc(func() report.Report {
		return report.Report{{Component: "Extension"}, {Component: "Extension"}}
	})}, WithHooks(Hooks{Status: func(m string) { msgs = append(msgs, m) }}))

	task, err := e.RunExtensionsScan()
	require.NoError(t, err)
	wait(t, task)

	assert.Equal(t, []string{"enumerating extensions...", "enumeration complete - 2 extensions found"}, msgs)
}

func TestWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	readers := agentReaders()
	readers.Config = configFunc(func() report.ComponentStatus {
		<-release
		return configRow()
	})
	e := New(readers)

	task, err := e.RunAgentCheck()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = task.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	_, done := task.Result()
	assert.False(t, done)

	close(release)
	<-task.Done()
	res, done := task.Result()
	assert.True(t, done)
	assert.Len(t, res.Rows, 3)
}

func TestClockStampsResult(t *testing.T) {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	calls := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	task, err := New(agentReaders(), WithClock(clock)).RunAgentCheck()
	require.NoError(t, err)
	res := wait(t, task)

	assert.Equal(t, base.Add(time.Second), res.StartedAt)
	assert.Equal(t, time.Second, res.Duration())
}

func TestStartUnknownProfile(t *testing.T) {
	e := New(agentReaders())

	_, err := e.Start(Profile("bogus"))

	require.Error(t, err)
	assert.False(t, e.Scanning())
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"agent", ProfileAgentCheck, false},
		{"Agent-Check", ProfileAgentCheck, false},
		{"extensions", ProfileExtensions, false},
		{" EXTENSION ", ProfileExtensions, false},
		{"events", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProfile(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastBeforeAnyScan(t *testing.T) {
	_, ok := New(Readers{}).Last()
	assert.False(t, ok)
	assert.Empty(t, New(Readers{}).Report())
}
