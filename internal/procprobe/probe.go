// Package procprobe finds the agent's core processes in the host process table.
package procprobe

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/report"
)

// ErrUnsupported is returned by the process table on platforms without one.
var ErrUnsupported = errors.New("process table not supported on this platform")

// Process is one entry of a process table snapshot.
type Process struct {
	PID uint32
	// Name is the executable file name, e.g. "himds.exe".
	Name string
}

// Table is a read-only view of the host process table.
type Table interface {
	// Processes may return the processes listed so far along with an error.
	Processes() ([]Process, error)
	ExecutablePath(pid uint32) (string, error)
}

// CoreProcess describes a process the agent needs and how bad its absence is.
type CoreProcess struct {
	Component       string
	Image           string
	MissingSeverity report.Severity
}

// DefaultCoreProcesses returns the service and agent processes. A missing
// service is an error; a missing agent process is only a warning.
func DefaultCoreProcesses(serviceImage, agentImage string) []CoreProcess {
	return []CoreProcess{
		{Component: "HIMDS Service", Image: serviceImage, MissingSeverity: report.SeverityError},
		{Component: "Azure Arc Agent", Image: agentImage, MissingSeverity: report.SeverityWarning},
	}
}

// Probe answers process questions against a Table.
type Probe struct {
	Table  Table
	Logger *zap.Logger
}

// New returns a Probe over the platform's process table.
func New(logger *zap.Logger) *Probe {
	return &Probe{Table: SystemTable(), Logger: logger}
}

// IsProcessRunning reports the PID of the first process whose executable name
// equals name, ignoring case. When the snapshot fails part way, the processes
// listed before the failure are still searched.
func (p *Probe) IsProcessRunning(name string) (uint32, bool) {
	procs, err := p.Table.Processes()
	if err != nil {
		p.logger().Debug("process snapshot failed", zap.Int("listed", len(procs)), zap.Error(err))
	}
	for _, proc := range procs {
		if strings.EqualFold(proc.Name, name) {
			return proc.PID, true
		}
	}
	return 0, false
}

// ResolveProcessPath returns the full executable path of pid, or "" when it
// cannot be determined.
func (p *Probe) ResolveProcessPath(pid uint32) string {
	path, err := p.Table.ExecutablePath(pid)
	if err != nil {
		p.logger().Debug("resolving process path failed", zap.Uint32("pid", pid), zap.Error(err))
		return ""
	}
	return path
}

// CheckCoreProcesses produces one row per process, in the given order.
func (p *Probe) CheckCoreProcesses(specs []CoreProcess) report.Report {
	rows := make(report.Report, 0, len(specs))
	for _, spec := range specs {
		rows = append(rows, p.checkProcess(spec))
	}
	return rows
}

func (p *Probe) checkProcess(spec CoreProcess) report.ComponentStatus {
	info := report.ComponentStatus{Component: spec.Component}

	pid, found := p.IsProcessRunning(spec.Image)
	if !found {
		info.Status = "not running"
		info.Alert = "process not started"
		info.Severity = spec.MissingSeverity
		return info
	}

	info.Status = "running"
	info.Severity = report.SeverityOK
	info.Details = "PID: " + strconv.FormatUint(uint64(pid), 10)
	info.VersionOrPath = p.ResolveProcessPath(pid)
	return info
}

func (p *Probe) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}
