package engine

import (
	"github.com/arccheck/arccheck/internal/procprobe"
	"github.com/arccheck/arccheck/internal/report"
)

// ProcessChecker reports on the agent's core processes.
type ProcessChecker interface {
	CheckCoreProcesses(specs []procprobe.CoreProcess) report.Report
}

// ConfigReader reports on the agent configuration and token.
type ConfigReader interface {
	ReadAgentConfig() report.ComponentStatus
}

// ExtensionLister reports on installed extensions.
type ExtensionLister interface {
	EnumerateExtensions() report.Report
}

// EventReader reports on the newest agent event, if any.
type EventReader interface {
	QueryRecentEvents() (report.ComponentStatus, bool)
}

// Readers are the sources an Engine collects from. A nil reader contributes
// no rows.
type Readers struct {
	Processes     ProcessChecker
	CoreProcesses []procprobe.CoreProcess
	Config        ConfigReader
	Extensions    ExtensionLister
	Events        EventReader
}
