// Package eventlog reads the most recent warning or error records written by
// the agent to its event channel.
package eventlog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/report"
)

// Defaults for the agent's operational channel.
const (
	DefaultChannel  = "Microsoft-AzureArc-Agent/Operational"
	DefaultProvider = "Microsoft-AzureArc-Agent"
)

const (
	fetchBatch    = 10
	maxCandidates = 3
)

// Reader turns the newest matching event into at most one report row.
type Reader struct {
	Source   Source
	Channel  string
	Provider string
	Logger   *zap.Logger
}

// New returns a Reader over the platform event log with the default channel
// and provider.
func New(logger *zap.Logger) *Reader {
	return &Reader{
		Source:   SystemSource(),
		Channel:  DefaultChannel,
		Provider: DefaultProvider,
		Logger:   logger,
	}
}

// QueryRecentEvents returns a row for the first of the newest events whose
// XML carries a level, and false when the log is unavailable or has nothing
// to report.
func (r *Reader) QueryRecentEvents() (report.ComponentStatus, bool) {
	log := r.logger()

	query := BuildQuery(r.Provider, LevelCritical, LevelError, LevelWarning)
	results, err := r.Source.Query(r.Channel, query)
	if err != nil {
		log.Debug("event query failed", zap.String("channel", r.Channel), zap.Error(err))
		return report.ComponentStatus{}, false
	}
	defer func() {
		if err := results.Close(); err != nil {
			log.Debug("closing event query failed", zap.Error(err))
		}
	}()

	events, err := results.Next(fetchBatch)
	defer closeAll(log, events)
	if err != nil {
		log.Debug("fetching events failed", zap.Error(err))
		return report.ComponentStatus{}, false
	}

	for i, event := range events {
		if i >= maxCandidates {
			break
		}
		xml, err := render(event)
		if err != nil {
			log.Debug("skipping unrenderable event", zap.Int("index", i), zap.Error(err))
			continue
		}
		if strings.Contains(xml, "Level>") {
			return classify(xml), true
		}
	}
	return report.ComponentStatus{}, false
}

// classify maps the event level to a row. The checks are plain substring
// matches on the rendered XML.
func classify(xml string) report.ComponentStatus {
	row := report.ComponentStatus{
		Component: "Event Log",
		Status:    "recent event",
		Details:   "recent events in the journal",
	}
	switch {
	case strings.Contains(xml, "Level>1"):
		row.Alert = "critical error detected"
		row.Severity = report.SeverityError
	case strings.Contains(xml, "Level>2"):
		row.Alert = "error detected"
		row.Severity = report.SeverityError
	default:
		row.Alert = "warning detected"
		row.Severity = report.SeverityWarning
	}
	return row
}

func render(event Event) (xml string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rendering event panicked: %v", r)
		}
	}()
	return event.RenderXML()
}

func closeAll(log *zap.Logger, events []Event) {
	for _, event := range events {
		if event == nil {
			continue
		}
		if err := event.Close(); err != nil {
			log.Debug("closing event failed", zap.Error(err))
		}
	}
}

func (r *Reader) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}
