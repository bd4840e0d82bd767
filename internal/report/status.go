// Package report defines the component rows produced by a diagnostic scan,
// their severity taxonomy, and the ordered report that collects them.
package report

import (
	"fmt"
	"strings"
)

// Severity classifies a component row. Values are ordered: OK < Warning < Error.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityOK:      "OK",
	SeverityWarning: "WARNING",
	SeverityError:   "ERROR",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText encodes the severity as its upper-case name.
func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText accepts the severity name in any case.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses "ok", "warning"/"warn" or "error" in any case.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "OK":
		return SeverityOK, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	}
	return SeverityOK, fmt.Errorf("unknown severity %q", v)
}

// ComponentStatus is one row of a diagnostic report.
type ComponentStatus struct {
	Component     string   `json:"component" yaml:"component"`
	Status        string   `json:"status" yaml:"status"`
	VersionOrPath string   `json:"version_or_path,omitempty" yaml:"version_or_path,omitempty"`
	Expiration    string   `json:"expiration,omitempty" yaml:"expiration,omitempty"`
	Details       string   `json:"details,omitempty" yaml:"details,omitempty"`
	Alert         string   `json:"alert,omitempty" yaml:"alert,omitempty"`
	Severity      Severity `json:"severity" yaml:"severity"`
}

// Explained reports whether an ERROR row carries an alert or status.
// Rows of lower severity are always explained.
func (c ComponentStatus) Explained() bool {
	if c.Severity < SeverityError {
		return true
	}
	return c.Alert != "" || c.Status != ""
}
