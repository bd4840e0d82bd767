package report

import (
	"fmt"
	"strings"
)

// unexplainedAlert is attached to ERROR rows that arrive with neither an
// alert nor a status.
const unexplainedAlert = "unspecified error"

// Report is the ordered list of rows collected during one scan.
// Order is collection order and is preserved by every renderer.
type Report []ComponentStatus

// Append adds rows in order. ERROR rows are never left unexplained.
func (r *Report) Append(rows ...ComponentStatus) {
	for _, row := range rows {
		if !row.Explained() {
			row.Alert = unexplainedAlert
		}
		*r = append(*r, row)
	}
}

// Len returns the number of rows.
func (r Report) Len() int {
	return len(r)
}

// Clone returns an independent copy of the report.
func (r Report) Clone() Report {
	if r == nil {
		return Report{}
	}
	out := make(Report, len(r))
	copy(out, r)
	return out
}

// Worst returns the highest severity in the report, OK when empty.
func (r Report) Worst() Severity {
	worst := SeverityOK
	for _, row := range r {
		if row.Severity > worst {
			worst = row.Severity
		}
	}
	return worst
}

// Counts tallies rows per severity.
type Counts struct {
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
}

// Counts returns the per-severity tally.
func (r Report) Counts() Counts {
	var c Counts
	for _, row := range r {
		switch row.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		default:
			c.OK++
		}
	}
	return c
}

// Summary returns a one-line, human-readable description of the report.
func (r Report) Summary() string {
	if len(r) == 0 {
		return "No components analyzed"
	}
	c := r.Counts()
	head := fmt.Sprintf("%d %s", len(r), pluralize(len(r), "component", "components"))
	if c.Warnings == 0 && c.Errors == 0 {
		return head + ", all OK"
	}

	parts := []string{}
	if c.OK > 0 {
		parts = append(parts, fmt.Sprintf("%d OK", c.OK))
	}
	if c.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", c.Warnings, pluralize(c.Warnings, "warning", "warnings")))
	}
	if c.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", c.Errors, pluralize(c.Errors, "error", "errors")))
	}
	return head + ": " + strings.Join(parts, ", ")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
