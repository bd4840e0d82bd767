// Package output provides JSON/YAML/Markdown output formatting and error handling.
package output

// Exit codes.
const (
	ExitOK       = 0 // Success
	ExitUsage    = 1 // Invalid arguments or flags
	ExitFindings = 2 // Report reached the --fail-on threshold
	ExitExport   = 3 // CSV export failed
	ExitInternal = 4 // Anything else
)

// Error codes for the JSON envelope.
const (
	CodeUsage    = "usage"
	CodeFindings = "findings"
	CodeExport   = "export_failed"
	CodeBusy     = "scan_in_progress"
	CodeInternal = "internal"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeFindings:
		return ExitFindings
	case CodeExport:
		return ExitExport
	default:
		return ExitInternal
	}
}
