// Package extensions lists the agent extensions installed under the plugins
// directory.
package extensions

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/report"
)

// DefaultPattern matches the directory names of Azure extensions.
const DefaultPattern = "Microsoft.Azure.*"

const statusGlob = "status/*.status"

// foldCase makes pattern matching case-insensitive, as directory lookups are
// on Windows.
var foldCase = runtime.GOOS == "windows"

// Enumerator walks one level of Root.
type Enumerator struct {
	Root string
	// Pattern defaults to DefaultPattern.
	Pattern string
	Logger  *zap.Logger
}

// EnumerateExtensions returns one row per matching extension directory, in
// lexical order. When there is none, or Root is missing, it returns a single
// warning row instead.
func (e *Enumerator) EnumerateExtensions() report.Report {
	log := e.logger()

	// os.ReadDir returns entries sorted by name.
	entries, err := os.ReadDir(e.Root)
	if err != nil {
		log.Debug("reading plugins directory failed", zap.String("root", e.Root), zap.Error(err))
		return report.Report{noneFound()}
	}

	pattern := e.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}

	var rows report.Report
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == "." || name == ".." {
			continue
		}
		matched, err := matchName(pattern, name)
		if err != nil {
			log.Warn("invalid extension pattern", zap.String("pattern", pattern), zap.Error(err))
			return report.Report{noneFound()}
		}
		if !matched {
			continue
		}

		row := report.ComponentStatus{
			Component: "Extension",
			Status:    "installed",
			Details:   name,
			Severity:  report.SeverityOK,
		}
		if hasStatusFile(filepath.Join(e.Root, name)) {
			row.VersionOrPath = "status present"
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return report.Report{noneFound()}
	}
	return rows
}

func matchName(pattern, name string) (bool, error) {
	if foldCase {
		return filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
	}
	return filepath.Match(pattern, name)
}

func hasStatusFile(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(statusGlob)))
	return err == nil && len(matches) > 0
}

func noneFound() report.ComponentStatus {
	return report.ComponentStatus{
		Component: "Azure Extensions",
		Status:    "none found",
		Alert:     "plugins folder empty or missing",
		Severity:  report.SeverityWarning,
	}
}

func (e *Enumerator) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}
