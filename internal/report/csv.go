package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVHeader is the first line of every export.
const CSVHeader = "Component,Status,Version/Path,TokenExpiration,Details,Alerts"

// WriteCSV writes the report as UTF-8 with a leading byte-order mark. Every
// field is enclosed in double quotes with embedded quotes doubled.
func WriteCSV(w io.Writer, r Report) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	bw := bufio.NewWriter(tw)

	if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
		return err
	}
	for _, row := range r {
		fields := []string{
			row.Component,
			row.Status,
			row.VersionOrPath,
			row.Expiration,
			row.Details,
			row.Alert,
		}
		for i, f := range fields {
			fields[i] = quoteField(f)
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return tw.Close()
}

// ExportCSV creates (or truncates) path and writes the report to it.
func ExportCSV(path string, r Report) error {
	f, err := os.Create(path) //nolint:gosec // G304: user-chosen export path
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
