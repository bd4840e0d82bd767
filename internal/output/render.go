package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"

	"github.com/arccheck/arccheck/internal/tui"
)

// Renderer draws envelopes and report tables for a terminal.
type Renderer struct {
	width  int
	styled bool

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Hint    lipgloss.Style

	// Severity styles, one per report severity.
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer using the resolved theme. Styling is on for
// a TTY or when forceStyled is set.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	return NewRendererWithTheme(w, forceStyled, tui.ResolveTheme())
}

// NewRendererWithTheme creates a renderer using theme.
func NewRendererWithTheme(w io.Writer, forceStyled bool, theme tui.Theme) *Renderer {
	width, isTTY := terminalInfo(w)
	r := &Renderer{width: width, styled: isTTY || forceStyled}

	// The color profile is global in lipgloss v1.
	if r.styled {
		lipgloss.SetColorProfile(termenv.TrueColor)
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// Dark variants only: piped output has no detectable background.
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		if !r.styled {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}

	r.Summary = fg(theme.Accent).Bold(r.styled)
	r.Muted = fg(theme.Muted)
	r.Data = fg(theme.Foreground)
	r.Hint = fg(theme.Muted).Italic(r.styled)
	r.OK = fg(theme.OK)
	r.Warning = fg(theme.Warning)
	r.Error = fg(theme.Error).Bold(r.styled)
	r.Header = fg(theme.Foreground).Bold(r.styled)
	r.Cell = fg(theme.Foreground)
	r.CellMuted = fg(theme.Muted)
	return r
}

// terminalInfo reports the writer's terminal width (120 when unknown or
// narrower than 40 columns) and whether it is a terminal at all.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 120
	f, ok := w.(*os.File)
	if !ok {
		return width, false
	}
	if cols, _, err := term.GetSize(f.Fd()); err == nil && cols >= 40 {
		width = cols
	}
	return width, term.IsTerminal(f.Fd())
}

// SeverityStyle returns the style for a severity name.
func (r *Renderer) SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "OK":
		return r.OK
	case "WARNING":
		return r.Warning
	case "ERROR":
		return r.Error
	}
	return r.Cell
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	r.renderData(&b, NormalizeData(resp.Data))

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		r.renderBreadcrumbs(&b, resp.Breadcrumbs)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")

	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		for _, item := range d {
			b.WriteString(r.Data.Render("• " + formatCell(item, cellWidth)))
			b.WriteString("\n")
		}

	case string:
		b.WriteString(r.Data.Render(d))
		b.WriteString("\n")

	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")

	default:
		b.WriteString(r.Data.Render(fmt.Sprintf("%v", data)))
		b.WriteString("\n")
	}
}

// Column priority for table rendering (lower = higher priority)
var columnPriority = map[string]int{
	"component":       1,
	"key":             1,
	"status":          2,
	"value":           2,
	"version_or_path": 3,
	"source":          3,
	"expiration":      4,
	"details":         5,
	"alert":           6,
	"severity":        7,
}

// Header labels that differ from the title-cased key.
var headerLabels = map[string]string{
	"version_or_path": "Version/Path",
	"expiration":      "Token Expiration",
	"alert":           "Alerts",
}

// Columns to render in muted style
var mutedColumns = map[string]bool{
	"version_or_path": true,
	"source":          true,
}

// cellWidth caps styled table cells; longer values are truncated.
const cellWidth = 60

type column struct {
	key      string
	header   string
	priority int
	muted    bool
	width    int
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	columns := detectColumns(data)
	if len(columns) == 0 {
		return
	}
	columns = r.selectColumns(columns, data)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col >= len(columns) {
				return r.Cell
			}
			if columns[col].key == "severity" && row >= 0 && row < len(data) {
				sev, _ := data[row]["severity"].(string)
				return r.SeverityStyle(sev)
			}
			if columns[col].muted {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.header
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatCell(item[col.key], cellWidth)
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

// detectColumns collects the scalar keys of all rows, ordered by priority
// and then name. Columns that are empty in every row are dropped.
func detectColumns(data []map[string]any) []column {
	seen := make(map[string]bool)
	var cols []column
	for _, row := range data {
		for key, val := range row {
			if seen[key] {
				continue
			}
			seen[key] = true
			switch val.(type) {
			case map[string]any, []map[string]any, []any:
				continue
			}
			if allEmpty(data, key) {
				continue
			}
			cols = append(cols, newColumn(key))
		}
	}

	sort.Slice(cols, func(i, j int) bool {
		if cols[i].priority != cols[j].priority {
			return cols[i].priority < cols[j].priority
		}
		return cols[i].key < cols[j].key
	})
	return cols
}

func newColumn(key string) column {
	priority := columnPriority[key]
	if priority == 0 {
		priority = 50
	}
	return column{
		key:      key,
		header:   formatHeader(key),
		priority: priority,
		muted:    mutedColumns[key],
	}
}

func allEmpty(data []map[string]any, key string) bool {
	for _, row := range data {
		if formatCell(row[key], 0) != "" {
			return false
		}
	}
	return true
}

// selectColumns drops the lowest-priority columns until the table fits the
// terminal, always keeping severity.
func (r *Renderer) selectColumns(cols []column, data []map[string]any) []column {
	for i := range cols {
		cols[i].width = lipgloss.Width(cols[i].header)
		for _, row := range data {
			if w := lipgloss.Width(formatCell(row[cols[i].key], cellWidth)); w > cols[i].width {
				cols[i].width = w
			}
		}
	}

	const padding = 2
	selected := make([]column, len(cols))
	copy(selected, cols)

	for len(selected) > 2 {
		total := 0
		for _, col := range selected {
			total += col.width + padding
		}
		if total <= r.width {
			break
		}
		drop := len(selected) - 1
		if selected[drop].key == "severity" && drop > 0 {
			drop--
		}
		selected = append(selected[:drop], selected[drop+1:]...)
	}
	return selected
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := objectKeys(data)
	if len(keys) == 0 {
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
		return
	}

	maxLen := 0
	for _, k := range keys {
		if l := len(formatHeader(k)); l > maxLen {
			maxLen = l
		}
	}

	for _, k := range keys {
		label := r.Muted.Render(fmt.Sprintf("%-*s: ", maxLen, formatHeader(k)))
		b.WriteString(label + r.Data.Render(formatCell(data[k], 0)) + "\n")
	}
}

// objectKeys returns the scalar keys of data in priority order.
func objectKeys(data map[string]any) []string {
	var keys []string
	for k, v := range data {
		switch v.(type) {
		case map[string]any, []map[string]any:
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := columnPriority[keys[i]], columnPriority[keys[j]]
		if pi == 0 {
			pi = 50
		}
		if pj == 0 {
			pj = 50
		}
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (r *Renderer) renderBreadcrumbs(b *strings.Builder, crumbs []Breadcrumb) {
	b.WriteString(r.Muted.Render("Next:"))
	b.WriteString("\n")
	for _, bc := range crumbs {
		cmd := r.Muted.Render("  " + bc.Cmd)
		if bc.Description != "" {
			cmd += r.Muted.Render("  # " + bc.Description)
		}
		b.WriteString(cmd + "\n")
	}
}

func formatHeader(key string) string {
	if label, ok := headerLabels[key]; ok {
		return label
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatCell renders a scalar. max > 0 truncates to that many runes.
func formatCell(val any, max int) string {
	var s string
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		s = v
	case bool:
		if v {
			s = "yes"
		} else {
			s = "no"
		}
	case float64:
		if v == float64(int64(v)) {
			s = fmt.Sprintf("%d", int64(v))
		} else {
			s = fmt.Sprintf("%.2f", v)
		}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, formatCell(item, 0))
		}
		s = strings.Join(items, ", ")
	default:
		s = fmt.Sprintf("%v", v)
	}

	if max > 3 {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max-3]) + "..."
		}
	}
	return s
}

// MarkdownRenderer outputs literal Markdown syntax (portable, pipeable).
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a renderer for literal Markdown output.
func NewMarkdownRenderer(w io.Writer) *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderResponse renders a success response as literal Markdown.
func (r *MarkdownRenderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString("## " + resp.Summary + "\n\n")
	}

	r.renderData(&b, NormalizeData(resp.Data))

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n### Next\n\n")
		for _, bc := range resp.Breadcrumbs {
			line := "- `" + bc.Cmd + "`"
			if bc.Description != "" {
				line += ": " + bc.Description
			}
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response as literal Markdown.
func (r *MarkdownRenderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString("**Error:** " + resp.Error + "\n")
	if resp.Hint != "" {
		b.WriteString("\n*Hint: " + resp.Hint + "*\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *MarkdownRenderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString("*No results*\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		keys := objectKeys(d)
		if len(keys) == 0 {
			b.WriteString("*No data*\n")
			return
		}
		for _, k := range keys {
			b.WriteString("- **" + formatHeader(k) + ":** " + formatCell(d[k], 0) + "\n")
		}

	case []any:
		if len(d) == 0 {
			b.WriteString("*No results*\n")
			return
		}
		for _, item := range d {
			b.WriteString("- " + formatCell(item, 0) + "\n")
		}

	case string:
		b.WriteString(d + "\n")

	case nil:
		b.WriteString("*No data*\n")

	default:
		fmt.Fprintf(b, "%v\n", data)
	}
}

func (r *MarkdownRenderer) renderTable(b *strings.Builder, data []map[string]any) {
	cols := detectColumns(data)
	if len(cols) == 0 {
		return
	}

	headers := make([]string, 0, len(cols))
	seps := make([]string, 0, len(cols))
	for _, col := range cols {
		headers = append(headers, col.header)
		seps = append(seps, "---")
	}
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, item := range data {
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			cell := formatCell(item[col.key], 0)
			cell = strings.ReplaceAll(cell, "|", "\\|")
			cells = append(cells, cell)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}
