package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"gopkg.in/yaml.v3"
)

// Response is the success envelope. Data is usually a report.Report or a
// map describing what a command did.
type Response struct {
	OK          bool           `json:"ok" yaml:"ok"`
	Data        any            `json:"data,omitempty" yaml:"data,omitempty"`
	Summary     string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Breadcrumbs []Breadcrumb   `json:"breadcrumbs,omitempty" yaml:"breadcrumbs,omitempty"`
	Context     map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	Meta        map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Breadcrumb suggests a follow-up command, such as re-running a check after
// fixing a finding.
type Breadcrumb struct {
	Action      string `json:"action" yaml:"action"`
	Cmd         string `json:"cmd" yaml:"cmd"`
	Description string `json:"description" yaml:"description"`
}

// ErrorResponse is the error envelope for JSON output.
type ErrorResponse struct {
	OK    bool   `json:"ok" yaml:"ok"`
	Error string `json:"error" yaml:"error"`
	Code  string `json:"code" yaml:"code"`
	Hint  string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatAuto Format = iota // styled on a terminal, JSON otherwise
	FormatJSON
	FormatYAML
	FormatMarkdown
	FormatStyled
	FormatQuiet // data only, as JSON
)

// ParseFormat maps a config value to a Format. Unknown values yield FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "markdown", "md":
		return FormatMarkdown
	case "styled":
		return FormatStyled
	case "quiet":
		return FormatQuiet
	default:
		return FormatAuto
	}
}

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
	// JQ, when set, filters successful responses through a jq expression and
	// prints each result as JSON.
	JQ string
}

// Writer handles all output formatting.
type Writer struct {
	opts Options
}

// New creates a new output writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// EffectiveFormat resolves FormatAuto against the destination.
func (w *Writer) EffectiveFormat() Format {
	if w.opts.JQ != "" {
		return FormatJSON
	}
	if w.opts.Format == FormatAuto {
		if isTTY(w.opts.Writer) {
			return FormatStyled
		}
		return FormatJSON
	}
	return w.opts.Format
}

// Out returns the destination writer.
func (w *Writer) Out() io.Writer {
	return w.opts.Writer
}

// OK outputs a success response.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}
	if w.opts.JQ != "" {
		var input any = resp
		if w.opts.Format == FormatQuiet {
			input = resp.Data
		}
		return w.writeJQ(input)
	}
	return w.write(resp)
}

// Err outputs an error response.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	resp := &ErrorResponse{
		OK:    false,
		Error: e.Message,
		Code:  e.Code,
		Hint:  e.Hint,
	}
	return w.write(resp)
}

func (w *Writer) write(v any) error {
	switch w.EffectiveFormat() {
	case FormatQuiet:
		if resp, ok := v.(*Response); ok {
			v = resp.Data
		}
	case FormatYAML:
		return w.writeYAML(v)
	case FormatMarkdown:
		return w.writeRendered(NewMarkdownRenderer(w.opts.Writer), v)
	case FormatStyled:
		return w.writeRendered(NewRenderer(w.opts.Writer, true), v)
	}
	return w.writeJSON(v)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through the JSON form so that field names and value
// encodings match the JSON output.
func (w *Writer) writeYAML(v any) error {
	enc := yaml.NewEncoder(w.opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(NormalizeData(v)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// NormalizeData round-trips data through JSON so renderers see generic values.
// A list whose elements are all objects becomes []map[string]any, which is
// how report rows reach the table renderer.
func NormalizeData(data any) any {
	if raw, ok := data.(json.RawMessage); ok {
		var unmarshaled any
		if err := json.Unmarshal(raw, &unmarshaled); err == nil {
			return normalizeUnmarshaled(unmarshaled)
		}
		return data
	}

	switch data.(type) {
	case []map[string]any, map[string]any, []any, string, nil:
		return data
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return data
		}
		var unmarshaled any
		if err := json.Unmarshal(b, &unmarshaled); err != nil {
			return data
		}
		return normalizeUnmarshaled(unmarshaled)
	}
}

func normalizeUnmarshaled(v any) any {
	switch d := v.(type) {
	case []any:
		if len(d) == 0 {
			return []map[string]any{}
		}
		maps := make([]map[string]any, 0, len(d))
		for _, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				return v
			}
			maps = append(maps, m)
		}
		return maps
	default:
		return v
	}
}

// envelopeRenderer is implemented by the styled and markdown renderers.
type envelopeRenderer interface {
	RenderResponse(io.Writer, *Response) error
	RenderError(io.Writer, *ErrorResponse) error
}

// writeRendered hands envelopes to r and anything else to the JSON encoder.
func (w *Writer) writeRendered(r envelopeRenderer, v any) error {
	switch resp := v.(type) {
	case *Response:
		return r.RenderResponse(w.opts.Writer, resp)
	case *ErrorResponse:
		return r.RenderError(w.opts.Writer, resp)
	}
	return w.writeJSON(v)
}

// ResponseOption modifies a Response.
type ResponseOption func(*Response)

// WithSummary adds a summary to the response.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithBreadcrumbs adds breadcrumbs to the response.
func WithBreadcrumbs(b ...Breadcrumb) ResponseOption {
	return func(r *Response) { r.Breadcrumbs = append(r.Breadcrumbs, b...) }
}

// WithContext adds context to the response.
func WithContext(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Context == nil {
			r.Context = make(map[string]any)
		}
		r.Context[key] = value
	}
}

// WithMeta adds metadata to the response.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}
