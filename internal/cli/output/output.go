// Package output renders command results for terminals, pipelines, and
// machine consumers. The auto mode picks styled text on a TTY and markdown
// otherwise, so piped output stays readable without flags.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ParseMode normalizes a mode string, falling back to auto.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeText:
		return ModeText
	case ModeMarkdown:
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes formatted output in a chosen mode.
type Renderer struct {
	out  io.Writer
	errW io.Writer
	mode Mode
}

// NewRenderer creates a renderer writing results to out and diagnostics
// to errW.
func NewRenderer(out, errW io.Writer, mode Mode) *Renderer {
	return &Renderer{out: out, errW: errW, mode: mode}
}

// Writer returns the result stream.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// IsTTY reports whether the result stream is a terminal.
func (r *Renderer) IsTTY() bool {
	f, ok := r.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto into text or markdown based on the stream.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.IsTTY() {
		return ModeText
	}
	return ModeMarkdown
}

// Println writes a line to the result stream.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted text to the result stream.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section header at the given level.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(text)
	if level == 1 {
		r.Println(strings.Repeat("=", len(text)))
	}
}

// Success writes a completion line.
func (r *Renderer) Success(text string) {
	r.Println("✓ " + text)
}

// Warning writes a warning line to the diagnostic stream.
func (r *Renderer) Warning(text string) {
	_, _ = fmt.Fprintln(r.errW, "warning: "+text)
}

// JSON writes v as indented JSON to the result stream.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a header row and body rows, styled for the effective mode.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	h := make(table.Row, len(header))
	for i, col := range header {
		h[i] = col
	}
	t.AppendHeader(h)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.Style().Format.Header = text.FormatDefault
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// rendererKey stores the renderer in the command context.
type rendererKey struct{}

// RendererKey returns the context key used for storing the renderer.
func RendererKey() interface{} {
	return rendererKey{}
}

// FromContext retrieves the renderer from the command context, falling back
// to an auto-mode renderer on the standard streams.
func FromContext(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	return NewRenderer(os.Stdout, os.Stderr, ModeAuto)
}

// FormatHeader formats a markdown header.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue formats a markdown definition line.
func FormatKeyValue(key, value string) string {
	return "- **" + key + "**: " + value
}
