package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// Style selects how a Printer renders errors.
type Style string

const (
	// StyleText is the multi-line terminal report with source context.
	StyleText Style = "text"

	// StyleCompact is one "file:line: CODE: message" line, for editors and
	// log scrapers.
	StyleCompact Style = "compact"

	// StyleJSON is one JSON object per error.
	StyleJSON Style = "json"
)

// ParseStyle accepts "text", "compact" or "json". The empty string is text.
func ParseStyle(name string) (Style, error) {
	switch s := Style(strings.ToLower(strings.TrimSpace(name))); s {
	case "", StyleText:
		return StyleText, nil
	case StyleCompact, StyleJSON:
		return s, nil
	}
	return "", Newf(CategoryCLI, "unknown error format %q", name).
		WithSuggestion("Use one of: text, compact, json")
}

// Printer writes errors in one style.
type Printer struct {
	Style Style

	// Color enables ANSI escapes in StyleText.
	Color bool
}

// Print writes err to w. Errors that are not ToolErrors are rendered with
// their message only.
func (p Printer) Print(w io.Writer, err error) {
	var te *ToolError
	if !stderrors.As(err, &te) {
		te = &ToolError{Message: err.Error()}
	}
	switch p.Style {
	case StyleCompact:
		fmt.Fprintln(w, te.FormatCompact())
	case StyleJSON:
		fmt.Fprintln(w, te.FormatJSON())
	default:
		fmt.Fprint(w, te.render(palette(p.Color)))
	}
}

// palette applies ANSI styles when enabled.
type palette bool

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[1;31m"
	ansiCyan  = "\033[36m"
	ansiDim   = "\033[90m"
	ansiBold  = "\033[1m"
)

func (p palette) paint(code, text string) string {
	if !p {
		return text
	}
	return code + text + ansiReset
}

// Format returns the text report without colors.
func (e *ToolError) Format() string {
	return e.render(palette(false))
}

func (e *ToolError) render(p palette) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(p.paint(ansiRed, "ERROR"))
	if e.Code != "" {
		b.WriteString(" " + p.paint(ansiBold, e.Code))
	}
	b.WriteString(": " + e.Message + "\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", p.paint(ansiCyan, e.Location.String()))
		if len(e.Context) > 0 {
			e.renderSource(&b, p)
			b.WriteString("\n")
		}
	}

	if detail := e.detail(); detail != "" {
		for _, line := range wrapText(detail, 70) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", p.paint(ansiCyan, "Hint: "), e.Suggestion)
	}
	return b.String()
}

// renderSource writes the context lines with a gutter, marking the error
// line with an arrow and the column with a caret.
func (e *ToolError) renderSource(b *strings.Builder, p palette) {
	first := e.Location.Line - len(e.Context)/2
	bar := p.paint(ansiDim, " │ ")
	for i, line := range e.Context {
		n := first + i
		marker := "  "
		if n == e.Location.Line {
			marker = p.paint(ansiRed, "→ ")
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", marker, n, bar, line)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "        %s%s%s\n", p.paint(ansiDim, "│ "),
				strings.Repeat(" ", e.Location.Column-1), p.paint(ansiRed, "^"))
		}
	}
}

// detail joins Detail and the wrapped cause.
func (e *ToolError) detail() string {
	switch {
	case e.Wrapped == nil:
		return e.Detail
	case e.Detail == "":
		return e.Wrapped.Error()
	}
	return e.Detail + ": " + e.Wrapped.Error()
}

// FormatCompact returns "file:line:col: CODE: message: detail" with the
// missing parts left out.
func (e *ToolError) FormatCompact() string {
	parts := make([]string, 0, 4)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	if detail := e.detail(); detail != "" {
		parts = append(parts, detail)
	}
	return strings.Join(parts, ": ")
}

type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// MarshalJSON encodes the error without its source context.
func (e *ToolError) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.detail(),
		Location:   e.Location,
		Suggestion: e.Suggestion,
	})
}

// FormatJSON returns the error as a single-line JSON object.
func (e *ToolError) FormatJSON() string {
	// Every field is a string or int, so Marshal cannot fail.
	data, _ := json.Marshal(e)
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking at
// spaces. A single longer word gets its own line.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		if line != "" && len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = ""
		}
		if line != "" {
			line += " "
		}
		line += word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
