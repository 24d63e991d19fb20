package prettyprinter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
)

// Printer renders diagnostics as plain text, one block per diagnostic.
// Color is decided by the caller; the printer itself never sniffs the
// terminal.
type Printer struct {
	src   loc.SourceProvider
	color bool
}

func New(src loc.SourceProvider, color bool) *Printer {
	if src == nil {
		src = loc.NoSource
	}
	return &Printer{src: src, color: color}
}

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
	ansiCyan   = "\x1b[36m"
)

func (p *Printer) paint(code, s string) string {
	if !p.color || s == "" {
		return s
	}
	return code + s + ansiReset
}

func (p *Printer) severity(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return p.paint(ansiBold+ansiRed, s.String())
	case diagnostics.SeverityWarning:
		return p.paint(ansiBold+ansiYellow, s.String())
	default:
		return p.paint(ansiBold+ansiCyan, s.String())
	}
}

// Print renders the batch in location order, collapsing diagnostics that
// share a dedup key, and reports how many it wrote. Write errors are not
// tracked; the writer is expected to be a terminal or a buffer.
func (p *Printer) Print(w io.Writer, ds []diagnostics.Diagnostic) int {
	ordered := make([]diagnostics.Diagnostic, len(ds))
	copy(ordered, ds)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Loc.File != b.Loc.File {
			return a.Loc.File < b.Loc.File
		}
		if a.Loc.Span.Begin != b.Loc.Span.Begin {
			return a.Loc.Span.Begin < b.Loc.Span.Begin
		}
		return a.Code < b.Code
	})

	seen := make(map[string]bool, len(ordered))
	n := 0
	for _, d := range ordered {
		key := d.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		if n > 0 {
			fmt.Fprintln(w)
		}
		io.WriteString(w, p.Render(d))
		n++
	}
	return n
}

// Render produces the text block for a single diagnostic.
func (p *Printer) Render(d diagnostics.Diagnostic) string {
	var b strings.Builder

	if d.Loc.Exists() {
		b.WriteString(d.Loc.String())
		b.WriteString(": ")
	}
	b.WriteString(p.severity(d.Severity))
	b.WriteString(": ")
	b.WriteString(p.paint(ansiBold, d.Header))
	fmt.Fprintf(&b, " %s\n", p.paint(ansiDim, fmt.Sprintf("[%s]", d.Code)))

	if text, ok := p.src.SourceAt(d.Loc); ok && text != "" {
		writeIndented(&b, "    ", text)
	}

	for _, s := range d.Sections {
		if s.Header != "" {
			fmt.Fprintf(&b, "  %s\n", s.Header)
		}
		for _, dt := range s.Details {
			p.renderDetail(&b, dt)
		}
	}

	for _, a := range d.Autocorrects {
		fmt.Fprintf(&b, "  %s %s\n", p.paint(ansiGreen, "Autocorrect:"), a.Title)
		for _, e := range a.Edits {
			p.renderEdit(&b, e)
		}
	}
	return b.String()
}

func (p *Printer) renderDetail(b *strings.Builder, dt diagnostics.Detail) {
	switch {
	case dt.Loc.Exists() && dt.Message != "":
		fmt.Fprintf(b, "    %s: %s\n", dt.Loc, dt.Message)
	case dt.Loc.Exists():
		if text, ok := p.src.SourceAt(dt.Loc); ok && text != "" {
			fmt.Fprintf(b, "    %s: %s\n", dt.Loc, firstLine(text))
		} else {
			fmt.Fprintf(b, "    %s\n", dt.Loc)
		}
	default:
		fmt.Fprintf(b, "    %s\n", dt.Message)
	}
}

func (p *Printer) renderEdit(b *strings.Builder, e diagnostics.Edit) {
	old, _ := p.src.SourceAt(e.Loc)
	switch {
	case e.Loc.Span.Len() == 0:
		fmt.Fprintf(b, "    %s: insert `%s`\n", e.Loc, e.Replace)
	case e.Replace == "":
		fmt.Fprintf(b, "    %s: delete `%s`\n", e.Loc, firstLine(old))
	default:
		fmt.Fprintf(b, "    %s: replace `%s` with `%s`\n", e.Loc, firstLine(old), e.Replace)
	}
}

func writeIndented(b *strings.Builder, indent, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
