package sable

import (
	"github.com/sablelang/sable/internal/diagnostics"
)

// Report describes the outcome of resolving one call.
type Report struct {
	// Call is the call as rendered source text.
	Call string
	// Type is the printed result type of the call.
	Type string
	// Issues lists the diagnostics the call produced, worst first as the
	// dispatcher emitted them.
	Issues []Issue
}

// OK reports whether the call produced no issues at all.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Issue is one diagnostic flattened to plain values, so embedders never
// touch checker internals.
type Issue struct {
	// Code is the stable diagnostic code, for example "D002".
	Code string
	// Severity is "error", "warning", or "info".
	Severity string
	// File names the virtual source file the issue points into; Begin and
	// End are byte offsets within it.
	File  string
	Begin int
	End   int
	// Message is the headline.
	Message string
	// Notes carries the explanatory lines below the headline: section
	// headers and located details, already formatted.
	Notes []string
	// Fixes lists machine-applicable corrections.
	Fixes []Fix
}

// Fix is one suggested correction.
type Fix struct {
	Title string
	Edits []Edit
}

// Edit replaces the bytes [Begin, End) of File with Text. A zero-width
// span is an insertion; empty Text is a deletion.
type Edit struct {
	File  string
	Begin int
	End   int
	Text  string
}

func marshalIssues(ds []diagnostics.Diagnostic) []Issue {
	if len(ds) == 0 {
		return nil
	}
	issues := make([]Issue, 0, len(ds))
	for _, d := range ds {
		issues = append(issues, marshalIssue(d))
	}
	return issues
}

func marshalIssue(d diagnostics.Diagnostic) Issue {
	issue := Issue{
		Code:     string(d.Code),
		Severity: d.Severity.String(),
		File:     d.Loc.File,
		Begin:    int(d.Loc.Span.Begin),
		End:      int(d.Loc.Span.End),
		Message:  d.Header,
	}
	for _, s := range d.Sections {
		if s.Header != "" {
			issue.Notes = append(issue.Notes, s.Header)
		}
		for _, dt := range s.Details {
			switch {
			case dt.Loc.Exists() && dt.Message != "":
				issue.Notes = append(issue.Notes, dt.Loc.String()+": "+dt.Message)
			case dt.Loc.Exists():
				issue.Notes = append(issue.Notes, dt.Loc.String())
			default:
				issue.Notes = append(issue.Notes, dt.Message)
			}
		}
	}
	for _, a := range d.Autocorrects {
		fix := Fix{Title: a.Title}
		for _, e := range a.Edits {
			fix.Edits = append(fix.Edits, Edit{
				File:  e.Loc.File,
				Begin: int(e.Loc.Span.Begin),
				End:   int(e.Loc.Span.End),
				Text:  e.Replace,
			})
		}
		issue.Fixes = append(issue.Fixes, fix)
	}
	return issue
}
