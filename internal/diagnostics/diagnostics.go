// Package diagnostics defines the structured problems the dispatch core
// reports. Everything here is data: headers, explanatory sections, and
// autocorrect edits. Rendering lives in prettyprinter, and the decision to
// surface a diagnostic belongs to the caller that drains the dispatch
// result.
package diagnostics

import (
	"fmt"

	"github.com/sablelang/sable/internal/loc"
)

type Code string

const (
	CodeUnknownMethod           Code = "D001"
	CodeNotEnoughArguments      Code = "D002"
	CodeTooManyArguments        Code = "D003"
	CodeMissingKeywordArgument  Code = "D004"
	CodeUnrecognizedKeyword     Code = "D005"
	CodeUntypedKeywordHash      Code = "D006"
	CodeArgumentMismatch        Code = "D007"
	CodeGenericInstantiation    Code = "D008"
	CodeGenericArgumentMismatch Code = "D009"
	CodeBareTypeUsage           Code = "D010"
	CodeLiteralTypePosition     Code = "D011"
	CodeDoesNotTakeBlock        Code = "D012"
	CodeRequiresBlock           Code = "D013"
	CodeLegacyKeywordHash       Code = "D014"
	CodeRevealedType            Code = "D015"
	CodeUnknownProcArity        Code = "D016"
	CodeStaticSplatSize         Code = "D017"
	CodeRedundantCast           Code = "D018"
	CodeTypeAsValue             Code = "D019"
	CodeGenericBlockArgument    Code = "D020"
)

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "unknown"
}

// defaultSeverity maps codes that are not plain errors.
var defaultSeverity = map[Code]Severity{
	CodeLegacyKeywordHash: SeverityWarning,
	CodeRevealedType:      SeverityInfo,
}

// Detail is one explanatory line, optionally tied to a location.
type Detail struct {
	Loc     loc.Loc
	Message string
}

// Section groups details under a header such as
// "Got Integer originating from:".
type Section struct {
	Header  string
	Details []Detail
}

// Edit replaces the text at a location. An insertion is an edit whose span
// is empty.
type Edit struct {
	Loc     loc.Loc
	Replace string
}

// Autocorrect is one named fix consisting of zero or more edits. A fix
// without edits is a suggestion the renderer shows but cannot apply.
type Autocorrect struct {
	Title string
	Edits []Edit
}

// Diagnostic is the record of one problem found during dispatch.
type Diagnostic struct {
	Code         Code
	Severity     Severity
	Loc          loc.Loc
	Header       string
	Sections     []Section
	Autocorrects []Autocorrect
}

// DedupKey collapses repeated reports of the same code at the same place,
// the convention the rendering layer deduplicates by.
func (d *Diagnostic) DedupKey() string {
	return fmt.Sprintf("%s:%d:%s", d.Loc.File, d.Loc.Span.Begin, d.Code)
}

// Builder accumulates one diagnostic. Dispatch hands out a nil *Builder
// when errors are suppressed; call sites test for nil before building, the
// same shape as the original's begin-error-or-skip idiom.
type Builder struct {
	d Diagnostic
}

func NewBuilder(l loc.Loc, code Code) *Builder {
	sev := SeverityError
	if s, ok := defaultSeverity[code]; ok {
		sev = s
	}
	return &Builder{d: Diagnostic{Code: code, Severity: sev, Loc: l}}
}

func (b *Builder) Headerf(format string, args ...any) *Builder {
	b.d.Header = fmt.Sprintf(format, args...)
	return b
}

// Section attaches an explanation block.
func (b *Builder) Section(header string, details ...Detail) *Builder {
	b.d.Sections = append(b.d.Sections, Section{Header: header, Details: details})
	return b
}

// AddSection attaches an already assembled section.
func (b *Builder) AddSection(s Section) *Builder {
	b.d.Sections = append(b.d.Sections, s)
	return b
}

// Notef attaches a single-line note section.
func (b *Builder) Notef(format string, args ...any) *Builder {
	b.d.Sections = append(b.d.Sections, Section{Header: fmt.Sprintf(format, args...)})
	return b
}

// Linef attaches one located line in its own unheaded section, the shape
// used for "`foo` defined here" trailers.
func (b *Builder) Linef(l loc.Loc, format string, args ...any) *Builder {
	b.d.Sections = append(b.d.Sections, Section{
		Details: []Detail{{Loc: l, Message: fmt.Sprintf(format, args...)}},
	})
	return b
}

// Autocorrect attaches a fix. Fixes with no edits are allowed; they carry
// the suggestion even when no source text was available to edit.
func (b *Builder) Autocorrect(title string, edits ...Edit) *Builder {
	b.d.Autocorrects = append(b.d.Autocorrects, Autocorrect{Title: title, Edits: edits})
	return b
}

func (b *Builder) Build() Diagnostic {
	return b.d
}

// NewError is the one-shot form for diagnostics that need no sections.
func NewError(code Code, l loc.Loc, format string, args ...any) Diagnostic {
	return NewBuilder(l, code).Headerf(format, args...).Build()
}
