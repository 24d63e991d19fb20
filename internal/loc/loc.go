package loc

import "fmt"

// Span is a half-open byte range [Begin, End) within a single file.
// The zero Span means "no location".
type Span struct {
	Begin uint32
	End   uint32
}

func NewSpan(begin, end uint32) Span {
	if end < begin {
		end = begin
	}
	return Span{Begin: begin, End: end}
}

func (s Span) Exists() bool {
	return !(s.Begin == 0 && s.End == 0)
}

func (s Span) Len() uint32 {
	return s.End - s.Begin
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return s.Begin <= other.Begin && other.End <= s.End
}

// Join produces the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	if !s.Exists() {
		return other
	}
	if !other.Exists() {
		return s
	}
	b, e := s.Begin, s.End
	if other.Begin < b {
		b = other.Begin
	}
	if other.End > e {
		e = other.End
	}
	return Span{Begin: b, End: e}
}

// Loc pins a span to a file.
type Loc struct {
	File string
	Span Span
}

func New(file string, begin, end uint32) Loc {
	return Loc{File: file, Span: NewSpan(begin, end)}
}

// None is the absent location.
var None = Loc{}

func (l Loc) Exists() bool {
	return l.File != "" || l.Span.Exists()
}

func (l Loc) String() string {
	if !l.Exists() {
		return "<none>"
	}
	return fmt.Sprintf("%s:%d-%d", l.File, l.Span.Begin, l.Span.End)
}

// SourceProvider resolves the program text behind a location. The dispatch
// core asks only when composing autocorrect edits; implementations returning
// ok=false simply make those edits less precise, never incorrect.
type SourceProvider interface {
	SourceAt(l Loc) (string, bool)
}

// MapSource is a SourceProvider backed by in-memory file contents, used by
// the loader and by tests.
type MapSource map[string]string

func (m MapSource) SourceAt(l Loc) (string, bool) {
	text, ok := m[l.File]
	if !ok {
		return "", false
	}
	if int(l.Span.End) > len(text) || l.Span.Begin > l.Span.End {
		return "", false
	}
	return text[l.Span.Begin:l.Span.End], true
}

// NoSource is the provider used when no program text is registered.
var NoSource SourceProvider = noSource{}

type noSource struct{}

func (noSource) SourceAt(Loc) (string, bool) { return "", false }
