package dispatch

import (
	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// TypeAndOrigins pairs a type with the source locations that produced it.
// Origins feed the "originating from" sections of mismatch diagnostics, so
// callers should record where a value was assigned, returned, or widened.
type TypeAndOrigins struct {
	Type    typesystem.Type
	Origins []loc.Loc
}

func NewTypeAndOrigins(t typesystem.Type, origins ...loc.Loc) *TypeAndOrigins {
	return &TypeAndOrigins{Type: t, Origins: origins}
}

// OriginDetails renders the existing origins as diagnostic lines.
func (t *TypeAndOrigins) OriginDetails() []diagnostics.Detail {
	var details []diagnostics.Detail
	for _, o := range t.Origins {
		if o.Exists() {
			details = append(details, diagnostics.Detail{Loc: o})
		}
	}
	return details
}

// ExplainGot builds the "Got `T` originating from:" section for t.
func (t *TypeAndOrigins) ExplainGot(res typesystem.Resolver) diagnostics.Section {
	return diagnostics.Section{
		Header:  "Got `" + typesystem.Show(res, t.Type) + "` originating from:",
		Details: t.OriginDetails(),
	}
}

// explainExpected builds the "Expected `T` for <what>:" section pointing at
// the declaration that imposed the expectation.
func explainExpected(res typesystem.Resolver, expected typesystem.Type, declLoc loc.Loc, what string) diagnostics.Section {
	return diagnostics.Section{
		Header:  "Expected `" + typesystem.Show(res, expected) + "` for " + what + ":",
		Details: []diagnostics.Detail{{Loc: declLoc}},
	}
}

// CallLocs is the source geometry of one call site. All spans are positions
// in File. A span may be absent: synthesized sends have no receiver text,
// and zero-arity calls have no argument spans.
type CallLocs struct {
	File string
	// Call covers the whole send, receiver through closing paren.
	Call loc.Span
	// Recv covers the receiver expression. A present but zero-length span
	// marks a receiver that exists only implicitly, as in a `(&:sym)`
	// block pass expansion.
	Recv loc.Span
	// Fun covers the method name.
	Fun loc.Span
	// Args holds one span per argument expression, aligned with
	// DispatchArgs.Args.
	Args []loc.Span
}

func (l CallLocs) CallLoc() loc.Loc { return loc.Loc{File: l.File, Span: l.Call} }
func (l CallLocs) RecvLoc() loc.Loc { return loc.Loc{File: l.File, Span: l.Recv} }
func (l CallLocs) FunLoc() loc.Loc  { return loc.Loc{File: l.File, Span: l.Fun} }

// ArgLoc returns the i-th argument's location, falling back to the whole
// call when the span was not recorded.
func (l CallLocs) ArgLoc(i int) loc.Loc {
	if i < 0 || i >= len(l.Args) {
		return l.CallLoc()
	}
	return loc.Loc{File: l.File, Span: l.Args[i]}
}

// ArgsJoin returns the location spanning arguments [from, to]. Used for the
// keyword region of a call, which has no single argument span.
func (l CallLocs) ArgsJoin(from, to int) loc.Loc {
	if from < 0 || to >= len(l.Args) || from > to {
		return l.CallLoc()
	}
	span := l.Args[from]
	for i := from + 1; i <= to; i++ {
		span = span.Join(l.Args[i])
	}
	return loc.Loc{File: l.File, Span: span}
}

// BlockInfo marks a literal block at the call site.
type BlockInfo struct {
	// Arity is the number of positional parameters the block declares, or
	// -1 when the parameter list cannot be counted statically (a splat
	// parameter, say).
	Arity int
	Loc   loc.Loc
}

// FixedArity returns the declared parameter count when it is static.
func (b *BlockInfo) FixedArity() (int, bool) {
	if b == nil || b.Arity < 0 {
		return 0, false
	}
	return b.Arity, true
}

// DispatchArgs describes one call to resolve.
//
// Args lists positional arguments first. The entries from NumPosArgs on are
// the keyword region: alternating symbol-literal keys and values, with an
// optional trailing double-splat argument making the region's length odd.
//
// ThisType is the receiver component this dispatch runs against; FullType
// is the receiver as written, which differs from ThisType while a union or
// intersection is being decomposed. Diagnostics compare the two to decide
// whether to name a component.
type DispatchArgs struct {
	Name       string
	Locs       CallLocs
	Args       []*TypeAndOrigins
	NumPosArgs int
	ThisType   typesystem.Type
	FullType   *TypeAndOrigins
	Block      *BlockInfo

	// Suppress switches off diagnostic construction. Combinators probe
	// intersection components with it set, then re-dispatch the surviving
	// side for real.
	Suppress bool
}

// withThisType narrows the dispatch to one component of a compound
// receiver.
func (a DispatchArgs) withThisType(t typesystem.Type) DispatchArgs {
	a.ThisType = t
	return a
}

func (a DispatchArgs) withSuppressed() DispatchArgs {
	a.Suppress = true
	return a
}
