package dispatch

import (
	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/typesystem"
)

// LinkKind tags how a result's Secondary relates to it, mirroring the
// union or intersection structure of the receiver.
type LinkKind uint8

const (
	LinkNone LinkKind = iota
	LinkOr
	LinkAnd
)

// DispatchComponent is the outcome of resolving a call against one atomic
// receiver component.
type DispatchComponent struct {
	// Receiver is the component the method was looked up on.
	Receiver typesystem.Type
	// Method is the resolved target. It stays NoMethod on paths that have
	// no symbol to point at, such as untyped receivers.
	Method typesystem.MethodRef
	// MethodMissing records that no method symbol was resolved. That
	// covers failed lookups and also the symbol-less paths: untyped
	// receivers, super sends, and absent constructors. The intersection
	// combinator keys off this flag when choosing a side.
	MethodMissing bool
	// Constr carries the generic inference state for this component. It
	// is unsolved while a block's type is still unknown.
	Constr *typesystem.Constraint
	// BlockPreType is what the method declares for its block parameter,
	// as seen from the call site; BlockReturnType is what the block body
	// must produce. Both are nil when no block is involved.
	BlockPreType    typesystem.Type
	BlockReturnType typesystem.Type
	// SendType is the send's result before the block's constraint is
	// solved, recorded only when a block is present.
	SendType typesystem.Type
	// Diags queues every problem this component found. Nothing is
	// reported eagerly; the caller drains the result exactly once, which
	// lets combinators probe and discard failed alternatives.
	Diags []diagnostics.Diagnostic
}

// record appends a built diagnostic. A nil builder means suppression.
func (c *DispatchComponent) record(b *diagnostics.Builder) {
	if b != nil {
		c.Diags = append(c.Diags, b.Build())
	}
}

// absorb moves every diagnostic queued on r's chain into c. Intrinsics
// that re-dispatch use it so inner problems surface on the outer call.
func (c *DispatchComponent) absorb(r *DispatchResult) {
	for cur := r; cur != nil; cur = cur.Secondary {
		c.Diags = append(c.Diags, cur.Main.Diags...)
		cur.Main.Diags = nil
	}
}

// adoptMain replaces r's main component with the inner dispatch's main,
// keeping diagnostics from both: the inner chain's first, then whatever r
// had already queued. Intrinsics that re-dispatch an equivalent call use
// it to make the inner resolution the call's own.
func (r *DispatchResult) adoptMain(inner *DispatchResult) {
	prior := r.Main.Diags
	r.Main = inner.Main
	r.Main.Diags = nil
	r.Main.absorb(inner)
	r.Main.Diags = append(r.Main.Diags, prior...)
}

// DispatchResult is the full outcome of resolving one call. Compound
// receivers produce a chain: Main holds the first component and Secondary
// the rest, each link tagged with the combinator that joined them.
type DispatchResult struct {
	ReturnType    typesystem.Type
	Main          DispatchComponent
	Secondary     *DispatchResult
	SecondaryKind LinkKind
}

func newResult(ret typesystem.Type, recv typesystem.Type, method typesystem.MethodRef) *DispatchResult {
	return &DispatchResult{
		ReturnType: ret,
		Main:       DispatchComponent{Receiver: recv, Method: method},
	}
}

// missingResult is the untyped fallback for a lookup that found nothing.
func missingResult(recv typesystem.Type) *DispatchResult {
	r := newResult(typesystem.Untyped(), recv, typesystem.NoMethod)
	r.Main.MethodMissing = true
	return r
}

// merge links right onto the end of left's chain and combines the return
// types: a union receiver joins them, an intersection meets them.
func merge(res typesystem.Resolver, kind LinkKind, left, right *DispatchResult) *DispatchResult {
	switch kind {
	case LinkOr:
		left.ReturnType = typesystem.Join(res, left.ReturnType, right.ReturnType)
	case LinkAnd:
		left.ReturnType = typesystem.Meet(res, left.ReturnType, right.ReturnType)
	}
	tail := left
	for tail.Secondary != nil {
		tail = tail.Secondary
	}
	tail.Secondary = right
	tail.SecondaryKind = kind
	return left
}

// AllDiags collects every queued diagnostic across the chain, in component
// order.
func (r *DispatchResult) AllDiags() []diagnostics.Diagnostic {
	var all []diagnostics.Diagnostic
	for cur := r; cur != nil; cur = cur.Secondary {
		all = append(all, cur.Main.Diags...)
	}
	return all
}

// allComponentsPresent reports whether every component of an OR chain
// resolved its method. Components past an AND link don't count: one side
// of an intersection answering is enough.
func (r *DispatchResult) allComponentsPresent() bool {
	if r.Main.MethodMissing {
		return false
	}
	if r.Secondary == nil || r.SecondaryKind == LinkAnd {
		return true
	}
	return r.Secondary.allComponentsPresent()
}
