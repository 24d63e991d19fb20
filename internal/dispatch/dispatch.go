// Package dispatch resolves method calls against receiver types: it finds
// the target method, checks the provided arguments against its signature,
// infers generic instantiations, and computes the call's result type.
//
// The entry point is Dispatcher.Call. Receivers that are unions,
// intersections, proxies (literals, tuples, shapes) or metatypes are
// decomposed here and re-dispatched; plain class receivers go through
// method lookup and argument binding (binder.go). Intrinsic methods whose
// results depend on argument structure rather than a declared signature are
// implemented in the intrinsics*.go files.
//
// Diagnostics are queued on the returned DispatchResult rather than
// reported eagerly, so combinators can probe an alternative and discard
// its failures.
//
//   - dispatch.go    - receiver decomposition, lookup, unknown-method reporting
//   - args.go        - call description passed in by the caller
//   - result.go      - result chain and diagnostic plumbing
//   - binder.go      - positional/keyword/block binding and finalization
//   - overload.go    - overload disambiguation
//   - unwrap.go      - metatype unwrapping and proc argument extraction
//   - intrinsics.go          - T formers, generic application, construction
//   - intrinsics_magic.go    - desugared sends (splats, blocks, builders)
//   - intrinsics_proxy.go    - tuple/shape/array refinements
package dispatch

import (
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

// Method names the dispatcher treats specially.
const (
	nameInitialize       = "initialize"
	nameNew              = "new"
	nameSuper            = "<super>"
	nameToA              = "to_a"
	nameToAry            = "to_ary"
	nameToProc           = "to_proc"
	nameTripleEq         = "==="
	nameBlockArg         = "<blk>"
	nameSquareBrackets   = "[]"
	nameSquareBracketsEq = "[]="
)

// Options adjust dispatch behavior per checker run.
type Options struct {
	// StrictKeywordArgs warns when a trailing hash is passed to a method
	// expecting keyword arguments without an explicit double splat.
	StrictKeywordArgs bool

	// SuggestUnsafe, when non-empty, names the escape hatch offered by
	// autocorrects on errors that an unsafe cast would silence, in place
	// of the default `T.must` suggestions.
	SuggestUnsafe string

	// RequiredAncestors extends method lookup through ancestors declared
	// with requires_ancestor.
	RequiredAncestors bool

	// MaxSuggestions caps did-you-mean candidates per error. Zero means
	// the default of 3; negative disables suggestions.
	MaxSuggestions int
}

const defaultMaxSuggestions = 3

// intrinsicFn computes a result for one intrinsic method. Setting
// res.ReturnType commits the result; leaving it nil falls back to the
// declared signature.
type intrinsicFn func(d *Dispatcher, args *DispatchArgs, res *DispatchResult)

// Dispatcher resolves calls against one symbol table. It is stateless
// across calls and safe for concurrent use once constructed.
type Dispatcher struct {
	table      *symbols.Table
	src        loc.SourceProvider
	opts       Options
	intrinsics map[typesystem.MethodRef]intrinsicFn
}

// New builds a Dispatcher over table. src supplies source excerpts for
// autocorrects and may be nil when no source is available.
func New(table *symbols.Table, src loc.SourceProvider, opts Options) *Dispatcher {
	if src == nil {
		src = loc.NoSource
	}
	if opts.MaxSuggestions == 0 {
		opts.MaxSuggestions = defaultMaxSuggestions
	}
	d := &Dispatcher{
		table: table,
		src:   src,
		opts:  opts,
	}
	d.registerIntrinsics()
	return d
}

// Table returns the symbol table the dispatcher resolves against.
func (d *Dispatcher) Table() *symbols.Table { return d.table }

// Call dispatches one method call and returns its result. The receiver
// variant decides the strategy; compound receivers recurse on their parts.
func (d *Dispatcher) Call(args DispatchArgs) *DispatchResult {
	switch t := args.ThisType.(type) {
	case *typesystem.UntypedType:
		res := missingResult(args.ThisType)
		res.ReturnType = args.ThisType
		return res
	case *typesystem.BottomType:
		// Unreachable at runtime, so any call is fine and says nothing.
		return missingResult(args.ThisType)
	case *typesystem.TopType:
		res := missingResult(args.ThisType)
		d.reportUnknownMethod(&args, res, typesystem.NoClass)
		return res
	case *typesystem.ClassType:
		return d.dispatchClassSymbol(args, t.Symbol, nil)
	case *typesystem.AppliedType:
		return d.dispatchClassSymbol(args, t.Symbol, t.TypeArgs)
	case *typesystem.LiteralType:
		return d.Call(args.withThisType(typesystem.NewClassType(t.Underlying)))
	case *typesystem.TupleType:
		return d.dispatchProxy(args, typesystem.TupleClass, t.Underlying(d.table))
	case *typesystem.ShapeType:
		return d.dispatchProxy(args, typesystem.ShapeClass, t.Underlying(d.table))
	case *typesystem.MetaType:
		return d.dispatchMetaType(args, t)
	case *typesystem.SelfTypeParam:
		return d.Call(args.withThisType(d.typeMemberUpperBound(t.Definition)))
	case *typesystem.OrType:
		left := d.Call(args.withThisType(t.Left))
		right := d.Call(args.withThisType(t.Right))
		return merge(d.table, LinkOr, left, right)
	case *typesystem.AndType:
		return d.dispatchAnd(args, t)
	default:
		panic("dispatch: receiver must be substituted before dispatch: " + spew.Sdump(args.ThisType))
	}
}

// typeMemberUpperBound resolves a self-type parameter to its declared
// upper bound, the most precise type every instantiation satisfies.
func (d *Dispatcher) typeMemberUpperBound(tm typesystem.TypeMemberRef) typesystem.Type {
	if upper := d.table.TypeMember(tm).Upper; upper != nil {
		return upper
	}
	return typesystem.Untyped()
}

// dispatchAnd resolves a call on an intersection. Each side is probed with
// diagnostics suppressed; when exactly one side resolves the method the
// call behaves as a call on that side alone, re-dispatched for real so its
// argument errors surface. When both sides resolve (or neither does) the
// call must hold on both, and the results meet.
func (d *Dispatcher) dispatchAnd(args DispatchArgs, t *typesystem.AndType) *DispatchResult {
	leftProbe := d.Call(args.withThisType(t.Left).withSuppressed())
	rightProbe := d.Call(args.withThisType(t.Right).withSuppressed())
	leftOk := leftProbe.allComponentsPresent()
	rightOk := rightProbe.allComponentsPresent()
	if args.Suppress {
		switch {
		case leftOk && !rightOk:
			return leftProbe
		case rightOk && !leftOk:
			return rightProbe
		default:
			return merge(d.table, LinkAnd, leftProbe, rightProbe)
		}
	}
	switch {
	case leftOk && !rightOk:
		return d.Call(args.withThisType(t.Left))
	case rightOk && !leftOk:
		return d.Call(args.withThisType(t.Right))
	default:
		left := d.Call(args.withThisType(t.Left))
		right := d.Call(args.withThisType(t.Right))
		return merge(d.table, LinkAnd, left, right)
	}
}

// dispatchProxy handles tuple and shape receivers. The pseudo-class's own
// members are consulted first (without ancestry, so only the refinements
// defined on the proxy); when the matching intrinsic declines or no member
// exists, the call falls through to the underlying class type.
func (d *Dispatcher) dispatchProxy(args DispatchArgs, pseudo typesystem.ClassRef, underlying typesystem.Type) *DispatchResult {
	if m := d.table.FindMember(pseudo, args.Name); m.Exists() {
		if fn, ok := d.intrinsics[m]; ok {
			res := newResult(nil, args.ThisType, m)
			fn(d, &args, res)
			if res.ReturnType != nil {
				return res
			}
			// The intrinsic declined but may have diagnosed already;
			// its diagnostics ride along on the fallback dispatch.
			under := d.Call(args.withThisType(underlying))
			under.Main.Diags = append(res.Main.Diags, under.Main.Diags...)
			return under
		}
	}
	return d.Call(args.withThisType(underlying))
}

// dispatchMetaType handles calls whose receiver is a type used as a value.
// Constructing the wrapped type is the one legitimate use; everything else
// is diagnosed and then dispatched against Object so a plausible result
// type still comes back.
func (d *Dispatcher) dispatchMetaType(args DispatchArgs, t *typesystem.MetaType) *DispatchResult {
	if args.Name == nameNew {
		inner := args
		inner.Name = nameInitialize
		inner.ThisType = t.Wrapped
		inner.FullType = &TypeAndOrigins{Type: t.Wrapped, Origins: args.FullType.Origins}
		res := d.Call(inner)
		res.ReturnType = t.Wrapped
		res.Main.SendType = t.Wrapped
		return res
	}

	e := d.beginError(&args, args.Locs.CallLoc(), diagnostics.CodeTypeAsValue)
	if e != nil {
		e.Headerf("Call to method `%s` on `%s` mistakes a type for a value", args.Name, d.show(t.Wrapped))
		if applied, ok := t.Wrapped.(*typesystem.AppliedType); ok && args.Name == nameTripleEq {
			e.Notef("It looks like you're trying to pattern match on a generic, which doesn't work at runtime")
			e.Autocorrect("Replace with class name", diagnostics.Edit{
				Loc:     args.Locs.CallLoc(),
				Replace: d.table.ClassName(applied.Symbol),
			})
		}
	}
	res := d.Call(args.withThisType(typesystem.NewClassType(typesystem.ObjectClass)))
	if e != nil {
		res.Main.Diags = append([]diagnostics.Diagnostic{e.Build()}, res.Main.Diags...)
	}
	return res
}

// dispatchClassSymbol resolves a call on a plain or applied class type.
func (d *Dispatcher) dispatchClassSymbol(args DispatchArgs, symbol typesystem.ClassRef, targs []typesystem.Type) *DispatchResult {
	if symbol == typesystem.VoidClass {
		res := missingResult(args.ThisType)
		if e := d.beginError(&args, args.Locs.CallLoc(), diagnostics.CodeUnknownMethod); e != nil {
			e.Headerf("Can not call method `%s` on void type", args.Name)
			res.Main.record(e)
		}
		return res
	}

	member := d.table.FindMemberTransitive(symbol, args.Name)
	if !member.Exists() && d.opts.RequiredAncestors {
		member = d.table.FindMemberTransitiveIncludingRequired(symbol, args.Name)
	}

	if !member.Exists() {
		res := missingResult(args.ThisType)
		switch {
		case args.Name == nameInitialize:
			// Every class constructs with zero arguments when no
			// initializer is declared.
			if len(args.Args) > 0 {
				if e := d.beginError(&args, args.Locs.CallLoc(), diagnostics.CodeTooManyArguments); e != nil {
					e.Headerf("Wrong number of arguments for constructor. Expected: `0`, got: `%d`", len(args.Args))
					res.Main.record(e)
				}
			}
		case args.Name == nameSuper:
			// Super resolution needs the enclosing method's context,
			// which the dispatcher does not model.
		case d.table.Class(symbol).IsStub:
			// The unresolved constant was already diagnosed upstream.
		default:
			d.reportUnknownMethod(&args, res, symbol)
		}
		return res
	}

	method := member
	if len(d.table.Method(member).Overloads) > 0 {
		method = d.guessOverload(symbol, member, &args, targs)
	}

	return d.bindArguments(&args, symbol, method, targs)
}

// reportUnknownMethod queues the method-does-not-exist error, with
// whatever hints the call shape supports: provenance of the receiver,
// helper-module reminders, unsafe-cast wrappers for nil receivers, and
// did-you-mean candidates.
func (d *Dispatcher) reportUnknownMethod(args *DispatchArgs, res *DispatchResult, symbol typesystem.ClassRef) {
	e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeUnknownMethod)
	if e == nil {
		return
	}
	thisStr := d.show(args.ThisType)
	sameAsFull := typesystem.Equal(args.FullType.Type, args.ThisType)
	if sameAsFull {
		e.Headerf("Method `%s` does not exist on `%s`", args.Name, thisStr)
		if symbol.Exists() && d.isHelperDeclName(args.Name) {
			d.suggestExtendHelpers(e, symbol)
		}
	} else {
		e.Headerf("Method `%s` does not exist on `%s` component of `%s`",
			args.Name, thisStr, d.show(args.FullType.Type))
	}
	if details := args.FullType.OriginDetails(); len(details) > 0 {
		e.Section("Got `"+d.show(args.FullType.Type)+"` originating from:", details...)
	}

	recvLoc := args.Locs.RecvLoc()
	if recvLoc.Exists() && (d.opts.SuggestUnsafe != "" || (!sameAsFull && symbol == typesystem.NilClassClass)) {
		d.suggestUnsafeWrap(args, e, recvLoc)
	} else {
		if symbol.Exists() && d.table.Class(symbol).IsModule {
			if inherited := d.table.FindMemberTransitive(typesystem.ObjectClass, args.Name); inherited.Exists() {
				owner := d.table.Method(inherited).Owner
				if d.table.Class(owner).IsModule {
					e.Notef("Did you mean to `include %s` in this module?", d.table.Class(owner).Name)
				}
			}
		}
		if symbol.Exists() {
			d.suggestAlternatives(args, e, symbol)
		}
	}
	res.Main.record(e)
}

// isHelperDeclName reports whether name is a declaration helper whose
// absence usually means the class never extended T::Helpers.
func (d *Dispatcher) isHelperDeclName(name string) bool {
	switch name {
	case "interface!", "abstract!", "final!", "sealed!", "mixes_in_class_methods":
		return true
	case "requires_ancestor":
		return d.opts.RequiredAncestors
	}
	return false
}

// suggestExtendHelpers points at the missing `extend T::Helpers` when a
// declaration helper is called on a singleton that never mixed it in. The
// edit would need line layout to place, so the fix is advisory only.
func (d *Dispatcher) suggestExtendHelpers(e *diagnostics.Builder, symbol typesystem.ClassRef) {
	if _, ok := d.table.AttachedClass(symbol); !ok {
		return
	}
	if d.table.DerivesFrom(symbol, typesystem.THelpersModule) {
		return
	}
	e.Autocorrect("Add `extend T::Helpers`")
}

// suggestUnsafeWrap offers to wrap the receiver in the configured escape
// hatch. A zero-width receiver marks a symbol-to-proc block pass, which is
// expanded into a literal block instead.
func (d *Dispatcher) suggestUnsafeWrap(args *DispatchArgs, e *diagnostics.Builder, recvLoc loc.Loc) {
	wrap := d.opts.SuggestUnsafe
	if wrap == "" {
		wrap = "T.must"
	}
	if recvLoc.Span.Len() == 0 {
		if recvLoc.Span.Begin < 2 {
			return
		}
		passLoc := loc.New(recvLoc.File, recvLoc.Span.Begin-2, recvLoc.Span.End+uint32(len(args.Name))+2)
		if src, ok := d.sourceAt(passLoc); ok && src == "(&:"+args.Name+")" {
			e.Autocorrect("Expand to block with `"+wrap+"`", diagnostics.Edit{
				Loc:     passLoc,
				Replace: " {|x| " + wrap + "(x)." + args.Name + "}",
			})
		}
		return
	}
	if src, ok := d.sourceAt(recvLoc); ok {
		e.Autocorrect("Wrap in `"+wrap+"`", diagnostics.Edit{
			Loc:     recvLoc,
			Replace: wrap + "(" + src + ")",
		})
	}
}

// suggestAlternatives appends did-you-mean candidates: near-miss methods
// on the receiver's ancestry, then near-miss class names with a .new
// completion. Candidates whose spelling can be fixed in place become
// autocorrects; the rest are listed with their definition sites.
func (d *Dispatcher) suggestAlternatives(args *DispatchArgs, e *diagnostics.Builder, symbol typesystem.ClassRef) {
	limit := d.opts.MaxSuggestions
	if limit <= 0 {
		return
	}
	var lines []diagnostics.Detail
	callSrc, haveCallSrc := d.sourceAt(args.Locs.CallLoc())
	recvLoc := args.Locs.RecvLoc()
	recvSrc, haveRecvSrc := d.sourceAt(recvLoc)

	for _, alt := range d.table.FindMemberFuzzyMatch(symbol, args.Name, limit) {
		data := d.table.Method(alt.Method)
		if data.Name != args.Name && haveCallSrc && haveRecvSrc &&
			strings.HasPrefix(callSrc, recvSrc+"."+args.Name) {
			nameLoc := loc.New(recvLoc.File, recvLoc.Span.End+1, recvLoc.Span.End+1+uint32(len(args.Name)))
			e.Autocorrect("Replace with `"+data.Name+"`", diagnostics.Edit{Loc: nameLoc, Replace: data.Name})
			continue
		}
		lines = append(lines, diagnostics.Detail{Loc: data.Loc, Message: "`" + d.showMethod(alt.Method) + "`"})
	}

	for _, c := range d.table.FindClassFuzzyMatch(args.Name, limit) {
		name := d.table.Class(c).Name
		if haveCallSrc && strings.HasPrefix(callSrc, args.Name) {
			nameLoc := loc.New(args.Locs.File, args.Locs.Call.Begin, args.Locs.Call.Begin+uint32(len(args.Name)))
			e.Autocorrect("Replace with `"+name+".new`", diagnostics.Edit{Loc: nameLoc, Replace: name + ".new"})
			continue
		}
		lines = append(lines, diagnostics.Detail{Loc: d.table.Class(c).Loc, Message: "`" + name + ".new`"})
	}

	if len(lines) > 0 {
		e.Section("Did you mean:", lines...)
	}
}

// beginError opens a diagnostic builder, or returns nil when this dispatch
// must stay silent: during suppressed probes and in untyped files.
func (d *Dispatcher) beginError(args *DispatchArgs, l loc.Loc, code diagnostics.Code) *diagnostics.Builder {
	if args.Suppress {
		return nil
	}
	if d.table.FileStrictness(args.Locs.File) == symbols.StrictnessUntyped {
		return nil
	}
	return diagnostics.NewBuilder(l, code)
}

func (d *Dispatcher) show(t typesystem.Type) string {
	return typesystem.Show(d.table, t)
}

// showMethod renders a method the way diagnostics name it: Owner#name for
// instance methods, Attached.name for singleton ones.
func (d *Dispatcher) showMethod(m typesystem.MethodRef) string {
	data := d.table.Method(m)
	owner := d.table.Class(data.Owner)
	if owner.Attached.Exists() {
		return d.table.Class(owner.Attached).Name + "." + data.Name
	}
	return owner.Name + "#" + data.Name
}

func (d *Dispatcher) sourceAt(l loc.Loc) (string, bool) {
	if !l.Exists() {
		return "", false
	}
	return d.src.SourceAt(l)
}
