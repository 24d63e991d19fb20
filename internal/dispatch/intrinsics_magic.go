package dispatch

import (
	"fmt"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// The magic pseudo-class owns the sends the desugarer synthesizes: literal
// builders, splat expansion, and the forwarding forms that reconstruct a
// user-visible call from its exploded receiver/name/arguments encoding.

func magicBuildHash(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	keys := make([]*typesystem.LiteralType, 0, len(args.Args)/2)
	values := make([]typesystem.Type, 0, len(args.Args)/2)
	for i := 0; i+1 < len(args.Args); i += 2 {
		key, ok := args.Args[i].Type.(*typesystem.LiteralType)
		if !ok {
			res.ReturnType = hashOfUntyped()
			return
		}
		keys = append(keys, key)
		values = append(values, args.Args[i+1].Type)
	}
	res.ReturnType = &typesystem.ShapeType{Keys: keys, Values: values}
}

func magicBuildArray(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	isType := false
	for _, arg := range args.Args {
		if _, ok := arg.Type.(*typesystem.MetaType); ok {
			isType = true
			break
		}
	}
	elems := make([]typesystem.Type, len(args.Args))
	for i, arg := range args.Args {
		if isType {
			elems[i] = d.unwrapType(args, res, args.Locs.ArgLoc(i), arg.Type)
		} else {
			elems[i] = arg.Type
		}
	}
	var tuple typesystem.Type = &typesystem.TupleType{Elems: elems}
	if isType {
		tuple = &typesystem.MetaType{Wrapped: tuple}
	}
	res.ReturnType = tuple
}

func magicBuildRange(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 3 {
		return
	}
	elemType := dropLiteral(args.Args[0].Type)
	firstIsNil := isNilClass(elemType)
	if !firstIsNil {
		elemType = d.dropNil(elemType)
	}
	other := dropLiteral(args.Args[1].Type)
	secondIsNil := isNilClass(other)
	if firstIsNil {
		if secondIsNil {
			elemType = typesystem.Untyped()
		} else {
			elemType = d.dropNil(other)
		}
	} else if !secondIsNil {
		elemType = typesystem.Join(d.table, elemType, d.dropNil(other))
	}
	res.ReturnType = typesystem.NewApplied(typesystem.RangeClass, []typesystem.Type{elemType})
}

// expandArray computes the tuple a splat assignment destructures into.
// Tuples pad with nil up to the expected width; plain arrays pass through
// since nothing is known about their length.
func (d *Dispatcher) expandArray(t typesystem.Type, expandTo int) typesystem.Type {
	if or, ok := t.(*typesystem.OrType); ok {
		return typesystem.Join(d.table, d.expandArray(or.Left, expandTo), d.expandArray(or.Right, expandTo))
	}
	tuple, isTuple := t.(*typesystem.TupleType)
	if !isTuple && typesystem.DerivesFromClass(d.table,
		typesystem.Approximate(d.table, t, typesystem.EmptyFrozen), typesystem.ArrayClass) {
		return t
	}
	var types []typesystem.Type
	if isTuple {
		types = append(types, tuple.Elems...)
	} else {
		types = append(types, t)
	}
	for len(types) < expandTo {
		types = append(types, typesystem.NilType)
	}
	return &typesystem.TupleType{Elems: types}
}

func magicExpandSplat(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 3 {
		res.ReturnType = arrayOfUntyped()
		return
	}
	val := args.Args[0].Type
	before, okBefore := integerLiteral(args.Args[1].Type)
	after, okAfter := integerLiteral(args.Args[2].Type)
	if !okBefore || !okAfter {
		res.ReturnType = typesystem.Untyped()
		return
	}
	res.ReturnType = d.expandArray(val, int(before+after))
}

// magicSplat types `*expr` by dispatching to_a on the operand. The runtime
// recovers from a failing to_a itself, so an inner error only widens the
// result instead of surfacing.
func magicSplat(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 1 {
		return
	}
	arg := args.Args[0]
	inner := DispatchArgs{
		Name: nameToA,
		Locs: CallLocs{
			File: args.Locs.File,
			Call: args.Locs.Call,
			Recv: args.Locs.Call,
			Args: []loc.Span{args.Locs.Recv},
		},
		ThisType: arg.Type,
		FullType: &TypeAndOrigins{Type: arg.Type, Origins: args.FullType.Origins},
		Suppress: args.Suppress,
	}
	dispatched := d.Call(inner)
	if len(dispatched.Main.Diags) > 0 {
		res.ReturnType = arrayOfUntyped()
	} else {
		res.ReturnType = dispatched.ReturnType
	}
}

// splatSendArgs rebuilds the argument list of a forwarded call from the
// statically known positional tuple and keyword tuple, all blamed on the
// splat expression itself.
func splatSendArgs(pos, kw *typesystem.TupleType, at loc.Loc) []*TypeAndOrigins {
	n := len(pos.Elems)
	if kw != nil {
		n += len(kw.Elems)
	}
	out := make([]*TypeAndOrigins, 0, n)
	for _, e := range pos.Elems {
		out = append(out, &TypeAndOrigins{Type: e, Origins: []loc.Loc{at}})
	}
	if kw != nil {
		for _, e := range kw.Elems {
			out = append(out, &TypeAndOrigins{Type: e, Origins: []loc.Loc{at}})
		}
	}
	return out
}

// forwardedLocs builds the location bundle for a reconstructed call: the
// original call span, the real receiver span, and one span per argument.
func forwardedLocs(args *DispatchArgs, argSpans []loc.Span) CallLocs {
	return CallLocs{
		File: args.Locs.File,
		Call: args.Locs.Call,
		Recv: args.Locs.ArgLoc(0).Span,
		Args: argSpans,
	}
}

func magicCallWithSplat(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	// args[0] receiver, args[1] method name, args[2] positional splat
	// tuple, args[3] keyword tuple or nil.
	if len(args.Args) != 4 {
		return
	}
	receiver := args.Args[0]
	if typesystem.IsUntyped(receiver.Type) {
		res.ReturnType = receiver.Type
		return
	}
	if !typesystem.IsFullyDefined(receiver.Type) {
		return
	}
	fn, ok := symbolLiteralName(args.Args[1].Type)
	if !ok {
		return
	}
	if typesystem.IsUntyped(args.Args[2].Type) {
		res.ReturnType = args.Args[2].Type
		return
	}
	posTuple, ok := args.Args[2].Type.(*typesystem.TupleType)
	if !ok {
		if e := d.beginError(args, args.Locs.ArgLoc(2), diagnostics.CodeStaticSplatSize); e != nil {
			e.Headerf("Splats are only supported where the size of the array is known statically")
			res.Main.record(e)
		}
		return
	}
	kwType := args.Args[3].Type
	kwTuple, isTuple := kwType.(*typesystem.TupleType)
	if !isTuple && !isNilClass(kwType) {
		if e := d.beginError(args, args.Locs.ArgLoc(2), diagnostics.CodeStaticSplatSize); e != nil {
			e.Headerf("Keyword args with splats are only supported where the shape of the hash is known statically")
			res.Main.record(e)
		}
		return
	}

	sendArgs := splatSendArgs(posTuple, kwTuple, args.Locs.ArgLoc(2))
	spans := make([]loc.Span, len(sendArgs))
	for i := range spans {
		spans[i] = args.Locs.ArgLoc(2).Span
	}
	inner := DispatchArgs{
		Name:       fn,
		Locs:       forwardedLocs(args, spans),
		Args:       sendArgs,
		NumPosArgs: len(posTuple.Elems),
		ThisType:   receiver.Type,
		FullType:   receiver,
		Block:      args.Block,
		Suppress:   args.Suppress,
	}
	dispatched := d.Call(inner)

	prior := res.Main.Constr
	res.adoptMain(dispatched)
	if res.Main.Constr == nil || res.Main.Constr.IsEmpty() {
		res.Main.Constr = prior
	}
	res.ReturnType = dispatched.ReturnType
}

// typeToProc converts a block-pass operand into the proc type the callee
// will see, dispatching to_proc on the non-nil part. Problems with the
// conversion surface on the forwarding send.
func (d *Dispatcher) typeToProc(args *DispatchArgs, res *DispatchResult, blockTpe *TypeAndOrigins, recvLoc loc.Loc) typesystem.Type {
	nonNil := blockTpe
	nilable := false
	if typesystem.IsSubType(d.table, typesystem.NilType, blockTpe.Type) {
		dropped := d.dropNil(blockTpe.Type)
		if typesystem.IsBottom(dropped) {
			return typesystem.NilType
		}
		nonNil = &TypeAndOrigins{Type: dropped, Origins: blockTpe.Origins}
		nilable = true
	}
	inner := DispatchArgs{
		Name: nameToProc,
		Locs: CallLocs{
			File: args.Locs.File,
			Call: args.Locs.Call,
			Recv: recvLoc.Span,
		},
		ThisType: nonNil.Type,
		FullType: nonNil,
		Suppress: args.Suppress,
	}
	dispatched := d.Call(inner)
	res.Main.absorb(dispatched)
	if nilable {
		return typesystem.Nilable(d.table, dispatched.ReturnType)
	}
	return dispatched.ReturnType
}

// arityForBlock reads the fixed arity off a proc type, when it has one.
func arityForBlock(t typesystem.Type) (int, bool) {
	if applied, ok := t.(*typesystem.AppliedType); ok {
		if n, isProc := typesystem.ProcArityOf(applied.Symbol); isProc {
			return n, true
		}
	}
	return 0, false
}

// blockArgDefnSection points at the block parameter declaration of the
// method a forwarding send resolved to.
func (d *Dispatcher) blockArgDefnSection(blockType typesystem.Type, comp *DispatchComponent) (diagnostics.Section, bool) {
	if !comp.Method.Exists() {
		return diagnostics.Section{}, false
	}
	bspec := d.table.Method(comp.Method).BlockArg()
	what := fmt.Sprintf("block argument `%s` of method `%s`", bspec.Name, d.showMethod(comp.Method))
	return explainExpected(d.table, blockType, bspec.Loc, what), true
}

// simulateCall re-dispatches a block-forwarding send and then plays the
// block's part: the passed proc is checked against the callee's declared
// block type, generic bounds are recorded through every component of the
// result, and the constraint is solved here because the caller has no
// block body of its own to type first.
func (d *Dispatcher) simulateCall(args *DispatchArgs, res *DispatchResult, inner DispatchArgs,
	passedInBlockType typesystem.Type, blockArgLoc, callLoc loc.Loc) {
	dispatched := d.Call(inner)
	res.Main.absorb(dispatched)

	constr := dispatched.Main.Constr
	recording := constr
	if recording == nil {
		recording = typesystem.EmptyFrozen
	}
	blockPreType := dispatched.Main.BlockPreType
	if blockPreType != nil && !typesystem.IsSubTypeUnderConstraint(d.table, recording, passedInBlockType, blockPreType) {
		nonNilable := d.dropNil(blockPreType)
		ct, isClass := passedInBlockType.(*typesystem.ClassType)
		if isClass && ct.Symbol == typesystem.ProcClass && typesystem.IsSubType(d.table, nonNilable, passedInBlockType) {
			// A proc of unknown arity meets a declared fixed arity. Flag
			// it, then continue with an untyped proc of the right arity
			// so the generics instantiate to untyped rather than bottom.
			if e := d.beginError(args, callLoc, diagnostics.CodeUnknownProcArity); e != nil {
				e.Headerf("Cannot use a `Proc` with unknown arity as a `%s`", d.show(blockPreType))
				if dispatched.Secondary == nil {
					if s, ok := d.blockArgDefnSection(blockPreType, &dispatched.Main); ok {
						e.AddSection(s)
					}
				}
				res.Main.record(e)
			}
			if n, ok := arityForBlock(nonNilable); ok {
				c, _ := typesystem.ProcClassFor(n)
				targs := make([]typesystem.Type, n+1)
				for i := range targs {
					targs[i] = typesystem.Untyped()
				}
				passedInBlockType = typesystem.NewApplied(c, targs)
			}
		} else if e := d.beginError(args, callLoc, diagnostics.CodeArgumentMismatch); e != nil {
			e.Headerf("Expected `%s` but found `%s` for block argument", d.show(blockPreType), d.show(passedInBlockType))
			if dispatched.Secondary == nil {
				if s, ok := d.blockArgDefnSection(blockPreType, &dispatched.Main); ok {
					e.AddSection(s)
				}
			}
			res.Main.record(e)
		}
	}

	// Record bounds against the raw declared block type of every resolved
	// component, so solving sees the block's contribution.
	for it := dispatched; it != nil; it = it.Secondary {
		if !it.Main.Method.Exists() {
			continue
		}
		if bt := d.table.Method(it.Main.Method).BlockArg().Type; bt != nil {
			typesystem.IsSubTypeUnderConstraint(d.table, recording, passedInBlockType, bt)
		}
	}

	if constr != nil {
		if !constr.Solve(d.table) {
			if e := d.beginError(args, blockArgLoc, diagnostics.CodeGenericInstantiation); e != nil {
				e.Headerf("Could not find valid instantiation of type parameters")
				res.Main.record(e)
			}
		}
		if !constr.IsEmpty() && constr.IsSolved() {
			dispatched.ReturnType = typesystem.InstantiateTypeVars(d.table, dispatched.ReturnType, constr)
		}
	}
	res.ReturnType = dispatched.ReturnType
}

func magicCallWithBlock(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	// args[0] receiver, args[1] method name, args[2] block operand,
	// args[3:] forwarded arguments. Stands for
	// args[0].args[1](*args[3:], &args[2]).
	if len(args.Args) < 3 {
		return
	}
	receiver := args.Args[0]
	if typesystem.IsUntyped(receiver.Type) {
		res.ReturnType = receiver.Type
		return
	}
	if !typesystem.IsFullyDefined(receiver.Type) {
		return
	}
	if _, isVar := args.Args[2].Type.(*typesystem.TypeVar); isVar {
		if e := d.beginError(args, args.Locs.ArgLoc(2), diagnostics.CodeGenericBlockArgument); e != nil {
			e.Headerf("Passing generics as block arguments is not supported")
			res.Main.record(e)
		}
		return
	}
	fn, ok := symbolLiteralName(args.Args[1].Type)
	if !ok {
		return
	}

	sendArgs := args.Args[3:]
	spans := make([]loc.Span, 0, len(sendArgs))
	for i := 3; i < len(args.Args); i++ {
		spans = append(spans, args.Locs.ArgLoc(i).Span)
	}

	blockArgLoc := args.Locs.ArgLoc(2)
	finalBlockType := d.typeToProc(args, res, args.Args[2], blockArgLoc)
	arity := -1
	if n, ok := arityForBlock(finalBlockType); ok {
		arity = n
	}
	res.Main.Constr = typesystem.NewConstraint(nil)

	inner := DispatchArgs{
		Name:       fn,
		Locs:       forwardedLocs(args, spans),
		Args:       sendArgs,
		NumPosArgs: args.NumPosArgs - 3,
		ThisType:   receiver.Type,
		FullType:   receiver,
		Block:      &BlockInfo{Arity: arity, Loc: blockArgLoc},
		Suppress:   args.Suppress,
	}
	d.simulateCall(args, res, inner, finalBlockType, blockArgLoc, args.Locs.CallLoc())
}

func magicCallWithSplatAndBlock(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	// args[0] receiver, args[1] method name, args[2] positional splat
	// tuple, args[3] keyword tuple or nil, args[4] block operand.
	if len(args.Args) != 5 {
		return
	}
	receiver := args.Args[0]
	if typesystem.IsUntyped(receiver.Type) {
		res.ReturnType = receiver.Type
		return
	}
	if !typesystem.IsFullyDefined(receiver.Type) {
		return
	}
	fn, ok := symbolLiteralName(args.Args[1].Type)
	if !ok {
		return
	}
	if typesystem.IsUntyped(args.Args[2].Type) {
		res.ReturnType = args.Args[2].Type
		return
	}
	posTuple, ok := args.Args[2].Type.(*typesystem.TupleType)
	if !ok {
		if e := d.beginError(args, args.Locs.ArgLoc(2), diagnostics.CodeStaticSplatSize); e != nil {
			e.Headerf("Splats are only supported where the size of the array is known statically")
			res.Main.record(e)
		}
		return
	}
	kwType := args.Args[3].Type
	kwTuple, isTuple := kwType.(*typesystem.TupleType)
	if !isTuple && !isNilClass(kwType) {
		if e := d.beginError(args, args.Locs.ArgLoc(2), diagnostics.CodeStaticSplatSize); e != nil {
			e.Headerf("Keyword args with splats are only supported where the shape of the hash is known statically")
			res.Main.record(e)
		}
		return
	}
	if _, isVar := args.Args[4].Type.(*typesystem.TypeVar); isVar {
		if e := d.beginError(args, args.Locs.ArgLoc(4), diagnostics.CodeGenericBlockArgument); e != nil {
			e.Headerf("Passing generics as block arguments is not supported")
			res.Main.record(e)
		}
		return
	}

	sendArgs := splatSendArgs(posTuple, kwTuple, args.Locs.ArgLoc(2))
	spans := make([]loc.Span, len(sendArgs))
	for i := range spans {
		spans[i] = args.Locs.ArgLoc(2).Span
	}

	blockArgLoc := args.Locs.ArgLoc(4)
	finalBlockType := d.typeToProc(args, res, args.Args[4], blockArgLoc)
	arity := -1
	if n, ok := arityForBlock(finalBlockType); ok {
		arity = n
	}
	res.Main.Constr = typesystem.NewConstraint(nil)

	inner := DispatchArgs{
		Name:       fn,
		Locs:       forwardedLocs(args, spans),
		Args:       sendArgs,
		NumPosArgs: len(posTuple.Elems),
		ThisType:   receiver.Type,
		FullType:   receiver,
		Block:      &BlockInfo{Arity: arity, Loc: blockArgLoc},
		Suppress:   args.Suppress,
	}
	d.simulateCall(args, res, inner, finalBlockType, blockArgLoc, args.Locs.CallLoc())
}

// magicSelfNew constructs through `new` on the value in args[0] and, when
// that lands on a constructor, reports the singleton's attached-class
// placeholder instead of a concrete instance type, so subclasses construct
// as themselves.
func magicSelfNew(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) == 0 {
		res.ReturnType = typesystem.Untyped()
		return
	}
	selfTpe := args.Args[0]
	self := d.unwrapSymbol(selfTpe.Type)

	sendArgs := args.Args[1:]
	spans := make([]loc.Span, 0, len(sendArgs))
	for i := 1; i < len(args.Args); i++ {
		spans = append(spans, args.Locs.ArgLoc(i).Span)
	}
	inner := DispatchArgs{
		Name:       nameNew,
		Locs:       forwardedLocs(args, spans),
		Args:       sendArgs,
		NumPosArgs: args.NumPosArgs - 1,
		ThisType:   selfTpe.Type,
		FullType:   selfTpe,
		Block:      args.Block,
		Suppress:   args.Suppress,
	}
	dispatched := d.Call(inner)

	returnTy := dispatched.ReturnType
	if _, isSingleton := d.table.AttachedClass(self); isSingleton && dispatched.Main.Method.Exists() {
		m := dispatched.Main.Method
		if m == d.table.FindMember(typesystem.ClassClass, nameNew) || d.table.Method(m).Name == nameInitialize {
			if tm := d.table.AttachedClassMember(self); tm.Exists() {
				returnTy = &typesystem.SelfTypeParam{Definition: tm}
			}
		}
	}

	res.adoptMain(dispatched)
	res.ReturnType = returnTy
	res.Main.SendType = returnTy
}

func symbolLiteralName(t typesystem.Type) (string, bool) {
	lit, ok := t.(*typesystem.LiteralType)
	if !ok || lit.Kind != typesystem.LiteralSymbol {
		return "", false
	}
	return lit.Str, true
}

func integerLiteral(t typesystem.Type) (int64, bool) {
	lit, ok := t.(*typesystem.LiteralType)
	if !ok || lit.Kind != typesystem.LiteralInteger {
		return 0, false
	}
	return lit.Int, true
}

func isNilClass(t typesystem.Type) bool {
	ct, ok := t.(*typesystem.ClassType)
	return ok && ct.Symbol == typesystem.NilClassClass
}
