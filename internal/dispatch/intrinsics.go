package dispatch

import (
	"strings"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/typesystem"
)

// registerIntrinsics wires every intrinsic to its method symbol. The
// bootstrap table guarantees each target exists, so a miss here is a
// programming error, not a world-loading problem.
func (d *Dispatcher) registerIntrinsics() {
	d.intrinsics = make(map[typesystem.MethodRef]intrinsicFn)
	reg := func(owner typesystem.ClassRef, name string, fn intrinsicFn) {
		m := d.table.FindMember(owner, name)
		if !m.Exists() {
			panic("dispatch: intrinsic target " + d.table.ClassName(owner) + "#" + name + " is not in the table")
		}
		d.intrinsics[m] = fn
	}
	singleton := func(c typesystem.ClassRef) typesystem.ClassRef {
		s, ok := d.table.SingletonOf(c)
		if !ok {
			panic("dispatch: intrinsic owner " + d.table.ClassName(c) + " has no singleton class")
		}
		return s
	}

	ts := singleton(typesystem.TModule)
	reg(ts, "untyped", tUntyped)
	reg(ts, "noreturn", tNoreturn)
	reg(ts, "anything", tAnything)
	reg(ts, "must", tMust)
	reg(ts, "any", tAny)
	reg(ts, "all", tAll)
	reg(ts, "nilable", tNilable)
	reg(ts, "reveal_type", tRevealType)
	reg(ts, "class_of", tClassOf)

	reg(typesystem.ObjectClass, "class", objectClass)
	reg(typesystem.ClassClass, nameNew, classNew)
	reg(typesystem.ClassClass, nameSquareBrackets, genericApply)
	reg(typesystem.ModuleClass, nameTripleEq, moduleTripleEq)
	reg(typesystem.KernelModule, "proc", kernelProc)
	reg(typesystem.KernelModule, "lambda", kernelProc)

	magic := singleton(typesystem.MagicClass)
	reg(magic, "<build-hash>", magicBuildHash)
	reg(magic, "<build-array>", magicBuildArray)
	reg(magic, "<build-range>", magicBuildRange)
	reg(magic, "<expand-splat>", magicExpandSplat)
	reg(magic, "<splat>", magicSplat)
	reg(magic, "<call-with-splat>", magicCallWithSplat)
	reg(magic, "<call-with-block>", magicCallWithBlock)
	reg(magic, "<call-with-splat-and-block>", magicCallWithSplatAndBlock)
	reg(magic, "<self-new>", magicSelfNew)

	reg(typesystem.TupleClass, nameSquareBrackets, tupleSquareBrackets)
	reg(typesystem.TupleClass, "first", tupleFirst)
	reg(typesystem.TupleClass, "last", tupleLast)
	reg(typesystem.TupleClass, "min", tupleMinMax)
	reg(typesystem.TupleClass, "max", tupleMinMax)
	reg(typesystem.TupleClass, nameToA, tupleToA)
	reg(typesystem.TupleClass, "concat", tupleConcat)

	reg(typesystem.ShapeClass, nameSquareBracketsEq, shapeSquareBracketsEq)
	reg(typesystem.ShapeClass, "merge", shapeMerge)
	reg(typesystem.ShapeClass, "to_hash", shapeToHash)

	reg(typesystem.ArrayClass, "flatten", arrayFlatten)
	reg(typesystem.ArrayClass, "product", arrayProduct)
	reg(typesystem.ArrayClass, "compact", arrayCompact)
	reg(typesystem.ArrayClass, "zip", arrayZip)
}

func tUntyped(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.Untyped()}
}

func tNoreturn(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.Bottom()}
}

func tAnything(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.Top()}
}

func tMust(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) == 0 {
		return
	}
	callLoc := args.Locs.CallLoc()
	arg := args.Args[0]
	if !typesystem.IsFullyDefined(arg.Type) {
		if e := d.beginError(args, callLoc, diagnostics.CodeBareTypeUsage); e != nil {
			e.Headerf("T.must() applied to incomplete type `%s`", d.show(arg.Type))
			res.Main.record(e)
		}
		return
	}
	ret := d.dropNil(arg.Type)
	if typesystem.Equal(ret, arg.Type) {
		if e := d.beginError(args, callLoc, diagnostics.CodeRedundantCast); e != nil {
			if typesystem.IsUntyped(arg.Type) {
				e.Headerf("`T.must` called on `%s`, which is redundant", d.show(arg.Type))
			} else {
				e.Headerf("`T.must` called on `%s`, which is never `nil`", d.show(arg.Type))
			}
			e.AddSection(arg.ExplainGot(d.table))
			if src, ok := d.sourceAt(callLoc); ok &&
				strings.HasPrefix(src, "T.must(") && strings.HasSuffix(src, ")") {
				e.Autocorrect("Remove `T.must`", diagnostics.Edit{
					Loc:     callLoc,
					Replace: src[len("T.must(") : len(src)-1],
				})
			}
			res.Main.record(e)
		}
	}
	res.ReturnType = ret
}

func tAny(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) == 0 {
		return
	}
	ret := typesystem.Bottom()
	for i, arg := range args.Args {
		ty := d.unwrapType(args, res, args.Locs.ArgLoc(i), arg.Type)
		ret = typesystem.Join(d.table, ret, ty)
	}
	res.ReturnType = &typesystem.MetaType{Wrapped: ret}
}

func tAll(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) == 0 {
		return
	}
	ret := typesystem.Top()
	for i, arg := range args.Args {
		ty := d.unwrapType(args, res, args.Locs.ArgLoc(i), arg.Type)
		ret = typesystem.Meet(d.table, ret, ty)
	}
	res.ReturnType = &typesystem.MetaType{Wrapped: ret}
}

func tNilable(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 1 {
		return
	}
	ty := d.unwrapType(args, res, args.Locs.ArgLoc(0), args.Args[0].Type)
	res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.Nilable(d.table, ty)}
}

func tRevealType(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 1 {
		return
	}
	if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeRevealedType); e != nil {
		e.Headerf("Revealed type: `%s`", d.show(args.Args[0].Type))
		e.AddSection(args.Args[0].ExplainGot(d.table))
		res.Main.record(e)
	}
	res.ReturnType = args.Args[0].Type
}

func tClassOf(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 1 {
		return
	}
	if ct, ok := args.Args[0].Type.(*typesystem.ClassType); ok {
		if _, attached := d.table.AttachedClass(ct.Symbol); attached {
			res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.NewClassType(ct.Symbol)}
			return
		}
	}
	if e := d.beginError(args, args.Locs.ArgLoc(0), diagnostics.CodeBareTypeUsage); e != nil {
		e.Headerf("`T.class_of` needs a class or module as its argument")
		res.Main.record(e)
	}
}

func objectClass(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	self := d.unwrapSymbol(args.ThisType)
	if s, ok := d.table.SingletonOf(self); ok {
		res.ReturnType = d.table.ExternalType(s)
	} else {
		res.ReturnType = d.table.ExternalType(typesystem.ClassClass)
	}
}

// classNew redirects construction through the attached class's initialize.
// The inner dispatch's component becomes this call's own, so argument
// errors blame the constructor; when no initializer is declared the call
// still records Class#new as the resolved method.
func classNew(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	self := d.unwrapSymbol(args.ThisType)
	attached, ok := d.table.AttachedClass(self)
	if !ok {
		if self != typesystem.ClassClass {
			return
		}
		// Class.new on an unspecific Class yields some sort of Object.
		attached = typesystem.ObjectClass
	}
	instanceTy := d.table.ExternalType(attached)

	inner := *args
	inner.Name = nameInitialize
	inner.ThisType = instanceTy
	inner.FullType = &TypeAndOrigins{Type: instanceTy, Origins: args.FullType.Origins}
	dispatched := d.Call(inner)

	res.adoptMain(dispatched)
	res.ReturnType = instanceTy
	if !res.Main.Method.Exists() {
		if m := d.table.FindMember(typesystem.ClassClass, nameNew); m.Exists() {
			res.Main.Method = m
			res.Main.MethodMissing = false
		}
	}
	res.Main.SendType = instanceTy
}

// genericApply types X[...] when X is generic. Alias modules stand in for
// the stdlib generics, fixed members fill themselves in, and each supplied
// argument is unwrapped and checked against the member's bounds.
func genericApply(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	self := d.unwrapSymbol(args.ThisType)
	attached, ok := d.table.AttachedClass(self)
	if !ok {
		return
	}
	switch attached {
	case typesystem.TArrayAlias:
		attached = typesystem.ArrayClass
	case typesystem.THashAlias:
		attached = typesystem.HashClass
	case typesystem.TRangeAlias:
		attached = typesystem.RangeClass
	}

	members := d.table.Class(attached).TypeMembers
	if len(members) == 0 {
		return
	}
	arity := d.table.TypeArity(attached)
	if attached == typesystem.HashClass {
		// Hash's element member is derived from the key and value, so an
		// application names only those two.
		arity = 2
	}

	numKwArgs := len(args.Args) - args.NumPosArgs
	if numKwArgs > 0 {
		kwargsLoc := args.Locs.ArgsJoin(args.NumPosArgs, len(args.Args)-1)
		if e := d.beginError(args, kwargsLoc, diagnostics.CodeGenericArgumentMismatch); e != nil {
			e.Headerf("Keyword arguments given to `%s`", d.table.ClassName(attached))
			if numKwArgs%2 == 0 {
				if src, ok := d.sourceAt(kwargsLoc); ok {
					e.Autocorrect("Wrap with braces", diagnostics.Edit{Loc: kwargsLoc, Replace: "{" + src + "}"})
				}
			}
			res.Main.record(e)
		}
	}

	if args.NumPosArgs != arity {
		if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeGenericArgumentMismatch); e != nil {
			e.Headerf("Wrong number of type parameters for `%s`. Expected: `%d`, got: `%d`",
				d.table.ClassName(attached), arity, args.NumPosArgs)
			res.Main.record(e)
		}
	}

	targs := make([]typesystem.Type, 0, len(members))
	it := 0
	for i, tm := range members {
		mem := d.table.TypeMember(tm)
		switch {
		case mem.Fixed:
			// Fixed members are applied implicitly and consume nothing.
			if mem.Upper != nil {
				targs = append(targs, mem.Upper)
			} else {
				targs = append(targs, typesystem.Untyped())
			}
		case it < len(args.Args):
			l := args.Locs.ArgLoc(it)
			argType := d.unwrapType(args, res, l, args.Args[it].Type)
			validBounds := true
			if mem.Upper != nil && !typesystem.IsSubType(d.table, argType, mem.Upper) {
				validBounds = false
				if e := d.beginError(args, l, diagnostics.CodeGenericArgumentMismatch); e != nil {
					full := d.table.TypeMemberFullName(tm)
					e.Headerf("`%s` is not a subtype of upper bound of type member `%s`", d.show(argType), full)
					e.Linef(mem.Loc, "`%s` is `%s` bounded by `%s` here", full, "upper", d.show(mem.Upper))
					res.Main.record(e)
				}
			}
			if mem.Lower != nil && !typesystem.IsSubType(d.table, mem.Lower, argType) {
				validBounds = false
				if e := d.beginError(args, l, diagnostics.CodeGenericArgumentMismatch); e != nil {
					full := d.table.TypeMemberFullName(tm)
					e.Headerf("`%s` is not a supertype of lower bound of type member `%s`", d.show(argType), full)
					e.Linef(mem.Loc, "`%s` is `%s` bounded by `%s` here", full, "lower", d.show(mem.Lower))
					res.Main.record(e)
				}
			}
			if validBounds {
				targs = append(targs, argType)
			} else {
				targs = append(targs, typesystem.Untyped())
			}
			it++
		case attached == typesystem.HashClass && i == 2:
			pair := append([]typesystem.Type{}, targs...)
			targs = append(targs, &typesystem.TupleType{Elems: pair})
		default:
			targs = append(targs, typesystem.Untyped())
		}
	}

	res.ReturnType = &typesystem.MetaType{Wrapped: typesystem.NewApplied(attached, targs)}
}

// moduleTripleEq decides Integer === x statically where it can.
func moduleTripleEq(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if len(args.Args) != 1 {
		return
	}
	rhs := args.Args[0].Type
	if typesystem.IsUntyped(rhs) {
		res.ReturnType = rhs
		return
	}
	rc := d.representedClass(args.ThisType)
	if !rc.Exists() {
		res.ReturnType = typesystem.Boolean()
		return
	}
	lhs := d.table.ExternalType(rc)
	if typesystem.IsSubType(d.table, rhs, lhs) {
		res.ReturnType = typesystem.TrueType
		return
	}
	if typesystem.IsBottom(typesystem.Meet(d.table, rhs, lhs)) {
		res.ReturnType = typesystem.FalseType
		return
	}
	res.ReturnType = typesystem.Boolean()
}

// representedClass maps a receiver that stands for a class (usually its
// singleton class) to the class it represents.
func (d *Dispatcher) representedClass(t typesystem.Type) typesystem.ClassRef {
	var symbol typesystem.ClassRef
	switch x := t.(type) {
	case *typesystem.ClassType:
		symbol = x.Symbol
	case *typesystem.AppliedType:
		symbol = x.Symbol
	default:
		return typesystem.NoClass
	}
	attached, ok := d.table.AttachedClass(symbol)
	if !ok {
		return typesystem.NoClass
	}
	return attached
}

// kernelProc types a proc literal by its block's arity. Blocks with
// splatted or otherwise uncountable parameters stay at the plain Proc
// class.
func kernelProc(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	if args.Block == nil {
		return
	}
	n, ok := args.Block.FixedArity()
	if !ok || n > typesystem.MaxProcArity {
		res.ReturnType = typesystem.NewClassType(typesystem.ProcClass)
		return
	}
	c, _ := typesystem.ProcClassFor(n)
	targs := make([]typesystem.Type, n+1)
	for i := range targs {
		targs[i] = typesystem.Untyped()
	}
	res.ReturnType = typesystem.NewApplied(c, targs)
}
