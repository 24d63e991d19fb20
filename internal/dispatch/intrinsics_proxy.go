package dispatch

import (
	"math"
	"strings"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// Tuple and shape receivers keep per-element precision that their
// underlying Array and Hash signatures erase. The refinements here answer
// the calls where that precision pays off and decline the rest, falling
// through to the underlying class.

func tupleSquareBrackets(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	tuple := args.ThisType.(*typesystem.TupleType)
	if len(args.Args) != 1 {
		return
	}
	idx, ok := integerLiteral(args.Args[0].Type)
	if !ok {
		return
	}
	if idx < 0 {
		idx += int64(len(tuple.Elems))
	}
	if idx < 0 || idx >= int64(len(tuple.Elems)) {
		res.ReturnType = typesystem.NilType
	} else {
		res.ReturnType = tuple.Elems[idx]
	}
}

func tupleFirst(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	tuple := args.ThisType.(*typesystem.TupleType)
	if len(args.Args) != 0 {
		return
	}
	if len(tuple.Elems) == 0 {
		res.ReturnType = typesystem.NilType
	} else {
		res.ReturnType = tuple.Elems[0]
	}
}

func tupleLast(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	tuple := args.ThisType.(*typesystem.TupleType)
	if len(args.Args) != 0 {
		return
	}
	if len(tuple.Elems) == 0 {
		res.ReturnType = typesystem.NilType
	} else {
		res.ReturnType = tuple.Elems[len(tuple.Elems)-1]
	}
}

func tupleMinMax(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	tuple := args.ThisType.(*typesystem.TupleType)
	if len(args.Args) != 0 {
		return
	}
	if len(tuple.Elems) == 0 {
		res.ReturnType = typesystem.NilType
	} else {
		res.ReturnType = tuple.ElementType(d.table)
	}
}

func tupleToA(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	res.ReturnType = args.ThisType
}

func tupleConcat(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	tuple := args.ThisType.(*typesystem.TupleType)
	elems := append([]typesystem.Type(nil), tuple.Elems...)
	for _, arg := range args.Args {
		other, ok := arg.Type.(*typesystem.TupleType)
		if !ok {
			return
		}
		elems = append(elems, other.Elems...)
	}
	res.ReturnType = &typesystem.TupleType{Elems: elems}
}

// locOfValueForKey guesses the span of the value written for key inside the
// hash literal at origin. Shape diagnostics have no per-value locations, so
// the common pinning culprits (nil, true, false) are found by scanning the
// literal's text.
func (d *Dispatcher) locOfValueForKey(origin loc.Loc, key string, expected typesystem.Type) (loc.Loc, bool) {
	ct, ok := expected.(*typesystem.ClassType)
	if !ok {
		return loc.None, false
	}
	var valueStr string
	switch ct.Symbol {
	case typesystem.NilClassClass:
		valueStr = "nil"
	case typesystem.TrueClassClass:
		valueStr = "true"
	case typesystem.FalseClassClass:
		valueStr = "false"
	default:
		return loc.None, false
	}
	source, ok := d.sourceAt(origin)
	if !ok {
		return loc.None, false
	}
	keyStart := strings.Index(source, key+":")
	if keyStart < 0 {
		return loc.None, false
	}
	valueBegin := origin.Span.Begin + uint32(keyStart+len(key)+len(": "))
	l := loc.New(origin.File, valueBegin, valueBegin+uint32(len(valueStr)))
	if src, ok := d.sourceAt(l); ok && src == valueStr {
		return l, true
	}
	return loc.None, false
}

func shapeSquareBracketsEq(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	shape := args.ThisType.(*typesystem.ShapeType)
	if len(args.Args) != 2 {
		// Arity problems are the underlying signature's to report.
		return
	}
	key, ok := args.Args[0].Type.(*typesystem.LiteralType)
	if !ok {
		return
	}
	idx := shape.KeyIndex(key)
	if idx < 0 {
		// Writing a fresh key widens the shape at runtime; accept anything
		// rather than force every shape to be declared up front.
		res.ReturnType = typesystem.Untyped()
		return
	}

	expected := shape.Values[idx]
	actual := args.Args[1]
	if !typesystem.IsSubType(d.table, dropLiteral(actual.Type), dropLiteral(expected)) {
		if e := d.beginError(args, args.Locs.ArgLoc(1), diagnostics.CodeArgumentMismatch); e != nil {
			e.Headerf("Expected `%s` but found `%s` for key `%s`",
				d.show(expected), d.show(actual.Type), d.show(shape.Keys[idx]))
			e.Section("Shape originates from here:", args.FullType.OriginDetails()...)
			e.AddSection(actual.ExplainGot(d.table))
			if len(args.FullType.Origins) == 1 && key.Kind == typesystem.LiteralSymbol {
				if l, ok := d.locOfValueForKey(args.FullType.Origins[0], key.Str, expected); ok {
					if src, ok := d.sourceAt(l); ok {
						widened := typesystem.Join(d.table, expected, actual.Type)
						e.Autocorrect("Initialize with `T.let`", diagnostics.Edit{
							Loc:     l,
							Replace: "T.let(" + src + ", " + d.show(widened) + ")",
						})
					}
				}
			}
			res.Main.record(e)
		}
	}
	// Fall through to Hash#[]= for the result type.
}

func shapeMerge(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	shape := args.ThisType.(*typesystem.ShapeType)
	if len(args.Args) == 0 || args.Block != nil {
		return
	}

	// The update may arrive as inline keyword arguments, a double splat of
	// another shape, or a single positional shape.
	nonPosArgs := len(args.Args) - args.NumPosArgs
	numKwargs := nonPosArgs &^ 1
	hasKwsplat := nonPosArgs&1 == 1
	var kwsplat *typesystem.ShapeType
	if hasKwsplat || (numKwargs == 0 && len(args.Args) == 1) {
		kwsplat, _ = args.Args[len(args.Args)-1].Type.(*typesystem.ShapeType)
		if kwsplat == nil {
			return
		}
	}

	keys := append([]*typesystem.LiteralType(nil), shape.Keys...)
	values := append([]typesystem.Type(nil), shape.Values...)
	addEntry := func(key *typesystem.LiteralType, value typesystem.Type) {
		for i, k := range keys {
			if typesystem.Equal(k, key) {
				values[i] = value
				return
			}
		}
		keys = append(keys, key)
		values = append(values, value)
	}

	for i := 0; i < numKwargs; i += 2 {
		key, ok := args.Args[i].Type.(*typesystem.LiteralType)
		if !ok || key.Kind != typesystem.LiteralSymbol {
			return
		}
		addEntry(key, args.Args[i+1].Type)
	}
	if kwsplat != nil {
		for i, key := range kwsplat.Keys {
			addEntry(key, kwsplat.Values[i])
		}
	}
	res.ReturnType = &typesystem.ShapeType{Keys: keys, Values: values}
}

func shapeToHash(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	res.ReturnType = args.ThisType
}

// arrayElementType reads the element type off an array-shaped receiver.
func (d *Dispatcher) arrayElementType(t typesystem.Type) (typesystem.Type, bool) {
	switch x := t.(type) {
	case *typesystem.AppliedType:
		if len(x.TypeArgs) > 0 {
			return x.TypeArgs[0], true
		}
	case *typesystem.TupleType:
		return x.ElementType(d.table), true
	}
	return nil, false
}

// typeToAry follows an element's to_ary conversion the way flattening does
// at runtime: elements that convert keep flattening through the conversion
// result, elements that don't stay as they are.
func (d *Dispatcher) typeToAry(args *DispatchArgs, t typesystem.Type, depth int64) typesystem.Type {
	if typesystem.IsUntyped(t) {
		return t
	}
	inner := DispatchArgs{
		Name: nameToAry,
		Locs: CallLocs{
			File: args.Locs.File,
			Call: args.Locs.Call,
			Recv: args.Locs.Recv,
		},
		ThisType: t,
		FullType: &TypeAndOrigins{Type: t, Origins: args.FullType.Origins},
		Suppress: args.Suppress,
	}
	dispatched := d.Call(inner)
	if len(dispatched.Main.Diags) == 0 {
		return d.recursivelyFlattenArrays(args, dispatched.ReturnType, depth)
	}
	return t
}

func (d *Dispatcher) recursivelyFlattenArrays(args *DispatchArgs, t typesystem.Type, depth int64) typesystem.Type {
	if depth == 0 {
		return t
	}
	newDepth := depth - 1
	switch x := t.(type) {
	case *typesystem.OrType:
		// Tuple element types arrive as unions, so nested tuples flatten
		// through here.
		return typesystem.Join(d.table,
			d.recursivelyFlattenArrays(args, x.Left, newDepth),
			d.recursivelyFlattenArrays(args, x.Right, newDepth))
	case *typesystem.ClassType:
		return d.typeToAry(args, t, newDepth)
	case *typesystem.AppliedType:
		if x.Symbol == typesystem.ArrayClass && len(x.TypeArgs) > 0 {
			return d.recursivelyFlattenArrays(args, x.TypeArgs[0], newDepth)
		}
		return d.typeToAry(args, t, newDepth)
	case *typesystem.TupleType:
		return d.recursivelyFlattenArrays(args, x.ElementType(d.table), newDepth)
	default:
		return t
	}
}

func arrayFlatten(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	element, ok := d.arrayElementType(args.ThisType)
	if !ok {
		return
	}

	var depth int64
	switch len(args.Args) {
	case 0:
		depth = math.MaxInt64
	case 1:
		lit, ok := integerLiteral(args.Args[0].Type)
		if !ok {
			if e := d.beginError(args, args.Locs.ArgLoc(0), diagnostics.CodeLiteralTypePosition); e != nil {
				e.Headerf("You must pass an Integer literal to specify a depth with Array#flatten")
				res.Main.record(e)
			}
			return
		}
		if lit >= 0 {
			depth = lit
		} else {
			// Negative depths flatten without limit.
			depth = math.MaxInt64
		}
	default:
		// Arity is off; the signature match reports it.
		return
	}

	res.ReturnType = arrayOf(d.recursivelyFlattenArrays(args, element, depth))
}

func arrayProduct(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	elems := make([]typesystem.Type, 0, len(args.Args)+1)
	element, ok := d.arrayElementType(args.ThisType)
	if !ok {
		res.ReturnType = typesystem.Untyped()
		return
	}
	elems = append(elems, element)

	for _, arg := range args.Args {
		element, ok := d.arrayElementType(arg.Type)
		if !ok {
			// The argument's signature mismatch is already reported; give
			// back something the caller can keep checking with.
			res.ReturnType = typesystem.Untyped()
			return
		}
		elems = append(elems, element)
	}
	res.ReturnType = arrayOf(&typesystem.TupleType{Elems: elems})
}

func arrayCompact(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	element, ok := d.arrayElementType(args.ThisType)
	if !ok {
		return
	}
	res.ReturnType = arrayOf(d.dropNil(element))
}

func arrayZip(d *Dispatcher, args *DispatchArgs, res *DispatchResult) {
	elems := make([]typesystem.Type, 0, len(args.Args)+1)
	element, ok := d.arrayElementType(args.ThisType)
	if !ok {
		res.ReturnType = typesystem.Untyped()
		return
	}
	elems = append(elems, element)

	for _, arg := range args.Args {
		element, ok := d.arrayElementType(arg.Type)
		if !ok {
			res.ReturnType = typesystem.Untyped()
			return
		}
		// Zipped positions run out when the shortest input does.
		elems = append(elems, typesystem.Nilable(d.table, element))
	}
	res.ReturnType = arrayOf(&typesystem.TupleType{Elems: elems})
}
