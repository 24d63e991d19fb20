package dispatch

import (
	"fmt"
	"strconv"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

// bindArguments checks a resolved call against the method's signature. It
// walks positional arguments in lock step with the declared parameters,
// extracts and binds the keyword region, diagnoses arity mismatches, types
// the block, runs the method's intrinsic if it has one, and finally
// computes the call's result type under the solved constraint.
func (d *Dispatcher) bindArguments(args *DispatchArgs, symbol typesystem.ClassRef, method typesystem.MethodRef, targs []typesystem.Type) *DispatchResult {
	data := d.table.Method(method)
	res := newResult(nil, args.ThisType, method)

	constr := typesystem.EmptyFrozen
	if args.Block != nil || len(data.TypeParams) > 0 {
		constr = typesystem.NewConstraint(data.TypeParams)
		res.Main.Constr = constr
	}

	// The trailing block parameter is bound separately.
	params := data.Args[:len(data.Args)-1]
	hasKwargs := false
	for i := range params {
		if params[i].Flags.Keyword {
			hasKwargs = true
			break
		}
	}

	posArgs := args.NumPosArgs
	nonPos := len(args.Args) - args.NumPosArgs
	hasKwsplat := nonPos%2 == 1
	numKwargs := nonPos
	if hasKwsplat {
		numKwargs--
	}

	pit, pend := 0, len(params)
	ait, aend := 0, len(args.Args)
	aPosEnd := args.NumPosArgs

	for pit < pend && ait < aPosEnd {
		spec := &params[pit]
		arg := args.Args[ait]
		if spec.Flags.Keyword {
			break
		}
		// Leave a final hash argument for the keyword phase when the
		// method could take it as keyword arguments.
		if ait+1 == aend && hasKwargs && (spec.Flags.Default || spec.Flags.Repeated) &&
			typesystem.DerivesFromClass(d.table, typesystem.Approximate(d.table, arg.Type, constr), typesystem.HashClass) {
			break
		}
		d.matchArgType(args, res, constr, symbol, method, spec, arg, targs, args.Locs.ArgLoc(ait), len(args.Args) == 1)
		if !spec.Flags.Repeated {
			pit++
		}
		ait++
	}

	// A trailing positional hash serves as the keyword arguments when the
	// method wants keywords and the send supplied none explicitly.
	implicitKwsplat := false
	if ait < aPosEnd && hasKwargs && len(args.Args) == args.NumPosArgs {
		if d.opts.StrictKeywordArgs {
			splatLoc := args.Locs.ArgLoc(len(args.Args) - 1)
			if e := d.beginError(args, splatLoc, diagnostics.CodeLegacyKeywordHash); e != nil {
				e.Headerf("Keyword argument hash without `**` is deprecated")
				if src, ok := d.sourceAt(splatLoc); ok {
					e.Autocorrect("Use `**` for the keyword argument hash",
						diagnostics.Edit{Loc: splatLoc, Replace: "**" + src})
				}
				res.Main.record(e)
			}
		}
		hasKwsplat = true
		implicitKwsplat = true
	}

	var kwargs *TypeAndOrigins
	var kwargsShape *typesystem.ShapeType
	var kwargsLoc loc.Loc
	kwSplatIsHash := false
	var kwSplatTpe *TypeAndOrigins
	if numKwargs > 0 || hasKwsplat {
		if numKwargs == 0 {
			kwargsLoc = args.Locs.ArgLoc(len(args.Args) - 1)
		} else {
			kwargsLoc = args.Locs.ArgsJoin(args.NumPosArgs, len(args.Args)-1)
		}

		// Inlined pairs contribute known keys; a non-symbol key means the
		// region cannot be decomposed and the pairs are dropped.
		var keys []*typesystem.LiteralType
		var values []typesystem.Type
		for i := args.NumPosArgs; i < args.NumPosArgs+numKwargs; i += 2 {
			key, ok := args.Args[i].Type.(*typesystem.LiteralType)
			if !ok || key.Kind != typesystem.LiteralSymbol {
				keys = nil
				values = nil
				break
			}
			keys = append(keys, key)
			values = append(values, args.Args[i+1].Type)
		}

		if hasKwsplat {
			splatArg := args.Args[aend-1]
			splatType := typesystem.Approximate(d.table, splatArg.Type, constr)
			if hasKwargs {
				if shape := fromKwargsShape(splatType); shape != nil {
					keys = append(keys, shape.Keys...)
					values = append(values, shape.Values...)
					kwargsShape = &typesystem.ShapeType{Keys: keys, Values: values}
					kwargs = &TypeAndOrigins{Type: kwargsShape, Origins: []loc.Loc{kwargsLoc}}
					aend--
				} else if typesystem.IsUntyped(splatType) {
					// An untyped splat satisfies every keyword.
					kwargs = &TypeAndOrigins{Type: typesystem.Untyped(), Origins: splatArg.Origins}
					aend--
				} else if typesystem.DerivesFromClass(d.table, splatType, typesystem.HashClass) {
					// Using a hash with unknown keys for keyword
					// arguments is an error, but only once it is clear
					// the hash is not consumed positionally below.
					kwSplatIsHash = true
					kwSplatTpe = &TypeAndOrigins{Type: splatType, Origins: splatArg.Origins}
					kwargs = &TypeAndOrigins{Type: typesystem.Untyped(), Origins: splatArg.Origins}
					aend--
				}
				if implicitKwsplat && kwargs != nil {
					posArgs--
				}
			} else {
				kwargs = &TypeAndOrigins{Type: splatType, Origins: splatArg.Origins}
				aend--
			}
		} else {
			kwargsShape = &typesystem.ShapeType{Keys: keys, Values: values}
			kwargs = &TypeAndOrigins{Type: kwargsShape, Origins: []loc.Loc{kwargsLoc}}
		}
	}

	// When required positional parameters remain unfilled, the keyword
	// hash is consumed as the next positional argument instead.
	if kwargs != nil && pit < pend &&
		(!hasKwargs || (!params[pit].Flags.Repeated && !params[pit].Flags.Keyword && !params[pit].Flags.Default)) {
		spec := &params[pit]
		d.matchArgType(args, res, constr, symbol, method, spec, kwargs, targs, kwargsLoc, len(args.Args) == 1)
		if !spec.Flags.Repeated {
			pit++
		}
		kwargs = nil
		kwargsShape = nil
		posArgs++
		if !hasKwargs {
			ait += numKwargs
		}
	} else if kwSplatIsHash {
		if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeUntypedKeywordHash); e != nil {
			e.Headerf("Passing a hash where the specific keys are unknown to a method taking keyword arguments")
			e.AddSection(kwSplatTpe.ExplainGot(d.table))
			res.Main.record(e)
		}
	}

	if pit < pend {
		spec := &params[pit]
		if !(spec.Flags.Keyword || spec.Flags.Default || spec.Flags.Repeated || spec.Flags.Block) {
			if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeNotEnoughArguments); e != nil {
				if !typesystem.Equal(args.FullType.Type, args.ThisType) {
					e.Headerf("Not enough arguments provided for method `%s` on `%s` component of `%s`. Expected: `%s`, got: `%d`",
						d.showMethod(method), d.show(args.ThisType), d.show(args.FullType.Type), prettyArity(data), posArgs)
				} else {
					e.Headerf("Not enough arguments provided for method `%s`. Expected: `%s`, got: `%d`",
						d.showMethod(method), prettyArity(data), posArgs)
				}
				e.Linef(data.Loc, "`%s` defined here", d.showMethod(method))
				if args.Name == "any" && symbol == d.table.Class(typesystem.TModule).Singleton {
					e.Notef("If you want to allow any type as an argument, use `T.untyped`")
				}
				res.Main.record(e)
			}
		}
	}

	consumed := map[string]bool{}
	if hasKwargs {
		ait += numKwargs

		switch {
		case kwargsShape != nil:
			hash := kwargsShape
			kwit := pit
			for kwit < len(params) && !params[kwit].Flags.Keyword {
				kwit++
			}
			for ; kwit < len(params); kwit++ {
				spec := &params[kwit]
				if spec.Flags.Repeated {
					// A keyword rest parameter absorbs everything no
					// named keyword claimed.
					for i, key := range hash.Keys {
						if key.Kind != typesystem.LiteralSymbol || consumed[key.Str] {
							continue
						}
						consumed[key.Str] = true
						tpe := &TypeAndOrigins{Type: hash.Values[i], Origins: []loc.Loc{kwargsLoc}}
						d.matchArgType(args, res, constr, symbol, method, spec, tpe, targs, loc.Loc{}, false)
					}
					break
				}
				idx := -1
				for i, key := range hash.Keys {
					if key.Kind == typesystem.LiteralSymbol && key.Str == spec.Name {
						idx = i
						break
					}
				}
				if idx < 0 {
					if !spec.Flags.Default {
						d.missingArg(args, res, method, spec)
					}
					continue
				}
				consumed[spec.Name] = true
				tpe := &TypeAndOrigins{Type: hash.Values[idx], Origins: []loc.Loc{kwargsLoc}}
				d.matchArgType(args, res, constr, symbol, method, spec, tpe, targs, loc.Loc{}, false)
			}
			for _, key := range hash.Keys {
				if key.Kind == typesystem.LiteralSymbol && consumed[key.Str] {
					continue
				}
				if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeUnrecognizedKeyword); e != nil {
					e.Headerf("Unrecognized keyword argument `%s` passed for method `%s`",
						d.showKeywordKey(key), d.showMethod(method))
					res.Main.record(e)
				}
			}
		case kwargs == nil:
			// The method wants keywords and the send provided none.
			for i := range params {
				spec := &params[i]
				if !spec.Flags.Keyword || spec.Flags.Default || spec.Flags.Repeated {
					continue
				}
				d.missingArg(args, res, method, spec)
			}
		}
	}

	if ait < aend {
		if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeTooManyArguments); e != nil {
			hashCount := 0
			if numKwargs > 0 || hasKwsplat {
				hashCount = 1
			}
			if !hasKwargs {
				e.Headerf("Too many arguments provided for method `%s`. Expected: `%s`, got: `%d`",
					d.showMethod(method), prettyArity(data), args.NumPosArgs+hashCount)
				e.Linef(data.Loc, "`%s` defined here", args.Name)
			} else {
				e.Headerf("Too many positional arguments provided for method `%s`. Expected: `%s`, got: `%d`",
					d.showMethod(method), prettyArity(data), posArgs)
				e.Linef(data.Loc, "`%s` defined here", args.Name)
				for i := range params {
					spec := &params[i]
					if spec.Flags.Keyword && spec.Flags.Default && !consumed[spec.Name] {
						e.Linef(args.Locs.CallLoc(),
							"`%s` has optional keyword arguments. Did you mean to provide a value for `%s`?",
							d.showMethod(method), spec.Name)
						break
					}
				}
			}
			res.Main.record(e)
		}
	}

	if args.Block != nil {
		bspec := data.BlockArg()
		// A method whose signature never mentions a block should not be
		// called with one; only strict files enforce the pairing.
		if data.HasSig && data.Loc.Exists() && bspec.Name == nameBlockArg &&
			d.table.FileStrictness(data.Loc.File) >= symbols.StrictnessStrict {
			if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeDoesNotTakeBlock); e != nil {
				e.Headerf("Method `%s` does not take a block", d.showMethod(method))
				e.Linef(data.Loc, "`%s` defined here", d.showMethod(method))
				res.Main.record(e)
			}
		}
		blockType := d.declaredType(bspec.Type, method, symbol, targs)
		res.Main.BlockReturnType = procReturnType(typesystem.DropSubtypesOf(d.table, blockType, typesystem.NilClassClass))
		if constr.IsSolved() {
			blockType = typesystem.InstantiateTypeVars(d.table, blockType, constr)
		} else {
			blockType = typesystem.Approximate(d.table, blockType, constr)
		}
		res.Main.BlockPreType = blockType
	}

	if fn, ok := d.intrinsics[method]; ok {
		fn(d, args, res)
		// The intrinsic may have replaced or discarded the constraint.
		if res.Main.Constr != nil {
			constr = res.Main.Constr
		} else {
			constr = typesystem.EmptyFrozen
		}
	}

	if res.ReturnType == nil {
		switch {
		case len(args.Args) == 1 && isSetter(data.Name):
			// Assignments return their right hand side.
			res.ReturnType = args.Args[0].Type
		case len(args.Args) == 2 && data.Name == nameSquareBracketsEq:
			res.ReturnType = args.Args[1].Type
		default:
			if data.ReturnType != nil {
				res.ReturnType = typesystem.InstantiateMembers(d.table, data.ReturnType, symbol, targs)
			}
		}
	}

	if args.Block == nil {
		// With a block present the constraint stays open: the caller
		// types the block body first and solves through the send link.
		if constr != typesystem.EmptyFrozen && !constr.Solve(d.table) {
			if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeGenericInstantiation); e != nil {
				e.Headerf("Could not find valid instantiation of type parameters for `%s`", d.showMethod(method))
				e.Linef(data.Loc, "`%s` defined here", d.showMethod(method))
				if lines := constr.Explain(d.table); len(lines) > 0 {
					details := make([]diagnostics.Detail, len(lines))
					for i, l := range lines {
						details[i] = diagnostics.Detail{Message: l}
					}
					e.Section("Found no solution for these constraints:", details...)
				}
				res.Main.record(e)
			}
		}
		if bt := data.BlockArg().Type; bt != nil && !typesystem.IsSubType(d.table, typesystem.NilType, bt) {
			if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeRequiresBlock); e != nil {
				e.Headerf("`%s` requires a block parameter, but no block was passed", args.Name)
				e.Linef(data.Loc, "defined here")
				res.Main.record(e)
			}
		}
	}

	if res.ReturnType == nil {
		res.ReturnType = typesystem.UntypedBlaming(method)
	} else if !constr.IsEmpty() && constr.IsSolved() {
		res.ReturnType = typesystem.InstantiateTypeVars(d.table, res.ReturnType, constr)
	}
	res.ReturnType = typesystem.ReplaceSelfType(d.table, res.ReturnType, args.ThisType)

	if args.Block != nil {
		res.Main.SendType = res.ReturnType
	}
	return res
}

// matchArgType checks one provided argument against one declared parameter,
// recording bounds for method-level type parameters along the way.
func (d *Dispatcher) matchArgType(args *DispatchArgs, res *DispatchResult, constr *typesystem.Constraint,
	inClass typesystem.ClassRef, method typesystem.MethodRef, spec *symbols.ArgInfo, argTpe *TypeAndOrigins,
	targs []typesystem.Type, argLoc loc.Loc, mayBeSetter bool) {
	data := d.table.Method(method)
	expected := d.declaredType(spec.Type, method, inClass, targs)
	expected = typesystem.ReplaceSelfType(d.table, expected, args.ThisType)

	if typesystem.IsSubTypeUnderConstraint(d.table, constr, argTpe.Type, expected) {
		return
	}

	e := d.beginError(args, smallestLocWithin(args.Locs.CallLoc(), argTpe), diagnostics.CodeArgumentMismatch)
	if e == nil {
		return
	}
	if mayBeSetter && isSetter(data.Name) {
		e.Headerf("Assigning a value to `%s` that does not match expected type `%s`", spec.Name, d.show(expected))
	} else {
		e.Headerf("Expected `%s` but found `%s` for argument `%s`", d.show(expected), d.show(argTpe.Type), spec.Name)
		e.AddSection(explainExpected(d.table, expected, spec.Loc,
			fmt.Sprintf("argument `%s` of method `%s`", spec.Name, d.showMethod(method))))
	}
	e.AddSection(argTpe.ExplainGot(d.table))
	if src, ok := d.sourceAt(argLoc); ok {
		if d.opts.SuggestUnsafe != "" {
			e.Autocorrect("Wrap in `"+d.opts.SuggestUnsafe+"`",
				diagnostics.Edit{Loc: argLoc, Replace: d.opts.SuggestUnsafe + "(" + src + ")"})
		} else {
			withoutNil := typesystem.DropSubtypesOf(d.table, argTpe.Type, typesystem.NilClassClass)
			if !typesystem.IsBottom(withoutNil) && typesystem.IsSubTypeUnderConstraint(d.table, constr, withoutNil, expected) {
				e.Autocorrect("Wrap in `T.must`",
					diagnostics.Edit{Loc: argLoc, Replace: "T.must(" + src + ")"})
			}
		}
	}
	res.Main.record(e)
}

func (d *Dispatcher) missingArg(args *DispatchArgs, res *DispatchResult, method typesystem.MethodRef, spec *symbols.ArgInfo) {
	if e := d.beginError(args, args.Locs.CallLoc(), diagnostics.CodeMissingKeywordArgument); e != nil {
		e.Headerf("Missing required keyword argument `%s` for method `%s`", spec.Name, d.showMethod(method))
		res.Main.record(e)
	}
}

// declaredType computes a declared parameter or return type as seen from
// the dispatched class. Undeclared types become untyped blaming the
// method, so provenance survives into downstream diagnostics.
func (d *Dispatcher) declaredType(t typesystem.Type, method typesystem.MethodRef, inClass typesystem.ClassRef, targs []typesystem.Type) typesystem.Type {
	if t == nil {
		return typesystem.UntypedBlaming(method)
	}
	return typesystem.InstantiateMembers(d.table, t, inClass, targs)
}

func (d *Dispatcher) showKeywordKey(key *typesystem.LiteralType) string {
	if key.Kind == typesystem.LiteralSymbol {
		return key.Str
	}
	return d.show(key)
}

// smallestLocWithin picks the smallest origin contained in the call span,
// so a mismatch points at the offending argument rather than the whole
// call. Falls back to the call itself.
func smallestLocWithin(callLoc loc.Loc, argTpe *TypeAndOrigins) loc.Loc {
	chosen := callLoc
	for _, o := range argTpe.Origins {
		if o.File == callLoc.File && callLoc.Span.Contains(o.Span) && o.Span.Len() < chosen.Span.Len() {
			chosen = o
		}
	}
	return chosen
}

// isSetter reports whether name is an assignment method, excluding the
// comparison operators that also end in '='.
func isSetter(name string) bool {
	if len(name) < 2 || name[len(name)-1] != '=' {
		return false
	}
	switch name {
	case "<=", ">=", "==", "===", "!=":
		return false
	}
	return true
}

// fromKwargsShape returns the shape when t is a hash literal whose keys
// are all symbols, the only form that can stand in for keyword arguments.
func fromKwargsShape(t typesystem.Type) *typesystem.ShapeType {
	shape, ok := t.(*typesystem.ShapeType)
	if !ok {
		return nil
	}
	for _, k := range shape.Keys {
		if k.Kind != typesystem.LiteralSymbol {
			return nil
		}
	}
	return shape
}

// procReturnType extracts the declared return of a fixed-arity proc type.
// Procs of unknown arity and non-proc types give untyped.
func procReturnType(t typesystem.Type) typesystem.Type {
	if applied, ok := t.(*typesystem.AppliedType); ok {
		if _, isProc := typesystem.ProcArityOf(applied.Symbol); isProc && len(applied.TypeArgs) > 0 {
			return applied.TypeArgs[0]
		}
	}
	return typesystem.Untyped()
}

// prettyArity renders the positional arity a method accepts: "2", "1..3"
// for optional parameters, "2+" when a rest parameter is declared.
func prettyArity(data *symbols.MethodData) string {
	required, optional := 0, 0
	repeated := false
	for i := range data.Args {
		spec := &data.Args[i]
		switch {
		case spec.Flags.Keyword || spec.Flags.Block:
		case spec.Flags.Repeated:
			repeated = true
		case spec.Flags.Default:
			optional++
		default:
			required++
		}
	}
	switch {
	case repeated:
		return fmt.Sprintf("%d+", required)
	case optional > 0:
		return fmt.Sprintf("%d..%d", required, required+optional)
	default:
		return strconv.Itoa(required)
	}
}

// getArity counts a method's declared parameters, block excluded.
func getArity(data *symbols.MethodData) int {
	return len(data.Args) - 1
}
