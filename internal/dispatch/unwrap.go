package dispatch

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// unwrapType turns a value-level expression's type back into the type it
// denotes. A bare class constant arrives as its singleton class; the
// attached instance type is what a type argument position means. Types
// with no type-level reading are diagnosed and become untyped.
func (d *Dispatcher) unwrapType(args *DispatchArgs, res *DispatchResult, l loc.Loc, t typesystem.Type) typesystem.Type {
	switch x := t.(type) {
	case *typesystem.MetaType:
		return x.Wrapped
	case *typesystem.ClassType:
		if attached, ok := d.table.AttachedClass(x.Symbol); ok {
			return d.table.ExternalType(attached)
		}
		if e := d.beginError(args, l, diagnostics.CodeBareTypeUsage); e != nil {
			e.Headerf("Unsupported usage of bare type")
			res.Main.record(e)
		}
		return typesystem.Untyped()
	case *typesystem.AppliedType:
		if attached, ok := d.table.AttachedClass(x.Symbol); ok {
			return d.table.ExternalType(attached)
		}
		if e := d.beginError(args, l, diagnostics.CodeBareTypeUsage); e != nil {
			e.Headerf("Unsupported usage of bare type")
			res.Main.record(e)
		}
		return typesystem.Untyped()
	case *typesystem.ShapeType:
		values := make([]typesystem.Type, len(x.Values))
		for i, v := range x.Values {
			values[i] = d.unwrapType(args, res, l, v)
		}
		return &typesystem.ShapeType{Keys: x.Keys, Values: values}
	case *typesystem.TupleType:
		elems := make([]typesystem.Type, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = d.unwrapType(args, res, l, e)
		}
		return &typesystem.TupleType{Elems: elems}
	case *typesystem.LiteralType:
		if e := d.beginError(args, l, diagnostics.CodeLiteralTypePosition); e != nil {
			e.Headerf("Unsupported usage of literal type")
			res.Main.record(e)
		}
		return typesystem.Untyped()
	default:
		return t
	}
}

// unwrapSymbol digs the class symbol out of a receiver type, looking
// through the proxy layers. Receivers that reach an intrinsic have class
// shape; anything else is a caller bug.
func (d *Dispatcher) unwrapSymbol(t typesystem.Type) typesystem.ClassRef {
	for {
		switch x := t.(type) {
		case *typesystem.ClassType:
			return x.Symbol
		case *typesystem.AppliedType:
			return x.Symbol
		case *typesystem.LiteralType:
			t = typesystem.NewClassType(x.Underlying)
		case *typesystem.ShapeType:
			t = x.Underlying(d.table)
		case *typesystem.TupleType:
			t = x.Underlying(d.table)
		default:
			panic("dispatch: cannot extract a class from receiver: " + spew.Sdump(t))
		}
	}
}

// CallArguments computes the type of the argument list that method name
// accepts on receiver t: a tuple of the declared parameter types, or an
// array when the method declares a rest parameter. Union receivers take
// the meet of their sides (arguments every side accepts), intersections
// the join. Returns nil when no side resolves the method.
func (d *Dispatcher) CallArguments(t typesystem.Type, name string) typesystem.Type {
	switch x := t.(type) {
	case *typesystem.UntypedType:
		return t
	case *typesystem.ClassType:
		return d.methodArguments(x.Symbol, name, nil)
	case *typesystem.AppliedType:
		return d.methodArguments(x.Symbol, name, x.TypeArgs)
	case *typesystem.OrType:
		left := d.CallArguments(x.Left, name)
		right := d.CallArguments(x.Right, name)
		if left == nil {
			left = typesystem.Untyped()
		}
		if right == nil {
			right = typesystem.Untyped()
		}
		return typesystem.Meet(d.table, left, right)
	case *typesystem.AndType:
		left := d.CallArguments(x.Left, name)
		right := d.CallArguments(x.Right, name)
		switch {
		case left == nil:
			return right
		case right == nil:
			return left
		default:
			return typesystem.Join(d.table, left, right)
		}
	case *typesystem.LiteralType:
		return d.CallArguments(typesystem.NewClassType(x.Underlying), name)
	case *typesystem.ShapeType:
		return d.CallArguments(x.Underlying(d.table), name)
	case *typesystem.TupleType:
		return d.CallArguments(x.Underlying(d.table), name)
	case *typesystem.MetaType:
		return d.CallArguments(typesystem.NewClassType(typesystem.ObjectClass), name)
	default:
		return nil
	}
}

func (d *Dispatcher) methodArguments(klass typesystem.ClassRef, name string, targs []typesystem.Type) typesystem.Type {
	method := d.table.FindMemberTransitive(klass, name)
	if !method.Exists() {
		return nil
	}
	data := d.table.Method(method)
	var elems []typesystem.Type
	for i := range data.Args {
		spec := &data.Args[i]
		if spec.Flags.Block || spec.Flags.Keyword {
			continue
		}
		seen := d.declaredType(spec.Type, method, klass, targs)
		if spec.Flags.Repeated {
			return arrayOf(seen)
		}
		elems = append(elems, seen)
	}
	return &typesystem.TupleType{Elems: elems}
}

func arrayOf(elem typesystem.Type) typesystem.Type {
	return typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{elem})
}

func arrayOfUntyped() typesystem.Type {
	return arrayOf(typesystem.Untyped())
}

func hashOfUntyped() typesystem.Type {
	u := typesystem.Untyped()
	return typesystem.NewApplied(typesystem.HashClass, []typesystem.Type{u, u, u})
}

// dropLiteral widens a literal to its underlying class and leaves every
// other type alone, where Widen would also rewrite tuples and shapes.
func dropLiteral(t typesystem.Type) typesystem.Type {
	if lit, ok := t.(*typesystem.LiteralType); ok {
		return typesystem.NewClassType(lit.Underlying)
	}
	return t
}

func (d *Dispatcher) dropNil(t typesystem.Type) typesystem.Type {
	return typesystem.DropSubtypesOf(d.table, t, typesystem.NilClassClass)
}
