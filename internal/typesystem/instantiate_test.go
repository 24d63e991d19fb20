package typesystem_test

import (
	"testing"

	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

func TestInstantiateMembers(t *testing.T) {
	tbl := symbols.NewTable()
	elem := tbl.Class(typesystem.ArrayClass).TypeMembers[0]
	elemVar := &typesystem.MemberVar{Definition: elem}
	integer := typesystem.NewClassType(typesystem.IntegerClass)

	got := typesystem.InstantiateMembers(tbl, elemVar, typesystem.ArrayClass, []typesystem.Type{integer})
	if !typesystem.Equal(got, integer) {
		t.Errorf("Elem under Array[Integer] = %s, want Integer", typesystem.Show(tbl, got))
	}

	// The member survives inside composite types.
	wrapped := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{typesystem.Nilable(tbl, elemVar)})
	got = typesystem.InstantiateMembers(tbl, wrapped, typesystem.ArrayClass, []typesystem.Type{integer})
	want := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{typesystem.Nilable(tbl, integer)})
	if !typesystem.Equal(got, want) {
		t.Errorf("nested member = %s, want %s", typesystem.Show(tbl, got), typesystem.Show(tbl, want))
	}

	// Members of a different owner degrade to untyped.
	got = typesystem.InstantiateMembers(tbl, elemVar, typesystem.HashClass, []typesystem.Type{integer, integer, integer})
	if !typesystem.IsUntyped(got) {
		t.Errorf("foreign member = %s, want untyped", typesystem.Show(tbl, got))
	}

	// Missing arguments also degrade to untyped.
	got = typesystem.InstantiateMembers(tbl, elemVar, typesystem.ArrayClass, nil)
	if !typesystem.IsUntyped(got) {
		t.Errorf("member without an argument = %s, want untyped", typesystem.Show(tbl, got))
	}
}

func TestReplaceSelfType(t *testing.T) {
	tbl := symbols.NewTable()
	integer := typesystem.NewClassType(typesystem.IntegerClass)

	got := typesystem.ReplaceSelfType(tbl, typesystem.Self(), integer)
	if !typesystem.Equal(got, integer) {
		t.Errorf("self = %s, want Integer", typesystem.Show(tbl, got))
	}

	nested := typesystem.Nilable(tbl, typesystem.Self())
	got = typesystem.ReplaceSelfType(tbl, nested, integer)
	if !typesystem.Equal(got, typesystem.Nilable(tbl, integer)) {
		t.Errorf("self inside a union = %s, want Integer?", typesystem.Show(tbl, got))
	}

	// Unrelated types pass through untouched.
	got = typesystem.ReplaceSelfType(tbl, integer, typesystem.NewClassType(typesystem.StringClass))
	if !typesystem.Equal(got, integer) {
		t.Errorf("Integer = %s, want unchanged", typesystem.Show(tbl, got))
	}
}

func TestInstantiateTypeVars(t *testing.T) {
	tbl, u, tv := newParam(t)
	integer := typesystem.NewClassType(typesystem.IntegerClass)

	c := typesystem.NewConstraint([]typesystem.TypeParamRef{u})
	typesystem.IsSubTypeUnderConstraint(tbl, c, integer, tv)

	// Unsolved constraints leave the variable alone.
	got := typesystem.InstantiateTypeVars(tbl, tv, c)
	if !typesystem.Equal(got, tv) {
		t.Errorf("unsolved instantiation = %s, want the variable kept", typesystem.Show(tbl, got))
	}

	if !c.Solve(tbl) {
		t.Fatal("Solve failed")
	}
	got = typesystem.InstantiateTypeVars(tbl, typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{tv}), c)
	want := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{integer})
	if !typesystem.Equal(got, want) {
		t.Errorf("solved instantiation = %s, want Array[Integer]", typesystem.Show(tbl, got))
	}
}

func TestApproximate(t *testing.T) {
	tbl, u, tv := newParam(t)

	c := typesystem.NewConstraint([]typesystem.TypeParamRef{u})
	typesystem.IsSubTypeUnderConstraint(tbl, c, tv, typesystem.NewClassType(typesystem.IntegerClass))
	got := typesystem.Approximate(tbl, tv, c)
	if !typesystem.Equal(got, typesystem.NewClassType(typesystem.IntegerClass)) {
		t.Errorf("approximation = %s, want the upper bound", typesystem.Show(tbl, got))
	}

	// With only a literal lower bound the guess widens.
	c2 := typesystem.NewConstraint([]typesystem.TypeParamRef{u})
	typesystem.IsSubTypeUnderConstraint(tbl, c2, typesystem.IntLiteral(7), tv)
	got = typesystem.Approximate(tbl, tv, c2)
	if !typesystem.Equal(got, typesystem.NewClassType(typesystem.IntegerClass)) {
		t.Errorf("approximation = %s, want Integer", typesystem.Show(tbl, got))
	}

	// No bounds at all approximate to untyped.
	c3 := typesystem.NewConstraint([]typesystem.TypeParamRef{u})
	if got := typesystem.Approximate(tbl, tv, c3); !typesystem.IsUntyped(got) {
		t.Errorf("approximation = %s, want untyped", typesystem.Show(tbl, got))
	}
}

func TestWiden(t *testing.T) {
	tbl := symbols.NewTable()
	integer := typesystem.NewClassType(typesystem.IntegerClass)
	str := typesystem.NewClassType(typesystem.StringClass)

	if got := typesystem.Widen(tbl, typesystem.StringLiteral("hi")); !typesystem.Equal(got, str) {
		t.Errorf("Widen(String(\"hi\")) = %s, want String", typesystem.Show(tbl, got))
	}

	tup := &typesystem.TupleType{Elems: []typesystem.Type{typesystem.IntLiteral(1), typesystem.IntLiteral(2)}}
	got := typesystem.Widen(tbl, tup)
	want := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{integer})
	if !typesystem.Equal(got, want) {
		t.Errorf("Widen([1, 2]) = %s, want Array[Integer]", typesystem.Show(tbl, got))
	}

	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("k")},
		Values: []typesystem.Type{integer},
	}
	got = typesystem.Widen(tbl, shape)
	if !typesystem.DerivesFromClass(tbl, got, typesystem.HashClass) {
		t.Errorf("Widen(shape) = %s, want a Hash", typesystem.Show(tbl, got))
	}

	union := typesystem.NewOr(typesystem.IntLiteral(1), typesystem.IntLiteral(2))
	if got := typesystem.Widen(tbl, union); !typesystem.Equal(got, integer) {
		t.Errorf("Widen(1 | 2) = %s, want Integer", typesystem.Show(tbl, got))
	}

	if got := typesystem.Widen(tbl, integer); !typesystem.Equal(got, integer) {
		t.Errorf("Widen(Integer) = %s, want Integer unchanged", typesystem.Show(tbl, got))
	}
}
