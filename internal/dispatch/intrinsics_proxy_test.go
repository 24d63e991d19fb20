package dispatch

import (
	"testing"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

func TestTupleIndex(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	pair := tupleOf(intT, strT)

	cases := []struct {
		index typesystem.Type
		want  string
	}{
		{typesystem.IntLiteral(0), "Integer"},
		{typesystem.IntLiteral(1), "String"},
		{typesystem.IntLiteral(-1), "String"},
		{typesystem.IntLiteral(5), "NilClass"},
		{typesystem.IntLiteral(-5), "NilClass"},
		// A dynamic index falls through to the underlying array lookup.
		{intT, "T.nilable(T.any(Integer, String))"},
	}
	for _, c := range cases {
		a := newCall(pair, "[]")
		addPos(&a, c.index)
		res := d.Call(a)
		wantDiags(t, res)
		wantType(t, tbl, res.ReturnType, c.want)
	}
}

func TestTupleFirstLast(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	pair := tupleOf(intT, strT)

	res := d.Call(newCall(pair, "first"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Integer")

	res = d.Call(newCall(pair, "last"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "String")

	res = d.Call(newCall(tupleOf(), "first"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "NilClass")
}

func TestTupleMinMax(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	pair := tupleOf(intT, strT)

	for _, name := range []string{"min", "max"} {
		res := d.Call(newCall(pair, name))
		wantDiags(t, res)
		wantType(t, tbl, res.ReturnType, "T.any(Integer, String)")
	}

	res := d.Call(newCall(tupleOf(), "min"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "NilClass")
}

func TestTupleToA(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	pair := tupleOf(typesystem.NewClassType(typesystem.IntegerClass),
		typesystem.NewClassType(typesystem.StringClass))

	res := d.Call(newCall(pair, "to_a"))
	wantDiags(t, res)
	if res.ReturnType != pair {
		t.Errorf("got %v, want the receiver tuple itself", res.ReturnType)
	}
}

func TestTupleConcat(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)

	a := newCall(tupleOf(intT), "concat")
	addPos(&a, tupleOf(strT), tupleOf(intT))
	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "[Integer, String, Integer]")
}

func TestShapeStoreKnownKey(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	strT := typesystem.NewClassType(typesystem.StringClass)
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("mode")},
		Values: []typesystem.Type{strT},
	}

	a := newCall(shape, "[]=")
	addPos(&a, typesystem.SymbolLiteral("mode"), typesystem.IntLiteral(1))
	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Expected `String` but found `Integer(1)` for key `Symbol(:mode)`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !hasSection(ds[0], "Shape originates from here:") {
		t.Errorf("missing origin section in %v", ds[0].Sections)
	}
	if !hasSection(ds[0], "Got `Integer(1)` originating from:") {
		t.Errorf("missing provenance section in %v", ds[0].Sections)
	}
	// The store still types as the written value.
	wantType(t, tbl, res.ReturnType, "Integer(1)")

	a = newCall(shape, "[]=")
	addPos(&a, typesystem.SymbolLiteral("mode"), typesystem.StringLiteral("quiet"))
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, `String("quiet")`)
}

func TestShapeStoreFreshKey(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("mode")},
		Values: []typesystem.Type{typesystem.NewClassType(typesystem.StringClass)},
	}

	a := newCall(shape, "[]=")
	addPos(&a, typesystem.SymbolLiteral("extra"), typesystem.IntLiteral(1))
	res := d.Call(a)
	wantDiags(t, res)
	if !typesystem.IsUntyped(res.ReturnType) {
		t.Errorf("got %v, want untyped for a widening write", res.ReturnType)
	}
}

// A value pinned to nil by its literal initializer is the most common shape
// store failure; the fix rewrites the initializer with a widened T.let.
func TestShapeStorePinnedNilFix(t *testing.T) {
	tbl := symbols.NewTable()
	text := "{mode: nil}"
	src := loc.MapSource{testFile: text}
	d := New(tbl, src, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("mode")},
		Values: []typesystem.Type{typesystem.NilType},
	}

	a := newCall(shape, "[]=")
	a.FullType = &TypeAndOrigins{Type: shape, Origins: []loc.Loc{loc.New(testFile, 0, 11)}}
	addPos(&a, typesystem.SymbolLiteral("mode"), intT)
	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeArgumentMismatch)
	if len(ds[0].Autocorrects) != 1 {
		t.Fatalf("got %d fixes, want 1: %v", len(ds[0].Autocorrects), ds[0].Autocorrects)
	}
	fix := ds[0].Autocorrects[0]
	if fix.Title != "Initialize with `T.let`" {
		t.Errorf("got fix title %q", fix.Title)
	}
	if len(fix.Edits) != 1 || fix.Edits[0].Loc != loc.New(testFile, 7, 10) ||
		fix.Edits[0].Replace != "T.let(nil, T.nilable(Integer))" {
		t.Errorf("got edit %+v", fix.Edits)
	}
}

func TestShapeMerge(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("mode")},
		Values: []typesystem.Type{strT},
	}

	// Inline keywords replace existing keys and append new ones.
	a := newCall(shape, "merge")
	addKw(&a, "mode", intT)
	addKw(&a, "extra", strT)
	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "{mode: Integer, extra: String}")

	other := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("extra")},
		Values: []typesystem.Type{intT},
	}
	a = newCall(shape, "merge")
	addPos(&a, other)
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "{mode: String, extra: Integer}")

	// Merging something without statically known keys loses the shape.
	a = newCall(shape, "merge")
	addPos(&a, typesystem.NewApplied(typesystem.HashClass,
		[]typesystem.Type{strT, intT, tupleOf(strT, intT)}))
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Hash[T.untyped, T.untyped]")
}

func TestShapeToHash(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("mode")},
		Values: []typesystem.Type{typesystem.NewClassType(typesystem.StringClass)},
	}

	res := d.Call(newCall(shape, "to_hash"))
	wantDiags(t, res)
	if res.ReturnType != shape {
		t.Errorf("got %v, want the receiver shape itself", res.ReturnType)
	}
}

func TestArrayFlatten(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	nested := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{
		typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{intT}),
	})

	res := d.Call(newCall(nested, "flatten"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[Integer]")

	// An explicit depth stops early.
	deep := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{nested})
	a := newCall(deep, "flatten")
	addPos(&a, typesystem.IntLiteral(1))
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[Array[Integer]]")

	// A negative depth flattens without limit.
	a = newCall(deep, "flatten")
	addPos(&a, typesystem.IntLiteral(-1))
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[Integer]")

	// Tuples flatten through their element union.
	res = d.Call(newCall(tupleOf(intT, tupleOf(strT)), "flatten"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[T.any(Integer, String)]")
}

func TestArrayFlattenDynamicDepth(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	nested := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{
		typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{intT}),
	})

	a := newCall(nested, "flatten")
	addPos(&a, intT)
	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeLiteralTypePosition)
	if ds[0].Header != "You must pass an Integer literal to specify a depth with Array#flatten" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if ds[0].Loc != loc.New(testFile, 20, 26) {
		t.Errorf("got loc %v, want the depth argument", ds[0].Loc)
	}
	wantType(t, tbl, res.ReturnType, "Array[T.untyped]")
}

func TestArrayCompact(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	nilableInts := typesystem.NewApplied(typesystem.ArrayClass,
		[]typesystem.Type{typesystem.Nilable(tbl, intT)})

	res := d.Call(newCall(nilableInts, "compact"))
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[Integer]")
}

func TestArrayZip(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	ints := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{intT})
	strs := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{strT})

	a := newCall(ints, "zip")
	addPos(&a, strs)
	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[[Integer, T.nilable(String)]]")

	// Zipping something without an element type gives up quietly.
	a = newCall(ints, "zip")
	addPos(&a, strT)
	res = d.Call(a)
	wantDiags(t, res)
	if !typesystem.IsUntyped(res.ReturnType) {
		t.Errorf("got %v, want untyped", res.ReturnType)
	}
}

func TestArrayProduct(t *testing.T) {
	tbl := symbols.NewTable()
	d := New(tbl, nil, Options{})
	intT := typesystem.NewClassType(typesystem.IntegerClass)
	strT := typesystem.NewClassType(typesystem.StringClass)
	ints := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{intT})
	strs := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{strT})

	a := newCall(ints, "product")
	addPos(&a, strs)
	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "Array[[Integer, String]]")
}
