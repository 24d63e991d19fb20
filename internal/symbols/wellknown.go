// symbols/wellknown.go - Bootstrap of the reserved class block and core methods
//
// NewTable enters the reserved classes in the exact order of the typesystem
// ClassRef constants and panics on drift. Core method signatures mirror the
// runtime's behavior closely enough for dispatch tests; worlds loaded on top
// add their own classes after the reserved block.

package symbols

import (
	"fmt"

	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// BuiltinFile is the pseudo-file owning every bootstrap definition. It is
// registered strict, so signature-related checks on core methods fire at
// every call site.
const BuiltinFile = "<builtin>"

var builtinLoc = loc.New(BuiltinFile, 0, 0)

func (t *Table) bootstrap() {
	t.enterReservedClasses()
	t.enterReservedTypeMembers()
	for c := typesystem.ClassRef(1); c < typesystem.ReservedClassCount; c++ {
		t.Singleton(c)
	}
	t.enterCoreMethods()
	t.fileStrictness[BuiltinFile] = StrictnessStrict
}

func (t *Table) reserve(want typesystem.ClassRef, name string, opts ClassOptions) {
	if got := t.EnterClass(name, opts); got != want {
		panic(fmt.Sprintf("symbols: reserved class %q entered at ref %d, want %d", name, got, want))
	}
}

func (t *Table) enterReservedClasses() {
	module := ClassOptions{IsModule: true}
	t.reserve(typesystem.ObjectClass, "Object", ClassOptions{})
	t.reserve(typesystem.ModuleClass, "Module", ClassOptions{})
	t.reserve(typesystem.ClassClass, "Class", ClassOptions{Superclass: typesystem.ModuleClass})
	t.reserve(typesystem.KernelModule, "Kernel", module)
	t.reserve(typesystem.ComparableModule, "Comparable", module)
	t.reserve(typesystem.NilClassClass, "NilClass", ClassOptions{})
	t.reserve(typesystem.TrueClassClass, "TrueClass", ClassOptions{})
	t.reserve(typesystem.FalseClassClass, "FalseClass", ClassOptions{})
	t.reserve(typesystem.IntegerClass, "Integer", ClassOptions{})
	t.reserve(typesystem.FloatClass, "Float", ClassOptions{})
	t.reserve(typesystem.StringClass, "String", ClassOptions{})
	t.reserve(typesystem.SymbolClass, "Symbol", ClassOptions{})
	t.reserve(typesystem.RegexpClass, "Regexp", ClassOptions{})
	t.reserve(typesystem.ArrayClass, "Array", ClassOptions{})
	t.reserve(typesystem.HashClass, "Hash", ClassOptions{})
	t.reserve(typesystem.RangeClass, "Range", ClassOptions{})
	t.reserve(typesystem.ProcClass, "Proc", ClassOptions{})
	for n := 0; n <= typesystem.MaxProcArity; n++ {
		want, _ := typesystem.ProcClassFor(n)
		t.reserve(want, fmt.Sprintf("Proc%d", n), ClassOptions{Superclass: typesystem.ProcClass})
	}
	t.reserve(typesystem.VoidClass, "<void>", ClassOptions{})
	t.reserve(typesystem.TupleClass, "<Tuple>", ClassOptions{})
	t.reserve(typesystem.ShapeClass, "<Shape>", ClassOptions{})
	t.reserve(typesystem.MagicClass, "<Magic>", ClassOptions{})
	t.reserve(typesystem.TModule, "T", module)
	t.reserve(typesystem.THelpersModule, "T::Helpers", module)
	t.reserve(typesystem.TArrayAlias, "T::Array", module)
	t.reserve(typesystem.THashAlias, "T::Hash", module)
	t.reserve(typesystem.TRangeAlias, "T::Range", module)

	t.AddMixin(typesystem.ObjectClass, typesystem.KernelModule)
	t.AddMixin(typesystem.IntegerClass, typesystem.ComparableModule)
	t.AddMixin(typesystem.FloatClass, typesystem.ComparableModule)
	t.AddMixin(typesystem.StringClass, typesystem.ComparableModule)
}

func (t *Table) enterReservedTypeMembers() {
	t.EnterTypeMember(typesystem.ArrayClass, "Elem", typesystem.Invariant)
	t.EnterTypeMember(typesystem.HashClass, "K", typesystem.Invariant)
	t.EnterTypeMember(typesystem.HashClass, "V", typesystem.Invariant)
	t.EnterTypeMember(typesystem.HashClass, "Elem", typesystem.Invariant)
	t.EnterTypeMember(typesystem.RangeClass, "Elem", typesystem.Invariant)
	for n := 0; n <= typesystem.MaxProcArity; n++ {
		c, _ := typesystem.ProcClassFor(n)
		t.EnterTypeMember(c, "Return", typesystem.Covariant)
		for i := 0; i < n; i++ {
			t.EnterTypeMember(c, fmt.Sprintf("Arg%d", i), typesystem.Contravariant)
		}
	}
}

// memberVar references the i-th type member of c from a declared signature.
func (t *Table) memberVar(c typesystem.ClassRef, i int) typesystem.Type {
	return &typesystem.MemberVar{Definition: t.Class(c).TypeMembers[i]}
}

func pos(name string, typ typesystem.Type) ArgInfo {
	return ArgInfo{Name: name, Type: typ, Loc: builtinLoc}
}

func opt(name string, typ typesystem.Type) ArgInfo {
	return ArgInfo{Name: name, Type: typ, Flags: ArgFlags{Default: true}, Loc: builtinLoc}
}

func rest(name string, typ typesystem.Type) ArgInfo {
	return ArgInfo{Name: name, Type: typ, Flags: ArgFlags{Repeated: true}, Loc: builtinLoc}
}

func blk(name string, typ typesystem.Type) ArgInfo {
	return ArgInfo{Name: name, Type: typ, Flags: ArgFlags{Block: true}, Loc: builtinLoc}
}

// def enters one core method with a signature.
func (t *Table) def(owner typesystem.ClassRef, name string, ret typesystem.Type, args ...ArgInfo) typesystem.MethodRef {
	return t.EnterMethod(owner, name, MethodOptions{
		Args:       args,
		ReturnType: ret,
		HasSig:     true,
		Loc:        builtinLoc,
	})
}

func (t *Table) enterCoreMethods() {
	var (
		intT    = typesystem.NewClassType(typesystem.IntegerClass)
		floatT  = typesystem.NewClassType(typesystem.FloatClass)
		strT    = typesystem.NewClassType(typesystem.StringClass)
		symT    = typesystem.NewClassType(typesystem.SymbolClass)
		boolT   = typesystem.Boolean()
		nilT    = typesystem.Type(typesystem.NilType)
		falseT  = typesystem.Type(typesystem.FalseType)
		trueT   = typesystem.Type(typesystem.TrueType)
		selfT   = typesystem.Self()
		untyped = typesystem.Untyped()
		voidT   = typesystem.NewClassType(typesystem.VoidClass)
		procT   = typesystem.NewClassType(typesystem.ProcClass)
		moduleT = typesystem.NewClassType(typesystem.ModuleClass)
		classT  = typesystem.NewClassType(typesystem.ClassClass)
	)
	nilable := func(x typesystem.Type) typesystem.Type { return typesystem.Nilable(t, x) }
	arrayOf := func(x typesystem.Type) typesystem.Type {
		return typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{x})
	}
	proc1 := func(ret, a0 typesystem.Type) typesystem.Type {
		return typesystem.NewApplied(typesystem.Proc1Class, []typesystem.Type{ret, a0})
	}

	obj := typesystem.ObjectClass
	t.def(obj, "class", classT)
	t.def(obj, "to_s", strT)
	t.def(obj, "inspect", strT)
	t.def(obj, "==", boolT, pos("other", untyped))
	t.def(obj, "===", boolT, pos("other", untyped))
	t.def(obj, "!", boolT)
	t.def(obj, "nil?", boolT)
	t.def(obj, "freeze", selfT)
	t.def(obj, "dup", selfT)
	t.def(obj, "hash", intT)
	t.def(obj, "is_a?", boolT, pos("mod", moduleT))
	t.def(obj, "respond_to?", boolT, pos("name", symT))

	ker := typesystem.KernelModule
	t.def(ker, "proc", procT, blk("blk", nil))
	t.def(ker, "lambda", procT, blk("blk", nil))
	t.def(ker, "puts", nilT, rest("args", untyped))
	t.def(ker, "p", untyped, rest("args", untyped))
	t.def(ker, "raise", typesystem.Bottom(), rest("args", untyped))
	t.def(ker, "block_given?", boolT)

	t.def(typesystem.ModuleClass, "===", boolT, pos("other", untyped))
	t.def(typesystem.ModuleClass, "name", nilable(strT))
	t.def(typesystem.ModuleClass, "ancestors", arrayOf(moduleT))

	t.def(typesystem.ClassClass, "new", untyped, rest("args", untyped))
	t.def(typesystem.ClassClass, "[]", untyped, rest("args", untyped))
	t.def(typesystem.ClassClass, "superclass", nilable(classT))
	t.def(typesystem.ClassClass, "allocate", untyped)

	cmp := typesystem.ComparableModule
	for _, op := range []string{"<", "<=", ">", ">="} {
		t.def(cmp, op, boolT, pos("other", untyped))
	}
	t.def(cmp, "between?", boolT, pos("min", untyped), pos("max", untyped))
	t.def(cmp, "clamp", selfT, pos("min", untyped), pos("max", untyped))

	t.def(typesystem.NilClassClass, "nil?", trueT)
	t.def(typesystem.NilClassClass, "to_a", &typesystem.TupleType{})
	t.def(typesystem.NilClassClass, "to_s", strT)
	t.def(typesystem.NilClassClass, "inspect", strT)

	t.def(typesystem.TrueClassClass, "&", boolT, pos("other", untyped))
	t.def(typesystem.TrueClassClass, "to_s", strT)
	t.def(typesystem.FalseClassClass, "&", falseT, pos("other", untyped))
	t.def(typesystem.FalseClassClass, "to_s", strT)

	in := typesystem.IntegerClass
	for _, op := range []string{"+", "-", "*", "/", "%"} {
		t.def(in, op, intT, pos("other", intT))
	}
	for _, op := range []string{"<", "<=", ">", ">="} {
		t.def(in, op, boolT, pos("other", intT))
	}
	t.def(in, "to_s", strT)
	t.def(in, "to_f", floatT)
	t.def(in, "succ", intT)
	t.def(in, "abs", intT)
	t.def(in, "zero?", boolT)
	t.def(in, "times", intT, blk("blk", proc1(voidT, intT)))

	fl := typesystem.FloatClass
	t.def(fl, "+", floatT, pos("other", floatT))
	t.def(fl, "*", floatT, pos("other", floatT))
	t.def(fl, "to_i", intT)
	t.def(fl, "to_s", strT)
	t.def(fl, "round", intT, opt("digits", intT))

	st := typesystem.StringClass
	t.def(st, "+", strT, pos("other", strT))
	t.def(st, "*", strT, pos("n", intT))
	t.def(st, "length", intT)
	t.def(st, "size", intT)
	t.def(st, "upcase", strT)
	t.def(st, "downcase", strT)
	t.def(st, "to_s", selfT)
	t.def(st, "to_sym", symT)
	t.def(st, "include?", boolT, pos("other", strT))
	t.def(st, "[]", nilable(strT), pos("index", intT))
	t.def(st, "split", arrayOf(strT), opt("sep", strT))
	t.def(st, "start_with?", boolT, rest("prefixes", strT))

	t.def(typesystem.SymbolClass, "to_proc", procT)
	t.def(typesystem.SymbolClass, "to_s", strT)
	t.def(typesystem.SymbolClass, "length", intT)

	t.def(typesystem.RegexpClass, "match?", boolT, pos("str", strT))
	t.def(typesystem.RegexpClass, "source", strT)

	ar := typesystem.ArrayClass
	elem := t.memberVar(ar, 0)
	t.def(ar, "[]", nilable(elem), pos("index", intT))
	t.def(ar, "push", selfT, rest("args", elem))
	t.def(ar, "<<", selfT, pos("obj", elem))
	t.def(ar, "first", nilable(elem))
	t.def(ar, "last", nilable(elem))
	t.def(ar, "size", intT)
	t.def(ar, "length", intT)
	t.def(ar, "empty?", boolT)
	t.def(ar, "include?", boolT, pos("obj", untyped))
	t.def(ar, "join", strT, opt("sep", strT))
	t.def(ar, "to_a", selfT)
	t.def(ar, "each", selfT, blk("blk", proc1(voidT, elem)))
	t.def(ar, "flatten", arrayOf(untyped), opt("depth", intT))
	t.def(ar, "compact", arrayOf(elem))
	t.def(ar, "product", arrayOf(untyped), rest("others", untyped))
	t.def(ar, "zip", arrayOf(untyped), rest("others", untyped))

	// map is generic over the block result, so the signature is assembled
	// after the type parameter exists.
	mapRef := t.def(ar, "map", nil)
	u := t.EnterTypeParam(mapRef, "U")
	uVar := &typesystem.TypeVar{Definition: u}
	mapData := t.Method(mapRef)
	mapData.Args = []ArgInfo{blk("blk", proc1(uVar, elem))}
	mapData.ReturnType = arrayOf(uVar)

	ha := typesystem.HashClass
	kVar := t.memberVar(ha, 0)
	vVar := t.memberVar(ha, 1)
	pairT := &typesystem.TupleType{Elems: []typesystem.Type{kVar, vVar}}
	hashT := typesystem.NewApplied(ha, []typesystem.Type{kVar, vVar, pairT})
	t.def(ha, "[]", nilable(vVar), pos("key", kVar))
	t.def(ha, "[]=", vVar, pos("key", kVar), pos("value", vVar))
	t.def(ha, "keys", arrayOf(kVar))
	t.def(ha, "values", arrayOf(vVar))
	t.def(ha, "size", intT)
	t.def(ha, "empty?", boolT)
	t.def(ha, "key?", boolT, pos("key", kVar))
	t.def(ha, "merge", hashT, rest("others", hashT))
	t.def(ha, "each", selfT, blk("blk", proc1(voidT, pairT)))

	ra := typesystem.RangeClass
	relem := t.memberVar(ra, 0)
	t.def(ra, "first", relem)
	t.def(ra, "last", relem)
	t.def(ra, "to_a", arrayOf(relem))
	t.def(ra, "include?", boolT, pos("obj", relem))
	t.def(ra, "each", selfT, blk("blk", proc1(voidT, relem)))

	t.def(typesystem.ProcClass, "call", untyped, rest("args", untyped))
	t.def(typesystem.ProcClass, "arity", intT)
	t.def(typesystem.ProcClass, "to_proc", selfT)
	for n := 0; n <= typesystem.MaxProcArity; n++ {
		c, _ := typesystem.ProcClassFor(n)
		args := make([]ArgInfo, 0, n)
		for i := 0; i < n; i++ {
			args = append(args, pos(fmt.Sprintf("arg%d", i), t.memberVar(c, i+1)))
		}
		t.def(c, "call", t.memberVar(c, 0), args...)
		t.def(c, "arity", typesystem.IntLiteral(int64(n)))
		t.def(c, "to_proc", selfT)
	}

	// Pseudo-class members carry deliberately loose signatures; the
	// matching intrinsics compute the precise results.
	tu := typesystem.TupleClass
	t.def(tu, "[]", untyped, pos("index", untyped))
	t.def(tu, "first", untyped)
	t.def(tu, "last", untyped)
	t.def(tu, "min", untyped)
	t.def(tu, "max", untyped)
	t.def(tu, "to_a", untyped)
	t.def(tu, "concat", untyped, rest("arrays", untyped))

	sh := typesystem.ShapeClass
	t.def(sh, "[]=", untyped, pos("key", untyped), pos("value", untyped))
	t.def(sh, "merge", untyped, rest("others", untyped))
	t.def(sh, "to_hash", untyped)

	magic := t.Singleton(typesystem.MagicClass)
	t.def(magic, "<build-hash>", untyped, rest("args", untyped))
	t.def(magic, "<build-array>", untyped, rest("args", untyped))
	t.def(magic, "<build-range>", untyped, pos("from", untyped), pos("to", untyped), pos("exclude_end", untyped))
	t.def(magic, "<expand-splat>", untyped, pos("arg", untyped), pos("before", untyped), pos("after", untyped))
	t.def(magic, "<splat>", untyped, pos("arg", untyped))
	t.def(magic, "<call-with-splat>", untyped, rest("args", untyped))
	t.def(magic, "<call-with-block>", untyped, rest("args", untyped))
	t.def(magic, "<call-with-splat-and-block>", untyped, rest("args", untyped))
	t.def(magic, "<self-new>", untyped, rest("args", untyped))
	t.def(magic, "<string-interpolate>", strT, rest("args", untyped))

	ts := t.Singleton(typesystem.TModule)
	t.def(ts, "untyped", untyped)
	t.def(ts, "nilable", untyped, pos("type", untyped))
	t.def(ts, "any", untyped, rest("types", untyped))
	t.def(ts, "all", untyped, rest("types", untyped))
	t.def(ts, "noreturn", untyped)
	t.def(ts, "anything", untyped)
	t.def(ts, "class_of", untyped, pos("type", untyped))
	t.def(ts, "must", untyped, pos("value", untyped))
	t.def(ts, "reveal_type", untyped, pos("value", untyped))
	t.def(ts, "unsafe", untyped, pos("value", untyped))
}
