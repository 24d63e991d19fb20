package typesystem

// Reserved symbol-table indexes for the core hierarchy. symbols.NewTable
// registers exactly these classes first, in this order, and panics on
// drift, so the algebra and the intrinsics can name core classes without a
// table in hand.
const (
	NoClass ClassRef = iota
	ObjectClass
	ModuleClass
	ClassClass
	KernelModule
	ComparableModule
	NilClassClass
	TrueClassClass
	FalseClassClass
	IntegerClass
	FloatClass
	StringClass
	SymbolClass
	RegexpClass
	ArrayClass
	HashClass
	RangeClass
	ProcClass
	Proc0Class
	Proc1Class
	Proc2Class
	Proc3Class
	Proc4Class
	VoidClass

	// Pseudo-classes carrying compiler-recognized refinements. They never
	// appear in user programs; proxy types consult them before their
	// underlying class, and the desugarer targets Magic directly.
	TupleClass
	ShapeClass
	MagicClass

	// The type DSL namespace and its members.
	TModule
	THelpersModule
	TArrayAlias
	THashAlias
	TRangeAlias

	ReservedClassCount // keep last
)

// MaxProcArity is the largest fixed proc arity with a dedicated class.
const MaxProcArity = 4

// ProcClassFor returns the fixed-arity proc class, if one exists for n.
func ProcClassFor(n int) (ClassRef, bool) {
	if n < 0 || n > MaxProcArity {
		return NoClass, false
	}
	return Proc0Class + ClassRef(n), true
}

// ProcArityOf reports the fixed arity encoded by a proc class.
func ProcArityOf(c ClassRef) (int, bool) {
	if c < Proc0Class || c > Proc4Class {
		return 0, false
	}
	return int(c - Proc0Class), true
}

// Boolean is the two-valued truth type. There is no Boolean class; the
// union of the two singleton classes plays the role.
func Boolean() Type {
	return NewOr(NewClassType(TrueClassClass), NewClassType(FalseClassClass))
}
