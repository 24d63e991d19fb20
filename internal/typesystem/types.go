// Package typesystem defines the closed set of type variants the Sable
// checker dispatches on, together with the structural operations over them:
// subtyping (plain and under a generic constraint), join/meet, substitution,
// and the constraint accumulator solved during generic dispatch.
//
// Types are immutable once built and cheap to share. Symbol identity is a
// set of opaque arena indices (ClassRef, MethodRef, TypeMemberRef,
// TypeParamRef); the arena itself lives in the symbols package, and the
// algebra reaches the parts of it it needs through the Resolver interface,
// so this package never depends on symbol-table internals.
package typesystem

// ClassRef identifies a class or module in the symbol table arena.
// The zero value is "no class".
type ClassRef uint32

// MethodRef identifies a method. The zero value is "no method".
type MethodRef uint32

// TypeMemberRef identifies a class-level generic parameter declaration.
type TypeMemberRef uint32

// TypeParamRef identifies a method-level generic parameter declaration.
type TypeParamRef uint32

func (c ClassRef) Exists() bool      { return c != NoClass }
func (m MethodRef) Exists() bool     { return m != NoMethod }
func (t TypeMemberRef) Exists() bool { return t != 0 }
func (p TypeParamRef) Exists() bool  { return p != 0 }

// NoMethod is the absent method sentinel.
const NoMethod MethodRef = 0

// Variance of a class type member.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

// Resolver is the read-only window into the symbol table that the type
// algebra needs. The symbols package implements it; tests may substitute a
// fake. Keeping it an interface keeps this package free of table
// internals.
type Resolver interface {
	// ClassName returns the fully qualified name used in renderings.
	ClassName(c ClassRef) string
	// DerivesFrom reports whether sub's ancestry (superclasses and
	// mixins) includes super. A class derives from itself.
	DerivesFrom(sub, super ClassRef) bool
	// IsModuleClass reports whether c is a module rather than a class.
	IsModuleClass(c ClassRef) bool
	// AttachedClass resolves a singleton class to the class it is the
	// singleton of.
	AttachedClass(c ClassRef) (ClassRef, bool)
	// TypeMemberDetails returns the declaring class and the member's
	// position among that class's type members.
	TypeMemberDetails(m TypeMemberRef) (owner ClassRef, index int)
	// TypeMemberVariances returns the declared variances of c's type
	// members, in declaration order.
	TypeMemberVariances(c ClassRef) []Variance
	// TypeMemberName and TypeParamName return declared names for
	// renderings.
	TypeMemberName(m TypeMemberRef) string
	TypeParamName(p TypeParamRef) string
}

// Type is the closed sum of Sable type representations. The unexported
// marker seals the set: every variant lives in this package and every
// operation switches exhaustively over them.
type Type interface {
	isType()
}

// ClassType is an instance of a class or module, e.g. Integer or the
// singleton class of Integer.
type ClassType struct {
	Symbol ClassRef
}

// AppliedType is a generic class instantiated with type arguments,
// e.g. Array[Integer]. TypeArgs align with the class's type members.
type AppliedType struct {
	Symbol   ClassRef
	TypeArgs []Type
}

// OrType is the union of two types. Build unions through Join; NewOr is
// the raw form for callers that must not simplify.
type OrType struct {
	Left, Right Type
}

// AndType is the intersection of two types.
type AndType struct {
	Left, Right Type
}

// LiteralKind discriminates LiteralType payloads.
type LiteralKind uint8

const (
	LiteralInteger LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralSymbol
)

// LiteralType is the singleton type of one literal value, a refinement of
// its underlying class. true/false/nil are not literals; they are plain
// ClassTypes of TrueClass/FalseClass/NilClass.
type LiteralType struct {
	Kind       LiteralKind
	Underlying ClassRef
	Int        int64
	Float      float64
	Str        string
}

// ShapeType is a hash literal with statically known keys. Keys are literal
// types (symbols, strings, or integers) and align with Values.
type ShapeType struct {
	Keys   []*LiteralType
	Values []Type
}

// TupleType is an array literal with statically known length.
type TupleType struct {
	Elems []Type
}

// MetaType is a type used as an ordinary value: the result of evaluating a
// type expression, denoting "the type Wrapped".
type MetaType struct {
	Wrapped Type
}

// SelfTypeParam is the attached-class placeholder flowing out of
// constructor-style dispatch; Definition is the singleton class's
// <AttachedClass> type member.
type SelfTypeParam struct {
	Definition TypeMemberRef
}

// SelfType is the `self` placeholder inside declared signatures, replaced
// with the receiver during dispatch.
type SelfType struct{}

// TypeVar is a method-level generic parameter during inference; bounds for
// it accumulate in the dispatch's Constraint.
type TypeVar struct {
	Definition TypeParamRef
}

// MemberVar is a class-level generic parameter as referenced from a
// declared signature, substituted with the receiver's type arguments.
type MemberVar struct {
	Definition TypeMemberRef
}

// UntypedType is the dynamic escape hatch, compatible in both directions.
// Blame, when set, is the method that introduced the untypedness.
type UntypedType struct {
	Blame MethodRef
}

// BottomType is the uninhabited type (noreturn).
type BottomType struct{}

// TopType is the top of the lattice (anything).
type TopType struct{}

func (*ClassType) isType()     {}
func (*AppliedType) isType()   {}
func (*OrType) isType()        {}
func (*AndType) isType()       {}
func (*LiteralType) isType()   {}
func (*ShapeType) isType()     {}
func (*TupleType) isType()     {}
func (*MetaType) isType()      {}
func (*SelfTypeParam) isType() {}
func (*SelfType) isType()      {}
func (*TypeVar) isType()       {}
func (*MemberVar) isType()     {}
func (*UntypedType) isType()   {}
func (*BottomType) isType()    {}
func (*TopType) isType()       {}

// Shared leaves. These compare by value (Equal), not identity, so sharing
// is purely an allocation saving.
var (
	untypedUntracked = &UntypedType{}
	bottomShared     = &BottomType{}
	topShared        = &TopType{}
	selfShared       = &SelfType{}

	NilType   = &ClassType{Symbol: NilClassClass}
	TrueType  = &ClassType{Symbol: TrueClassClass}
	FalseType = &ClassType{Symbol: FalseClassClass}
)

// Untyped returns the untracked untyped type.
func Untyped() Type { return untypedUntracked }

// UntypedBlaming returns untyped blaming the given method.
func UntypedBlaming(m MethodRef) Type {
	if !m.Exists() {
		return untypedUntracked
	}
	return &UntypedType{Blame: m}
}

func Bottom() Type { return bottomShared }
func Top() Type    { return topShared }
func Self() Type   { return selfShared }

// NewClassType returns the instance type of c.
func NewClassType(c ClassRef) Type { return &ClassType{Symbol: c} }

// NewApplied instantiates a generic class.
func NewApplied(c ClassRef, targs []Type) Type {
	return &AppliedType{Symbol: c, TypeArgs: targs}
}

// NewOr builds a raw union without simplification.
func NewOr(l, r Type) Type { return &OrType{Left: l, Right: r} }

// NewAnd builds a raw intersection without simplification.
func NewAnd(l, r Type) Type { return &AndType{Left: l, Right: r} }

func IntLiteral(v int64) *LiteralType {
	return &LiteralType{Kind: LiteralInteger, Underlying: IntegerClass, Int: v}
}

func FloatLiteral(v float64) *LiteralType {
	return &LiteralType{Kind: LiteralFloat, Underlying: FloatClass, Float: v}
}

func StringLiteral(v string) *LiteralType {
	return &LiteralType{Kind: LiteralString, Underlying: StringClass, Str: v}
}

func SymbolLiteral(name string) *LiteralType {
	return &LiteralType{Kind: LiteralSymbol, Underlying: SymbolClass, Str: name}
}

// Nilable widens t to accept nil.
func Nilable(res Resolver, t Type) Type {
	return Join(res, NilType, t)
}

func IsUntyped(t Type) bool {
	_, ok := t.(*UntypedType)
	return ok
}

func IsBottom(t Type) bool {
	_, ok := t.(*BottomType)
	return ok
}

// ElementType joins the tuple's element types; the empty tuple has the
// uninhabited element type.
func (t *TupleType) ElementType(res Resolver) Type {
	if len(t.Elems) == 0 {
		return Bottom()
	}
	elem := t.Elems[0]
	for _, e := range t.Elems[1:] {
		elem = Join(res, elem, e)
	}
	return elem
}

// Underlying is the concrete class type the tuple delegates to.
func (t *TupleType) Underlying(res Resolver) Type {
	return NewApplied(ArrayClass, []Type{t.ElementType(res)})
}

// KeyIndex finds a literal key in the shape, or -1.
func (s *ShapeType) KeyIndex(key *LiteralType) int {
	for i, k := range s.Keys {
		if literalEqual(k, key) {
			return i
		}
	}
	return -1
}

// Underlying is the concrete class type the shape delegates to. Shapes
// erase to an all-untyped hash; per-key precision only survives shape-aware
// call paths.
func (s *ShapeType) Underlying(res Resolver) Type {
	return NewApplied(HashClass, []Type{Untyped(), Untyped(), Untyped()})
}

func literalEqual(a, b *LiteralType) bool {
	if a.Kind != b.Kind || a.Underlying != b.Underlying {
		return false
	}
	switch a.Kind {
	case LiteralInteger:
		return a.Int == b.Int
	case LiteralFloat:
		return a.Float == b.Float
	case LiteralString, LiteralSymbol:
		return a.Str == b.Str
	}
	return false
}

// Equal is structural equality over the closed variant set. Shape equality
// is key-set based, so key order never matters.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case *ClassType:
		y, ok := b.(*ClassType)
		return ok && x.Symbol == y.Symbol
	case *AppliedType:
		y, ok := b.(*AppliedType)
		if !ok || x.Symbol != y.Symbol || len(x.TypeArgs) != len(y.TypeArgs) {
			return false
		}
		for i := range x.TypeArgs {
			if !Equal(x.TypeArgs[i], y.TypeArgs[i]) {
				return false
			}
		}
		return true
	case *OrType:
		y, ok := b.(*OrType)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *AndType:
		y, ok := b.(*AndType)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *LiteralType:
		y, ok := b.(*LiteralType)
		return ok && literalEqual(x, y)
	case *ShapeType:
		y, ok := b.(*ShapeType)
		if !ok || len(x.Keys) != len(y.Keys) {
			return false
		}
		for i, k := range x.Keys {
			j := y.KeyIndex(k)
			if j < 0 || !Equal(x.Values[i], y.Values[j]) {
				return false
			}
		}
		return true
	case *TupleType:
		y, ok := b.(*TupleType)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *MetaType:
		y, ok := b.(*MetaType)
		return ok && Equal(x.Wrapped, y.Wrapped)
	case *SelfTypeParam:
		y, ok := b.(*SelfTypeParam)
		return ok && x.Definition == y.Definition
	case *SelfType:
		_, ok := b.(*SelfType)
		return ok
	case *TypeVar:
		y, ok := b.(*TypeVar)
		return ok && x.Definition == y.Definition
	case *MemberVar:
		y, ok := b.(*MemberVar)
		return ok && x.Definition == y.Definition
	case *UntypedType:
		_, ok := b.(*UntypedType)
		return ok
	case *BottomType:
		_, ok := b.(*BottomType)
		return ok
	case *TopType:
		_, ok := b.(*TopType)
		return ok
	}
	return false
}
