// symbols/table.go - Symbol table entry point
//
// The package is split into focused modules:
// - table.go: Table struct, symbol data types, ref accessors, Resolver implementation
// - builder.go: mutation API (EnterClass, EnterMethod, singletons, strictness)
// - lookup.go: ancestry linearization, member lookup, fuzzy matching
// - wellknown.go: bootstrap of the reserved class block and core method definitions

package symbols

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// Strictness is the per-file typedness level. It gates which diagnostics a
// call site or method definition can produce.
type Strictness uint8

const (
	StrictnessUntyped Strictness = iota
	StrictnessTyped
	StrictnessStrict
)

func (s Strictness) String() string {
	switch s {
	case StrictnessUntyped:
		return "untyped"
	case StrictnessTyped:
		return "typed"
	case StrictnessStrict:
		return "strict"
	}
	return fmt.Sprintf("Strictness(%d)", uint8(s))
}

// ParseStrictness reads the textual form used in world files and CLI flags.
func ParseStrictness(s string) (Strictness, error) {
	switch s {
	case "untyped", "false":
		return StrictnessUntyped, nil
	case "typed", "true":
		return StrictnessTyped, nil
	case "strict":
		return StrictnessStrict, nil
	}
	return StrictnessUntyped, fmt.Errorf("symbols: unknown strictness %q", s)
}

// ArgFlags classifies a single method parameter.
type ArgFlags struct {
	Keyword  bool
	Block    bool
	Default  bool
	Repeated bool
}

// ArgInfo describes one declared parameter. A nil Type means the parameter is
// undeclared and accepts anything.
type ArgInfo struct {
	Name  string
	Type  typesystem.Type
	Flags ArgFlags
	Loc   loc.Loc
}

// TypeArg returns the declared type, substituting untyped for undeclared
// parameters so callers never see nil.
func (a *ArgInfo) TypeArg() typesystem.Type {
	if a.Type == nil {
		return typesystem.Untyped()
	}
	return a.Type
}

// MethodData is the full record for one method symbol.
//
// Args is never empty: the last entry is always the block parameter, either
// declared in the signature or inserted synthetically when the source declares
// none. EnterMethod maintains the invariant; BlockArg checks it.
type MethodData struct {
	Name       string
	Owner      typesystem.ClassRef
	Args       []ArgInfo
	ReturnType typesystem.Type
	TypeParams []typesystem.TypeParamRef
	Overloads  []typesystem.MethodRef
	HasSig     bool
	Abstract   bool
	Loc        loc.Loc
}

// BlockArg returns the trailing block parameter.
func (m *MethodData) BlockArg() *ArgInfo {
	if len(m.Args) == 0 || !m.Args[len(m.Args)-1].Flags.Block {
		panic("symbols: method has no trailing block parameter: " + spew.Sdump(m))
	}
	return &m.Args[len(m.Args)-1]
}

// Return returns the declared return type, substituting untyped when the
// method carries no signature.
func (m *MethodData) Return() typesystem.Type {
	if m.ReturnType == nil {
		return typesystem.Untyped()
	}
	return m.ReturnType
}

// ClassData is the full record for one class or module symbol.
//
// Mixins is ordered most recently included first, matching lookup precedence.
// Singleton and Attached link a class with its singleton class in both
// directions; builder.go maintains them.
type ClassData struct {
	Name              string
	Superclass        typesystem.ClassRef
	Mixins            []typesystem.ClassRef
	RequiredAncestors []typesystem.ClassRef
	IsModule          bool
	IsStub            bool
	Singleton         typesystem.ClassRef
	Attached          typesystem.ClassRef
	TypeMembers       []typesystem.TypeMemberRef
	Loc               loc.Loc

	methods map[string]typesystem.MethodRef
}

// TypeMemberData describes one generic parameter of a class. Index is the
// position inside the owner's TypeMembers list and doubles as the index into
// an applied type's argument list.
type TypeMemberData struct {
	Name     string
	Owner    typesystem.ClassRef
	Index    int
	Variance typesystem.Variance
	Lower    typesystem.Type
	Upper    typesystem.Type
	Fixed    bool
	Loc      loc.Loc
}

// TypeParamData describes one method-level type parameter.
type TypeParamData struct {
	Name  string
	Owner typesystem.MethodRef
}

// Table is the arena holding every symbol. Refs are indices into the arena
// slices; index 0 is reserved as the invalid sentinel for every kind.
//
// The dispatch engine treats the table as read only. All mutation happens
// through the builder API before type checking starts.
type Table struct {
	// BuildID identifies one populated table instance, so cached dispatch
	// results can be checked against the table they were computed from.
	BuildID string

	classes     []ClassData
	methods     []MethodData
	typeMembers []TypeMemberData
	typeParams  []TypeParamData

	fileStrictness    map[string]Strictness
	defaultStrictness Strictness
}

// NewTable creates a table with the reserved class block and core methods
// already entered. The reserved classes land at the exact ClassRef constants
// declared in the typesystem package; bootstrap panics on drift.
func NewTable() *Table {
	t := &Table{
		BuildID:           uuid.NewString(),
		classes:           make([]ClassData, 1, 64),
		methods:           make([]MethodData, 1, 256),
		typeMembers:       make([]TypeMemberData, 1, 16),
		typeParams:        make([]TypeParamData, 1, 8),
		fileStrictness:    make(map[string]Strictness),
		defaultStrictness: StrictnessTyped,
	}
	t.bootstrap()
	return t
}

// Class resolves a class ref. Panics on the invalid sentinel or an index from
// another table.
func (t *Table) Class(c typesystem.ClassRef) *ClassData {
	if c == typesystem.NoClass || int(c) >= len(t.classes) {
		panic(fmt.Sprintf("symbols: invalid class ref %d (table has %d)", c, len(t.classes)))
	}
	return &t.classes[c]
}

// Method resolves a method ref.
func (t *Table) Method(m typesystem.MethodRef) *MethodData {
	if m == typesystem.NoMethod || int(m) >= len(t.methods) {
		panic(fmt.Sprintf("symbols: invalid method ref %d (table has %d)", m, len(t.methods)))
	}
	return &t.methods[m]
}

// TypeMember resolves a type member ref.
func (t *Table) TypeMember(tm typesystem.TypeMemberRef) *TypeMemberData {
	if tm == 0 || int(tm) >= len(t.typeMembers) {
		panic(fmt.Sprintf("symbols: invalid type member ref %d (table has %d)", tm, len(t.typeMembers)))
	}
	return &t.typeMembers[tm]
}

// TypeParam resolves a method type parameter ref.
func (t *Table) TypeParam(tp typesystem.TypeParamRef) *TypeParamData {
	if tp == 0 || int(tp) >= len(t.typeParams) {
		panic(fmt.Sprintf("symbols: invalid type param ref %d (table has %d)", tp, len(t.typeParams)))
	}
	return &t.typeParams[tp]
}

// ClassCount reports how many class symbols exist, the invalid sentinel
// included. Valid refs are 1..ClassCount-1.
func (t *Table) ClassCount() int { return len(t.classes) }

// MethodCount reports how many method symbols exist, sentinel included.
func (t *Table) MethodCount() int { return len(t.methods) }

// FileStrictness reports the typedness level recorded for a file, falling
// back to the table default.
func (t *Table) FileStrictness(file string) Strictness {
	if s, ok := t.fileStrictness[file]; ok {
		return s
	}
	return t.defaultStrictness
}

// ExternalType is the type a value of the class has when seen from outside:
// the plain class type for simple classes, the class applied to its members'
// upper bounds (untyped when unbounded) for generic classes.
func (t *Table) ExternalType(c typesystem.ClassRef) typesystem.Type {
	data := t.Class(c)
	if len(data.TypeMembers) == 0 {
		return typesystem.NewClassType(c)
	}
	targs := make([]typesystem.Type, len(data.TypeMembers))
	for i, tm := range data.TypeMembers {
		if upper := t.TypeMember(tm).Upper; upper != nil {
			targs[i] = upper
		} else {
			targs[i] = typesystem.Untyped()
		}
	}
	return typesystem.NewApplied(c, targs)
}

// The Table is the package's typesystem.Resolver: the type algebra calls back
// through this interface so it never imports the arena directly.
var _ typesystem.Resolver = (*Table)(nil)

func (t *Table) ClassName(c typesystem.ClassRef) string {
	if c == typesystem.NoClass || int(c) >= len(t.classes) {
		return fmt.Sprintf("<invalid class %d>", c)
	}
	return t.classes[c].Name
}

// DerivesFrom reports whether super appears in sub's ancestry. A class
// derives from itself.
func (t *Table) DerivesFrom(sub, super typesystem.ClassRef) bool {
	if sub == super {
		return true
	}
	for _, a := range t.Ancestry(sub) {
		if a == super {
			return true
		}
	}
	return false
}

func (t *Table) IsModuleClass(c typesystem.ClassRef) bool {
	return t.Class(c).IsModule
}

func (t *Table) AttachedClass(c typesystem.ClassRef) (typesystem.ClassRef, bool) {
	attached := t.Class(c).Attached
	return attached, attached.Exists()
}

func (t *Table) TypeMemberDetails(tm typesystem.TypeMemberRef) (typesystem.ClassRef, int) {
	data := t.TypeMember(tm)
	return data.Owner, data.Index
}

func (t *Table) TypeMemberVariances(c typesystem.ClassRef) []typesystem.Variance {
	members := t.Class(c).TypeMembers
	if len(members) == 0 {
		return nil
	}
	out := make([]typesystem.Variance, len(members))
	for i, tm := range members {
		out[i] = t.TypeMember(tm).Variance
	}
	return out
}

func (t *Table) TypeMemberName(tm typesystem.TypeMemberRef) string {
	return t.TypeMember(tm).Name
}

// AttachedClassMemberName is the synthetic type member every singleton
// class carries, standing for "whatever class this singleton is attached
// to" in constructor return types.
const AttachedClassMemberName = "<AttachedClass>"

// AttachedClassMember finds a singleton's synthetic attached-class type
// member. Returns the zero ref for classes that are not singletons.
func (t *Table) AttachedClassMember(c typesystem.ClassRef) typesystem.TypeMemberRef {
	for _, tm := range t.Class(c).TypeMembers {
		if t.TypeMember(tm).Name == AttachedClassMemberName {
			return tm
		}
	}
	return 0
}

// TypeMemberFullName qualifies a type member by its owner, as shown in
// generic bound errors.
func (t *Table) TypeMemberFullName(tm typesystem.TypeMemberRef) string {
	data := t.TypeMember(tm)
	return t.Class(data.Owner).Name + "::" + data.Name
}

// TypeArity counts the type arguments a generic application must supply:
// every type member except the fixed ones, which are filled in implicitly.
func (t *Table) TypeArity(c typesystem.ClassRef) int {
	n := 0
	for _, tm := range t.Class(c).TypeMembers {
		if !t.TypeMember(tm).Fixed {
			n++
		}
	}
	return n
}

func (t *Table) TypeParamName(tp typesystem.TypeParamRef) string {
	return t.TypeParam(tp).Name
}
