// symbols/builder.go - Mutation API for populating a Table
//
// World loaders call these before handing the table to the dispatch engine.
// Nothing here is safe to call concurrently with lookups.

package symbols

import (
	"fmt"

	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/typesystem"
)

// ClassOptions carries the optional attributes of a new class symbol.
type ClassOptions struct {
	Superclass typesystem.ClassRef
	IsModule   bool
	IsStub     bool
	Loc        loc.Loc
}

// EnterClass registers a class or module and returns its ref. Plain classes
// default to Object as superclass; modules have none.
func (t *Table) EnterClass(name string, opts ClassOptions) typesystem.ClassRef {
	super := opts.Superclass
	if !super.Exists() && !opts.IsModule && name != "Object" {
		super = typesystem.ObjectClass
	}
	t.classes = append(t.classes, ClassData{
		Name:       name,
		Superclass: super,
		IsModule:   opts.IsModule,
		IsStub:     opts.IsStub,
		Loc:        opts.Loc,
		methods:    make(map[string]typesystem.MethodRef),
	})
	return typesystem.ClassRef(len(t.classes) - 1)
}

// SetSuperclass rewires a class's parent after entry. World files declare
// classes in any order, so the parent may not exist yet when the child is
// entered.
func (t *Table) SetSuperclass(c, super typesystem.ClassRef) {
	t.Class(c).Superclass = super
}

// MethodOptions carries the optional attributes of a new method symbol.
// Args must not include the block parameter unless the signature declared
// one; EnterMethod appends a synthetic block parameter otherwise.
type MethodOptions struct {
	Args       []ArgInfo
	ReturnType typesystem.Type
	HasSig     bool
	Abstract   bool
	Loc        loc.Loc
}

// EnterMethod registers a method on owner and returns its ref. The method
// replaces any previous member of the same name on that class; use
// AddOverload to stack alternative signatures instead.
func (t *Table) EnterMethod(owner typesystem.ClassRef, name string, opts MethodOptions) typesystem.MethodRef {
	args := opts.Args
	if len(args) == 0 || !args[len(args)-1].Flags.Block {
		args = append(append([]ArgInfo{}, args...), ArgInfo{
			Name:  "<blk>",
			Flags: ArgFlags{Block: true},
		})
	}
	t.methods = append(t.methods, MethodData{
		Name:       name,
		Owner:      owner,
		Args:       args,
		ReturnType: opts.ReturnType,
		HasSig:     opts.HasSig,
		Abstract:   opts.Abstract,
		Loc:        opts.Loc,
	})
	ref := typesystem.MethodRef(len(t.methods) - 1)
	t.Class(owner).methods[name] = ref
	return ref
}

// SetMethodSignature fills in a method's declared interface after entry.
// Signatures may reference the method's own type parameters, which can only
// be entered once the ref exists, so loading is a two-step dance: EnterMethod
// with the loc, EnterTypeParam for each parameter, then this. The trailing
// block parameter invariant is maintained the same way EnterMethod does.
func (t *Table) SetMethodSignature(m typesystem.MethodRef, opts MethodOptions) {
	args := opts.Args
	if len(args) == 0 || !args[len(args)-1].Flags.Block {
		args = append(append([]ArgInfo{}, args...), ArgInfo{
			Name:  "<blk>",
			Flags: ArgFlags{Block: true},
		})
	}
	data := t.Method(m)
	data.Args = args
	data.ReturnType = opts.ReturnType
	data.HasSig = opts.HasSig
	data.Abstract = opts.Abstract
	if opts.Loc.Exists() {
		data.Loc = opts.Loc
	}
}

// AddOverload records alt as an additional signature of base. The base
// signature stays the name's canonical member; the selector consults the
// overload list in declaration order.
func (t *Table) AddOverload(base, alt typesystem.MethodRef) {
	data := t.Method(base)
	data.Overloads = append(data.Overloads, alt)
}

// EnterTypeParam registers a method-level type parameter and links it to its
// owner method.
func (t *Table) EnterTypeParam(owner typesystem.MethodRef, name string) typesystem.TypeParamRef {
	t.typeParams = append(t.typeParams, TypeParamData{Name: name, Owner: owner})
	ref := typesystem.TypeParamRef(len(t.typeParams) - 1)
	data := t.Method(owner)
	data.TypeParams = append(data.TypeParams, ref)
	return ref
}

// EnterTypeMember registers a generic parameter on owner. Declaration order
// fixes the argument position of applied types.
func (t *Table) EnterTypeMember(owner typesystem.ClassRef, name string, variance typesystem.Variance) typesystem.TypeMemberRef {
	data := t.Class(owner)
	t.typeMembers = append(t.typeMembers, TypeMemberData{
		Name:     name,
		Owner:    owner,
		Index:    len(data.TypeMembers),
		Variance: variance,
	})
	ref := typesystem.TypeMemberRef(len(t.typeMembers) - 1)
	data.TypeMembers = append(data.TypeMembers, ref)
	return ref
}

// SetTypeMemberBounds records the declared bounds of a type member. A nil
// bound means unbounded on that side.
func (t *Table) SetTypeMemberBounds(tm typesystem.TypeMemberRef, lower, upper typesystem.Type) {
	data := t.TypeMember(tm)
	data.Lower = lower
	data.Upper = upper
}

// SetTypeMemberFixed pins a type member to its upper bound. Fixed members
// take no argument in generic applications.
func (t *Table) SetTypeMemberFixed(tm typesystem.TypeMemberRef, fixed bool) {
	t.TypeMember(tm).Fixed = fixed
}

// SetTypeMemberLoc records where the member was declared, for bound
// mismatch notes.
func (t *Table) SetTypeMemberLoc(tm typesystem.TypeMemberRef, l loc.Loc) {
	t.TypeMember(tm).Loc = l
}

// AddMixin prepends a module to the class's mixin list, so the most recent
// inclusion wins member lookup.
func (t *Table) AddMixin(c, module typesystem.ClassRef) {
	data := t.Class(c)
	for _, m := range data.Mixins {
		if m == module {
			return
		}
	}
	data.Mixins = append([]typesystem.ClassRef{module}, data.Mixins...)
}

// AddRequiredAncestor records that the module demands mixing classes also
// include or inherit the given ancestor.
func (t *Table) AddRequiredAncestor(c, ancestor typesystem.ClassRef) {
	data := t.Class(c)
	data.RequiredAncestors = append(data.RequiredAncestors, ancestor)
}

// Singleton returns the singleton class of c, creating it on first use.
//
// The singleton's superclass mirrors the attached hierarchy one level up:
// singleton(X).superclass is singleton(superclass(X)), and the chain
// terminates at Class for Object's singleton. Each singleton carries an
// <AttachedClass> type member bounded by the attached class's external type,
// which is what instantiates the return of Class#new.
func (t *Table) Singleton(c typesystem.ClassRef) typesystem.ClassRef {
	data := t.Class(c)
	if data.Singleton.Exists() {
		return data.Singleton
	}
	name := fmt.Sprintf("<Class:%s>", data.Name)
	super := typesystem.ClassClass
	if data.Superclass.Exists() {
		super = t.Singleton(data.Superclass)
	}
	singleton := t.EnterClass(name, ClassOptions{Superclass: super, Loc: data.Loc})

	// t.classes may have been reallocated by the recursive EnterClass calls.
	t.Class(c).Singleton = singleton
	sdata := t.Class(singleton)
	sdata.Attached = c

	tm := t.EnterTypeMember(singleton, AttachedClassMemberName, typesystem.Covariant)
	t.SetTypeMemberBounds(tm, nil, t.ExternalType(c))
	return singleton
}

// SingletonOf is the read-only variant: it reports the singleton if one was
// already created and never mutates the table.
func (t *Table) SingletonOf(c typesystem.ClassRef) (typesystem.ClassRef, bool) {
	s := t.Class(c).Singleton
	return s, s.Exists()
}

// SetFileStrictness records the typedness level of one file.
func (t *Table) SetFileStrictness(file string, s Strictness) {
	t.fileStrictness[file] = s
}

// SetDefaultStrictness sets the level assumed for files with no explicit
// declaration.
func (t *Table) SetDefaultStrictness(s Strictness) {
	t.defaultStrictness = s
}
