package typesystem

// mapType rewrites t bottom-up: f sees each node first and may replace it
// outright; otherwise composites are rebuilt from rewritten children.
func mapType(t Type, f func(Type) (Type, bool)) Type {
	if r, ok := f(t); ok {
		return r
	}
	switch x := t.(type) {
	case *AppliedType:
		args := make([]Type, len(x.TypeArgs))
		changed := false
		for i, a := range x.TypeArgs {
			args[i] = mapType(a, f)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return &AppliedType{Symbol: x.Symbol, TypeArgs: args}
	case *OrType:
		l, r := mapType(x.Left, f), mapType(x.Right, f)
		if l == x.Left && r == x.Right {
			return t
		}
		return &OrType{Left: l, Right: r}
	case *AndType:
		l, r := mapType(x.Left, f), mapType(x.Right, f)
		if l == x.Left && r == x.Right {
			return t
		}
		return &AndType{Left: l, Right: r}
	case *ShapeType:
		vals := make([]Type, len(x.Values))
		changed := false
		for i, v := range x.Values {
			vals[i] = mapType(v, f)
			changed = changed || vals[i] != v
		}
		if !changed {
			return t
		}
		return &ShapeType{Keys: x.Keys, Values: vals}
	case *TupleType:
		elems := make([]Type, len(x.Elems))
		changed := false
		for i, e := range x.Elems {
			elems[i] = mapType(e, f)
			changed = changed || elems[i] != e
		}
		if !changed {
			return t
		}
		return &TupleType{Elems: elems}
	case *MetaType:
		w := mapType(x.Wrapped, f)
		if w == x.Wrapped {
			return t
		}
		return &MetaType{Wrapped: w}
	default:
		return t
	}
}

// InstantiateMembers rewrites class-level generic parameters to the
// receiver's type arguments: a MemberVar owned by klass takes the aligned
// entry of targs. Members of other owners (inherited generic methods) and
// members beyond the supplied arguments become untyped; computing the
// ancestor's instantiation belongs to the upstream resolver.
func InstantiateMembers(res Resolver, t Type, klass ClassRef, targs []Type) Type {
	return mapType(t, func(u Type) (Type, bool) {
		mv, ok := u.(*MemberVar)
		if !ok {
			return nil, false
		}
		owner, idx := res.TypeMemberDetails(mv.Definition)
		if owner == klass && idx < len(targs) {
			return targs[idx], true
		}
		return Untyped(), true
	})
}

// ReplaceSelfType substitutes the `self` placeholder with the receiver.
func ReplaceSelfType(res Resolver, t Type, self Type) Type {
	return mapType(t, func(u Type) (Type, bool) {
		if _, ok := u.(*SelfType); ok {
			return self, true
		}
		return nil, false
	})
}

// InstantiateTypeVars substitutes solved method-level type parameters.
// Unsolved constraints leave the variables in place.
func InstantiateTypeVars(res Resolver, t Type, c *Constraint) Type {
	if c.IsEmpty() || !c.IsSolved() {
		return t
	}
	return mapType(t, func(u Type) (Type, bool) {
		tv, ok := u.(*TypeVar)
		if !ok {
			return nil, false
		}
		if sol, ok := c.Instantiation(tv.Definition); ok {
			return sol, true
		}
		return nil, false
	})
}

// Approximate replaces type variables with their best currently known
// bound. Dispatch uses it for types it must inspect before the constraint
// is solved (the implicit keyword-hash probe, deferred block types).
func Approximate(res Resolver, t Type, c *Constraint) Type {
	return mapType(t, func(u Type) (Type, bool) {
		tv, ok := u.(*TypeVar)
		if !ok {
			return nil, false
		}
		return c.bestGuess(res, tv.Definition), true
	})
}

// Widen erases refinement precision: literals widen to their underlying
// class, tuples and shapes to their underlying generic classes. Solved
// type parameters widen so that a literal argument instantiates the
// parameter to the literal's class, not the singleton type.
func Widen(res Resolver, t Type) Type {
	switch x := t.(type) {
	case *LiteralType:
		return NewClassType(x.Underlying)
	case *TupleType:
		return NewApplied(ArrayClass, []Type{Widen(res, x.ElementType(res))})
	case *ShapeType:
		return x.Underlying(res)
	case *OrType:
		return Join(res, Widen(res, x.Left), Widen(res, x.Right))
	case *AndType:
		return Meet(res, Widen(res, x.Left), Widen(res, x.Right))
	default:
		return t
	}
}
