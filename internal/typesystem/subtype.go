package typesystem

// Subtyping runs in "untyped always compatible" mode: T.untyped is both a
// subtype and a supertype of everything, which is what gradual dispatch
// needs. The constrained form additionally records bounds for in-domain
// type variables instead of failing on them.

// IsSubType reports sub <: super with no generic inference in flight.
func IsSubType(res Resolver, sub, super Type) bool {
	return isSubType(res, EmptyFrozen, sub, super)
}

// IsSubTypeUnderConstraint reports sub <: super, tightening constr's
// bounds when a type variable in its domain is met.
func IsSubTypeUnderConstraint(res Resolver, constr *Constraint, sub, super Type) bool {
	return isSubType(res, constr, sub, super)
}

func isSubType(res Resolver, constr *Constraint, sub, super Type) bool {
	if IsUntyped(sub) || IsUntyped(super) {
		return true
	}
	if Equal(sub, super) {
		return true
	}

	// Type variables tighten bounds instead of deciding.
	if tv, ok := super.(*TypeVar); ok {
		if constr.canRecord(tv.Definition) {
			constr.rememberLower(res, tv.Definition, sub)
			return true
		}
		return false
	}
	if tv, ok := sub.(*TypeVar); ok {
		if constr.canRecord(tv.Definition) {
			constr.rememberUpper(res, tv.Definition, super)
			return true
		}
		return false
	}

	if _, ok := sub.(*BottomType); ok {
		return true
	}
	if _, ok := super.(*TopType); ok {
		return true
	}
	if _, ok := super.(*BottomType); ok {
		return false
	}
	if _, ok := sub.(*TopType); ok {
		return false
	}

	// Lattice decomposition. Order matters: a union on the sub side and
	// an intersection on the super side must distribute before their
	// mirror cases so mixed forms reduce correctly.
	if o, ok := sub.(*OrType); ok {
		return isSubType(res, constr, o.Left, super) && isSubType(res, constr, o.Right, super)
	}
	if a, ok := super.(*AndType); ok {
		return isSubType(res, constr, sub, a.Left) && isSubType(res, constr, sub, a.Right)
	}
	if o, ok := super.(*OrType); ok {
		return isSubType(res, constr, sub, o.Left) || isSubType(res, constr, sub, o.Right)
	}
	if a, ok := sub.(*AndType); ok {
		return isSubType(res, constr, a.Left, super) || isSubType(res, constr, a.Right, super)
	}

	// Proxies on the sub side refine their underlying class.
	switch x := sub.(type) {
	case *LiteralType:
		// Literal vs literal is handled by the Equal fast path.
		if _, ok := super.(*LiteralType); ok {
			return false
		}
		return isSubType(res, constr, NewClassType(x.Underlying), super)
	case *TupleType:
		switch s := super.(type) {
		case *TupleType:
			if len(x.Elems) != len(s.Elems) {
				return false
			}
			for i := range x.Elems {
				if !isSubType(res, constr, x.Elems[i], s.Elems[i]) {
					return false
				}
			}
			return true
		case *AppliedType:
			if s.Symbol == ArrayClass && len(s.TypeArgs) == 1 {
				for _, e := range x.Elems {
					if !isSubType(res, constr, e, s.TypeArgs[0]) {
						return false
					}
				}
				return true
			}
		}
		return isSubType(res, constr, x.Underlying(res), super)
	case *ShapeType:
		if s, ok := super.(*ShapeType); ok {
			if len(x.Keys) != len(s.Keys) {
				return false
			}
			for i, k := range s.Keys {
				j := x.KeyIndex(k)
				if j < 0 || !isSubType(res, constr, x.Values[j], s.Values[i]) {
					return false
				}
			}
			return true
		}
		return isSubType(res, constr, x.Underlying(res), super)
	case *MetaType:
		// Distinct metatypes are only related through Object.
		return isSubType(res, constr, NewClassType(ObjectClass), super)
	}

	// Placeholders are opaque beyond the Equal fast path.
	switch sub.(type) {
	case *SelfTypeParam, *SelfType, *MemberVar:
		return false
	}
	switch super.(type) {
	case *LiteralType, *ShapeType, *TupleType, *MetaType, *SelfTypeParam, *SelfType, *MemberVar:
		return false
	}

	// Class against class.
	switch x := sub.(type) {
	case *ClassType:
		switch s := super.(type) {
		case *ClassType:
			return res.DerivesFrom(x.Symbol, s.Symbol)
		case *AppliedType:
			// An unapplied generic is seen with untyped arguments, which
			// are compatible with anything.
			return res.DerivesFrom(x.Symbol, s.Symbol)
		}
	case *AppliedType:
		switch s := super.(type) {
		case *ClassType:
			return res.DerivesFrom(x.Symbol, s.Symbol)
		case *AppliedType:
			if x.Symbol != s.Symbol {
				// Cross-class comparison would need the ancestor's
				// instantiation, which the upstream resolver owns; the
				// type arguments are treated as unknown.
				return res.DerivesFrom(x.Symbol, s.Symbol)
			}
			variances := res.TypeMemberVariances(x.Symbol)
			n := len(x.TypeArgs)
			if len(s.TypeArgs) < n {
				n = len(s.TypeArgs)
			}
			for i := 0; i < n; i++ {
				v := Invariant
				if i < len(variances) {
					v = variances[i]
				}
				switch v {
				case Covariant:
					if !isSubType(res, constr, x.TypeArgs[i], s.TypeArgs[i]) {
						return false
					}
				case Contravariant:
					if !isSubType(res, constr, s.TypeArgs[i], x.TypeArgs[i]) {
						return false
					}
				default:
					if !isSubType(res, constr, x.TypeArgs[i], s.TypeArgs[i]) ||
						!isSubType(res, constr, s.TypeArgs[i], x.TypeArgs[i]) {
						return false
					}
				}
			}
			return true
		}
	}
	return false
}

// DerivesFromClass reports whether t's instances are instances of c.
func DerivesFromClass(res Resolver, t Type, c ClassRef) bool {
	switch x := t.(type) {
	case *ClassType:
		return res.DerivesFrom(x.Symbol, c)
	case *AppliedType:
		return res.DerivesFrom(x.Symbol, c)
	case *OrType:
		return DerivesFromClass(res, x.Left, c) && DerivesFromClass(res, x.Right, c)
	case *AndType:
		return DerivesFromClass(res, x.Left, c) || DerivesFromClass(res, x.Right, c)
	case *LiteralType:
		return res.DerivesFrom(x.Underlying, c)
	case *ShapeType:
		return res.DerivesFrom(HashClass, c)
	case *TupleType:
		return res.DerivesFrom(ArrayClass, c)
	case *UntypedType:
		return true
	case *BottomType:
		return true
	case *MetaType, *SelfTypeParam, *SelfType, *TypeVar, *MemberVar, *TopType:
		return false
	}
	return false
}

// IsFullyDefined reports whether t mentions no type variables or
// placeholders; only fully defined declared types participate in overload
// type filtering.
func IsFullyDefined(t Type) bool {
	switch x := t.(type) {
	case *TypeVar, *MemberVar, *SelfTypeParam, *SelfType:
		return false
	case *AppliedType:
		for _, a := range x.TypeArgs {
			if !IsFullyDefined(a) {
				return false
			}
		}
		return true
	case *OrType:
		return IsFullyDefined(x.Left) && IsFullyDefined(x.Right)
	case *AndType:
		return IsFullyDefined(x.Left) && IsFullyDefined(x.Right)
	case *ShapeType:
		for _, v := range x.Values {
			if !IsFullyDefined(v) {
				return false
			}
		}
		return true
	case *TupleType:
		for _, e := range x.Elems {
			if !IsFullyDefined(e) {
				return false
			}
		}
		return true
	case *MetaType:
		return IsFullyDefined(x.Wrapped)
	}
	return true
}

// DropSubtypesOf removes union components whose instances belong to c;
// dropping everything yields Bottom. This is how nil is subtracted from a
// nilable type.
func DropSubtypesOf(res Resolver, t Type, c ClassRef) Type {
	switch x := t.(type) {
	case *OrType:
		comps := orComponents(t, nil)
		kept := make([]Type, 0, len(comps))
		for _, comp := range comps {
			if IsUntyped(comp) || !DerivesFromClass(res, comp, c) {
				kept = append(kept, comp)
			}
		}
		if len(kept) == len(comps) {
			return t
		}
		if len(kept) == 0 {
			return Bottom()
		}
		out := kept[0]
		for _, comp := range kept[1:] {
			out = NewOr(out, comp)
		}
		return out
	case *UntypedType, *BottomType, *TopType:
		return t
	default:
		if DerivesFromClass(res, x, c) {
			return Bottom()
		}
		return t
	}
}
