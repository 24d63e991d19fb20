package typesystem

// Join is the least-upper-bound approximation. Untyped absorbs, related
// types collapse to the wider one, and unrelated types form a flattened,
// deduplicated union.
func Join(res Resolver, a, b Type) Type {
	if IsUntyped(a) {
		return a
	}
	if IsUntyped(b) {
		return b
	}
	if IsBottom(a) {
		return b
	}
	if IsBottom(b) {
		return a
	}
	if _, ok := a.(*TopType); ok {
		return a
	}
	if _, ok := b.(*TopType); ok {
		return b
	}
	if IsSubType(res, a, b) {
		return b
	}
	if IsSubType(res, b, a) {
		return a
	}
	// Distinct literals of one class widen to the class instead of
	// accumulating literal unions.
	if la, ok := a.(*LiteralType); ok {
		if lb, ok := b.(*LiteralType); ok && la.Underlying == lb.Underlying {
			return NewClassType(la.Underlying)
		}
	}
	comps := orComponents(a, nil)
	comps = orComponents(b, comps)
	out := comps[0]
	for _, c := range comps[1:] {
		if unionContains(out, c) {
			continue
		}
		out = NewOr(out, c)
	}
	return out
}

// Meet is the greatest-lower-bound approximation. Untyped yields the other
// side, related types collapse to the narrower one, and provably disjoint
// types collapse to Bottom: with single inheritance two unrelated
// non-module classes share no instances.
func Meet(res Resolver, a, b Type) Type {
	if IsUntyped(a) {
		return b
	}
	if IsUntyped(b) {
		return a
	}
	if _, ok := a.(*TopType); ok {
		return b
	}
	if _, ok := b.(*TopType); ok {
		return a
	}
	if IsBottom(a) {
		return a
	}
	if IsBottom(b) {
		return b
	}
	if IsSubType(res, a, b) {
		return a
	}
	if IsSubType(res, b, a) {
		return b
	}
	if ca, ok := instanceClassOf(a); ok {
		if cb, ok := instanceClassOf(b); ok {
			if !res.IsModuleClass(ca) && !res.IsModuleClass(cb) &&
				!res.DerivesFrom(ca, cb) && !res.DerivesFrom(cb, ca) {
				return Bottom()
			}
		}
	}
	return NewAnd(a, b)
}

// instanceClassOf extracts the concrete class a value of t is an instance
// of, when that is a single statically known class.
func instanceClassOf(t Type) (ClassRef, bool) {
	switch x := t.(type) {
	case *ClassType:
		return x.Symbol, true
	case *AppliedType:
		return x.Symbol, true
	case *LiteralType:
		return x.Underlying, true
	case *TupleType:
		return ArrayClass, true
	case *ShapeType:
		return HashClass, true
	}
	return NoClass, false
}

func unionContains(t Type, comp Type) bool {
	for _, c := range orComponents(t, nil) {
		if Equal(c, comp) {
			return true
		}
	}
	return false
}
