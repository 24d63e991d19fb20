package dispatch

import (
	"sort"

	"github.com/sablelang/sable/internal/typesystem"
)

// guessOverload picks the alternative of an overloaded method that best
// fits the call. Selection is arity driven: candidates that cannot accept
// the supplied arguments are discarded, a block must be declared exactly
// when one is passed, and among the survivors the smallest arity at or
// above the argument count wins. Declared argument types only participate
// when they are fully defined, since no constraint is in flight yet.
func (d *Dispatcher) guessOverload(inClass typesystem.ClassRef, primary typesystem.MethodRef, args *DispatchArgs, targs []typesystem.Type) typesystem.MethodRef {
	fallback := primary
	all := make([]typesystem.MethodRef, 0, 1+len(d.table.Method(primary).Overloads))
	all = append(all, primary)
	all = append(all, d.table.Method(primary).Overloads...)
	sort.SliceStable(all, func(i, j int) bool {
		ai, aj := getArity(d.table.Method(all[i])), getArity(d.table.Method(all[j]))
		if ai != aj {
			return ai < aj
		}
		return all[i] < all[j]
	})

	left := make([]typesystem.MethodRef, len(all))
	copy(left, all)

	checkArg := func(i int, arg typesystem.Type) {
		kept := make([]typesystem.MethodRef, 0, len(left))
		for _, candidate := range left {
			data := d.table.Method(candidate)
			if i >= getArity(data) {
				continue
			}
			if declared := data.Args[i].Type; declared != nil {
				expected := typesystem.InstantiateMembers(d.table, declared, inClass, targs)
				if typesystem.IsFullyDefined(expected) && !typesystem.IsSubType(d.table, arg, expected) {
					continue
				}
			}
			kept = append(kept, candidate)
		}
		left = kept
	}

	for i := 0; i < args.NumPosArgs; i++ {
		checkArg(i, args.Args[i].Type)
	}
	// A keyword region counts as one trailing hash argument.
	if args.NumPosArgs < len(args.Args) {
		checkArg(args.NumPosArgs, hashOfUntyped())
	}

	if len(left) == 0 {
		left = all
	} else {
		fallback = left[0]
	}

	kept := make([]typesystem.MethodRef, 0, len(left))
	for _, candidate := range left {
		mentionsBlock := d.table.Method(candidate).BlockArg().Name != nameBlockArg
		if mentionsBlock == (args.Block != nil) {
			kept = append(kept, candidate)
		}
	}
	left = kept

	// Drop candidates with fewer parameters than arguments, unless every
	// candidate is short.
	idx := sort.Search(len(left), func(i int) bool {
		return getArity(d.table.Method(left[i])) >= len(args.Args)
	})
	if idx < len(left) {
		left = left[idx:]
	}

	if len(left) > 0 {
		return left[0]
	}
	return fallback
}
