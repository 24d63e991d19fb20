package typesystem

import "fmt"

// Constraint accumulates bounds for one dispatch's method-level type
// parameters. It is owned by exactly one in-flight dispatch, written while
// arguments are matched, and solved at most once. EmptyFrozen stands in
// when no generics are involved; writing to it is an invariant violation
// and panics.
type Constraint struct {
	frozen   bool
	params   []TypeParamRef
	lower    []Type
	upper    []Type
	solution []Type
	solved   bool
}

// EmptyFrozen is the shared "no generics in flight" constraint.
var EmptyFrozen = &Constraint{frozen: true}

func NewConstraint(params []TypeParamRef) *Constraint {
	return &Constraint{
		params: params,
		lower:  make([]Type, len(params)),
		upper:  make([]Type, len(params)),
	}
}

// IsEmpty reports whether the constraint tracks no type parameters.
func (c *Constraint) IsEmpty() bool { return len(c.params) == 0 }

// IsSolved reports whether Solve has committed an instantiation.
func (c *Constraint) IsSolved() bool { return c.solved }

// Domain returns the tracked parameters.
func (c *Constraint) Domain() []TypeParamRef { return c.params }

func (c *Constraint) indexOf(p TypeParamRef) int {
	for i, q := range c.params {
		if q == p {
			return i
		}
	}
	return -1
}

// canRecord reports whether a bound for p may be written here.
func (c *Constraint) canRecord(p TypeParamRef) bool {
	return !c.frozen && !c.solved && c.indexOf(p) >= 0
}

func (c *Constraint) rememberLower(res Resolver, p TypeParamRef, t Type) {
	i := c.mustIndex(p)
	if c.lower[i] == nil {
		c.lower[i] = t
		return
	}
	c.lower[i] = Join(res, c.lower[i], t)
}

func (c *Constraint) rememberUpper(res Resolver, p TypeParamRef, t Type) {
	i := c.mustIndex(p)
	if c.upper[i] == nil {
		c.upper[i] = t
		return
	}
	c.upper[i] = Meet(res, c.upper[i], t)
}

func (c *Constraint) mustIndex(p TypeParamRef) int {
	if c.frozen {
		panic(fmt.Sprintf("typesystem: wrote bound for param %d to a frozen constraint", p))
	}
	i := c.indexOf(p)
	if i < 0 {
		panic(fmt.Sprintf("typesystem: param %d is not in the constraint domain", p))
	}
	return i
}

// Solve commits one concrete type per parameter, consistent with all
// recorded bounds. Lower bounds win and are widened past literals so a
// call with Integer(42) instantiates to Integer; parameters bounded only
// from above take their upper bound; unbounded parameters become untyped.
// Returns false when some lower bound cannot live under its upper bound.
func (c *Constraint) Solve(res Resolver) bool {
	if c.frozen {
		panic("typesystem: solved a frozen constraint")
	}
	if c.solved {
		return true
	}
	solution := make([]Type, len(c.params))
	for i := range c.params {
		l, u := c.lower[i], c.upper[i]
		switch {
		case l != nil:
			if u != nil && !IsSubType(res, l, u) {
				return false
			}
			sol := Widen(res, l)
			if u != nil && !IsSubType(res, sol, u) {
				sol = l
			}
			solution[i] = sol
		case u != nil:
			solution[i] = u
		default:
			solution[i] = Untyped()
		}
	}
	c.solution = solution
	c.solved = true
	return true
}

// Explain renders the recorded bounds one parameter per line, for error
// sections shown when no solution exists.
func (c *Constraint) Explain(res Resolver) []string {
	lines := make([]string, 0, len(c.params))
	for i, p := range c.params {
		name := res.TypeParamName(p)
		l, u := c.lower[i], c.upper[i]
		switch {
		case l != nil && u != nil:
			lines = append(lines, fmt.Sprintf("`%s` must be a supertype of `%s` and a subtype of `%s`",
				name, Show(res, l), Show(res, u)))
		case l != nil:
			lines = append(lines, fmt.Sprintf("`%s` must be a supertype of `%s`", name, Show(res, l)))
		case u != nil:
			lines = append(lines, fmt.Sprintf("`%s` must be a subtype of `%s`", name, Show(res, u)))
		}
	}
	return lines
}

// Instantiation returns the solved type for p.
func (c *Constraint) Instantiation(p TypeParamRef) (Type, bool) {
	if !c.solved {
		return nil, false
	}
	i := c.indexOf(p)
	if i < 0 {
		return nil, false
	}
	return c.solution[i], true
}

// bestGuess is the pre-solve approximation for p: the upper bound if one
// was recorded, else the widened lower bound, else untyped.
func (c *Constraint) bestGuess(res Resolver, p TypeParamRef) Type {
	i := c.indexOf(p)
	if i < 0 {
		return Untyped()
	}
	if c.solved {
		return c.solution[i]
	}
	if c.upper[i] != nil {
		return c.upper[i]
	}
	if c.lower[i] != nil {
		return Widen(res, c.lower[i])
	}
	return Untyped()
}
