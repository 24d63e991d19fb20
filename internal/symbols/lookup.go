// symbols/lookup.go - Ancestry linearization, member lookup, fuzzy matching

package symbols

import (
	"sort"

	"github.com/sablelang/sable/internal/typesystem"
)

// Ancestry returns the member lookup order for c: the class itself, its
// mixins most recently included first (each followed by its own mixins), then
// the superclass chain with the same expansion. Every class appears once.
func (t *Table) Ancestry(c typesystem.ClassRef) []typesystem.ClassRef {
	out := make([]typesystem.ClassRef, 0, 8)
	seen := make(map[typesystem.ClassRef]bool, 8)
	var include func(k typesystem.ClassRef)
	include = func(k typesystem.ClassRef) {
		if !k.Exists() || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
		for _, m := range t.Class(k).Mixins {
			include(m)
		}
	}
	for k := c; k.Exists(); k = t.Class(k).Superclass {
		include(k)
	}
	return out
}

// FindMember looks the name up on the class itself, ignoring ancestors.
func (t *Table) FindMember(c typesystem.ClassRef, name string) typesystem.MethodRef {
	if m, ok := t.Class(c).methods[name]; ok {
		return m
	}
	return typesystem.NoMethod
}

// FindMemberTransitive resolves the name along the ancestry, nearest
// definition first.
func (t *Table) FindMemberTransitive(c typesystem.ClassRef, name string) typesystem.MethodRef {
	for _, a := range t.Ancestry(c) {
		if m, ok := t.Class(a).methods[name]; ok {
			return m
		}
	}
	return typesystem.NoMethod
}

// FindMemberTransitiveIncludingRequired additionally consults the required
// ancestors declared by modules in the ancestry. A module's requirement
// promises the mixing class will provide those ancestors, so their members
// are callable on the module's own type.
func (t *Table) FindMemberTransitiveIncludingRequired(c typesystem.ClassRef, name string) typesystem.MethodRef {
	if m := t.FindMemberTransitive(c, name); m.Exists() {
		return m
	}
	seen := make(map[typesystem.ClassRef]bool)
	for _, a := range t.Ancestry(c) {
		for _, req := range t.Class(a).RequiredAncestors {
			if seen[req] {
				continue
			}
			seen[req] = true
			if m := t.FindMemberTransitive(req, name); m.Exists() {
				return m
			}
		}
	}
	return typesystem.NoMethod
}

// MemberNames lists the names defined directly on c, sorted.
func (t *Table) MemberNames(c typesystem.ClassRef) []string {
	data := t.Class(c)
	out := make([]string, 0, len(data.methods))
	for name := range data.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FindClass resolves a class by name over the whole table.
func (t *Table) FindClass(name string) (typesystem.ClassRef, bool) {
	for i := 1; i < len(t.classes); i++ {
		if t.classes[i].Name == name {
			return typesystem.ClassRef(i), true
		}
	}
	return typesystem.NoClass, false
}

// FuzzyMatch is one near-miss candidate for a misspelled name.
type FuzzyMatch struct {
	Method   typesystem.MethodRef
	Distance int
}

// FindMemberFuzzyMatch collects methods along the ancestry whose names are
// within edit distance 1 + len(name)/4 of the requested name, closest first.
// Internal names and exact matches are skipped; at most limit results.
func (t *Table) FindMemberFuzzyMatch(c typesystem.ClassRef, name string, limit int) []FuzzyMatch {
	if limit <= 0 {
		return nil
	}
	allowed := 1 + len(name)/4
	best := make(map[string]FuzzyMatch)
	for _, a := range t.Ancestry(c) {
		for candidate, m := range t.Class(a).methods {
			if candidate == name || candidate[0] == '<' {
				continue
			}
			if _, ok := best[candidate]; ok {
				// Nearer ancestor already claimed the name.
				continue
			}
			if d := editDistance(name, candidate, allowed); d <= allowed {
				best[candidate] = FuzzyMatch{Method: m, Distance: d}
			}
		}
	}
	out := make([]FuzzyMatch, 0, len(best))
	for _, fm := range best {
		out = append(out, fm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return t.Method(out[i].Method).Name < t.Method(out[j].Method).Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FindClassFuzzyMatch collects class names near the requested one, for
// suggesting the intended class when an undeclared one is instantiated.
func (t *Table) FindClassFuzzyMatch(name string, limit int) []typesystem.ClassRef {
	if limit <= 0 {
		return nil
	}
	allowed := 1 + len(name)/4
	type scored struct {
		ref  typesystem.ClassRef
		dist int
	}
	var found []scored
	for i := 1; i < len(t.classes); i++ {
		data := &t.classes[i]
		if data.IsStub || data.Name == name || data.Name[0] == '<' {
			continue
		}
		if d := editDistance(name, data.Name, allowed); d <= allowed {
			found = append(found, scored{typesystem.ClassRef(i), d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return t.classes[found[i].ref].Name < t.classes[found[j].ref].Name
	})
	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]typesystem.ClassRef, len(found))
	for i, s := range found {
		out[i] = s.ref
	}
	return out
}

// editDistance is the Levenshtein distance between a and b, giving up early
// with max+1 once no alignment can stay within max.
func editDistance(a, b string, max int) int {
	if la, lb := len(a), len(b); la-lb > max || lb-la > max {
		return max + 1
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			d := del
			if ins < d {
				d = ins
			}
			if sub < d {
				d = sub
			}
			curr[j] = d
			if d < rowMin {
				rowMin = d
			}
		}
		if rowMin > max {
			return max + 1
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
