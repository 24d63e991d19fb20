package mutator

import (
	"math/rand"

	"github.com/sablelang/sable/internal/loader"
)

// WorldMutator applies random mutations to a parsed world. Mutations keep
// the document structurally valid (names stay non-empty, types stay
// resolvable) but freely break call sites, so rebuilt worlds surface
// diagnostics rather than loader errors.
type WorldMutator struct {
	rnd *rand.Rand
}

// Type expressions safe to substitute anywhere: builtins only.
var typePool = []string{
	"Integer",
	"String",
	"Symbol",
	"untyped",
	"nilable(String)",
	"Integer | String",
	"Array[Integer]",
	"[Integer, String]",
	"{name: String}",
}

// NewWorldMutator creates a new WorldMutator with the given seed.
func NewWorldMutator(seed int64) *WorldMutator {
	return &WorldMutator{rnd: rand.New(rand.NewSource(seed))}
}

// Mutate applies one random mutation to the world in place.
func (m *WorldMutator) Mutate(w *loader.World) {
	switch m.rnd.Intn(3) {
	case 0:
		m.mutateMethod(w)
	case 1:
		m.mutateQuery(w)
	case 2:
		m.mutateParam(w)
	}
}

func (m *WorldMutator) randomMethod(w *loader.World) *loader.MethodDecl {
	if len(w.Classes) == 0 {
		return nil
	}
	c := &w.Classes[m.rnd.Intn(len(w.Classes))]
	if len(c.Methods) == 0 {
		return nil
	}
	return &c.Methods[m.rnd.Intn(len(c.Methods))]
}

func (m *WorldMutator) mutateMethod(w *loader.World) {
	md := m.randomMethod(w)
	if md == nil {
		return
	}
	switch m.rnd.Intn(3) {
	case 0:
		// Rename: existing queries now miss, exercising did-you-mean.
		md.Name += "x"
	case 1:
		md.Returns = typePool[m.rnd.Intn(len(typePool))]
	case 2:
		md.Abstract = !md.Abstract
	}
}

func (m *WorldMutator) mutateParam(w *loader.World) {
	md := m.randomMethod(w)
	if md == nil || len(md.Params) == 0 {
		return
	}
	p := &md.Params[m.rnd.Intn(len(md.Params))]
	switch m.rnd.Intn(4) {
	case 0:
		p.Type = typePool[m.rnd.Intn(len(typePool))]
	case 1:
		p.Optional = !p.Optional
	case 2:
		// Flipping keyword-ness changes how call sites must spell the
		// argument without touching them.
		p.Keyword = !p.Keyword
	case 3:
		md.Params = md.Params[:len(md.Params)-1]
	}
}

func (m *WorldMutator) mutateQuery(w *loader.World) {
	if len(w.Queries) == 0 {
		return
	}
	q := &w.Queries[m.rnd.Intn(len(w.Queries))]
	switch m.rnd.Intn(4) {
	case 0:
		q.Method += "x"
	case 1:
		q.Args = append(q.Args, typePool[m.rnd.Intn(len(typePool))])
	case 2:
		if len(q.Args) > 0 {
			q.Args = q.Args[:len(q.Args)-1]
		}
	case 3:
		q.Suppress = !q.Suppress
	}
}
