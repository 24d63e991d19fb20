package generators

import (
	"fmt"
	"math/rand"
	"strings"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness. Once the bytes
// run out every draw returns zero, so generation always terminates.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 255.0
}

// typePool holds type expressions every generated world can resolve:
// builtins only, so a generated document never depends on declaration
// order.
var typePool = []string{
	"Integer",
	"String",
	"Symbol",
	"Float",
	"untyped",
	"boolean",
	"nil",
	"nilable(Integer)",
	"Integer | String",
	"Array[Integer]",
	"Hash[Symbol, String]",
	"[Integer, String]",
	"{name: String}",
	":ok",
	"\"ready\"",
	"42",
}

var methodNames = []string{
	"deliver", "fetch", "parse", "render", "push", "store", "lookup",
	"merge_into", "reset", "describe",
}

var paramNames = []string{"a", "b", "c", "key", "value", "count", "label"}

const (
	MaxClasses = 4
	MaxMethods = 3
	MaxParams  = 3
	MaxQueries = 6
)

// Generator produces random checker worlds: a class graph with signed
// methods plus queries against them, rendered as a world document that
// Parse and Build always accept.
type Generator struct {
	src     RandomSource
	classes []genClass
}

type genClass struct {
	name    string
	super   string
	methods []genMethod
}

type genMethod struct {
	name    string
	self    bool
	params  []genParam
	returns string
}

type genParam struct {
	name     string
	typ      string
	keyword  bool
	optional bool
}

func New(seed int64) *Generator {
	return &Generator{src: &RandSource{rand.New(rand.NewSource(seed))}}
}

func NewFromData(data []byte) *Generator {
	return &Generator{src: &ByteSource{data: data}}
}

// Intn exposes the random source's Intn method for embedded structs.
func (g *Generator) Intn(n int) int {
	return g.src.Intn(n)
}

func (g *Generator) pick(pool []string) string {
	return pool[g.src.Intn(len(pool))]
}

// GenerateWorld renders a complete world document. Class names are unique
// and numbered, superclasses only point at earlier classes, and every type
// expression comes from typePool, so the result builds without errors.
// Queries deliberately mix well-formed calls with wrong arities and
// misspelled names to walk the diagnostic paths.
func (g *Generator) GenerateWorld() string {
	g.classes = g.classes[:0]
	numClasses := g.src.Intn(MaxClasses) + 1
	for i := 0; i < numClasses; i++ {
		g.classes = append(g.classes, g.generateClass(i))
	}

	var sb strings.Builder
	sb.WriteString("strictness: strict\n")
	sb.WriteString("classes:\n")
	for _, c := range g.classes {
		g.renderClass(&sb, c)
	}
	sb.WriteString("queries:\n")
	numQueries := g.src.Intn(MaxQueries) + 1
	for i := 0; i < numQueries; i++ {
		g.renderQuery(&sb)
	}
	return sb.String()
}

func (g *Generator) generateClass(idx int) genClass {
	c := genClass{name: fmt.Sprintf("Gen%d", idx)}
	if idx > 0 && g.src.Intn(3) == 0 {
		c.super = g.classes[g.src.Intn(idx)].name
	}
	numMethods := g.src.Intn(MaxMethods) + 1
	for i := 0; i < numMethods; i++ {
		c.methods = append(c.methods, g.generateMethod())
	}
	return c
}

func (g *Generator) generateMethod() genMethod {
	m := genMethod{
		name:    g.pick(methodNames),
		self:    g.src.Intn(4) == 0,
		returns: g.pick(typePool),
	}
	numParams := g.src.Intn(MaxParams + 1)
	for i := 0; i < numParams; i++ {
		p := genParam{
			name: fmt.Sprintf("%s%d", g.pick(paramNames), i),
			typ:  g.pick(typePool),
		}
		// Keyword params go last so rendered defs stay readable.
		if i == numParams-1 && g.src.Intn(3) == 0 {
			p.keyword = true
		}
		if g.src.Intn(4) == 0 {
			p.optional = true
		}
		m.params = append(m.params, p)
	}
	return m
}

func (g *Generator) renderClass(sb *strings.Builder, c genClass) {
	fmt.Fprintf(sb, "  - name: %s\n", c.name)
	if c.super != "" {
		fmt.Fprintf(sb, "    superclass: %s\n", c.super)
	}
	sb.WriteString("    methods:\n")
	for _, m := range c.methods {
		fmt.Fprintf(sb, "      - name: %s\n", m.name)
		if m.self {
			sb.WriteString("        self: true\n")
		}
		if len(m.params) > 0 {
			sb.WriteString("        params:\n")
			for _, p := range m.params {
				fmt.Fprintf(sb, "          - name: %s\n", p.name)
				fmt.Fprintf(sb, "            type: %q\n", p.typ)
				if p.keyword {
					sb.WriteString("            keyword: true\n")
				}
				if p.optional {
					sb.WriteString("            optional: true\n")
				}
			}
		}
		fmt.Fprintf(sb, "        returns: %q\n", m.returns)
	}
}

func (g *Generator) renderQuery(sb *strings.Builder) {
	class := g.classes[g.src.Intn(len(g.classes))]
	method := class.methods[g.src.Intn(len(class.methods))]

	recv := class.name
	if method.self {
		recv = "class_of(" + class.name + ")"
	}
	fmt.Fprintf(sb, "  - recv: %q\n", recv)

	name := method.name
	switch g.src.Intn(5) {
	case 0:
		// Misspelling: exercises unknown-method reporting and the
		// did-you-mean machinery.
		name += "x"
	case 1:
		name = "missing_entirely"
	}
	fmt.Fprintf(sb, "    method: %s\n", name)

	var args, kwargNames, kwargTypes []string
	for _, p := range method.params {
		if g.src.Intn(4) == 0 {
			// Dropped argument: wrong arity or missing keyword.
			continue
		}
		t := p.typ
		if g.src.Intn(4) == 0 {
			t = g.pick(typePool)
		}
		if p.keyword {
			kwargNames = append(kwargNames, p.name)
			kwargTypes = append(kwargTypes, t)
		} else {
			args = append(args, t)
		}
	}
	if g.src.Intn(6) == 0 {
		args = append(args, g.pick(typePool))
	}
	if len(args) > 0 {
		sb.WriteString("    args:\n")
		for _, a := range args {
			fmt.Fprintf(sb, "      - %q\n", a)
		}
	}
	if len(kwargNames) > 0 {
		sb.WriteString("    kwargs:\n")
		for i := range kwargNames {
			fmt.Fprintf(sb, "      - name: %s\n", kwargNames[i])
			fmt.Fprintf(sb, "        type: %q\n", kwargTypes[i])
		}
	}
	if g.src.Intn(5) == 0 {
		fmt.Fprintf(sb, "    block:\n      arity: %d\n", g.src.Intn(3))
	}
}
