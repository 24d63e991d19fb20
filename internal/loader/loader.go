// Package loader reads world files: YAML documents that declare a class
// hierarchy with signatures plus a list of call queries to resolve against
// it. Load parses and validates the document; Build lowers it into a symbol
// table, synthetic source text, and dispatch-ready arguments.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sablelang/sable/internal/symbols"
)

// World is the parsed form of one world file.
type World struct {
	// Strictness is the typedness level assumed for files without an entry
	// in Files: untyped, typed, or strict. Defaults to typed.
	Strictness string `yaml:"strictness,omitempty"`
	// Files overrides the strictness of individual files. Rendered
	// declarations live in defs/<Class>.sable and queries in
	// query-<N>.sable unless the query names its own file.
	Files map[string]string `yaml:"files,omitempty"`
	// Classes declares the hierarchy, in any order. Naming a class the
	// table already knows reopens it.
	Classes []ClassDecl `yaml:"classes,omitempty"`
	// Queries are the calls to resolve, in order.
	Queries []QueryDecl `yaml:"queries,omitempty"`

	path string
}

// ClassDecl declares one class or module.
type ClassDecl struct {
	Name string `yaml:"name"`
	// Superclass names the parent; plain classes default to Object.
	Superclass string `yaml:"superclass,omitempty"`
	// Module declares a module instead of a class.
	Module bool `yaml:"module,omitempty"`
	// Stub marks a class that resolution invented for a missing constant;
	// calls on it never report unknown methods.
	Stub bool `yaml:"stub,omitempty"`
	// Mixins lists included modules, in inclusion order.
	Mixins []string `yaml:"mixins,omitempty"`
	// RequiresAncestor lists ancestors this module demands of its hosts.
	RequiresAncestor []string `yaml:"requires_ancestor,omitempty"`
	// TypeMembers declares class-level generic parameters, in application
	// order.
	TypeMembers []TypeMemberDecl `yaml:"type_members,omitempty"`
	Methods     []MethodDecl     `yaml:"methods,omitempty"`
}

// TypeMemberDecl declares one class-level generic parameter.
type TypeMemberDecl struct {
	Name string `yaml:"name"`
	// Variance is invariant, covariant, or contravariant; out and in are
	// accepted shorthands. Defaults to invariant.
	Variance string `yaml:"variance,omitempty"`
	// Upper and Lower bound the member. Empty means unbounded.
	Upper string `yaml:"upper,omitempty"`
	Lower string `yaml:"lower,omitempty"`
	// Fixed pins the member to one type; fixed members take no argument
	// in generic applications.
	Fixed string `yaml:"fixed,omitempty"`
}

// MethodDecl declares one method, by default with a full signature.
type MethodDecl struct {
	Name string `yaml:"name"`
	// Self puts the method on the singleton class.
	Self bool `yaml:"self,omitempty"`
	// Abstract methods report when called directly on the defining class.
	Abstract bool `yaml:"abstract,omitempty"`
	// NoSig declares the method without a signature: parameters carry no
	// types and the result is untyped blaming the method.
	NoSig bool `yaml:"no_sig,omitempty"`
	// TypeParams names method-level generic parameters, usable in Params
	// and Returns.
	TypeParams []string    `yaml:"type_params,omitempty"`
	Params     []ParamDecl `yaml:"params,omitempty"`
	Returns    string      `yaml:"returns,omitempty"`
	// Overloads stacks alternative signatures under the same name. Name,
	// Self, and nested Overloads of the entries are ignored.
	Overloads []MethodDecl `yaml:"overloads,omitempty"`
}

// ParamDecl declares one method parameter. Flag combinations follow the
// usual parameter kinds: rest+keyword is a keyword splat, and a block
// parameter must come last.
type ParamDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Keyword  bool   `yaml:"keyword,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
	Rest     bool   `yaml:"rest,omitempty"`
	Block    bool   `yaml:"block,omitempty"`
}

// QueryDecl is one call to resolve: a receiver type, a method name, and
// argument types.
type QueryDecl struct {
	Recv   string   `yaml:"recv"`
	Method string   `yaml:"method"`
	Args   []string `yaml:"args,omitempty"`
	// Kwargs lists keyword arguments in call order.
	Kwargs []KwargDecl `yaml:"kwargs,omitempty"`
	// Kwsplat is the type of a trailing double-splatted hash.
	Kwsplat string `yaml:"kwsplat,omitempty"`
	// Block attaches a literal block to the call.
	Block *BlockDecl `yaml:"block,omitempty"`
	// File places the synthesized call text; queries sharing a file are
	// appended line by line. Defaults to query-<N>.sable.
	File string `yaml:"file,omitempty"`
	// Suppress resolves the call without reporting diagnostics.
	Suppress bool `yaml:"suppress,omitempty"`
}

// KwargDecl is one keyword argument.
type KwargDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// BlockDecl attaches a block literal to a query.
type BlockDecl struct {
	// Arity is the block's positional parameter count, or -1 when it is
	// not statically known.
	Arity int `yaml:"arity"`
}

// Load reads and validates a world file.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a world document. The path appears in error
// messages only.
func Parse(data []byte, path string) (*World, error) {
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing world %s: %w", path, err)
	}
	w.path = path
	if err := w.validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *World) validate() error {
	if w.Strictness != "" {
		if _, err := symbols.ParseStrictness(w.Strictness); err != nil {
			return fmt.Errorf("%s: strictness: %w", w.path, err)
		}
	}
	for file, lvl := range w.Files {
		if _, err := symbols.ParseStrictness(lvl); err != nil {
			return fmt.Errorf("%s: files[%s]: %w", w.path, file, err)
		}
	}
	seen := make(map[string]bool, len(w.Classes))
	for i := range w.Classes {
		c := &w.Classes[i]
		where := fmt.Sprintf("%s: classes[%d]", w.path, i)
		if c.Name == "" {
			return fmt.Errorf("%s: name is required", where)
		}
		if strings.HasPrefix(c.Name, "<") {
			return fmt.Errorf("%s: %s is a reserved name", where, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%s: duplicate class %s", where, c.Name)
		}
		seen[c.Name] = true
		if c.Module && c.Superclass != "" {
			return fmt.Errorf("%s: modules have no superclass", where)
		}
		for j := range c.TypeMembers {
			tm := &c.TypeMembers[j]
			if tm.Name == "" {
				return fmt.Errorf("%s: type_members[%d]: name is required", where, j)
			}
			if _, err := parseVariance(tm.Variance); err != nil {
				return fmt.Errorf("%s: type_members[%d]: %w", where, j, err)
			}
			if tm.Fixed != "" && (tm.Upper != "" || tm.Lower != "") {
				return fmt.Errorf("%s: type_members[%d]: fixed excludes bounds", where, j)
			}
		}
		for j := range c.Methods {
			m := &c.Methods[j]
			if err := validateMethod(m, fmt.Sprintf("%s: methods[%d]", where, j), true); err != nil {
				return err
			}
		}
	}
	for i := range w.Queries {
		q := &w.Queries[i]
		where := fmt.Sprintf("%s: queries[%d]", w.path, i)
		if q.Recv == "" {
			return fmt.Errorf("%s: recv is required", where)
		}
		if q.Method == "" {
			return fmt.Errorf("%s: method is required", where)
		}
		for j, kw := range q.Kwargs {
			if kw.Name == "" || kw.Type == "" {
				return fmt.Errorf("%s: kwargs[%d]: name and type are required", where, j)
			}
		}
		if q.Block != nil && q.Block.Arity < -1 {
			return fmt.Errorf("%s: block arity must be >= -1", where)
		}
		if strings.HasPrefix(q.File, "defs/") {
			return fmt.Errorf("%s: the defs/ namespace is reserved for rendered declarations", where)
		}
	}
	return nil
}

func validateMethod(m *MethodDecl, where string, primary bool) error {
	if primary && m.Name == "" {
		return fmt.Errorf("%s: name is required", where)
	}
	if m.NoSig {
		if m.Returns != "" || len(m.TypeParams) > 0 {
			return fmt.Errorf("%s: no_sig methods declare neither returns nor type_params", where)
		}
		for _, p := range m.Params {
			if p.Type != "" {
				return fmt.Errorf("%s: no_sig methods declare no parameter types", where)
			}
		}
	} else if m.Returns == "" {
		return fmt.Errorf("%s: returns is required (or set no_sig)", where)
	}
	for k := range m.Params {
		p := &m.Params[k]
		if p.Name == "" {
			return fmt.Errorf("%s: params[%d]: name is required", where, k)
		}
		if p.Block {
			if p.Keyword || p.Rest || p.Optional {
				return fmt.Errorf("%s: params[%d]: block excludes other kinds", where, k)
			}
			if k != len(m.Params)-1 {
				return fmt.Errorf("%s: params[%d]: the block parameter must come last", where, k)
			}
		}
		if p.Rest && p.Optional {
			return fmt.Errorf("%s: params[%d]: rest parameters cannot be optional", where, k)
		}
	}
	for k := range m.Overloads {
		o := &m.Overloads[k]
		if len(o.Overloads) > 0 {
			return fmt.Errorf("%s: overloads[%d]: overloads do not nest", where, k)
		}
		if err := validateMethod(o, fmt.Sprintf("%s: overloads[%d]", where, k), false); err != nil {
			return err
		}
	}
	return nil
}
