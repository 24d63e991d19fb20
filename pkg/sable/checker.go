// Package sable embeds the call checker in Go programs: load a world of
// class and method declarations, then resolve calls against it and collect
// reports without going through the CLI.
package sable

import (
	"fmt"

	"github.com/sablelang/sable/internal/config"
	"github.com/sablelang/sable/internal/dispatch"
	"github.com/sablelang/sable/internal/loader"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

// Options adjust checking behavior. The zero value matches the CLI's
// defaults.
type Options struct {
	// StrictKeywordArgs reports trailing hashes standing in for keyword
	// arguments.
	StrictKeywordArgs bool
	// SuggestUnsafe names the escape hatch offered by autocorrects in
	// place of `T.must`.
	SuggestUnsafe string
	// RequiredAncestors extends lookup through requires_ancestor
	// declarations.
	RequiredAncestors bool
	// MaxSuggestions caps did-you-mean candidates per issue. Zero keeps
	// the default; -1 disables suggestions.
	MaxSuggestions int
	// DefaultStrictness applies to worlds that set none: untyped, typed,
	// or strict.
	DefaultStrictness string
}

func (o *Options) config() (*config.Config, error) {
	cfg := config.Default()
	if o == nil {
		return cfg, nil
	}
	if o.MaxSuggestions < -1 {
		return nil, fmt.Errorf("sable: MaxSuggestions must be >= -1")
	}
	cfg.StrictKeywordArgs = o.StrictKeywordArgs
	cfg.SuggestUnsafe = o.SuggestUnsafe
	cfg.RequiredAncestors = o.RequiredAncestors
	cfg.MaxSuggestions = o.MaxSuggestions
	if o.DefaultStrictness != "" {
		if _, err := symbols.ParseStrictness(o.DefaultStrictness); err != nil {
			return nil, err
		}
		cfg.DefaultStrictness = o.DefaultStrictness
	}
	return cfg, nil
}

// Checker holds one built world and resolves calls against it. It is not
// safe for concurrent use; Check appends to the world's source map.
type Checker struct {
	cfg  *config.Config
	res  *loader.Result
	disp *dispatch.Dispatcher
}

// Open loads and builds a world file.
func Open(path string, opts *Options) (*Checker, error) {
	w, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return newChecker(w, opts)
}

// Load builds a world from an in-memory document.
func Load(data []byte, opts *Options) (*Checker, error) {
	w, err := loader.Parse(data, "<embedded>")
	if err != nil {
		return nil, err
	}
	return newChecker(w, opts)
}

// New builds a checker over an empty world: only the builtin classes
// exist. Useful for probing builtin behavior with Check and TypeOf.
func New(opts *Options) (*Checker, error) {
	return newChecker(&loader.World{}, opts)
}

func newChecker(w *loader.World, opts *Options) (*Checker, error) {
	cfg, err := opts.config()
	if err != nil {
		return nil, err
	}
	if w.Strictness == "" {
		w.Strictness = cfg.DefaultStrictness
	}
	res, err := loader.Build(w)
	if err != nil {
		return nil, err
	}
	return &Checker{
		cfg:  cfg,
		res:  res,
		disp: dispatch.New(res.Table, res.Source, cfg.DispatchOptions()),
	}, nil
}

// Reports runs every query declared in the world and returns one report
// per query, in declaration order.
func (c *Checker) Reports() []Report {
	reports := make([]Report, 0, len(c.res.Queries))
	for _, q := range c.res.Queries {
		out := c.disp.Call(q.Args)
		reports = append(reports, Report{
			Call:   q.Rendered,
			Type:   typesystem.Show(c.res.Table, out.ReturnType),
			Issues: marshalIssues(out.AllDiags()),
		})
	}
	return reports
}

// Check resolves one call written in console syntax, for example
// `Mailer.deliver(String, urgent: boolean)`. The call is appended to the
// world so later issues can point back into its text.
func (c *Checker) Check(call string) (Report, error) {
	decl, err := loader.ParseQueryLine(call)
	if err != nil {
		return Report{}, err
	}
	decl.File = "embed.sable"
	q, err := c.res.AddQuery(decl)
	if err != nil {
		return Report{}, err
	}
	out := c.disp.Call(q.Args)
	return Report{
		Call:   q.Rendered,
		Type:   typesystem.Show(c.res.Table, out.ReturnType),
		Issues: marshalIssues(out.AllDiags()),
	}, nil
}

// TypeOf parses a type expression against the world and returns its
// printed form, normalized the way diagnostics print types.
func (c *Checker) TypeOf(expr string) (string, error) {
	t, err := loader.ParseType(c.res.Table, expr)
	if err != nil {
		return "", err
	}
	return typesystem.Show(c.res.Table, t), nil
}

// Source returns the rendered text of one virtual file: the defs files
// derived from declarations plus any query files. Reports reference these
// by name.
func (c *Checker) Source(file string) (string, bool) {
	src, ok := c.res.Source[file]
	return src, ok
}
