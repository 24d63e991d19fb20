// loader/build.go - Lowering a world into checker inputs
//
// Build happens in passes so declarations can reference each other freely:
// every class is entered first, then hierarchy links and type members, then
// signatures, then queries. Each class is also rendered as pseudo-source
// into defs/<Class>.sable so diagnostics that excerpt a declaration (block
// parameter notes, autocorrects) have text to point at.

package loader

import (
	"fmt"
	"strings"

	"github.com/sablelang/sable/internal/dispatch"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

// Result is a lowered world.
type Result struct {
	Table  *symbols.Table
	Source loc.MapSource
	// Queries aligns with the world's query list.
	Queries []Query
}

// Query is one lowered call, ready for the dispatcher.
type Query struct {
	Args dispatch.DispatchArgs
	// Rendered is the synthesized call text, also present in Source.
	Rendered string
}

// Build lowers a parsed world. Resolution errors (unknown classes, bad type
// expressions) surface here rather than during validation because they need
// the table.
func Build(w *World) (*Result, error) {
	b := &builder{world: w, table: symbols.NewTable(), src: loc.MapSource{}}
	if w.Strictness != "" {
		s, err := symbols.ParseStrictness(w.Strictness)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.path, err)
		}
		b.table.SetDefaultStrictness(s)
	}
	for file, lvl := range w.Files {
		s, err := symbols.ParseStrictness(lvl)
		if err != nil {
			return nil, fmt.Errorf("%s: files[%s]: %w", w.path, file, err)
		}
		b.table.SetFileStrictness(file, s)
	}
	b.renderDefs()
	if err := b.enterClasses(); err != nil {
		return nil, err
	}
	if err := b.linkClasses(); err != nil {
		return nil, err
	}
	if err := b.declareSignatures(); err != nil {
		return nil, err
	}
	queries, err := b.lowerQueries()
	if err != nil {
		return nil, err
	}
	return &Result{Table: b.table, Source: b.src, Queries: queries}, nil
}

type builder struct {
	world *World
	table *symbols.Table
	src   loc.MapSource

	rendered []renderedClass
	refs     []typesystem.ClassRef
	members  [][]typesystem.TypeMemberRef
}

// renderedClass records where each declaration landed in the class's
// rendered defs file.
type renderedClass struct {
	file     string
	classLoc loc.Loc
	members  []loc.Loc
	methods  []renderedMethod
}

type renderedMethod struct {
	defn      loc.Loc
	params    []loc.Loc
	overloads []renderedMethod
}

func defsFileName(class string) string {
	return "defs/" + class + ".sable"
}

func (b *builder) renderDefs() {
	b.rendered = make([]renderedClass, len(b.world.Classes))
	for i := range b.world.Classes {
		decl := &b.world.Classes[i]
		text, rc := renderClass(decl)
		b.rendered[i] = rc
		b.src[rc.file] = text
	}
}

func renderClass(decl *ClassDecl) (string, renderedClass) {
	file := defsFileName(decl.Name)
	rc := renderedClass{file: file}
	var w strings.Builder
	if decl.Module {
		w.WriteString("module ")
		w.WriteString(decl.Name)
	} else {
		w.WriteString("class ")
		w.WriteString(decl.Name)
		if decl.Superclass != "" {
			w.WriteString(" < ")
			w.WriteString(decl.Superclass)
		}
	}
	rc.classLoc = loc.New(file, 0, uint32(w.Len()))
	w.WriteString("\n")
	for _, m := range decl.Mixins {
		w.WriteString("  include ")
		w.WriteString(m)
		w.WriteString("\n")
	}
	for _, a := range decl.RequiresAncestor {
		w.WriteString("  requires_ancestor ")
		w.WriteString(a)
		w.WriteString("\n")
	}
	for i := range decl.TypeMembers {
		tm := &decl.TypeMembers[i]
		w.WriteString("  ")
		start := uint32(w.Len())
		w.WriteString(tm.Name)
		w.WriteString(" = type_member")
		var opts []string
		switch tm.Variance {
		case "covariant", "out":
			opts = append(opts, ":out")
		case "contravariant", "in":
			opts = append(opts, ":in")
		}
		if tm.Fixed != "" {
			opts = append(opts, "fixed: "+tm.Fixed)
		}
		if tm.Upper != "" {
			opts = append(opts, "upper: "+tm.Upper)
		}
		if tm.Lower != "" {
			opts = append(opts, "lower: "+tm.Lower)
		}
		if len(opts) > 0 {
			w.WriteString("(" + strings.Join(opts, ", ") + ")")
		}
		rc.members = append(rc.members, loc.New(file, start, uint32(w.Len())))
		w.WriteString("\n")
	}
	for i := range decl.Methods {
		m := &decl.Methods[i]
		rm := renderMethod(&w, file, m.Name, m.Self, m)
		for j := range m.Overloads {
			rm.overloads = append(rm.overloads, renderMethod(&w, file, m.Name, m.Self, &m.Overloads[j]))
		}
		rc.methods = append(rc.methods, rm)
	}
	w.WriteString("end\n")
	return w.String(), rc
}

func renderMethod(w *strings.Builder, file, name string, self bool, decl *MethodDecl) renderedMethod {
	w.WriteString("  ")
	start := uint32(w.Len())
	if decl.Abstract {
		w.WriteString("abstract ")
	}
	w.WriteString("def ")
	if self {
		w.WriteString("self.")
	}
	w.WriteString(name)
	if len(decl.TypeParams) > 0 {
		w.WriteString("[" + strings.Join(decl.TypeParams, ", ") + "]")
	}
	w.WriteString("(")
	rm := renderedMethod{}
	for i := range decl.Params {
		if i > 0 {
			w.WriteString(", ")
		}
		p := &decl.Params[i]
		pstart := uint32(w.Len())
		switch {
		case p.Block:
			w.WriteString("&")
		case p.Rest && p.Keyword:
			w.WriteString("**")
		case p.Rest:
			w.WriteString("*")
		}
		w.WriteString(p.Name)
		if p.Type != "" {
			w.WriteString(": ")
			w.WriteString(p.Type)
		}
		if p.Optional {
			w.WriteString(" = nil")
		}
		rm.params = append(rm.params, loc.New(file, pstart, uint32(w.Len())))
	}
	w.WriteString(")")
	if decl.Returns != "" {
		w.WriteString(" -> ")
		w.WriteString(decl.Returns)
	}
	rm.defn = loc.New(file, start, uint32(w.Len()))
	w.WriteString("\n")
	return rm
}

func (b *builder) enterClasses() error {
	b.refs = make([]typesystem.ClassRef, len(b.world.Classes))
	for i := range b.world.Classes {
		decl := &b.world.Classes[i]
		if ref, ok := b.table.FindClass(decl.Name); ok {
			// Reopening. Methods and members attach to the existing
			// class; its kind cannot change.
			if b.table.Class(ref).IsModule != decl.Module {
				kind := "a class"
				if decl.Module {
					kind = "a module"
				}
				return fmt.Errorf("%s: classes[%d]: %s already exists and is not %s",
					b.world.path, i, decl.Name, kind)
			}
			b.refs[i] = ref
			continue
		}
		b.refs[i] = b.table.EnterClass(decl.Name, symbols.ClassOptions{
			IsModule: decl.Module,
			IsStub:   decl.Stub,
			Loc:      b.rendered[i].classLoc,
		})
	}
	return nil
}

func (b *builder) linkClasses() error {
	b.members = make([][]typesystem.TypeMemberRef, len(b.world.Classes))
	for i := range b.world.Classes {
		decl := &b.world.Classes[i]
		ref := b.refs[i]
		where := fmt.Sprintf("%s: classes[%d] (%s)", b.world.path, i, decl.Name)
		if decl.Superclass != "" {
			super, ok := b.table.FindClass(decl.Superclass)
			if !ok {
				return fmt.Errorf("%s: unknown superclass %s", where, decl.Superclass)
			}
			b.table.SetSuperclass(ref, super)
		}
		for _, name := range decl.Mixins {
			m, ok := b.table.FindClass(name)
			if !ok {
				return fmt.Errorf("%s: unknown mixin %s", where, name)
			}
			if !b.table.Class(m).IsModule {
				return fmt.Errorf("%s: mixin %s is not a module", where, name)
			}
			b.table.AddMixin(ref, m)
		}
		for _, name := range decl.RequiresAncestor {
			a, ok := b.table.FindClass(name)
			if !ok {
				return fmt.Errorf("%s: unknown required ancestor %s", where, name)
			}
			b.table.AddRequiredAncestor(ref, a)
		}
		for j := range decl.TypeMembers {
			tm := &decl.TypeMembers[j]
			for _, existing := range b.table.Class(ref).TypeMembers {
				if b.table.TypeMember(existing).Name == tm.Name {
					return fmt.Errorf("%s: type member %s already declared", where, tm.Name)
				}
			}
			variance, err := parseVariance(tm.Variance)
			if err != nil {
				return fmt.Errorf("%s: type_members[%d]: %w", where, j, err)
			}
			mref := b.table.EnterTypeMember(ref, tm.Name, variance)
			b.table.SetTypeMemberLoc(mref, b.rendered[i].members[j])
			b.members[i] = append(b.members[i], mref)
		}
	}
	return nil
}

func parseVariance(s string) (typesystem.Variance, error) {
	switch s {
	case "", "invariant":
		return typesystem.Invariant, nil
	case "covariant", "out":
		return typesystem.Covariant, nil
	case "contravariant", "in":
		return typesystem.Contravariant, nil
	}
	return typesystem.Invariant, fmt.Errorf("unknown variance %q", s)
}

// declareSignatures parses type member bounds and method signatures. By now
// every class and type member exists, so expressions may reference any of
// them.
func (b *builder) declareSignatures() error {
	for i := range b.world.Classes {
		decl := &b.world.Classes[i]
		ref := b.refs[i]
		where := fmt.Sprintf("%s: classes[%d] (%s)", b.world.path, i, decl.Name)
		scope := b.memberScope(ref)
		for j := range decl.TypeMembers {
			tm := &decl.TypeMembers[j]
			mref := b.members[i][j]
			if tm.Fixed != "" {
				t, err := parseType(b.table, scope, tm.Fixed)
				if err != nil {
					return fmt.Errorf("%s: type_members[%d]: fixed: %w", where, j, err)
				}
				b.table.SetTypeMemberBounds(mref, t, t)
				b.table.SetTypeMemberFixed(mref, true)
				continue
			}
			var lower, upper typesystem.Type
			if tm.Lower != "" {
				t, err := parseType(b.table, scope, tm.Lower)
				if err != nil {
					return fmt.Errorf("%s: type_members[%d]: lower: %w", where, j, err)
				}
				lower = t
			}
			if tm.Upper != "" {
				t, err := parseType(b.table, scope, tm.Upper)
				if err != nil {
					return fmt.Errorf("%s: type_members[%d]: upper: %w", where, j, err)
				}
				upper = t
			}
			if lower != nil || upper != nil {
				b.table.SetTypeMemberBounds(mref, lower, upper)
			}
		}
		for j := range decl.Methods {
			m := &decl.Methods[j]
			mwhere := fmt.Sprintf("%s: methods[%d] (%s)", where, j, m.Name)
			if err := b.enterMethodDecl(ref, m, &b.rendered[i].methods[j], scope, mwhere); err != nil {
				return err
			}
		}
	}
	return nil
}

// memberScope maps a class's own type members for signature parsing.
// Inherited members are not in scope; subclasses redeclare theirs.
func (b *builder) memberScope(c typesystem.ClassRef) map[string]typesystem.Type {
	data := b.table.Class(c)
	if len(data.TypeMembers) == 0 {
		return nil
	}
	scope := make(map[string]typesystem.Type, len(data.TypeMembers))
	for _, tm := range data.TypeMembers {
		scope[b.table.TypeMember(tm).Name] = &typesystem.MemberVar{Definition: tm}
	}
	return scope
}

// enterMethodDecl enters a method and its overloads. Overload alternates go
// in first: EnterMethod points the member name at the most recent entry, and
// the primary signature must stay canonical.
func (b *builder) enterMethodDecl(owner typesystem.ClassRef, decl *MethodDecl, rm *renderedMethod, memberScope map[string]typesystem.Type, where string) error {
	target := owner
	if decl.Self {
		target = b.table.Singleton(owner)
	}
	alts := make([]typesystem.MethodRef, 0, len(decl.Overloads))
	for j := range decl.Overloads {
		ref, err := b.enterOne(target, decl.Name, decl.Self, &decl.Overloads[j], &rm.overloads[j],
			memberScope, fmt.Sprintf("%s: overloads[%d]", where, j))
		if err != nil {
			return err
		}
		alts = append(alts, ref)
	}
	primary, err := b.enterOne(target, decl.Name, decl.Self, decl, rm, memberScope, where)
	if err != nil {
		return err
	}
	for _, alt := range alts {
		b.table.AddOverload(primary, alt)
	}
	return nil
}

func (b *builder) enterOne(owner typesystem.ClassRef, name string, self bool, decl *MethodDecl, rm *renderedMethod, memberScope map[string]typesystem.Type, where string) (typesystem.MethodRef, error) {
	ref := b.table.EnterMethod(owner, name, symbols.MethodOptions{Loc: rm.defn})
	scope := make(map[string]typesystem.Type, len(memberScope)+len(decl.TypeParams)+1)
	for k, v := range memberScope {
		scope[k] = v
	}
	if self {
		scope["attached_class"] = &typesystem.SelfTypeParam{Definition: b.table.AttachedClassMember(owner)}
	}
	for _, tp := range decl.TypeParams {
		scope[tp] = &typesystem.TypeVar{Definition: b.table.EnterTypeParam(ref, tp)}
	}
	args := make([]symbols.ArgInfo, 0, len(decl.Params))
	for i := range decl.Params {
		p := &decl.Params[i]
		info := symbols.ArgInfo{
			Name: p.Name,
			Flags: symbols.ArgFlags{
				Keyword:  p.Keyword,
				Block:    p.Block,
				Default:  p.Optional,
				Repeated: p.Rest,
			},
			Loc: rm.params[i],
		}
		if p.Type != "" {
			t, err := parseType(b.table, scope, p.Type)
			if err != nil {
				return typesystem.NoMethod, fmt.Errorf("%s: params[%d]: %w", where, i, err)
			}
			info.Type = t
		}
		args = append(args, info)
	}
	var ret typesystem.Type
	if decl.Returns != "" {
		t, err := parseType(b.table, scope, decl.Returns)
		if err != nil {
			return typesystem.NoMethod, fmt.Errorf("%s: returns: %w", where, err)
		}
		ret = t
	}
	b.table.SetMethodSignature(ref, symbols.MethodOptions{
		Args:       args,
		ReturnType: ret,
		HasSig:     !decl.NoSig,
		Abstract:   decl.Abstract,
		Loc:        rm.defn,
	})
	return ref, nil
}

func (b *builder) lowerQueries() ([]Query, error) {
	queries := make([]Query, 0, len(b.world.Queries))
	for i := range b.world.Queries {
		q, err := b.lowerQuery(i, &b.world.Queries[i])
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// lowerQuery renders the call as source text, appends it to the query's
// file, and builds DispatchArgs whose locations point into that text.
func (b *builder) lowerQuery(i int, decl *QueryDecl) (Query, error) {
	where := fmt.Sprintf("%s: queries[%d]", b.world.path, i)
	recvType, err := parseType(b.table, nil, decl.Recv)
	if err != nil {
		return Query{}, fmt.Errorf("%s: recv: %w", where, err)
	}

	file := decl.File
	if file == "" {
		file = fmt.Sprintf("query-%d.sable", i+1)
	}
	base := uint32(0)
	if existing := b.src[file]; existing != "" {
		base = uint32(len(existing)) + 1
	}

	var w strings.Builder
	at := func() uint32 { return base + uint32(w.Len()) }

	recvSrc := strings.TrimSpace(decl.Recv)
	recvBegin := at()
	if strings.ContainsAny(recvSrc, " |&") {
		w.WriteString("(" + recvSrc + ")")
	} else {
		w.WriteString(recvSrc)
	}
	recvSpan := loc.NewSpan(recvBegin, at())

	w.WriteString(".")
	funBegin := at()
	w.WriteString(decl.Method)
	funSpan := loc.NewSpan(funBegin, at())

	var (
		args     []*dispatch.TypeAndOrigins
		argSpans []loc.Span
	)
	w.WriteString("(")
	sep := func() {
		if len(argSpans) > 0 {
			w.WriteString(", ")
		}
	}
	for j, src := range decl.Args {
		t, err := parseType(b.table, nil, src)
		if err != nil {
			return Query{}, fmt.Errorf("%s: args[%d]: %w", where, j, err)
		}
		sep()
		begin := at()
		w.WriteString(strings.TrimSpace(src))
		span := loc.NewSpan(begin, at())
		argSpans = append(argSpans, span)
		args = append(args, dispatch.NewTypeAndOrigins(t, loc.Loc{File: file, Span: span}))
	}
	for j, kw := range decl.Kwargs {
		t, err := parseType(b.table, nil, kw.Type)
		if err != nil {
			return Query{}, fmt.Errorf("%s: kwargs[%d]: %w", where, j, err)
		}
		sep()
		keyBegin := at()
		w.WriteString(kw.Name)
		keySpan := loc.NewSpan(keyBegin, at())
		w.WriteString(": ")
		valBegin := at()
		w.WriteString(strings.TrimSpace(kw.Type))
		valSpan := loc.NewSpan(valBegin, at())
		argSpans = append(argSpans, keySpan, valSpan)
		args = append(args,
			dispatch.NewTypeAndOrigins(typesystem.SymbolLiteral(kw.Name), loc.Loc{File: file, Span: keySpan}),
			dispatch.NewTypeAndOrigins(t, loc.Loc{File: file, Span: valSpan}))
	}
	if decl.Kwsplat != "" {
		t, err := parseType(b.table, nil, decl.Kwsplat)
		if err != nil {
			return Query{}, fmt.Errorf("%s: kwsplat: %w", where, err)
		}
		sep()
		begin := at()
		w.WriteString("**" + strings.TrimSpace(decl.Kwsplat))
		span := loc.NewSpan(begin, at())
		argSpans = append(argSpans, span)
		args = append(args, dispatch.NewTypeAndOrigins(t, loc.Loc{File: file, Span: span}))
	}
	w.WriteString(")")

	var block *dispatch.BlockInfo
	if decl.Block != nil {
		w.WriteString(" ")
		begin := at()
		w.WriteString(renderBlock(decl.Block.Arity))
		block = &dispatch.BlockInfo{
			Arity: decl.Block.Arity,
			Loc:   loc.Loc{File: file, Span: loc.NewSpan(begin, at())},
		}
	}

	text := w.String()
	if existing := b.src[file]; existing != "" {
		b.src[file] = existing + "\n" + text
	} else {
		b.src[file] = text
	}

	da := dispatch.DispatchArgs{
		Name: decl.Method,
		Locs: dispatch.CallLocs{
			File: file,
			Call: loc.NewSpan(base, base+uint32(len(text))),
			Recv: recvSpan,
			Fun:  funSpan,
			Args: argSpans,
		},
		Args:       args,
		NumPosArgs: len(decl.Args),
		ThisType:   recvType,
		FullType:   dispatch.NewTypeAndOrigins(recvType, loc.Loc{File: file, Span: recvSpan}),
		Block:      block,
		Suppress:   decl.Suppress,
	}
	return Query{Args: da, Rendered: text}, nil
}

func renderBlock(arity int) string {
	if arity < 0 {
		return "{ |*a| }"
	}
	if arity == 0 {
		return "{ }"
	}
	params := make([]string, arity)
	for i := range params {
		params[i] = string(rune('a' + i%26))
	}
	return "{ |" + strings.Join(params, ", ") + "| }"
}
