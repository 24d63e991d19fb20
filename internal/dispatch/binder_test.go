package dispatch

import (
	"testing"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

func proc1(ret, arg typesystem.Type) typesystem.Type {
	return typesystem.NewApplied(typesystem.Proc1Class, []typesystem.Type{ret, arg})
}

func TestBindNotEnoughArguments(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Loc: defLoc},
			{Name: "subject", Type: str, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str)

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeNotEnoughArguments)
	if ds[0].Header != "Not enough arguments provided for method `Mailer#deliver`. Expected: `2`, got: `1`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !containsMessage(ds[0], "`Mailer#deliver` defined here") {
		t.Errorf("expected the definition pointer, got %v", ds[0].Sections)
	}
	// Binding still produces the declared result.
	wantType(t, tbl, res.ReturnType, "String")
}

func TestBindNotEnoughArgumentsAnyHint(t *testing.T) {
	tbl := symbols.NewTable()
	tSing := tbl.Singleton(typesystem.TModule)
	// Shadow the permissive builtin with a binary signature so the arity
	// check can fire.
	tbl.EnterMethod(tSing, "any", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "type_a", Loc: defLoc},
			{Name: "type_b", Loc: defLoc},
		},
		HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(tSing), "any")
	addPos(&a, &typesystem.MetaType{Wrapped: typesystem.NewClassType(typesystem.IntegerClass)})

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeNotEnoughArguments)
	if !containsMessage(ds[0], "If you want to allow any type as an argument, use `T.untyped`") {
		t.Errorf("expected the T.untyped hint, got %v", ds[0].Sections)
	}
}

func TestBindTooManyArguments(t *testing.T) {
	tbl, mailer, _ := mailerTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str, str)

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeTooManyArguments)
	if ds[0].Header != "Too many arguments provided for method `Mailer#deliver`. Expected: `1`, got: `2`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !containsMessage(ds[0], "`deliver` defined here") {
		t.Errorf("expected the definition pointer, got %v", ds[0].Sections)
	}
}

func TestBindTooManyPositionalArguments(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Loc: defLoc},
			{Name: "subject", Type: str, Flags: symbols.ArgFlags{Keyword: true, Default: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str, str, str)

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeTooManyArguments)
	if ds[0].Header != "Too many positional arguments provided for method `Mailer#deliver`. Expected: `1`, got: `3`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !containsMessage(ds[0], "Did you mean to provide a value for `subject`?") {
		t.Errorf("expected the optional keyword hint, got %v", ds[0].Sections)
	}
}

func TestBindRepeatedParamAbsorbs(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "send_all", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "names", Type: str, Flags: symbols.ArgFlags{Repeated: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "send_all")
	addPos(&a, str, str, str)
	wantDiags(t, d.Call(a))

	a = newCall(typesystem.NewClassType(mailer), "send_all")
	addPos(&a, str, typesystem.NewClassType(typesystem.IntegerClass), str)
	ds := wantDiags(t, d.Call(a), diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Expected `String` but found `Integer` for argument `names`" {
		t.Errorf("got header %q", ds[0].Header)
	}
}

func TestBindArgumentMismatch(t *testing.T) {
	tbl, mailer, _ := mailerTable()
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, typesystem.IntLiteral(3))

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Expected `String` but found `Integer(3)` for argument `to`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	// The diagnostic points at the argument, not the whole call.
	if ds[0].Loc != loc.New(testFile, 20, 26) {
		t.Errorf("got loc %v, want the argument span", ds[0].Loc)
	}
	if !hasSection(ds[0], "Expected `String` for argument `to` of method `Mailer#deliver`:") {
		t.Errorf("missing the expectation section, got %v", ds[0].Sections)
	}
	if !hasSection(ds[0], "Got `Integer(3)` originating from:") {
		t.Errorf("missing the origin section, got %v", ds[0].Sections)
	}
	if len(ds[0].Autocorrects) != 0 {
		t.Errorf("no source means no fix, got %v", ds[0].Autocorrects)
	}
}

func TestBindMismatchSuggestsMust(t *testing.T) {
	tbl, mailer, _ := mailerTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	text := "mailer.deliver(to)"
	src := loc.MapSource{testFile: text}

	build := func() DispatchArgs {
		argSpan := loc.NewSpan(15, 17)
		return DispatchArgs{
			Name: "deliver",
			Locs: CallLocs{
				File: testFile,
				Call: loc.NewSpan(0, uint32(len(text))),
				Recv: loc.NewSpan(0, 6),
				Fun:  loc.NewSpan(7, 14),
				Args: []loc.Span{argSpan},
			},
			Args: []*TypeAndOrigins{{
				Type:    typesystem.Nilable(tbl, str),
				Origins: []loc.Loc{{File: testFile, Span: argSpan}},
			}},
			NumPosArgs: 1,
			ThisType:   typesystem.NewClassType(mailer),
		}
	}

	a := build()
	a.FullType = &TypeAndOrigins{Type: a.ThisType}
	d := New(tbl, src, Options{})
	ds := wantDiags(t, d.Call(a), diagnostics.CodeArgumentMismatch)
	if len(ds[0].Autocorrects) != 1 || ds[0].Autocorrects[0].Title != "Wrap in `T.must`" {
		t.Fatalf("got fixes %v, want a T.must wrap", ds[0].Autocorrects)
	}
	edit := ds[0].Autocorrects[0].Edits[0]
	if edit.Loc != loc.New(testFile, 15, 17) || edit.Replace != "T.must(to)" {
		t.Errorf("got edit %v", edit)
	}

	a = build()
	a.FullType = &TypeAndOrigins{Type: a.ThisType}
	d = New(tbl, src, Options{SuggestUnsafe: "T.unsafe"})
	ds = wantDiags(t, d.Call(a), diagnostics.CodeArgumentMismatch)
	if len(ds[0].Autocorrects) != 1 || ds[0].Autocorrects[0].Title != "Wrap in `T.unsafe`" {
		t.Fatalf("got fixes %v, want a T.unsafe wrap", ds[0].Autocorrects)
	}
	if ds[0].Autocorrects[0].Edits[0].Replace != "T.unsafe(to)" {
		t.Errorf("got edit %v", ds[0].Autocorrects[0].Edits[0])
	}
}

func TestBindSetterSemantics(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "name=", symbols.MethodOptions{
		Args:       []symbols.ArgInfo{{Name: "value", Type: str, Loc: defLoc}},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "name=")
	addPos(&a, typesystem.IntLiteral(5))
	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Assigning a value to `value` that does not match expected type `String`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	// Assignment evaluates to its right hand side.
	wantType(t, tbl, res.ReturnType, "Integer(5)")

	a = newCall(typesystem.NewClassType(mailer), "name=")
	addPos(&a, typesystem.StringLiteral("x"))
	res = d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, `String("x")`)
}

func TestBindMissingKeyword(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Loc: defLoc},
			{Name: "subject", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str)
	ds := wantDiags(t, d.Call(a), diagnostics.CodeMissingKeywordArgument)
	if ds[0].Header != "Missing required keyword argument `subject` for method `Mailer#deliver`" {
		t.Errorf("got header %q", ds[0].Header)
	}

	a = newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str)
	addKw(&a, "subject", str)
	wantDiags(t, d.Call(a))
}

func TestBindKeywordOrderIrrelevant(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	integer := typesystem.NewClassType(typesystem.IntegerClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
			{Name: "copies", Type: integer, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&a, "to", str)
	addKw(&a, "copies", integer)
	declared := d.Call(a)
	wantDiags(t, declared)

	b := newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&b, "copies", integer)
	addKw(&b, "to", str)
	swapped := d.Call(b)
	wantDiags(t, swapped)
	if !typesystem.Equal(declared.ReturnType, swapped.ReturnType) {
		t.Errorf("got %v after reordering, want %v", swapped.ReturnType, declared.ReturnType)
	}

	// A wrong value is found under its key regardless of position.
	c := newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&c, "copies", str)
	addKw(&c, "to", str)
	ds := wantDiags(t, d.Call(c), diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Expected `Integer` but found `String` for argument `copies`" {
		t.Errorf("got header %q", ds[0].Header)
	}
}

func TestBindUnrecognizedKeyword(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "subject", Type: str, Flags: symbols.ArgFlags{Keyword: true, Default: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&a, "subject", str)
	addKw(&a, "bcc", str)
	ds := wantDiags(t, d.Call(a), diagnostics.CodeUnrecognizedKeyword)
	if ds[0].Header != "Unrecognized keyword argument `bcc` passed for method `Mailer#deliver`" {
		t.Errorf("got header %q", ds[0].Header)
	}
}

func TestBindKeywordRestAbsorbs(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "rest", Type: str, Flags: symbols.ArgFlags{Keyword: true, Repeated: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&a, "cc", str)
	addKw(&a, "bcc", str)
	wantDiags(t, d.Call(a))

	a = newCall(typesystem.NewClassType(mailer), "deliver")
	addKw(&a, "cc", typesystem.NewClassType(typesystem.IntegerClass))
	ds := wantDiags(t, d.Call(a), diagnostics.CodeArgumentMismatch)
	if ds[0].Header != "Expected `String` but found `Integer` for argument `rest`" {
		t.Errorf("got header %q", ds[0].Header)
	}
}

func TestBindKwsplatShape(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
			{Name: "subject", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	full := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("to"), typesystem.SymbolLiteral("subject")},
		Values: []typesystem.Type{str, str},
	}
	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKwsplat(&a, full)
	wantDiags(t, d.Call(a))

	partial := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("to")},
		Values: []typesystem.Type{str},
	}
	a = newCall(typesystem.NewClassType(mailer), "deliver")
	addKwsplat(&a, partial)
	ds := wantDiags(t, d.Call(a), diagnostics.CodeMissingKeywordArgument)
	if ds[0].Header != "Missing required keyword argument `subject` for method `Mailer#deliver`" {
		t.Errorf("got header %q", ds[0].Header)
	}
}

func TestBindUntypedKwsplat(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKwsplat(&a, typesystem.Untyped())
	wantDiags(t, d.Call(a))
}

func TestBindHashKwsplat(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	sym := typesystem.NewClassType(typesystem.SymbolClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "to", Type: str, Flags: symbols.ArgFlags{Keyword: true, Default: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	hash := typesystem.NewApplied(typesystem.HashClass, []typesystem.Type{sym, str, typesystem.Untyped()})
	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addKwsplat(&a, hash)
	ds := wantDiags(t, d.Call(a), diagnostics.CodeUntypedKeywordHash)
	if ds[0].Header != "Passing a hash where the specific keys are unknown to a method taking keyword arguments" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !hasSection(ds[0], "Got `Hash[Symbol, String]` originating from:") {
		t.Errorf("missing the origin section, got %v", ds[0].Sections)
	}
}

func TestBindLegacyKeywordHash(t *testing.T) {
	str := typesystem.NewClassType(typesystem.StringClass)
	shape := &typesystem.ShapeType{
		Keys:   []*typesystem.LiteralType{typesystem.SymbolLiteral("subject")},
		Values: []typesystem.Type{str},
	}
	setup := func() (*symbols.Table, typesystem.ClassRef) {
		tbl := symbols.NewTable()
		mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
		tbl.EnterMethod(mailer, "deliver", symbols.MethodOptions{
			Args: []symbols.ArgInfo{
				{Name: "to", Type: str, Loc: defLoc},
				{Name: "subject", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
			},
			ReturnType: str, HasSig: true, Loc: defLoc,
		})
		return tbl, mailer
	}

	// By default a trailing hash quietly serves as the keywords.
	tbl, mailer := setup()
	d := New(tbl, nil, Options{})
	a := newCall(typesystem.NewClassType(mailer), "deliver")
	addPos(&a, str, shape)
	wantDiags(t, d.Call(a))

	// Strict keyword mode flags the legacy spelling and offers the splat.
	tbl, mailer = setup()
	text := "m.deliver(to, {subject: s})"
	src := loc.MapSource{testFile: text}
	d = New(tbl, src, Options{StrictKeywordArgs: true})
	hashSpan := loc.NewSpan(14, 26)
	a = DispatchArgs{
		Name: "deliver",
		Locs: CallLocs{
			File: testFile,
			Call: loc.NewSpan(0, uint32(len(text))),
			Recv: loc.NewSpan(0, 1),
			Fun:  loc.NewSpan(2, 9),
			Args: []loc.Span{loc.NewSpan(10, 12), hashSpan},
		},
		Args: []*TypeAndOrigins{
			{Type: str, Origins: []loc.Loc{loc.New(testFile, 10, 12)}},
			{Type: shape, Origins: []loc.Loc{{File: testFile, Span: hashSpan}}},
		},
		NumPosArgs: 2,
		ThisType:   typesystem.NewClassType(mailer),
	}
	a.FullType = &TypeAndOrigins{Type: a.ThisType}

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeLegacyKeywordHash)
	if ds[0].Severity != diagnostics.SeverityWarning {
		t.Errorf("got severity %v, want a warning", ds[0].Severity)
	}
	if ds[0].Header != "Keyword argument hash without `**` is deprecated" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if ds[0].Loc != loc.New(testFile, 14, 26) {
		t.Errorf("got loc %v, want the hash span", ds[0].Loc)
	}
	if len(ds[0].Autocorrects) != 1 || ds[0].Autocorrects[0].Title != "Use `**` for the keyword argument hash" {
		t.Fatalf("got fixes %v", ds[0].Autocorrects)
	}
	if ds[0].Autocorrects[0].Edits[0].Replace != "**{subject: s}" {
		t.Errorf("got edit %v", ds[0].Autocorrects[0].Edits[0])
	}
}

func TestBindHashConsumedPositionally(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	hash := typesystem.NewClassType(typesystem.HashClass)
	job := tbl.EnterClass("Job", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(job, "process", symbols.MethodOptions{
		Args:       []symbols.ArgInfo{{Name: "data", Type: hash, Loc: defLoc}},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	// The method takes no keywords, so inline pairs collapse into the
	// positional hash parameter.
	a := newCall(typesystem.NewClassType(job), "process")
	addKw(&a, "retries", typesystem.IntLiteral(3))
	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.ReturnType, "String")
}

func TestBindRequiresBlock(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	integer := typesystem.NewClassType(typesystem.IntegerClass)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "render", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "blk", Type: proc1(integer, str), Flags: symbols.ArgFlags{Block: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	tbl.EnterMethod(mailer, "render_maybe", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "blk", Type: typesystem.Nilable(tbl, proc1(integer, str)), Flags: symbols.ArgFlags{Block: true}, Loc: defLoc},
		},
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	res := d.Call(newCall(typesystem.NewClassType(mailer), "render"))
	ds := wantDiags(t, res, diagnostics.CodeRequiresBlock)
	if ds[0].Header != "`render` requires a block parameter, but no block was passed" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !containsMessage(ds[0], "defined here") {
		t.Errorf("expected the definition pointer, got %v", ds[0].Sections)
	}

	// A nilable block type makes the block optional.
	wantDiags(t, d.Call(newCall(typesystem.NewClassType(mailer), "render_maybe")))
}

func TestBindDoesNotTakeBlock(t *testing.T) {
	strictLoc := loc.New("strict.sable", 10, 30)
	str := typesystem.NewClassType(typesystem.StringClass)

	tbl := symbols.NewTable()
	tbl.SetFileStrictness("strict.sable", symbols.StrictnessStrict)
	mailer := tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: strictLoc})
	tbl.EnterMethod(mailer, "quiet", symbols.MethodOptions{
		ReturnType: str, HasSig: true, Loc: strictLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(mailer), "quiet")
	a.Block = &BlockInfo{Arity: 0, Loc: loc.New(testFile, 30, 40)}
	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeDoesNotTakeBlock)
	if ds[0].Header != "Method `Mailer#quiet` does not take a block" {
		t.Errorf("got header %q", ds[0].Header)
	}
	// The undeclared block still gets a pre type and the send type is set.
	if !typesystem.IsUntyped(res.Main.BlockPreType) {
		t.Errorf("got block pre type %v, want untyped", res.Main.BlockPreType)
	}
	wantType(t, tbl, res.Main.SendType, "String")

	// Definitions in merely typed files tolerate the stray block.
	tbl = symbols.NewTable()
	mailer = tbl.EnterClass("Mailer", symbols.ClassOptions{Loc: defLoc})
	tbl.EnterMethod(mailer, "quiet", symbols.MethodOptions{
		ReturnType: str, HasSig: true, Loc: defLoc,
	})
	d = New(tbl, nil, Options{})
	a = newCall(typesystem.NewClassType(mailer), "quiet")
	a.Block = &BlockInfo{Arity: 0, Loc: loc.New(testFile, 30, 40)}
	wantDiags(t, d.Call(a))
}

func TestBindBlockTyping(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	d := New(tbl, nil, Options{})

	recv := typesystem.NewApplied(typesystem.ArrayClass, []typesystem.Type{str})
	a := newCall(recv, "map")
	a.Block = &BlockInfo{Arity: 1, Loc: loc.New(testFile, 30, 40)}

	res := d.Call(a)
	wantDiags(t, res)
	wantType(t, tbl, res.Main.BlockPreType, "Proc((String) -> T.untyped)")
	if _, ok := res.Main.BlockReturnType.(*typesystem.TypeVar); !ok {
		t.Errorf("got block return %v, want the open type parameter", res.Main.BlockReturnType)
	}
	// With a block present the constraint stays open for the send link.
	if res.Main.Constr == nil || res.Main.Constr == typesystem.EmptyFrozen || res.Main.Constr.IsSolved() {
		t.Error("expected an open constraint on the component")
	}
	wantType(t, tbl, res.ReturnType, "Array[T.type_parameter(:U)]")
	wantType(t, tbl, res.Main.SendType, "Array[T.type_parameter(:U)]")
}

func TestBindGenericInference(t *testing.T) {
	tbl := symbols.NewTable()
	widgets := tbl.EnterClass("Widgets", symbols.ClassOptions{Loc: defLoc})
	pick := tbl.EnterMethod(widgets, "pick", symbols.MethodOptions{HasSig: true, Loc: defLoc})
	u := tbl.EnterTypeParam(pick, "U")
	uv := &typesystem.TypeVar{Definition: u}
	tbl.SetMethodSignature(pick, symbols.MethodOptions{
		Args:       []symbols.ArgInfo{{Name: "x", Type: uv, Loc: defLoc}},
		ReturnType: uv, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(widgets), "pick")
	addPos(&a, typesystem.IntLiteral(42))

	res := d.Call(a)
	wantDiags(t, res)
	// The literal lower bound widens to its class on solving.
	wantType(t, tbl, res.ReturnType, "Integer")
}

func TestBindGenericConflict(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	integer := typesystem.NewClassType(typesystem.IntegerClass)
	widgets := tbl.EnterClass("Widgets", symbols.ClassOptions{Loc: defLoc})
	pick := tbl.EnterMethod(widgets, "pick", symbols.MethodOptions{HasSig: true, Loc: defLoc})
	u := tbl.EnterTypeParam(pick, "U")
	uv := &typesystem.TypeVar{Definition: u}
	tbl.SetMethodSignature(pick, symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "x", Type: uv, Loc: defLoc},
			{Name: "f", Type: proc1(typesystem.Untyped(), uv), Loc: defLoc},
		},
		ReturnType: uv, HasSig: true, Loc: defLoc,
	})
	d := New(tbl, nil, Options{})

	a := newCall(typesystem.NewClassType(widgets), "pick")
	addPos(&a, str, proc1(typesystem.Untyped(), integer))

	res := d.Call(a)
	ds := wantDiags(t, res, diagnostics.CodeGenericInstantiation)
	if ds[0].Header != "Could not find valid instantiation of type parameters for `Widgets#pick`" {
		t.Errorf("got header %q", ds[0].Header)
	}
	if !hasSection(ds[0], "Found no solution for these constraints:") {
		t.Fatalf("missing the constraint section, got %v", ds[0].Sections)
	}
	if !containsMessage(ds[0], "`U` must be a supertype of `String` and a subtype of `Integer`") {
		t.Errorf("got sections %v", ds[0].Sections)
	}
}

func TestPrettyArity(t *testing.T) {
	tbl := symbols.NewTable()
	str := typesystem.NewClassType(typesystem.StringClass)
	c := tbl.EnterClass("C", symbols.ClassOptions{Loc: defLoc})

	twoReq := tbl.EnterMethod(c, "two_req", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "a", Type: str, Loc: defLoc},
			{Name: "b", Type: str, Loc: defLoc},
		},
		HasSig: true, Loc: defLoc,
	})
	withOpt := tbl.EnterMethod(c, "with_opt", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "a", Type: str, Loc: defLoc},
			{Name: "b", Type: str, Flags: symbols.ArgFlags{Default: true}, Loc: defLoc},
			{Name: "c", Type: str, Flags: symbols.ArgFlags{Default: true}, Loc: defLoc},
		},
		HasSig: true, Loc: defLoc,
	})
	withRest := tbl.EnterMethod(c, "with_rest", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "a", Type: str, Loc: defLoc},
			{Name: "rest", Type: str, Flags: symbols.ArgFlags{Repeated: true}, Loc: defLoc},
		},
		HasSig: true, Loc: defLoc,
	})
	kwOnly := tbl.EnterMethod(c, "kw_only", symbols.MethodOptions{
		Args: []symbols.ArgInfo{
			{Name: "mode", Type: str, Flags: symbols.ArgFlags{Keyword: true}, Loc: defLoc},
		},
		HasSig: true, Loc: defLoc,
	})

	cases := []struct {
		m    typesystem.MethodRef
		want string
	}{
		{twoReq, "2"},
		{withOpt, "1..3"},
		{withRest, "1+"},
		{kwOnly, "0"},
	}
	for _, tc := range cases {
		data := tbl.Method(tc.m)
		if got := prettyArity(data); got != tc.want {
			t.Errorf("prettyArity(%s) = %q, want %q", data.Name, got, tc.want)
		}
	}
}

func TestIsSetter(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"name=", true},
		{"[]=", true},
		{"==", false},
		{"===", false},
		{"<=", false},
		{">=", false},
		{"!=", false},
		{"=", false},
		{"deliver", false},
	}
	for _, tc := range cases {
		if got := isSetter(tc.name); got != tc.want {
			t.Errorf("isSetter(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSmallestLocWithin(t *testing.T) {
	callLoc := loc.New(testFile, 0, 100)

	tpe := &TypeAndOrigins{Origins: []loc.Loc{
		loc.New(testFile, 10, 90),
		loc.New(testFile, 40, 46),
		loc.New("other.sable", 1, 2),
		loc.New(testFile, 90, 120),
	}}
	if got := smallestLocWithin(callLoc, tpe); got != loc.New(testFile, 40, 46) {
		t.Errorf("got %v, want the tightest contained origin", got)
	}

	bare := &TypeAndOrigins{Origins: []loc.Loc{loc.New("other.sable", 1, 2)}}
	if got := smallestLocWithin(callLoc, bare); got != callLoc {
		t.Errorf("got %v, want the call loc fallback", got)
	}
}
