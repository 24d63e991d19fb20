package prettyprinter

import (
	"strings"
	"testing"

	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/loc"
)

func TestRender_Plain(t *testing.T) {
	src := loc.MapSource{
		"app.sable": "mailer.deliver(to)",
	}
	d := diagnostics.NewBuilder(loc.New("app.sable", 0, 18), diagnostics.CodeMissingKeywordArgument).
		Headerf("Missing required keyword argument `%s`", "subject").
		Section("Defined here:").
		Linef(loc.New("app.sable", 7, 14), "").
		Notef("Got %d keyword arguments", 0).
		Build()

	got := New(src, false).Render(d)
	want := strings.Join([]string{
		"app.sable:0-18: error: Missing required keyword argument `subject` [D004]",
		"    mailer.deliver(to)",
		"  Defined here:",
		"    app.sable:7-14: deliver",
		"  Got 0 keyword arguments",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRender_DetailWithMessage(t *testing.T) {
	d := diagnostics.NewBuilder(loc.New("a.sable", 2, 5), diagnostics.CodeArgumentMismatch).
		Headerf("Expected `Integer` but found `String` for argument `n`").
		Linef(loc.New("a.sable", 10, 11), "`%s` defined here", "n").
		Build()

	got := New(nil, false).Render(d)
	if !strings.Contains(got, "    a.sable:10-11: `n` defined here\n") {
		t.Errorf("Render() = %q, want detail line with loc prefix and message", got)
	}
}

func TestRender_Autocorrects(t *testing.T) {
	src := loc.MapSource{"b.sable": "x.fetch(key, default)"}
	d := diagnostics.NewBuilder(loc.New("b.sable", 0, 21), diagnostics.CodeTooManyArguments).
		Headerf("Too many arguments").
		Autocorrect("Delete the extra argument",
			diagnostics.Edit{Loc: loc.New("b.sable", 11, 20), Replace: ""},
			diagnostics.Edit{Loc: loc.New("b.sable", 8, 11), Replace: "name"},
			diagnostics.Edit{Loc: loc.New("b.sable", 21, 21), Replace: ")"},
		).
		Build()

	got := New(src, false).Render(d)
	for _, want := range []string{
		"  Autocorrect: Delete the extra argument\n",
		"    b.sable:11-20: delete `, default`\n",
		"    b.sable:8-11: replace `key` with `name`\n",
		"    b.sable:21-21: insert `)`\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() = %q, want it to contain %q", got, want)
		}
	}
}

func TestRender_SeverityAndColor(t *testing.T) {
	warn := diagnostics.NewBuilder(loc.New("c.sable", 0, 3), diagnostics.CodeLegacyKeywordHash).
		Headerf("Passing a hash where keyword arguments are expected").
		Build()
	if warn.Severity != diagnostics.SeverityWarning {
		t.Fatalf("Severity = %v, want warning", warn.Severity)
	}

	plain := New(nil, false).Render(warn)
	if strings.Contains(plain, "\x1b[") {
		t.Errorf("Render() without color = %q, want no escape codes", plain)
	}
	if !strings.Contains(plain, ": warning: ") {
		t.Errorf("Render() = %q, want warning severity label", plain)
	}

	colored := New(nil, true).Render(warn)
	if !strings.Contains(colored, ansiBold+ansiYellow+"warning"+ansiReset) {
		t.Errorf("Render() with color = %q, want yellow warning", colored)
	}
	if !strings.Contains(colored, ansiDim+"[D014]"+ansiReset) {
		t.Errorf("Render() with color = %q, want dimmed code", colored)
	}
}

func TestPrint_SortsAndDedupes(t *testing.T) {
	later := diagnostics.NewError(diagnostics.CodeUnknownMethod, loc.New("z.sable", 5, 9), "Method `b` does not exist")
	earlier := diagnostics.NewError(diagnostics.CodeUnknownMethod, loc.New("a.sable", 0, 4), "Method `a` does not exist")
	dup := diagnostics.NewError(diagnostics.CodeUnknownMethod, loc.New("a.sable", 0, 4), "Method `a` does not exist")

	var out strings.Builder
	n := New(nil, false).Print(&out, []diagnostics.Diagnostic{later, earlier, dup})
	if n != 2 {
		t.Fatalf("Print() = %d diagnostics, want 2", n)
	}
	text := out.String()
	a := strings.Index(text, "a.sable:0-4")
	z := strings.Index(text, "z.sable:5-9")
	if a < 0 || z < 0 || a > z {
		t.Errorf("Print() output %q, want a.sable before z.sable", text)
	}
	if strings.Count(text, "Method `a` does not exist") != 1 {
		t.Errorf("Print() output %q, want duplicate collapsed", text)
	}
}

func TestPrint_Empty(t *testing.T) {
	var out strings.Builder
	if n := New(nil, false).Print(&out, nil); n != 0 {
		t.Errorf("Print() = %d, want 0", n)
	}
	if out.Len() != 0 {
		t.Errorf("Print() wrote %q, want nothing", out.String())
	}
}
