package targets

import (
	"testing"

	"github.com/sablelang/sable/internal/typesystem"
	"github.com/sablelang/sable/internal/loader"
)

// FuzzQueryLine throws arbitrary console lines at the query parser and
// dispatches whatever survives against a fixed world. Parse errors are
// expected; panics anywhere in parse, lowering, or dispatch are not.
func FuzzQueryLine(f *testing.F) {
	f.Add("Mailer.deliver(String)")
	f.Add("Mailer.deliver(String, 3, urgent: boolean)")
	f.Add("Mailer.each_line() { |a| }")
	f.Add("(Integer | String).inspect()")
	f.Add("Mailer.deliver(**{urgent: boolean})")
	f.Add("[Integer, String].first()")
	f.Add("x.y")

	f.Fuzz(func(t *testing.T, line string) {
		decl, err := loader.ParseQueryLine(line)
		if err != nil {
			return
		}

		res, d, err := buildConsoleWorld()
		if err != nil {
			t.Fatalf("console world: %v", err)
		}
		decl.File = "console.sable"
		q, err := res.AddQuery(decl)
		if err != nil {
			// Parsed shape can still name unknown types; that is a
			// lowering error, not a bug.
			return
		}
		out := d.Call(q.Args)
		_ = typesystem.Show(res.Table, out.ReturnType)
		_ = out.AllDiags()
	})
}
