package targets

import (
	"testing"

	"github.com/sablelang/sable/internal/loader"
	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

// FuzzTypeExpr parses arbitrary type expressions and holds accepted ones
// to two invariants: they print without panicking, and they are subtypes
// of themselves.
func FuzzTypeExpr(f *testing.F) {
	f.Add("Integer")
	f.Add("nilable(String)")
	f.Add("Integer | String & Comparable")
	f.Add("[Integer, String, untyped]")
	f.Add("{name: String, \"key\": Integer, 3: Symbol}")
	f.Add("Hash[Symbol, Array[Integer]]")
	f.Add(":ok | \"ready\" | 42 | 4.5")
	f.Add("class_of(Integer)")

	f.Fuzz(func(t *testing.T, src string) {
		table := symbols.NewTable()
		tpe, err := loader.ParseType(table, src)
		if err != nil {
			return
		}
		if tpe == nil {
			t.Fatalf("accepted expression %q produced a nil type", src)
		}
		shown := typesystem.Show(table, tpe)
		if shown == "" {
			t.Errorf("accepted expression %q prints empty", src)
		}
		if !typesystem.IsSubType(table, tpe, tpe) {
			t.Errorf("type %q (%s) is not a subtype of itself", src, shown)
		}
	})
}
