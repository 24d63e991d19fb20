package targets

import (
	"io"

	"github.com/sablelang/sable/internal/dispatch"
	"github.com/sablelang/sable/internal/loader"
	"github.com/sablelang/sable/internal/prettyprinter"
	"github.com/sablelang/sable/internal/typesystem"
)

// checkParsed builds a parsed world and runs every query end to end:
// dispatch, result-type printing, and diagnostic rendering. Build failures
// report false; panics propagate to the fuzzer.
func checkParsed(w *loader.World) bool {
	if w.Strictness == "" {
		// Strict so no diagnostic path is suppressed.
		w.Strictness = "strict"
	}
	res, err := loader.Build(w)
	if err != nil {
		return false
	}
	d := dispatch.New(res.Table, res.Source, dispatch.Options{})
	printer := prettyprinter.New(res.Source, false)
	for _, q := range res.Queries {
		out := d.Call(q.Args)
		_ = typesystem.Show(res.Table, out.ReturnType)
		printer.Print(io.Discard, out.AllDiags())
	}
	return true
}

// buildAndCheck parses a world document and checks it. Documents the
// loader rejects report false.
func buildAndCheck(data []byte) bool {
	w, err := loader.Parse(data, "fuzz.yaml")
	if err != nil {
		return false
	}
	return checkParsed(w)
}

// consoleWorld is the fixed world console-line fuzzing dispatches against.
const consoleWorld = `
strictness: strict
classes:
  - name: Mailer
    methods:
      - name: deliver
        params:
          - name: to
            type: String
          - name: copies
            type: Integer
            optional: true
          - name: urgent
            type: boolean
            keyword: true
            optional: true
        returns: String
      - name: each_line
        params:
          - name: blk
            type: untyped
            block: true
        returns: Array[String]
`

func buildConsoleWorld() (*loader.Result, *dispatch.Dispatcher, error) {
	w, err := loader.Parse([]byte(consoleWorld), "console-world.yaml")
	if err != nil {
		return nil, nil, err
	}
	res, err := loader.Build(w)
	if err != nil {
		return nil, nil, err
	}
	return res, dispatch.New(res.Table, res.Source, dispatch.Options{}), nil
}
