package targets

import (
	"testing"
)

// FuzzWorldParse feeds raw bytes through the whole front: YAML decoding,
// world validation, symbol table construction, and dispatch of every
// query. The loader may reject the document; nothing may panic.
func FuzzWorldParse(f *testing.F) {
	f.Add([]byte("classes:\n  - name: Mailer\n    methods:\n      - name: deliver\n        returns: String\n"))
	f.Add([]byte("queries:\n  - recv: Integer\n    method: to_s\n"))
	f.Add([]byte("strictness: strict\nqueries:\n  - recv: \"[Integer, String]\"\n    method: first\n"))
	f.Add([]byte("classes:\n  - name: Box\n    type_members:\n      - name: Elem\n        variance: out\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		buildAndCheck(data)
	})
}
