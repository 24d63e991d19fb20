// loader/query.go - Call syntax for the interactive console
//
// The console accepts calls in the same shape lowerQuery renders them:
//
//	Mailer.deliver(String, retries: Integer, **{extra: Integer}) { |a, b| }
//
// ParseQueryLine turns such a line back into a QueryDecl; AddQuery lowers
// it against an already built world so its locations land in live source.

package loader

import (
	"fmt"
	"strings"
)

// ParseQueryLine parses one console call. Receivers may be any type
// expression; when they contain spaces or operators, parenthesize:
// (Integer | String).inspect().
func ParseQueryLine(line string) (*QueryDecl, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, fmt.Errorf("empty query")
	}
	dot, err := splitReceiver(s)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", s, err)
	}

	recv := strings.TrimSpace(s[:dot])
	if wrapped(recv) {
		recv = strings.TrimSpace(recv[1 : len(recv)-1])
	}

	rest := s[dot+1:]
	name, rest := scanMethodName(rest)
	if name == "" {
		return nil, fmt.Errorf("query %q: expected method name after %q", s, ".")
	}

	q := &QueryDecl{Recv: recv, Method: name}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		end := matchDelim(rest, 0)
		if end < 0 {
			return nil, fmt.Errorf("query %q: unbalanced %q", s, "(")
		}
		if err := q.parseArgs(rest[1:end]); err != nil {
			return nil, fmt.Errorf("query %q: %w", s, err)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	if strings.HasPrefix(rest, "{") {
		end := matchDelim(rest, 0)
		if end < 0 {
			return nil, fmt.Errorf("query %q: unbalanced %q", s, "{")
		}
		q.Block = parseBlock(rest[1:end])
		rest = strings.TrimSpace(rest[end+1:])
	}
	if rest != "" {
		return nil, fmt.Errorf("query %q: trailing %q", s, rest)
	}
	return q, nil
}

// splitReceiver finds the dot separating receiver and method: the last
// top-level '.' followed by a method name. Dots inside brackets, strings,
// and float literals do not count.
func splitReceiver(s string) (int, error) {
	depth := 0
	inStr := false
	found := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '.' && depth == 0 && i+1 < len(s):
			if isIdentStart(s[i+1]) || isOperatorChar(s[i+1]) {
				found = i
			}
		}
	}
	if found <= 0 {
		return 0, fmt.Errorf("expected recv.method(...)")
	}
	return found, nil
}

func wrapped(s string) bool {
	return len(s) >= 2 && s[0] == '(' && matchDelim(s, 0) == len(s)-1
}

// matchDelim returns the index of the delimiter closing the one at open,
// or -1.
func matchDelim(s string, open int) int {
	depth := 0
	inStr := false
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isOperatorChar(c byte) bool {
	return strings.IndexByte("+-*/%<>=!~^&|[]", c) >= 0
}

func scanMethodName(s string) (string, string) {
	if s == "" {
		return "", s
	}
	if isOperatorChar(s[0]) {
		i := 1
		for i < len(s) && isOperatorChar(s[i]) {
			i++
		}
		return s[:i], s[i:]
	}
	if !isIdentStart(s[0]) {
		return "", s
	}
	i := 1
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	// empty? and save! style names
	if i < len(s) && (s[i] == '?' || s[i] == '!') {
		i++
	}
	return s[:i], s[i:]
}

func (q *QueryDecl) parseArgs(inner string) error {
	for _, piece := range splitTopLevel(inner) {
		arg := strings.TrimSpace(piece)
		switch {
		case arg == "":
			return fmt.Errorf("empty argument")
		case strings.HasPrefix(arg, "**"):
			if q.Kwsplat != "" {
				return fmt.Errorf("at most one ** argument")
			}
			q.Kwsplat = strings.TrimSpace(arg[2:])
		default:
			if name, val, ok := splitKeyword(arg); ok {
				q.Kwargs = append(q.Kwargs, KwargDecl{Name: name, Type: val})
				continue
			}
			if len(q.Kwargs) > 0 || q.Kwsplat != "" {
				return fmt.Errorf("positional argument %q after keyword arguments", arg)
			}
			q.Args = append(q.Args, arg)
		}
	}
	return nil
}

// splitTopLevel splits on commas outside brackets and strings. An empty
// input yields no pieces.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var pieces []string
	depth := 0
	inStr := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr:
			if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			pieces = append(pieces, s[start:i])
			start = i + 1
		}
	}
	return append(pieces, s[start:])
}

// splitKeyword matches `name: type`. A leading ':' (symbol literal) or a
// '::' scope separator never counts as a keyword marker.
func splitKeyword(s string) (string, string, bool) {
	if s == "" || !isIdentStart(s[0]) {
		return "", "", false
	}
	i := 1
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	if j >= len(s) || s[j] != ':' || (j+1 < len(s) && s[j+1] == ':') {
		return "", "", false
	}
	val := strings.TrimSpace(s[j+1:])
	if val == "" {
		return "", "", false
	}
	return s[:i], val, true
}

func parseBlock(inner string) *BlockDecl {
	inner = strings.TrimSpace(inner)
	open := strings.IndexByte(inner, '|')
	if open < 0 {
		return &BlockDecl{Arity: 0}
	}
	end := strings.IndexByte(inner[open+1:], '|')
	if end < 0 {
		return &BlockDecl{Arity: 0}
	}
	params := splitTopLevel(inner[open+1 : open+1+end])
	for _, p := range params {
		if strings.HasPrefix(strings.TrimSpace(p), "*") {
			return &BlockDecl{Arity: -1}
		}
	}
	return &BlockDecl{Arity: len(params)}
}

// AddQuery lowers one more call against a built world, appending its
// rendered text to the result's source map and its lowered form to
// Queries. The console uses it to keep locations live across a session.
func (r *Result) AddQuery(decl *QueryDecl) (Query, error) {
	b := &builder{world: &World{path: "interactive"}, table: r.Table, src: r.Source}
	q, err := b.lowerQuery(len(r.Queries), decl)
	if err != nil {
		return Query{}, err
	}
	r.Queries = append(r.Queries, q)
	return q, nil
}
