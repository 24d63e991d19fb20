// loader/typeexpr.go - Parser for the type annotation language of world files
//
// World files write types as compact expressions: `Array[Integer]`,
// `Integer | nil`, `[String, Integer]`, `{name: String}`, `:sym`. The
// grammar, loosely:
//
//	type    := operand (('|' | '&') operand)*
//	operand := literal | tuple | shape | '(' type ')' | name args?
//	args    := '[' type (',' type)* ']'
//	tuple   := '[' (type (',' type)*)? ']'
//	shape   := '{' (key ':' type (',' key ':' type)*)? '}'
//	key     := ident | string | integer
//	literal := integer | float | string | ':' ident
//
// Names resolve against the builtins first (untyped, self, nilable(T) and
// friends), then the enclosing scope (method type parameters and the
// owner's type members), and finally the symbol table's classes.

package loader

import (
	"fmt"
	"strconv"

	"github.com/sablelang/sable/internal/symbols"
	"github.com/sablelang/sable/internal/typesystem"
)

type typeParser struct {
	table *symbols.Table
	scope map[string]typesystem.Type
	src   string
	pos   int
}

// ParseType evaluates a standalone type expression against a built table.
// The interactive console uses it; world files go through Build, which also
// threads method and member scopes.
func ParseType(table *symbols.Table, src string) (typesystem.Type, error) {
	return parseType(table, nil, src)
}

// parseType evaluates one type expression against the table. The scope maps
// names to pre-resolved types and may be nil.
func parseType(table *symbols.Table, scope map[string]typesystem.Type, src string) (typesystem.Type, error) {
	p := &typeParser{table: table, scope: scope, src: src}
	t, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing %q", p.src[p.pos:])
	}
	return t, nil
}

func (p *typeParser) errorf(format string, a ...any) error {
	return fmt.Errorf("type %q: %s (offset %d)", p.src, fmt.Sprintf(format, a...), p.pos)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// peek returns the next significant byte without consuming it, or 0 at the
// end of input.
func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) eat(c byte) bool {
	if p.peek() == c && c != 0 {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(c byte) error {
	if !p.eat(c) {
		return p.errorf("expected %q", string(c))
	}
	return nil
}

func (p *typeParser) parseUnion() (typesystem.Type, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.eat('|'):
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			left = typesystem.Join(p.table, left, right)
		case p.eat('&'):
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			left = typesystem.Meet(p.table, left, right)
		default:
			return left, nil
		}
	}
}

func (p *typeParser) parseOperand() (typesystem.Type, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("expected a type")
	case c == '[':
		return p.parseTuple()
	case c == '{':
		return p.parseShape()
	case c == '(':
		p.pos++
		t, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return t, nil
	case c == ':':
		p.pos++
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return typesystem.SymbolLiteral(name), nil
	case c == '"':
		return p.parseString()
	case c == '-' || c >= '0' && c <= '9':
		return p.parseNumber()
	default:
		return p.parseName()
	}
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// ident scans a name, allowing embedded `::` for namespaced classes such as
// T::Array.
func (p *typeParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isIdentChar(c) {
			p.pos++
			continue
		}
		if c == ':' && p.pos > start && p.pos+2 < len(p.src) &&
			p.src[p.pos+1] == ':' && isIdentStart(p.src[p.pos+2]) {
			p.pos += 2
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errorf("expected a name")
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseNumber() (typesystem.Type, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	isFloat := false
	if p.pos+1 < len(p.src) && p.src[p.pos] == '.' && p.src[p.pos+1] >= '0' && p.src[p.pos+1] <= '9' {
		isFloat = true
		p.pos++
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	if isFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("bad float %q", text)
		}
		return typesystem.FloatLiteral(v), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf("bad integer %q", text)
	}
	return typesystem.IntLiteral(v), nil
}

// parseString scans a double-quoted literal. World files have no need for
// escape sequences, so none are recognized.
func (p *typeParser) parseString() (typesystem.Type, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '"' {
		return nil, p.errorf("expected a string")
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unterminated string")
	}
	s := p.src[start:p.pos]
	p.pos++
	return typesystem.StringLiteral(s), nil
}

func (p *typeParser) parseTuple() (typesystem.Type, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var elems []typesystem.Type
	if !p.eat(']') {
		for {
			t, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
			if !p.eat(',') {
				break
			}
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
	}
	return &typesystem.TupleType{Elems: elems}, nil
}

func (p *typeParser) parseShape() (typesystem.Type, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	shape := &typesystem.ShapeType{}
	if p.eat('}') {
		return shape, nil
	}
	for {
		key, err := p.parseShapeKey()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		shape.Keys = append(shape.Keys, key)
		shape.Values = append(shape.Values, val)
		if !p.eat(',') {
			break
		}
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return shape, nil
}

func (p *typeParser) parseShapeKey() (*typesystem.LiteralType, error) {
	switch c := p.peek(); {
	case c == '"':
		t, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return t.(*typesystem.LiteralType), nil
	case c == '-' || c >= '0' && c <= '9':
		t, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		lit := t.(*typesystem.LiteralType)
		if lit.Kind != typesystem.LiteralInteger {
			return nil, p.errorf("shape keys must be symbols, strings, or integers")
		}
		return lit, nil
	default:
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return typesystem.SymbolLiteral(name), nil
	}
}

func (p *typeParser) parseName() (typesystem.Type, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch name {
	case "untyped":
		return typesystem.Untyped(), nil
	case "top", "anything":
		return typesystem.Top(), nil
	case "bottom", "noreturn":
		return typesystem.Bottom(), nil
	case "self":
		return typesystem.Self(), nil
	case "boolean":
		return typesystem.Boolean(), nil
	case "void":
		return typesystem.NewClassType(typesystem.VoidClass), nil
	case "nil":
		return typesystem.NewClassType(typesystem.NilClassClass), nil
	case "true":
		return typesystem.NewClassType(typesystem.TrueClassClass), nil
	case "false":
		return typesystem.NewClassType(typesystem.FalseClassClass), nil
	case "magic":
		// The desugarer's synthetic receiver; queries exercising the
		// rewrite intrinsics dispatch against it.
		return typesystem.NewClassType(p.table.Singleton(typesystem.MagicClass)), nil
	case "nilable":
		inner, err := p.parseParenArg(name)
		if err != nil {
			return nil, err
		}
		return typesystem.Nilable(p.table, inner), nil
	case "class_of":
		inner, err := p.parseParenArg(name)
		if err != nil {
			return nil, err
		}
		ct, ok := inner.(*typesystem.ClassType)
		if !ok {
			return nil, p.errorf("class_of takes a plain class")
		}
		return typesystem.NewClassType(p.table.Singleton(ct.Symbol)), nil
	}
	if t, ok := p.scope[name]; ok {
		return t, nil
	}
	c, ok := p.table.FindClass(name)
	if !ok {
		return nil, p.errorf("unknown type name %q", name)
	}
	if p.peek() == '[' {
		return p.parseApplied(c)
	}
	return typesystem.NewClassType(c), nil
}

func (p *typeParser) parseParenArg(fn string) (typesystem.Type, error) {
	if !p.eat('(') {
		return nil, p.errorf("%s takes a parenthesized argument", fn)
	}
	t, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *typeParser) parseApplied(c typesystem.ClassRef) (typesystem.Type, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var targs []typesystem.Type
	for {
		t, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		targs = append(targs, t)
		if !p.eat(',') {
			break
		}
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	// Hash carries a third synthetic member, the key/value pair tuple its
	// enumeration methods yield. Annotations write the two visible ones.
	if c == typesystem.HashClass && len(targs) == 2 {
		targs = append(targs, &typesystem.TupleType{Elems: []typesystem.Type{targs[0], targs[1]}})
	}
	if want := p.table.TypeArity(c); want != len(targs) {
		return nil, p.errorf("%s takes %d type arguments, got %d", p.table.Class(c).Name, want, len(targs))
	}
	return typesystem.NewApplied(c, targs), nil
}
