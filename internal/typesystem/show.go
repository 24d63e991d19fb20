package typesystem

import (
	"fmt"
	"strconv"
	"strings"
)

// Show renders t the way diagnostics present types to users.
func Show(res Resolver, t Type) string {
	var b strings.Builder
	writeType(res, &b, t)
	return b.String()
}

func writeType(res Resolver, b *strings.Builder, t Type) {
	switch x := t.(type) {
	case *ClassType:
		writeClassName(res, b, x.Symbol)
	case *AppliedType:
		if arity, ok := ProcArityOf(x.Symbol); ok && len(x.TypeArgs) == arity+1 {
			writeProc(res, b, x.TypeArgs)
			return
		}
		writeClassName(res, b, x.Symbol)
		b.WriteString("[")
		targs := x.TypeArgs
		// The trailing Hash member is the synthesized pair type; users
		// never write it.
		if x.Symbol == HashClass && len(targs) == 3 {
			targs = targs[:2]
		}
		for i, a := range targs {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(res, b, a)
		}
		b.WriteString("]")
	case *OrType:
		comps := orComponents(t, nil)
		if other, ok := nilableOther(comps); ok {
			b.WriteString("T.nilable(")
			writeType(res, b, other)
			b.WriteString(")")
			return
		}
		b.WriteString("T.any(")
		for i, c := range comps {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(res, b, c)
		}
		b.WriteString(")")
	case *AndType:
		b.WriteString("T.all(")
		comps := andComponents(t, nil)
		for i, c := range comps {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(res, b, c)
		}
		b.WriteString(")")
	case *LiteralType:
		switch x.Kind {
		case LiteralInteger:
			fmt.Fprintf(b, "Integer(%d)", x.Int)
		case LiteralFloat:
			fmt.Fprintf(b, "Float(%s)", strconv.FormatFloat(x.Float, 'g', -1, 64))
		case LiteralString:
			fmt.Fprintf(b, "String(%q)", x.Str)
		case LiteralSymbol:
			fmt.Fprintf(b, "Symbol(:%s)", x.Str)
		}
	case *ShapeType:
		b.WriteString("{")
		for i, k := range x.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if k.Kind == LiteralSymbol {
				fmt.Fprintf(b, "%s: ", k.Str)
			} else {
				writeType(res, b, k)
				b.WriteString(" => ")
			}
			writeType(res, b, x.Values[i])
		}
		b.WriteString("}")
	case *TupleType:
		b.WriteString("[")
		for i, e := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(res, b, e)
		}
		b.WriteString("]")
	case *MetaType:
		b.WriteString("<Type: ")
		writeType(res, b, x.Wrapped)
		b.WriteString(">")
	case *SelfTypeParam:
		b.WriteString("T.attached_class")
	case *SelfType:
		b.WriteString("T.self_type")
	case *TypeVar:
		fmt.Fprintf(b, "T.type_parameter(:%s)", res.TypeParamName(x.Definition))
	case *MemberVar:
		b.WriteString(res.TypeMemberName(x.Definition))
	case *UntypedType:
		b.WriteString("T.untyped")
	case *BottomType:
		b.WriteString("T.noreturn")
	case *TopType:
		b.WriteString("T.anything")
	}
}

func writeClassName(res Resolver, b *strings.Builder, c ClassRef) {
	if c == VoidClass {
		b.WriteString("void")
		return
	}
	if attached, ok := res.AttachedClass(c); ok {
		fmt.Fprintf(b, "T.class_of(%s)", res.ClassName(attached))
		return
	}
	b.WriteString(res.ClassName(c))
}

// writeProc renders a fixed-arity proc application; targs are
// [return, arg0, arg1, ...].
func writeProc(res Resolver, b *strings.Builder, targs []Type) {
	b.WriteString("Proc((")
	for i, a := range targs[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		writeType(res, b, a)
	}
	b.WriteString(") -> ")
	writeType(res, b, targs[0])
	b.WriteString(")")
}

// orComponents flattens nested unions left to right.
func orComponents(t Type, acc []Type) []Type {
	if o, ok := t.(*OrType); ok {
		acc = orComponents(o.Left, acc)
		return orComponents(o.Right, acc)
	}
	return append(acc, t)
}

func andComponents(t Type, acc []Type) []Type {
	if a, ok := t.(*AndType); ok {
		acc = andComponents(a.Left, acc)
		return andComponents(a.Right, acc)
	}
	return append(acc, t)
}

func nilableOther(comps []Type) (Type, bool) {
	if len(comps) != 2 {
		return nil, false
	}
	if Equal(comps[0], NilType) {
		return comps[1], true
	}
	if Equal(comps[1], NilType) {
		return comps[0], true
	}
	return nil, false
}
