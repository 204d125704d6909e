package atm

import "fmt"

// Erasure returns the erasure of t: declared types lose their type
// arguments and become raw, type variables and wildcards erase to their
// upper bound, arrays erase their component. Top-level qualifiers are kept.
//
// The result never shares nodes with t.
func Erasure(t Type) Type {
	switch typ := t.(type) {
	case nil:
		return nil
	case *Declared:
		erased := &Declared{Name: typ.Name, Raw: true}
		erased.quals = typ.quals.Clone()
		return erased
	case *Array:
		erased := &Array{Component: Erasure(typ.Component)}
		erased.quals = typ.quals.Clone()
		return erased
	case *TypeVar:
		if typ.Upper == nil {
			return objectWith(typ)
		}
		erased := Erasure(typ.Upper)
		erased.ReplaceQualifiers(typ.quals)
		return erased
	case *Wildcard:
		if typ.Extends == nil {
			return objectWith(typ)
		}
		erased := Erasure(typ.Extends)
		erased.ReplaceQualifiers(typ.quals)
		return erased
	case *Primitive, *Null, *NoType:
		return DeepCopy(t)
	default:
		panic(fmt.Sprintf("atm.Erasure: unknown type node %T", t))
	}
}

func objectWith(t Type) *Declared {
	obj := NewDeclared(ObjectName)
	obj.ReplaceQualifiers(t.annotated().quals)
	return obj
}
