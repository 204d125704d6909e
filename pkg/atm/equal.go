package atm

// SameType reports whether a and b denote the same structural type,
// ignoring qualifiers. Type variables are the same when they denote the
// same declared parameter; their bounds are not compared.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case *Primitive:
		y, ok := b.(*Primitive)
		return ok && x.Kind == y.Kind

	case *Declared:
		y, ok := b.(*Declared)
		if !ok || x.Name != y.Name {
			return false
		}
		if x.Raw || y.Raw {
			return x.Raw == y.Raw
		}
		if len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !SameType(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true

	case *Array:
		y, ok := b.(*Array)
		return ok && SameType(x.Component, y.Component)

	case *TypeVar:
		y, ok := b.(*TypeVar)
		return ok && x.Param == y.Param

	case *Wildcard:
		y, ok := b.(*Wildcard)
		return ok && SameType(x.Extends, y.Extends) && SameType(x.Super, y.Super)

	case *Null:
		_, ok := b.(*Null)
		return ok

	case *NoType:
		_, ok := b.(*NoType)
		return ok
	}

	return false
}
