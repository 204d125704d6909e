package atm

import "fmt"

// Copier deep-copies type graphs. Nodes reached more than once (including
// through cyclic type-variable bounds) are copied once, so aliasing inside
// the copied graph mirrors aliasing inside the original.
//
// Share one Copier across several calls to keep aliasing between the
// results, e.g. when copying a parameter list whose bounds mention each
// other.
type Copier struct {
	seen map[Type]Type
}

func NewCopier() *Copier {
	return &Copier{seen: map[Type]Type{}}
}

// DeepCopy returns a structural copy of t that shares no node with t.
func DeepCopy(t Type) Type {
	return NewCopier().Copy(t)
}

// DeepCopyDeclared is DeepCopy for declared types.
func DeepCopyDeclared(t *Declared) *Declared {
	if t == nil {
		return nil
	}
	return DeepCopy(t).(*Declared)
}

func (c *Copier) Copy(t Type) Type {
	if t == nil {
		return nil
	}
	if done, ok := c.seen[t]; ok {
		return done
	}

	switch typ := t.(type) {
	case *Primitive:
		cp := &Primitive{Kind: typ.Kind}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		return cp

	case *Declared:
		cp := &Declared{Name: typ.Name, Raw: typ.Raw}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		if typ.Args != nil {
			cp.Args = make([]Type, len(typ.Args))
			for i, arg := range typ.Args {
				cp.Args[i] = c.Copy(arg)
			}
		}
		return cp

	case *Array:
		cp := &Array{}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		cp.Component = c.Copy(typ.Component)
		return cp

	case *TypeVar:
		cp := &TypeVar{Param: typ.Param}
		cp.quals = typ.quals.Clone()
		// register before descending: bounds may lead back here
		c.seen[t] = cp
		cp.Upper = c.Copy(typ.Upper)
		cp.Lower = c.Copy(typ.Lower)
		return cp

	case *Wildcard:
		cp := &Wildcard{}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		cp.Extends = c.Copy(typ.Extends)
		cp.Super = c.Copy(typ.Super)
		return cp

	case *Null:
		cp := &Null{}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		return cp

	case *NoType:
		cp := &NoType{}
		cp.quals = typ.quals.Clone()
		c.seen[t] = cp
		return cp

	default:
		panic(fmt.Sprintf("atm.Copier: unknown type node %T", t))
	}
}
