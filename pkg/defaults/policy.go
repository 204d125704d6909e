// Package defaults implements a simple qualifier defaulting policy for the
// hooks the supertype finder calls.
package defaults

import (
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/qual"
)

// Policy fills in qualifiers the type graph leaves unset.
type Policy struct {
	// Implicit qualifies erased raw-type arguments whose element carries no
	// annotations of its own.
	Implicit qual.Set
	// Top qualifies supertypes left without any qualifier.
	Top qual.Set
}

// AnnotateImplicit qualifies an unqualified target with the element's
// declaration annotations, or with Implicit when it has none.
func (p Policy) AnnotateImplicit(elem atm.Element, target atm.Type) {
	if target == nil || !target.Qualifiers().IsEmpty() {
		return
	}
	if elem != nil {
		if annos := elem.ElementAnnotations(); !annos.IsEmpty() {
			target.AddQualifiers(annos)
			return
		}
	}
	target.AddQualifiers(p.Implicit)
}

// PostDirectSupertypes gives every unqualified supertype, and every
// unqualified type argument or array component nested in one, the Top
// qualifiers.
func (p Policy) PostDirectSupertypes(_ atm.Type, supertypes []atm.Type) {
	if p.Top.IsEmpty() {
		return
	}
	for _, st := range supertypes {
		p.fillTop(st)
	}
}

func (p Policy) fillTop(t atm.Type) {
	if t == nil {
		return
	}
	if t.Qualifiers().IsEmpty() {
		t.AddQualifiers(p.Top)
	}
	switch typ := t.(type) {
	case *atm.Declared:
		for _, arg := range typ.Args {
			p.fillTop(arg)
		}
	case *atm.Array:
		p.fillTop(typ.Component)
	}
}
