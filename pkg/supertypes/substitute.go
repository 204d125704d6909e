package supertypes

import (
	"github.com/vito/supertypes/pkg/atm"
)

// substitute splices the subject's own type arguments into a produced
// supertype. Wherever a type argument (or array component) is a use of one
// of the subject's type parameters, the subject's argument node takes that
// use's qualifiers and replaces it, so both types share one node.
//
// Wildcard and type variable bounds are not descended into.
func substitute(t atm.Type, subs atm.Subs) {
	if len(subs) == 0 {
		return
	}
	switch typ := t.(type) {
	case *atm.Declared:
		for i, arg := range typ.Args {
			if mapped, ok := subs.Lookup(arg); ok {
				mapped.ReplaceQualifiers(arg.Qualifiers())
				typ.Args[i] = mapped
				continue
			}
			substitute(arg, subs)
		}
	case *atm.Array:
		if mapped, ok := subs.Lookup(typ.Component); ok {
			mapped.ReplaceQualifiers(typ.Component.Qualifiers())
			typ.Component = mapped
			return
		}
		substitute(typ.Component, subs)
	}
}
