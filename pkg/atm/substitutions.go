package atm

// Subs maps declared type parameters to the type arguments of one
// instantiation. Keys are compared by identity.
type Subs map[*TypeParam]Type

// Zip pairs params with args positionally. Surplus entries on either side
// are ignored; callers decide whether a length mismatch is acceptable.
func Zip(params []*TypeParam, args []Type) Subs {
	subs := make(Subs, len(args))
	for i := 0; i < len(params) && i < len(args); i++ {
		subs[params[i]] = args[i]
	}
	return subs
}

// Lookup returns the mapped argument when t is a use of one of the mapped
// parameters.
func (s Subs) Lookup(t Type) (Type, bool) {
	tv, ok := t.(*TypeVar)
	if !ok || tv.Param == nil {
		return nil, false
	}
	mapped, ok := s[tv.Param]
	return mapped, ok
}
