package atm

import (
	"fmt"
	"strings"

	"github.com/vito/supertypes/pkg/qual"
)

// Type is an annotated type node. The set of implementations is closed:
// Primitive, Declared, Array, TypeVar, Wildcard, Null and NoType.
//
// Every node is a pointer, so node identity is pointer identity. Two nodes
// may be structurally equal (see SameType) while being distinct objects.
type Type interface {
	// Qualifiers returns the node's live qualifier set. Mutating the result
	// mutates the node.
	Qualifiers() qual.Set
	// ReplaceQualifiers overwrites the node's qualifiers with a copy of qs.
	ReplaceQualifiers(qs qual.Set)
	// AddQualifiers unions qs into the node's qualifiers.
	AddQualifiers(qs qual.Set)

	fmt.Stringer

	annotated() *annotations
}

// annotations is embedded by every Type implementation.
type annotations struct {
	quals qual.Set
}

func (a *annotations) annotated() *annotations { return a }

func (a *annotations) Qualifiers() qual.Set {
	if a.quals == nil {
		a.quals = qual.NewSet()
	}
	return a.quals
}

func (a *annotations) ReplaceQualifiers(qs qual.Set) {
	a.quals = qs.Clone()
}

func (a *annotations) AddQualifiers(qs qual.Set) {
	set := a.Qualifiers()
	for q := range qs {
		set.Add(q)
	}
}

func (a *annotations) prefix() string {
	if len(a.quals) == 0 {
		return ""
	}
	return a.quals.String() + " "
}

// Primitive is one of the eight primitive types.
type Primitive struct {
	annotations
	Kind Kind
}

var _ Type = (*Primitive)(nil)

// NewPrimitive creates a primitive type carrying a copy of qs.
func NewPrimitive(kind Kind, qs ...qual.Qualifier) *Primitive {
	return &Primitive{annotations: annotations{quals: qual.NewSet(qs...)}, Kind: kind}
}

func (t *Primitive) String() string {
	return t.prefix() + t.Kind.String()
}

// Declared is an instantiation of a class, interface, enum or annotation
// declaration.
type Declared struct {
	annotations
	// Name identifies the declaration; it is resolved through the host.
	Name DeclName
	// Args are the type arguments, positionally matching the declaration's
	// type parameters unless Raw is set.
	Args []Type
	// Raw marks a generic type used without its type arguments.
	Raw bool
}

var _ Type = (*Declared)(nil)

// NewDeclared creates a declared type.
func NewDeclared(name DeclName, args ...Type) *Declared {
	return &Declared{annotations: annotations{quals: qual.NewSet()}, Name: name, Args: args}
}

// SetRaw marks the type as a raw type.
func (t *Declared) SetRaw() {
	t.Raw = true
}

func (t *Declared) String() string {
	var b strings.Builder
	b.WriteString(t.prefix())
	b.WriteString(string(t.Name))
	if t.Raw || len(t.Args) == 0 {
		return b.String()
	}
	b.WriteByte('<')
	for i, arg := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(typeString(arg))
	}
	b.WriteByte('>')
	return b.String()
}

// Array is an array type. Its qualifiers qualify the array itself, not the
// component.
type Array struct {
	annotations
	Component Type
}

var _ Type = (*Array)(nil)

func NewArray(component Type) *Array {
	return &Array{annotations: annotations{quals: qual.NewSet()}, Component: component}
}

func (t *Array) String() string {
	if len(t.quals) == 0 {
		return typeString(t.Component) + "[]"
	}
	return typeString(t.Component) + " " + t.quals.String() + " []"
}

// TypeVar is a use of a declared type parameter.
type TypeVar struct {
	annotations
	// Param is the declared parameter this variable denotes. Identity, not
	// name, decides whether two variables are the same.
	Param *TypeParam
	Upper Type
	Lower Type
}

var _ Type = (*TypeVar)(nil)

func (t *TypeVar) String() string {
	if t.Param == nil {
		return t.prefix() + "<unbound>"
	}
	return t.prefix() + t.Param.Name
}

// Wildcard is a wildcard type argument.
type Wildcard struct {
	annotations
	Extends Type
	Super   Type
}

var _ Type = (*Wildcard)(nil)

func NewWildcard(extends, super Type) *Wildcard {
	return &Wildcard{annotations: annotations{quals: qual.NewSet()}, Extends: extends, Super: super}
}

func (t *Wildcard) String() string {
	switch {
	case t.Super != nil:
		return t.prefix() + "? super " + typeString(t.Super)
	case t.Extends != nil && !isPlainObject(t.Extends):
		return t.prefix() + "? extends " + typeString(t.Extends)
	default:
		return t.prefix() + "?"
	}
}

// Null is the type of the null literal.
type Null struct {
	annotations
}

var _ Type = (*Null)(nil)

func (t *Null) String() string { return t.prefix() + "null" }

// NoType stands in where no type exists, e.g. the superclass of the root
// object type.
type NoType struct {
	annotations
}

var _ Type = (*NoType)(nil)

func (t *NoType) String() string { return t.prefix() + "none" }

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func isPlainObject(t Type) bool {
	d, ok := t.(*Declared)
	return ok && d.Name == ObjectName && len(d.quals) == 0
}

// IsReference reports whether t is a reference type, i.e. anything but a
// primitive or the no-type marker.
func IsReference(t Type) bool {
	switch t.(type) {
	case *Primitive, *NoType, nil:
		return false
	default:
		return true
	}
}
