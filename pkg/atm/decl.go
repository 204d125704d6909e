package atm

import (
	"github.com/vito/supertypes/pkg/qual"
)

// DeclName is the stable identity of a declaration: its fully qualified
// name. It survives generic instantiation, so every Declared node of the
// same class carries the same DeclName.
type DeclName string

// Simple returns the unqualified name.
func (n DeclName) Simple() string {
	s := string(n)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}

// Package returns the qualifier of the name, or "" for the default package.
func (n DeclName) Package() string {
	s := string(n)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return ""
}

// Well-known declarations every host must provide.
const (
	ObjectName       DeclName = "java.lang.Object"
	CloneableName    DeclName = "java.lang.Cloneable"
	SerializableName DeclName = "java.io.Serializable"
	EnumName         DeclName = "java.lang.Enum"
)

// Element is a declared program element a type can denote: a class-like
// declaration or a type parameter.
type Element interface {
	ElementName() string
	ElementAnnotations() qual.Set
}

// Decl is a class, interface, enum or annotation declaration as known
// structurally (i.e. without source-level annotations on its clauses).
type Decl struct {
	Name       DeclName
	Kind       DeclKind
	TypeParams []*TypeParam

	// Superclass is nil for interfaces and the root object type.
	Superclass *Declared
	Interfaces []*Declared

	// Annotations are the declaration's own annotations.
	Annotations qual.Set

	// SuperAnnotations are explicit annotations written on the supertype
	// clauses, stored as metadata the way compiled code keeps them.
	SuperAnnotations []SuperAnnotation
}

var _ Element = (*Decl)(nil)

func (d *Decl) ElementName() string { return string(d.Name) }

func (d *Decl) ElementAnnotations() qual.Set { return d.Annotations }

// IsEnum reports whether d is an enum declaration.
func (d *Decl) IsEnum() bool { return d.Kind == EnumKind }

// Param returns the type parameter called name.
func (d *Decl) Param(name string) (*TypeParam, bool) {
	for _, p := range d.TypeParams {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SuperclassClause addresses the extends clause in a SuperAnnotation.
const SuperclassClause = -1

// SuperAnnotation places qualifiers on a supertype clause of a compiled
// declaration.
type SuperAnnotation struct {
	// Clause is SuperclassClause or an index into Decl.Interfaces.
	Clause int
	// Path walks into nested type arguments (array components use index 0).
	Path       []int
	Qualifiers qual.Set
}

// ClassTree is the source form of a declaration's supertype clauses, with
// annotations exactly as written.
type ClassTree struct {
	Extends    *Declared
	Implements []*Declared
}

// TypeParam is a declared type parameter. Its pointer is its identity.
type TypeParam struct {
	Name        string
	Owner       DeclName
	Annotations qual.Set

	// Var is the canonical use of this parameter. Its bounds may refer back
	// to Var itself (E extends Enum<E>), so it must only be handed out
	// through DeepCopy.
	Var *TypeVar
}

var _ Element = (*TypeParam)(nil)

// NewTypeParam creates a parameter with an unbounded canonical variable.
func NewTypeParam(owner DeclName, name string) *TypeParam {
	p := &TypeParam{Name: name, Owner: owner, Annotations: qual.NewSet()}
	p.Var = NewTypeVar(p)
	return p
}

func (p *TypeParam) ElementName() string { return string(p.Owner) + "#" + p.Name }

func (p *TypeParam) ElementAnnotations() qual.Set { return p.Annotations }

// Bound returns the canonical upper bound.
func (p *TypeParam) Bound() Type { return p.Var.Upper }

// NewTypeVar returns a new, unbounded use of p. Loaders set Upper once the
// parameter's bound is known.
func NewTypeVar(p *TypeParam) *TypeVar {
	return &TypeVar{annotations: annotations{quals: qual.NewSet()}, Param: p}
}

// Use returns a fresh copy of the parameter's canonical variable.
func (p *TypeParam) Use() *TypeVar {
	return DeepCopy(p.Var).(*TypeVar)
}
