// Package supertypes computes the direct supertypes of annotated types:
// the types one hop above a type in the subtyping relation, with
// qualifiers and type-argument identity carried across.
package supertypes

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/vito/supertypes/pkg/atm"
)

// Host is the type model the finder resolves declarations against.
type Host interface {
	LookupDeclaration(name atm.DeclName) (*atm.Decl, error)
	// DeclarationTree returns fresh copies of a declaration's clauses as
	// written in source, if it has a source form.
	DeclarationTree(decl *atm.Decl) (*atm.ClassTree, bool)
	BoxedClass(kind atm.Kind) (*atm.Decl, error)
	// TypeOf returns a fresh node for decl applied to its own parameters.
	TypeOf(decl *atm.Decl) *atm.Declared
	// Instantiate returns a fresh copy of a type owned by a declaration.
	Instantiate(t atm.Type) atm.Type
	Erase(t atm.Type) atm.Type
	ObjectType() *atm.Declared
	CloneableType() *atm.Declared
	SerializableType() *atm.Declared
}

// Annotator applies the qualifier policy of the surrounding analysis.
type Annotator interface {
	// AnnotateImplicit qualifies an erased argument of a raw supertype.
	AnnotateImplicit(elem atm.Element, target atm.Type)
	// PostDirectSupertypes runs once per top-level call on the result.
	PostDirectSupertypes(subject atm.Type, supertypes []atm.Type)
}

// Finder computes direct supertypes.
//
// A Finder holds no state of its own and may be shared, but resolutions
// splice the subject's type arguments into the results, so concurrent
// calls must not share a type graph.
type Finder struct {
	host      Host
	annotator Annotator
}

func New(host Host, annotator Annotator) *Finder {
	return &Finder{host: host, annotator: annotator}
}

var widening = map[atm.Kind]atm.Kind{
	atm.Byte:  atm.Short,
	atm.Char:  atm.Int,
	atm.Short: atm.Int,
	atm.Int:   atm.Long,
	atm.Long:  atm.Float,
	atm.Float: atm.Double,
}

// DirectSupertypes returns the direct supertypes of t in order.
//
// Lookup failures are returned. A type graph that breaks the model's
// invariants panics with an *InternalError; see Guard.
func (f *Finder) DirectSupertypes(t atm.Type) ([]atm.Type, error) {
	supers, err := f.visit(t)
	if err != nil {
		return nil, err
	}
	f.annotator.PostDirectSupertypes(t, supers)
	slog.Debug("computed direct supertypes", "type", t, "supertypes", len(supers))
	return supers, nil
}

// DirectDeclaredSupertypes is DirectSupertypes for declared types, whose
// supertypes are always declared types.
func (f *Finder) DirectDeclaredSupertypes(t *atm.Declared) ([]*atm.Declared, error) {
	supers, err := f.visitDeclared(t)
	if err != nil {
		return nil, err
	}
	f.annotator.PostDirectSupertypes(t, widen(supers))
	slog.Debug("computed direct declared supertypes", "type", t, "supertypes", len(supers))
	return supers, nil
}

func (f *Finder) visit(t atm.Type) ([]atm.Type, error) {
	switch typ := t.(type) {
	case *atm.Primitive:
		return f.visitPrimitive(typ)
	case *atm.Declared:
		supers, err := f.visitDeclared(typ)
		if err != nil {
			return nil, err
		}
		return widen(supers), nil
	case *atm.Array:
		return f.visitArray(typ)
	case *atm.TypeVar:
		if typ.Upper == nil {
			abortf("type variable %s has no upper bound", typ)
		}
		return []atm.Type{atm.DeepCopy(typ.Upper)}, nil
	case *atm.Wildcard:
		if typ.Extends == nil {
			abortf("wildcard %s has no extends bound", typ)
		}
		return []atm.Type{atm.DeepCopy(typ.Extends)}, nil
	default:
		// the root object type's supertypes, and types with none modeled
		return []atm.Type{}, nil
	}
}

func (f *Finder) visitPrimitive(t *atm.Primitive) ([]atm.Type, error) {
	if !t.Kind.Valid() {
		abortf("unexpected primitive kind %s", t.Kind)
	}

	decl, err := f.host.BoxedClass(t.Kind)
	if err != nil {
		return nil, errors.Wrapf(err, "boxed class of %s", t.Kind)
	}
	boxed := f.host.TypeOf(decl)
	boxed.AddQualifiers(t.Qualifiers())
	supers := []atm.Type{boxed}

	if wider, ok := widening[t.Kind]; ok {
		w := atm.NewPrimitive(wider)
		w.AddQualifiers(t.Qualifiers())
		supers = append(supers, w)
	}
	return supers, nil
}

func (f *Finder) visitArray(t *atm.Array) ([]atm.Type, error) {
	quals := t.Qualifiers()

	supers := make([]atm.Type, 0, 3)
	for _, marker := range []*atm.Declared{
		f.host.ObjectType(),
		f.host.CloneableType(),
		f.host.SerializableType(),
	} {
		marker.AddQualifiers(quals)
		supers = append(supers, marker)
	}

	if !atm.IsReference(t.Component) {
		return supers, nil
	}
	components, err := f.DirectSupertypes(t.Component)
	if err != nil {
		return nil, err
	}
	for _, c := range components {
		arr := atm.NewArray(c)
		arr.AddQualifiers(quals)
		supers = append(supers, arr)
	}
	return supers, nil
}

func (f *Finder) visitDeclared(t *atm.Declared) ([]*atm.Declared, error) {
	decl, err := f.host.LookupDeclaration(t.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "direct supertypes of %s", t)
	}
	if len(t.Args) != len(decl.TypeParams) && !t.Raw {
		abortf("%s has %d type arguments but %s declares %d type parameters",
			t, len(t.Args), decl.Name, len(decl.TypeParams))
	}
	subs := atm.Zip(decl.TypeParams, t.Args)

	var supers []*atm.Declared
	if tree, ok := f.host.DeclarationTree(decl); ok {
		supers = f.fromTree(t, decl, tree)
	} else {
		supers, err = f.fromDecl(t, decl)
		if err != nil {
			return nil, err
		}
	}

	if t.Raw {
		for _, st := range supers {
			st.SetRaw()
		}
	}
	for _, st := range supers {
		substitute(st, subs)
	}
	return supers, nil
}

// fromTree reads the supertypes from the declaration's source clauses.
func (f *Finder) fromTree(t *atm.Declared, decl *atm.Decl, tree *atm.ClassTree) []*atm.Declared {
	var supers []*atm.Declared
	switch {
	case tree.Extends != nil:
		supers = append(supers, tree.Extends)
	case !f.isRoot(decl):
		supers = append(supers, f.host.ObjectType())
	}
	supers = append(supers, tree.Implements...)
	if decl.IsEnum() {
		supers = append(supers, f.enumSuperclass(t, decl))
	}
	return supers
}

// fromDecl reads the supertypes from the structural declaration.
func (f *Finder) fromDecl(t *atm.Declared, decl *atm.Decl) ([]*atm.Declared, error) {
	var supers []*atm.Declared
	switch {
	case decl.IsEnum():
		supers = append(supers, f.enumSuperclass(t, decl))
	case decl.Superclass != nil:
		supers = append(supers, f.instantiate(decl.Superclass))
	case !f.isRoot(decl):
		supers = append(supers, f.host.ObjectType())
	}
	hasSuperclass := len(supers) == 1

	for _, iface := range decl.Interfaces {
		if !t.Raw {
			supers = append(supers, f.instantiate(iface))
			continue
		}
		erased, ok := f.host.Erase(iface).(*atm.Declared)
		if !ok {
			abortf("erasure of interface %s is not a declared type", iface)
		}
		for _, arg := range erased.Args {
			elem, err := f.elementOf(arg)
			if err != nil {
				return nil, err
			}
			f.annotator.AnnotateImplicit(elem, arg)
		}
		slog.Debug("erased interface of raw type", "type", t, "interface", erased)
		supers = append(supers, erased)
	}

	applySuperAnnotations(decl, supers, hasSuperclass)
	return supers, nil
}

// enumSuperclass instantiates an enum's superclass, Enum<E>, giving each
// argument that is the enum itself the subject's qualifiers.
func (f *Finder) enumSuperclass(t *atm.Declared, decl *atm.Decl) *atm.Declared {
	if decl.Superclass == nil {
		abortf("enum %s has no superclass", decl.Name)
	}
	sup := f.instantiate(decl.Superclass)
	for _, arg := range sup.Args {
		if atm.SameType(arg, t) {
			arg.AddQualifiers(t.Qualifiers())
		}
	}
	return sup
}

func applySuperAnnotations(decl *atm.Decl, supers []*atm.Declared, hasSuperclass bool) {
	offset := 0
	if hasSuperclass {
		offset = 1
	}
	for _, sa := range decl.SuperAnnotations {
		idx := sa.Clause + offset
		if sa.Clause == atm.SuperclassClause {
			if !hasSuperclass {
				abortf("%s: superclass annotation without a superclass", decl.Name)
			}
			idx = 0
		}
		if idx < 0 || idx >= len(supers) {
			abortf("%s: annotation on missing supertype clause %d", decl.Name, sa.Clause)
		}
		target, ok := walkPath(supers[idx], sa.Path)
		if !ok {
			abortf("%s: no type at path %v of %s", decl.Name, sa.Path, supers[idx])
		}
		target.AddQualifiers(sa.Qualifiers)
	}
}

func walkPath(t atm.Type, path []int) (atm.Type, bool) {
	for _, i := range path {
		switch typ := t.(type) {
		case *atm.Declared:
			if i < 0 || i >= len(typ.Args) {
				return nil, false
			}
			t = typ.Args[i]
		case *atm.Array:
			if i != 0 {
				return nil, false
			}
			t = typ.Component
		default:
			return nil, false
		}
	}
	return t, true
}

func (f *Finder) elementOf(t atm.Type) (atm.Element, error) {
	switch typ := t.(type) {
	case *atm.Declared:
		decl, err := f.host.LookupDeclaration(typ.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "element of %s", typ)
		}
		return decl, nil
	case *atm.TypeVar:
		if typ.Param != nil {
			return typ.Param, nil
		}
	}
	return nil, nil
}

func (f *Finder) instantiate(t *atm.Declared) *atm.Declared {
	d, ok := f.host.Instantiate(t).(*atm.Declared)
	if !ok {
		abortf("instantiating %s did not produce a declared type", t)
	}
	return d
}

func (f *Finder) isRoot(decl *atm.Decl) bool {
	return decl.Name == f.host.ObjectType().Name
}

func widen(decls []*atm.Declared) []atm.Type {
	types := make([]atm.Type, len(decls))
	for i, d := range decls {
		types[i] = d
	}
	return types
}
