// Package classpath is an in-memory declaration table that serves as the
// host type model for supertype resolution.
package classpath

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/typeexpr"
)

// ErrNotFound is returned, wrapped, when a declaration cannot be resolved.
var ErrNotFound = errors.New("declaration not found")

// DefaultImports are the packages whose members resolve by simple name.
var DefaultImports = []string{"java.lang"}

var boxes = map[atm.Kind]atm.DeclName{
	atm.Boolean: "java.lang.Boolean",
	atm.Byte:    "java.lang.Byte",
	atm.Short:   "java.lang.Short",
	atm.Char:    "java.lang.Character",
	atm.Int:     "java.lang.Integer",
	atm.Long:    "java.lang.Long",
	atm.Float:   "java.lang.Float",
	atm.Double:  "java.lang.Double",
}

// Classpath holds declarations by qualified name.
//
// Declarations are immutable once defined and every type handed out is a
// fresh copy, so a Classpath may serve concurrent resolutions.
type Classpath struct {
	mu      sync.RWMutex
	decls   map[atm.DeclName]*atm.Decl
	trees   map[atm.DeclName]*atm.ClassTree
	imports []string
}

// New creates an empty classpath resolving simple names through imports
// (DefaultImports when none are given).
func New(imports ...string) *Classpath {
	if len(imports) == 0 {
		imports = DefaultImports
	}
	return &Classpath{
		decls:   make(map[atm.DeclName]*atm.Decl),
		trees:   make(map[atm.DeclName]*atm.ClassTree),
		imports: imports,
	}
}

// Define adds a declaration. tree may be nil for declarations known only
// structurally.
func (cp *Classpath) Define(decl *atm.Decl, tree *atm.ClassTree) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.defineLocked(decl, tree)
}

func (cp *Classpath) defineLocked(decl *atm.Decl, tree *atm.ClassTree) error {
	if _, exists := cp.decls[decl.Name]; exists {
		return errors.Errorf("duplicate declaration %s", decl.Name)
	}
	cp.decls[decl.Name] = decl
	if tree != nil {
		cp.trees[decl.Name] = tree
	}
	return nil
}

// LookupDeclaration returns the declaration with the given qualified name.
func (cp *Classpath) LookupDeclaration(name atm.DeclName) (*atm.Decl, error) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	decl, ok := cp.decls[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	return decl, nil
}

// ResolveDeclaration resolves a qualified name, or a simple name through
// the classpath's imports and the default package.
func (cp *Classpath) ResolveDeclaration(name string) (*atm.Decl, error) {
	return cp.resolve(name, cp.imports, nil)
}

func (cp *Classpath) resolve(name string, imports []string, staged map[atm.DeclName]*atm.Decl) (*atm.Decl, error) {
	candidates := []atm.DeclName{atm.DeclName(name)}
	if !strings.Contains(name, ".") {
		candidates = candidates[:0]
		for _, pkg := range imports {
			candidates = append(candidates, atm.DeclName(pkg+"."+name))
		}
		candidates = append(candidates, atm.DeclName(name))
	}

	cp.mu.RLock()
	defer cp.mu.RUnlock()
	for _, c := range candidates {
		if decl, ok := staged[c]; ok {
			return decl, nil
		}
		if decl, ok := cp.decls[c]; ok {
			return decl, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s", name)
}

// DeclarationTree returns the source form of decl's clauses, if the
// declaration was defined from source.
func (cp *Classpath) DeclarationTree(decl *atm.Decl) (*atm.ClassTree, bool) {
	cp.mu.RLock()
	tree, ok := cp.trees[decl.Name]
	cp.mu.RUnlock()
	if !ok {
		return nil, false
	}
	copied := &atm.ClassTree{Extends: atm.DeepCopyDeclared(tree.Extends)}
	for _, impl := range tree.Implements {
		copied.Implements = append(copied.Implements, atm.DeepCopyDeclared(impl))
	}
	return copied, true
}

// BoxedClass returns the wrapper class of a primitive kind.
func (cp *Classpath) BoxedClass(kind atm.Kind) (*atm.Decl, error) {
	name, ok := boxes[kind]
	if !ok {
		return nil, errors.Errorf("no boxed class for %s", kind)
	}
	return cp.LookupDeclaration(name)
}

// TypeOf returns decl's own generic type: its type parameters applied to
// itself, e.g. List<E> for List.
func (cp *Classpath) TypeOf(decl *atm.Decl) *atm.Declared {
	copier := atm.NewCopier()
	args := make([]atm.Type, len(decl.TypeParams))
	for i, p := range decl.TypeParams {
		args[i] = copier.Copy(p.Var)
	}
	if len(args) == 0 {
		args = nil
	}
	return atm.NewDeclared(decl.Name, args...)
}

// Instantiate returns a fresh copy of a declaration-owned type.
func (cp *Classpath) Instantiate(t atm.Type) atm.Type {
	return atm.DeepCopy(t)
}

// Erase erases t. Erased declared types keep one argument per type
// parameter, the erasure of that parameter's bound, so that callers can
// annotate them.
func (cp *Classpath) Erase(t atm.Type) atm.Type {
	d, ok := t.(*atm.Declared)
	if !ok {
		return atm.Erasure(t)
	}
	erased := atm.Erasure(d).(*atm.Declared)
	decl, err := cp.LookupDeclaration(d.Name)
	if err != nil {
		slog.Debug("erasing unknown declaration", "type", d, "error", err)
		return erased
	}
	for _, p := range decl.TypeParams {
		erased.Args = append(erased.Args, atm.Erasure(p.Var))
	}
	return erased
}

func (cp *Classpath) ObjectType() *atm.Declared {
	return atm.NewDeclared(atm.ObjectName)
}

func (cp *Classpath) CloneableType() *atm.Declared {
	return atm.NewDeclared(atm.CloneableName)
}

func (cp *Classpath) SerializableType() *atm.Declared {
	return atm.NewDeclared(atm.SerializableName)
}

// Decls returns every declaration sorted by name.
func (cp *Classpath) Decls() []*atm.Decl {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	decls := make([]*atm.Decl, 0, len(cp.decls))
	for _, d := range cp.decls {
		decls = append(decls, d)
	}
	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
	return decls
}

// Parse parses a type expression against the classpath. No type variables
// are in scope.
func (cp *Classpath) Parse(src string) (atm.Type, error) {
	return typeexpr.Parse(src, cp)
}

// TypeVariable implements typeexpr.Scope; top-level queries see no type
// variables.
func (cp *Classpath) TypeVariable(string) (*atm.TypeVar, bool) {
	return nil, false
}

var _ typeexpr.Scope = (*Classpath)(nil)

// Describe renders a declaration header, e.g.
// "class demo.Box<T extends java.lang.Object> extends ... implements ...".
func (cp *Classpath) Describe(decl *atm.Decl) string {
	var b strings.Builder
	if !decl.Annotations.IsEmpty() {
		b.WriteString(decl.Annotations.String())
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%s %s", decl.Kind, decl.Name)
	if len(decl.TypeParams) > 0 {
		b.WriteByte('<')
		for i, p := range decl.TypeParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			if bound := p.Bound(); bound != nil && !atm.SameType(bound, cp.ObjectType()) {
				b.WriteString(" extends ")
				b.WriteString(bound.String())
			}
		}
		b.WriteByte('>')
	}

	tree, fromSource := cp.DeclarationTree(decl)
	super, ifaces := decl.Superclass, decl.Interfaces
	if fromSource {
		super, ifaces = tree.Extends, tree.Implements
	}
	if super != nil {
		b.WriteString(" extends ")
		b.WriteString(super.String())
	}
	for i, iface := range ifaces {
		if i == 0 {
			b.WriteString(" implements ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(iface.String())
	}
	return b.String()
}

// Subject returns the type a query asks about: src parsed against the
// classpath, or, when decl is set, that declaration's own generic type.
func (cp *Classpath) Subject(src, decl string) (atm.Type, error) {
	switch {
	case decl != "" && src != "":
		return nil, errors.New("a type and a declaration are mutually exclusive")
	case decl != "":
		d, err := cp.ResolveDeclaration(decl)
		if err != nil {
			return nil, err
		}
		return cp.TypeOf(d), nil
	case src != "":
		return cp.Parse(src)
	default:
		return nil, errors.New("a type or a declaration is required")
	}
}
