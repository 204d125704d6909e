package classpath

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/qual"
	"github.com/vito/supertypes/pkg/typeexpr"
	"gopkg.in/yaml.v3"
)

// File is a hierarchy file.
type File struct {
	// Imports are packages whose members the file refers to by simple name,
	// in addition to the classpath's own imports.
	Imports []string   `toml:"imports" yaml:"imports"`
	Decls   []DeclSpec `toml:"decl" yaml:"decls"`
}

// DeclSpec describes one declaration in a hierarchy file.
type DeclSpec struct {
	Name        string   `toml:"name" yaml:"name"`
	Kind        string   `toml:"kind" yaml:"kind"`
	Params      []string `toml:"params" yaml:"params"`
	Extends     string   `toml:"extends" yaml:"extends"`
	Implements  []string `toml:"implements" yaml:"implements"`
	Annotations []string `toml:"annotations" yaml:"annotations"`
	// Source declarations serve their clauses as a ClassTree, annotations
	// included. Other declarations keep clause annotations only as
	// SuperAnnotations metadata.
	Source bool `toml:"source" yaml:"source"`
}

// ReadFile reads a hierarchy file, choosing the format by extension.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read hierarchy %s", path)
	}
	return DecodeFile(path, data)
}

// DecodeFile decodes hierarchy data. name selects the format: .yaml and
// .yml are YAML, anything else TOML.
func DecodeFile(name string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
	default:
		meta, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("parse %s: unknown key %s", name, undecoded[0])
		}
	}
	return &f, nil
}

// LoadFiles reads and loads hierarchy files as one unit, so declarations
// may refer to each other across files.
func (cp *Classpath) LoadFiles(paths ...string) error {
	files := make([]*File, 0, len(paths))
	for _, path := range paths {
		f, err := ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	return cp.Load(files...)
}

// Load defines every declaration of files. Nothing is defined unless all of
// them load.
//
// Loading is staged: all declarations are registered first, then type
// parameter bounds are parsed, then supertype clauses, so forward and
// self references resolve.
func (cp *Classpath) Load(files ...*File) error {
	staged := map[atm.DeclName]*atm.Decl{}
	var all []*loading

	for _, f := range files {
		imports := append(slices.Clone(cp.imports), f.Imports...)
		for _, spec := range f.Decls {
			l, err := register(spec, imports)
			if err != nil {
				return err
			}
			if _, dup := staged[l.decl.Name]; dup {
				return errors.Errorf("duplicate declaration %s", l.decl.Name)
			}
			staged[l.decl.Name] = l.decl
			all = append(all, l)
		}
	}

	for _, l := range all {
		if err := l.loadBounds(cp, staged); err != nil {
			return err
		}
	}
	for _, l := range all {
		if err := l.loadClauses(cp, staged); err != nil {
			return err
		}
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, l := range all {
		if _, exists := cp.decls[l.decl.Name]; exists {
			return errors.Errorf("duplicate declaration %s", l.decl.Name)
		}
	}
	for _, l := range all {
		if err := cp.defineLocked(l.decl, l.tree); err != nil {
			return err
		}
	}
	return nil
}

type loading struct {
	spec    DeclSpec
	imports []string
	decl    *atm.Decl
	bounds  []string
	tree    *atm.ClassTree
}

func register(spec DeclSpec, imports []string) (*loading, error) {
	if spec.Name == "" {
		return nil, errors.New("declaration without a name")
	}
	kind, err := atm.ParseDeclKind(spec.Kind)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", spec.Name)
	}

	decl := &atm.Decl{
		Name:        atm.DeclName(spec.Name),
		Kind:        kind,
		Annotations: qual.Parse(spec.Annotations...),
	}
	l := &loading{spec: spec, imports: imports, decl: decl}
	for _, src := range spec.Params {
		pd, err := typeexpr.ParseParamDecl(src)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: type parameter %q", spec.Name, src)
		}
		if _, dup := decl.Param(pd.Name); dup {
			return nil, errors.Errorf("%s: duplicate type parameter %s", spec.Name, pd.Name)
		}
		p := atm.NewTypeParam(decl.Name, pd.Name)
		p.Annotations = pd.Annotations
		decl.TypeParams = append(decl.TypeParams, p)
		l.bounds = append(l.bounds, pd.Bound)
	}
	return l, nil
}

// loadBounds parses each parameter's bound. Variables met inside bounds are
// created unbounded and pointed at their parameter's bound afterwards, which
// closes cycles such as E extends Enum<E>.
func (l *loading) loadBounds(cp *Classpath, staged map[atm.DeclName]*atm.Decl) error {
	var pending []*atm.TypeVar
	scope := l.scope(cp, staged, func(p *atm.TypeParam) *atm.TypeVar {
		tv := atm.NewTypeVar(p)
		pending = append(pending, tv)
		return tv
	})

	for i, p := range l.decl.TypeParams {
		var bound atm.Type = atm.NewDeclared(atm.ObjectName)
		if src := l.bounds[i]; src != "" {
			parsed, err := typeexpr.Parse(src, scope)
			if err != nil {
				return errors.Wrapf(err, "%s: bound of %s", l.decl.Name, p.Name)
			}
			if !atm.IsReference(parsed) {
				return errors.Errorf("%s: bound of %s must be a reference type, got %s", l.decl.Name, p.Name, parsed)
			}
			bound = parsed
		}
		p.Var.Upper = bound
	}

	for _, tv := range pending {
		tv.Upper = tv.Param.Var.Upper
	}
	return nil
}

func (l *loading) loadClauses(cp *Classpath, staged map[atm.DeclName]*atm.Decl) error {
	decl := l.decl
	scope := l.scope(cp, staged, (*atm.TypeParam).Use)

	var extends *atm.Declared
	if l.spec.Extends != "" {
		switch decl.Kind {
		case atm.InterfaceKind, atm.AnnotationKind:
			return errors.Errorf("%s: %s cannot have an extends clause; list super-interfaces under implements", decl.Name, decl.Kind)
		case atm.EnumKind:
			return errors.Errorf("%s: enum cannot have an extends clause", decl.Name)
		}
		var err error
		extends, err = typeexpr.ParseDeclared(l.spec.Extends, scope)
		if err != nil {
			return errors.Wrapf(err, "%s: extends", decl.Name)
		}
	}

	var implements []*atm.Declared
	for _, src := range l.spec.Implements {
		impl, err := typeexpr.ParseDeclared(src, scope)
		if err != nil {
			return errors.Wrapf(err, "%s: implements", decl.Name)
		}
		implements = append(implements, impl)
	}

	switch {
	case decl.IsEnum():
		decl.Superclass = atm.NewDeclared(atm.EnumName, atm.NewDeclared(decl.Name))
	case extends != nil:
		decl.Superclass = atm.DeepCopyDeclared(extends)
	}
	for _, impl := range implements {
		decl.Interfaces = append(decl.Interfaces, atm.DeepCopyDeclared(impl))
	}

	if l.spec.Source {
		l.tree = &atm.ClassTree{Extends: extends, Implements: implements}
		return nil
	}

	if decl.Superclass != nil && extends != nil {
		stripQualifiers(decl.Superclass, atm.SuperclassClause, nil, &decl.SuperAnnotations)
	}
	for i, iface := range decl.Interfaces {
		stripQualifiers(iface, i, nil, &decl.SuperAnnotations)
	}
	return nil
}

func (l *loading) scope(cp *Classpath, staged map[atm.DeclName]*atm.Decl, use func(*atm.TypeParam) *atm.TypeVar) *declScope {
	imports := l.imports
	if pkg := l.decl.Name.Package(); pkg != "" {
		imports = append([]string{pkg}, imports...)
	}
	return &declScope{cp: cp, staged: staged, imports: imports, decl: l.decl, use: use}
}

// stripQualifiers moves the qualifiers written on a clause into
// SuperAnnotations, the way compiled declarations store them. Wildcard and
// type variable bounds are not addressed.
func stripQualifiers(t atm.Type, clause int, path []int, out *[]atm.SuperAnnotation) {
	if qs := t.Qualifiers(); !qs.IsEmpty() {
		*out = append(*out, atm.SuperAnnotation{
			Clause:     clause,
			Path:       slices.Clone(path),
			Qualifiers: qs.Clone(),
		})
		t.ReplaceQualifiers(qual.NewSet())
	}
	switch typ := t.(type) {
	case *atm.Declared:
		for i, arg := range typ.Args {
			stripQualifiers(arg, clause, append(path, i), out)
		}
	case *atm.Array:
		stripQualifiers(typ.Component, clause, append(path, 0), out)
	}
}

// declScope resolves names inside one declaration: its own type parameters,
// its package, the file's imports and declarations staged in the same load.
type declScope struct {
	cp      *Classpath
	staged  map[atm.DeclName]*atm.Decl
	imports []string
	decl    *atm.Decl
	use     func(*atm.TypeParam) *atm.TypeVar
}

func (s *declScope) ResolveDeclaration(name string) (*atm.Decl, error) {
	return s.cp.resolve(name, s.imports, s.staged)
}

func (s *declScope) TypeVariable(name string) (*atm.TypeVar, bool) {
	p, ok := s.decl.Param(name)
	if !ok {
		return nil, false
	}
	return s.use(p), true
}
