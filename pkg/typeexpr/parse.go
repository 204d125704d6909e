// Package typeexpr parses the textual type syntax shared by hierarchy
// files, the CLI and the RPC service:
//
//	type  = annos base dims
//	annos = { "@" ident }
//	base  = primitive | "?" [ ("extends" | "super") type ] | name [ args ]
//	name  = ident { "." ident }
//	args  = "<" type { "," type } ">"
//	dims  = { annos "[" "]" }
//
// Annotations written before "[]" qualify that array level, so
// `String @A []` is an @A-qualified array of String. atm.Type.String prints
// this syntax, so printed types parse back to equal types.
package typeexpr

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/qual"
)

// Scope resolves the names a type expression refers to.
type Scope interface {
	// ResolveDeclaration resolves a simple or qualified class name.
	ResolveDeclaration(name string) (*atm.Decl, error)
	// TypeVariable returns a new use of the type parameter called name, if
	// one is in scope.
	TypeVariable(name string) (*atm.TypeVar, bool)
}

// SyntaxError reports a malformed or unresolvable type expression.
type SyntaxError struct {
	Pos scanner.Position
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parse parses a single type expression.
func Parse(src string, scope Scope) (t atm.Type, err error) {
	p := newParser(src, scope)
	defer p.recover(&err)

	p.next()
	t = p.parseType()
	p.expectEOF()
	return t, nil
}

// ParseDeclared parses a type expression that must denote a class,
// interface or enum type.
func ParseDeclared(src string, scope Scope) (*atm.Declared, error) {
	t, err := Parse(src, scope)
	if err != nil {
		return nil, err
	}
	d, ok := t.(*atm.Declared)
	if !ok {
		return nil, &SyntaxError{
			Pos: scanner.Position{Line: 1, Column: 1},
			Msg: fmt.Sprintf("%s is not a class or interface type", t),
		}
	}
	return d, nil
}

// ParamDecl is a type-parameter declaration such as
// `@A T extends Comparable<T>`. The bound is kept as source so that it can be
// parsed once every parameter of the declaration is in scope.
type ParamDecl struct {
	Name        string
	Annotations qual.Set
	Bound       string
}

// ParseParamDecl splits a type-parameter declaration.
func ParseParamDecl(src string) (decl ParamDecl, err error) {
	p := newParser(src, nil)
	defer p.recover(&err)

	p.next()
	decl.Annotations = p.parseAnnos()
	decl.Name = p.expectIdent()
	if p.tok == scanner.EOF {
		return decl, nil
	}
	if p.tok != scanner.Ident || p.s.TokenText() != "extends" {
		p.failf("expected 'extends', found %s", p.describe())
	}
	decl.Bound = strings.TrimSpace(src[p.s.Position.Offset+len("extends"):])
	if decl.Bound == "" {
		p.failf("missing bound after 'extends'")
	}
	return decl, nil
}

type bailout struct {
	err *SyntaxError
}

type parser struct {
	s     scanner.Scanner
	tok   rune
	scope Scope
}

func newParser(src string, scope Scope) *parser {
	p := &parser{scope: scope}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.failf("%s", msg)
	}
	return p
}

func (p *parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) pos() scanner.Position {
	pos := p.s.Position
	if !pos.IsValid() {
		pos = p.s.Pos()
	}
	return pos
}

func (p *parser) failf(format string, args ...any) {
	panic(bailout{&SyntaxError{Pos: p.pos(), Msg: fmt.Sprintf(format, args...)}})
}

func (p *parser) fail(err error) {
	panic(bailout{&SyntaxError{Pos: p.pos(), Msg: err.Error(), Err: err}})
}

func (p *parser) describe() string {
	switch p.tok {
	case scanner.EOF:
		return "end of input"
	case scanner.Ident:
		return fmt.Sprintf("%q", p.s.TokenText())
	default:
		return fmt.Sprintf("%q", string(p.tok))
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.failf("expected %q, found %s", string(tok), p.describe())
	}
	p.next()
}

func (p *parser) expectIdent() string {
	if p.tok != scanner.Ident {
		p.failf("expected identifier, found %s", p.describe())
	}
	text := p.s.TokenText()
	p.next()
	return text
}

func (p *parser) expectEOF() {
	if p.tok != scanner.EOF {
		p.failf("unexpected %s", p.describe())
	}
}

func (p *parser) parseAnnos() qual.Set {
	quals := qual.NewSet()
	for p.tok == '@' {
		p.next()
		quals.Add(qual.Qualifier(p.expectIdent()))
	}
	return quals
}

func (p *parser) parseType() atm.Type {
	quals := p.parseAnnos()

	var t atm.Type
	switch p.tok {
	case '?':
		t = p.parseWildcard()
	case scanner.Ident:
		t = p.parseNamed()
	default:
		p.failf("expected type, found %s", p.describe())
	}
	t.AddQualifiers(quals)

	for {
		dimQuals := p.parseAnnos()
		if p.tok != '[' {
			if !dimQuals.IsEmpty() {
				p.failf("expected '[' after %s", dimQuals)
			}
			return t
		}
		p.next()
		p.expect(']')
		arr := atm.NewArray(t)
		arr.AddQualifiers(dimQuals)
		t = arr
	}
}

func (p *parser) parseWildcard() atm.Type {
	p.next()
	if p.tok != scanner.Ident {
		return atm.NewWildcard(atm.NewDeclared(atm.ObjectName), nil)
	}
	switch p.s.TokenText() {
	case "extends":
		p.next()
		return atm.NewWildcard(p.parseType(), nil)
	case "super":
		p.next()
		return atm.NewWildcard(atm.NewDeclared(atm.ObjectName), p.parseType())
	default:
		p.failf("expected 'extends' or 'super', found %s", p.describe())
		return nil
	}
}

func (p *parser) parseNamed() atm.Type {
	name := p.expectIdent()
	for p.tok == '.' {
		p.next()
		name += "." + p.expectIdent()
	}

	if kind, ok := atm.ParseKind(name); ok {
		return atm.NewPrimitive(kind)
	}

	if !strings.Contains(name, ".") {
		if tv, ok := p.scope.TypeVariable(name); ok {
			return tv
		}
	}

	decl, err := p.scope.ResolveDeclaration(name)
	if err != nil {
		p.fail(err)
	}

	var args []atm.Type
	if p.tok == '<' {
		p.next()
		args = append(args, p.parseType())
		for p.tok == ',' {
			p.next()
			args = append(args, p.parseType())
		}
		p.expect('>')
	}

	d := atm.NewDeclared(decl.Name, args...)
	switch {
	case len(args) == 0 && len(decl.TypeParams) > 0:
		d.SetRaw()
	case len(args) != len(decl.TypeParams):
		p.failf("%s expects %d type arguments, got %d", decl.Name, len(decl.TypeParams), len(args))
	}
	return d
}
