package typeexpr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/qual"
)

var errMissing = errors.New("no such declaration")

type fakeScope struct {
	decls  map[string]*atm.Decl
	params map[string]*atm.TypeParam
}

func newFakeScope() *fakeScope {
	s := &fakeScope{
		decls:  map[string]*atm.Decl{},
		params: map[string]*atm.TypeParam{},
	}
	s.declare("java.lang.Object")
	s.declare("java.lang.String")
	s.declare("java.lang.Integer")
	s.declare("java.util.List", "E")
	s.declare("java.util.Map", "K", "V")
	s.params["T"] = atm.NewTypeParam("demo.Box", "T")
	return s
}

func (s *fakeScope) declare(name string, params ...string) {
	d := &atm.Decl{Name: atm.DeclName(name)}
	for _, p := range params {
		d.TypeParams = append(d.TypeParams, atm.NewTypeParam(d.Name, p))
	}
	s.decls[name] = d
	s.decls[d.Name.Simple()] = d
}

func (s *fakeScope) ResolveDeclaration(name string) (*atm.Decl, error) {
	d, ok := s.decls[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errMissing)
	}
	return d, nil
}

func (s *fakeScope) TypeVariable(name string) (*atm.TypeVar, bool) {
	p, ok := s.params[name]
	if !ok {
		return nil, false
	}
	return p.Use(), true
}

func TestParseRoundTrip(t *testing.T) {
	scope := newFakeScope()

	for _, src := range []string{
		"int",
		"@NonNull boolean",
		"java.lang.String",
		"@A java.util.List<@B java.lang.String>",
		"java.util.Map<java.lang.String, java.util.List<T>>",
		"java.util.List",
		"java.util.List<?>",
		"java.util.List<? extends @A java.lang.Integer>",
		"java.util.List<? super java.lang.Integer>",
		"int[]",
		"java.lang.String @A []",
		"java.lang.String @A [] @B []",
		"@X T",
	} {
		t.Run(src, func(t *testing.T) {
			typ, err := Parse(src, scope)
			require.NoError(t, err)
			require.Equal(t, src, typ.String())

			again, err := Parse(typ.String(), scope)
			require.NoError(t, err)
			require.True(t, atm.SameType(typ, again))
		})
	}
}

func TestParseSimpleNames(t *testing.T) {
	typ, err := Parse("List<@Nullable String>", newFakeScope())
	require.NoError(t, err)
	assert.Equal(t, "java.util.List<@Nullable java.lang.String>", typ.String())
}

func TestParseRawAndArity(t *testing.T) {
	scope := newFakeScope()

	raw, err := ParseDeclared("List", scope)
	require.NoError(t, err)
	assert.True(t, raw.Raw)
	assert.Empty(t, raw.Args)

	_, err = Parse("Map<String>", scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "java.util.Map expects 2 type arguments, got 1")

	_, err = Parse("String<Integer>", scope)
	require.Error(t, err)
}

func TestParseQualifierPlacement(t *testing.T) {
	typ, err := Parse("@A String @B []", newFakeScope())
	require.NoError(t, err)

	arr := typ.(*atm.Array)
	assert.True(t, arr.Qualifiers().Equal(qual.NewSet("B")))
	assert.True(t, arr.Component.Qualifiers().Equal(qual.NewSet("A")))
}

func TestParseTypeVariableIsFreshUse(t *testing.T) {
	scope := newFakeScope()

	a, err := Parse("T", scope)
	require.NoError(t, err)
	b, err := Parse("T", scope)
	require.NoError(t, err)

	require.NotSame(t, a, b)
	require.Same(t, a.(*atm.TypeVar).Param, b.(*atm.TypeVar).Param)
}

func TestParseErrors(t *testing.T) {
	scope := newFakeScope()

	for _, example := range []struct {
		src string
		msg string
	}{
		{"", "1:1: expected type, found end of input"},
		{"List<String", `expected ">", found end of input`},
		{"String @A", "expected '[' after @A"},
		{"String extra", `unexpected "extra"`},
		{"? sideways String", `expected 'extends' or 'super', found "sideways"`},
		{"Nope", "no such declaration"},
	} {
		t.Run(example.src, func(t *testing.T) {
			_, err := Parse(example.src, scope)
			require.Error(t, err)
			assert.Contains(t, err.Error(), example.msg)

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
		})
	}

	_, err := Parse("Nope", scope)
	require.ErrorIs(t, err, errMissing)
}

func TestParseDeclaredRejectsPrimitive(t *testing.T) {
	_, err := ParseDeclared("int", newFakeScope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int is not a class or interface type")
}

func TestParseParamDecl(t *testing.T) {
	decl, err := ParseParamDecl("@A T extends Comparable<T>")
	require.NoError(t, err)
	assert.Equal(t, "T", decl.Name)
	assert.Equal(t, "Comparable<T>", decl.Bound)
	assert.True(t, decl.Annotations.Equal(qual.NewSet("A")))

	decl, err = ParseParamDecl("K")
	require.NoError(t, err)
	assert.Equal(t, "K", decl.Name)
	assert.Empty(t, decl.Bound)

	_, err = ParseParamDecl("K super V")
	require.Error(t, err)

	_, err = ParseParamDecl("K extends")
	require.Error(t, err)
}
