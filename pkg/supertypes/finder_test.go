package supertypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/classpath"
	"github.com/vito/supertypes/pkg/defaults"
	"github.com/vito/supertypes/pkg/qual"
)

const hierarchy = `
imports = ["java.util"]

[[decl]]
name = "demo.D"
params = ["T"]

[[decl]]
name = "demo.C"
params = ["T"]
extends = "D<T>"
source = true

[[decl]]
name = "demo.Compiled"
params = ["T"]
extends = "D<T>"

[[decl]]
name = "demo.Marked"
params = ["T"]
extends = "D<@Local T>"
source = true

[[decl]]
name = "demo.Nested"
params = ["T"]
extends = "D<List<T>>"
implements = ["Comparable<T[]>"]

[[decl]]
name = "demo.Annotated"
extends = "@A D<@B String>"
implements = ["@C Comparable<Annotated>"]

[[decl]]
name = "demo.Color"
kind = "enum"
source = true

[[decl]]
name = "demo.Shade"
kind = "enum"

[[decl]]
name = "demo.Tainted"
annotations = ["Tainted"]

[[decl]]
name = "demo.Sink"
kind = "interface"
params = ["T extends Tainted"]

[[decl]]
name = "demo.Pipe"
params = ["T extends Tainted"]
implements = ["Sink<T>"]
`

func load(t *testing.T) *classpath.Classpath {
	t.Helper()
	cp, err := classpath.Bootstrap()
	require.NoError(t, err)
	f, err := classpath.DecodeFile("demo.toml", []byte(hierarchy))
	require.NoError(t, err)
	require.NoError(t, cp.Load(f))
	return cp
}

func parse(t *testing.T, cp *classpath.Classpath, src string) atm.Type {
	t.Helper()
	typ, err := cp.Parse(src)
	require.NoError(t, err)
	return typ
}

func strs(types []atm.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

// recorder counts post hook invocations.
type recorder struct {
	defaults.Policy
	subjects []string
}

func (r *recorder) PostDirectSupertypes(subject atm.Type, supers []atm.Type) {
	r.subjects = append(r.subjects, subject.String())
	r.Policy.PostDirectSupertypes(subject, supers)
}

func TestBoxingAndWidening(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	for _, example := range []struct {
		kind  atm.Kind
		boxed string
		wider string
	}{
		{atm.Boolean, "java.lang.Boolean", ""},
		{atm.Byte, "java.lang.Byte", "short"},
		{atm.Short, "java.lang.Short", "int"},
		{atm.Char, "java.lang.Character", "int"},
		{atm.Int, "java.lang.Integer", "long"},
		{atm.Long, "java.lang.Long", "float"},
		{atm.Float, "java.lang.Float", "double"},
		{atm.Double, "java.lang.Double", ""},
	} {
		t.Run(example.kind.String(), func(t *testing.T) {
			subject := atm.NewPrimitive(example.kind, "A", "B")

			supers, err := finder.DirectSupertypes(subject)
			require.NoError(t, err)

			var declared []*atm.Declared
			var prims []*atm.Primitive
			for _, st := range supers {
				require.True(t, st.Qualifiers().Equal(subject.Qualifiers()), st.String())
				switch typ := st.(type) {
				case *atm.Declared:
					declared = append(declared, typ)
				case *atm.Primitive:
					prims = append(prims, typ)
				}
			}

			require.Len(t, declared, 1)
			assert.Equal(t, atm.DeclName(example.boxed), declared[0].Name)

			if example.wider == "" {
				assert.Empty(t, prims)
			} else {
				require.Len(t, prims, 1)
				assert.Equal(t, example.wider, prims[0].Kind.String())
			}

			// the input keeps its own set
			supers[0].Qualifiers().Add("Changed")
			assert.False(t, subject.Qualifiers().Contains("Changed"))
		})
	}
}

func TestUnknownPrimitiveAborts(t *testing.T) {
	finder := New(load(t), defaults.Policy{})

	err := Guard(func() error {
		_, err := finder.DirectSupertypes(atm.NewPrimitive(atm.Kind(42)))
		return err
	})
	var internal *InternalError
	require.ErrorAs(t, err, &internal)
	assert.Contains(t, err.Error(), "internal error: unexpected primitive kind Kind(42)")
}

func TestArraySupertypes(t *testing.T) {
	cp := load(t)
	rec := &recorder{}
	finder := New(cp, rec)

	supers, err := finder.DirectSupertypes(parse(t, cp, "@X int @A []"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@A java.lang.Object",
		"@A java.lang.Cloneable",
		"@A java.io.Serializable",
	}, strs(supers))

	rec.subjects = nil
	supers, err = finder.DirectSupertypes(parse(t, cp, "java.lang.String @A []"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@A java.lang.Object",
		"@A java.lang.Cloneable",
		"@A java.io.Serializable",
		"java.lang.Object @A []",
		"java.io.Serializable @A []",
		"java.lang.Comparable<java.lang.String> @A []",
		"java.lang.CharSequence @A []",
	}, strs(supers))

	// the component's supertypes go through the full entry point
	assert.Equal(t, []string{"java.lang.String", "java.lang.String @A []"}, rec.subjects)
}

func TestTypeVariableAndWildcardBoundsAreCopied(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	enum, err := cp.LookupDeclaration(atm.EnumName)
	require.NoError(t, err)
	tv := enum.TypeParams[0].Use()

	comparable := parse(t, cp, "java.lang.Comparable<? extends @A java.lang.Number>").(*atm.Declared)
	wc := comparable.Args[0].(*atm.Wildcard)

	for _, example := range []struct {
		name  string
		typ   atm.Type
		bound atm.Type
		want  string
	}{
		{"type variable", tv, tv.Upper, "java.lang.Enum<E>"},
		{"wildcard", wc, wc.Extends, "@A java.lang.Number"},
	} {
		t.Run(example.name, func(t *testing.T) {
			supers, err := finder.DirectSupertypes(example.typ)
			require.NoError(t, err)
			require.Len(t, supers, 1)
			assert.Equal(t, example.want, supers[0].String())
			require.NotSame(t, example.bound, supers[0])
			require.True(t, atm.SameType(example.bound, supers[0]))

			supers[0].Qualifiers().Add("Changed")
			assert.Equal(t, example.want, example.bound.String())
		})
	}
}

func TestNoSupertypes(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	for _, typ := range []atm.Type{&atm.Null{}, &atm.NoType{}, parse(t, cp, "java.lang.Object")} {
		supers, err := finder.DirectSupertypes(typ)
		require.NoError(t, err)
		assert.Empty(t, supers, typ.String())
	}
}

func TestDeclaredSupertypes(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	for _, example := range []struct {
		subject string
		want    []string
	}{
		{"java.lang.Integer", []string{"java.lang.Number", "java.lang.Comparable<java.lang.Integer>"}},
		{"java.lang.Comparable<java.lang.String>", []string{"java.lang.Object"}},
		{"java.util.ArrayList<java.lang.String>", []string{
			"java.util.AbstractList<java.lang.String>",
			"java.util.List<java.lang.String>",
			"java.util.RandomAccess",
			"java.lang.Cloneable",
			"java.io.Serializable",
		}},
		{"demo.C<java.lang.String>", []string{"demo.D<java.lang.String>"}},
		{"demo.Nested<java.lang.Integer>", []string{
			"demo.D<java.util.List<java.lang.Integer>>",
			"java.lang.Comparable<java.lang.Integer[]>",
		}},
		{"demo.Annotated", []string{
			"@A demo.D<@B java.lang.String>",
			"@C java.lang.Comparable<demo.Annotated>",
		}},
		{"@Q demo.Color", []string{"java.lang.Object", "java.lang.Enum<@Q demo.Color>"}},
		{"@Q demo.Shade", []string{"java.lang.Enum<@Q demo.Shade>"}},
	} {
		t.Run(example.subject, func(t *testing.T) {
			supers, err := finder.DirectSupertypes(parse(t, cp, example.subject))
			require.NoError(t, err)
			assert.Equal(t, example.want, strs(supers))
		})
	}
}

func TestSubstitutionAliasesSubjectArguments(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	for _, name := range []string{"demo.C", "demo.Compiled"} {
		t.Run(name, func(t *testing.T) {
			subject := parse(t, cp, name+"<java.lang.String>").(*atm.Declared)
			before := atm.DeepCopyDeclared(subject)

			supers, err := finder.DirectDeclaredSupertypes(subject)
			require.NoError(t, err)
			require.Len(t, supers, 1)

			d := supers[0]
			require.Same(t, subject.Args[0], d.Args[0])

			subject.Args[0].Qualifiers().Add("Changed")
			assert.Equal(t, "demo.D<@Changed java.lang.String>", d.String())
			assert.Equal(t, name+"<java.lang.String>", before.String())
		})
	}
}

func TestSubstitutionNestedAndArrayComponents(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	subject := parse(t, cp, "demo.Nested<java.lang.Integer>").(*atm.Declared)
	supers, err := finder.DirectDeclaredSupertypes(subject)
	require.NoError(t, err)
	require.Len(t, supers, 2)

	list := supers[0].Args[0].(*atm.Declared)
	require.Same(t, subject.Args[0], list.Args[0])

	arr := supers[1].Args[0].(*atm.Array)
	require.Same(t, subject.Args[0], arr.Component)
}

func TestSubstitutionClauseQualifiersWin(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	subject := parse(t, cp, "demo.Marked<@Mine java.lang.String>").(*atm.Declared)
	supers, err := finder.DirectSupertypes(subject)
	require.NoError(t, err)

	assert.Equal(t, []string{"demo.D<@Local java.lang.String>"}, strs(supers))
	assert.Equal(t, "demo.Marked<@Local java.lang.String>", subject.String())
}

func TestRawSubjects(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{Implicit: qual.NewSet("NonNull")})

	t.Run("compiled", func(t *testing.T) {
		subject := parse(t, cp, "java.util.ArrayList").(*atm.Declared)
		require.True(t, subject.Raw)

		supers, err := finder.DirectDeclaredSupertypes(subject)
		require.NoError(t, err)
		require.Len(t, supers, 5)
		for _, st := range supers {
			assert.True(t, st.Raw, st.String())
		}

		list := supers[1]
		assert.Equal(t, atm.DeclName("java.util.List"), list.Name)
		require.Len(t, list.Args, 1)
		assert.Equal(t, "@NonNull java.lang.Object", list.Args[0].String())

		// only interfaces are erased
		assert.Equal(t, "E", supers[0].Args[0].String())
	})

	t.Run("element annotations", func(t *testing.T) {
		supers, err := finder.DirectDeclaredSupertypes(parse(t, cp, "demo.Pipe").(*atm.Declared))
		require.NoError(t, err)
		require.Len(t, supers, 2)
		assert.Equal(t, "@Tainted demo.Tainted", supers[1].Args[0].String())
	})

	t.Run("source", func(t *testing.T) {
		supers, err := finder.DirectDeclaredSupertypes(parse(t, cp, "demo.C").(*atm.Declared))
		require.NoError(t, err)
		require.Len(t, supers, 1)
		assert.True(t, supers[0].Raw)
	})
}

func TestArityMismatchAborts(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	bad := atm.NewDeclared("demo.D")
	assert.Panics(t, func() {
		_, _ = finder.DirectSupertypes(bad)
	})

	err := Guard(func() error {
		_, err := finder.DirectSupertypes(bad)
		return err
	})
	var internal *InternalError
	require.ErrorAs(t, err, &internal)
	assert.Contains(t, err.Error(), "demo.D has 0 type arguments but demo.D declares 1 type parameters")
}

func TestGuardPassesOtherPanics(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		_ = Guard(func() error { panic("boom") })
	})
}

func TestLookupFailuresPropagate(t *testing.T) {
	cp := load(t)
	finder := New(cp, defaults.Policy{})

	_, err := finder.DirectSupertypes(atm.NewDeclared("demo.Missing"))
	require.ErrorIs(t, err, classpath.ErrNotFound)
	assert.Contains(t, err.Error(), "direct supertypes of demo.Missing")

	empty := New(classpath.New(), defaults.Policy{})
	_, err = empty.DirectSupertypes(atm.NewPrimitive(atm.Int))
	require.ErrorIs(t, err, classpath.ErrNotFound)

	_, err = finder.DirectSupertypes(atm.NewArray(atm.NewDeclared("demo.Missing")))
	require.ErrorIs(t, err, classpath.ErrNotFound)
}

func TestPostHookRunsOncePerCall(t *testing.T) {
	cp := load(t)
	rec := &recorder{Policy: defaults.Policy{Top: qual.NewSet("Nullable")}}
	finder := New(cp, rec)

	supers, err := finder.DirectSupertypes(parse(t, cp, "@NonNull java.lang.Integer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"@NonNull java.lang.Integer"}, rec.subjects)
	assert.Equal(t, []string{
		"@Nullable java.lang.Number",
		"@Nullable java.lang.Comparable<@Nullable java.lang.Integer>",
	}, strs(supers))

	rec.subjects = nil
	_, err = finder.DirectDeclaredSupertypes(parse(t, cp, "java.lang.String").(*atm.Declared))
	require.NoError(t, err)
	assert.Equal(t, []string{"java.lang.String"}, rec.subjects)
}
