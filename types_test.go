package ritual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesIntrinsics(t *testing.T) {
	types := NewTypes()
	for _, name := range []string{"string", "rune", "bool", "int", "location"} {
		id, ok := types.Intrinsic(name)
		require.True(t, ok, name)
		assert.Equal(t, name, types.Name(id))
		assert.Equal(t, KindIntrinsic, types.Kind(id))
	}
	_, ok := types.Intrinsic("void")
	assert.False(t, ok)
	assert.Equal(t, "void", types.Name(types.Void))
}

func TestTypesUnions(t *testing.T) {
	types := NewTypes()
	a := types.NewStruct("A")
	b := types.NewStruct("B")
	c := types.NewStruct("C")
	u := types.NewUnion("U")
	outer := types.NewUnion("Outer")
	types.AddMember(u, a)
	types.AddMember(u, b)
	types.AddMember(outer, u)
	types.AddMember(outer, c)

	t.Run("can hold", func(t *testing.T) {
		assert.True(t, types.CanHold(u, a))
		assert.True(t, types.CanHold(outer, a), "membership is transitive")
		assert.False(t, types.CanHold(a, u))
		assert.False(t, types.CanHold(u, c))
		assert.True(t, types.CanHold(a, types.Poison))
		assert.True(t, types.CanHold(types.Poison, types.String))
	})

	t.Run("unify", func(t *testing.T) {
		for _, test := range []struct {
			Name     string
			A, B     TypeID
			Expected TypeID
		}{
			{Name: "same type", A: a, B: a, Expected: a},
			{Name: "member and union", A: a, B: u, Expected: u},
			{Name: "union and member", A: u, B: b, Expected: u},
			{Name: "siblings", A: a, B: b, Expected: u},
		} {
			t.Run(test.Name, func(t *testing.T) {
				got, ok := types.Unify(test.A, test.B)
				require.True(t, ok)
				assert.Equal(t, types.Name(test.Expected), types.Name(got))
			})
		}

		for _, test := range []struct {
			Name string
			A, B TypeID
		}{
			{Name: "struct and intrinsic", A: a, B: types.String},
			{Name: "common union is not a direct one", A: a, B: c},
			{Name: "union and unrelated struct", A: u, B: c},
		} {
			t.Run(test.Name, func(t *testing.T) {
				_, ok := types.Unify(test.A, test.B)
				assert.False(t, ok)
			})
		}
	})

	t.Run("unify needs exactly one common union", func(t *testing.T) {
		types := NewTypes()
		a := types.NewStruct("A")
		b := types.NewStruct("B")
		u := types.NewUnion("U")
		v := types.NewUnion("V")
		types.AddMember(u, a)
		types.AddMember(u, b)

		got, ok := types.Unify(a, b)
		require.True(t, ok)
		assert.Equal(t, u, got)

		types.AddMember(v, a)
		types.AddMember(v, b)
		_, ok = types.Unify(a, b)
		assert.False(t, ok)
	})

	t.Run("cycles terminate", func(t *testing.T) {
		x := types.NewUnion("X")
		y := types.NewUnion("Y")
		types.AddMember(x, y)
		types.AddMember(y, x)
		assert.True(t, types.CanHold(x, y))
		assert.False(t, types.CanHold(x, a))
		_, ok := types.Unify(x, types.Int)
		assert.False(t, ok)
	})

	t.Run("reverse membership", func(t *testing.T) {
		assert.Equal(t, []TypeID{u}, types.Unions(a))
		assert.Equal(t, []TypeID{a, b}, types.Members(u))
	})
}

func TestTypesLists(t *testing.T) {
	types := NewTypes()
	l := types.ListOf(types.Rune)
	assert.Equal(t, l, types.ListOf(types.Rune), "list types are interned")
	assert.Equal(t, types.Rune, types.Elem(l))
	assert.Equal(t, NoType, types.Elem(types.Rune))
	assert.Equal(t, "[][]rune", types.Name(types.ListOf(l)))
	assert.Equal(t, KindList, types.Kind(l))
}

func TestTypesSignatures(t *testing.T) {
	types := NewTypes()
	r := types.NewRule("digits")
	_, _, ok := types.Signature(r)
	assert.False(t, ok)

	types.SetSignature(r, []TypeID{types.Int, types.ListOf(types.String)}, types.String)
	params, ret, ok := types.Signature(r)
	require.True(t, ok)
	assert.Len(t, params, 2)
	assert.Equal(t, types.String, ret)
	assert.True(t, types.IsCallable(r))
	assert.Equal(t, "func digits(int, []string) string", types.Name(r))
	assert.Equal(t, "digits", types.BaseName(r))

	s := types.NewStruct("S")
	types.AddField(s, "name", types.String)
	assert.Equal(t, []Field{{Name: "name", Type: types.String}}, types.Fields(s))
	assert.False(t, types.IsCallable(s))
}
