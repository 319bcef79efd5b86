package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc, err := ParseString(`{"schoolId": 255901001, "nameOfInstitution": "Grand Bend", "active": true, "closed": null, "grades": [{"g": "9"}, {"g": "10"}]}`)
	require.NoError(t, err)
	require.Equal(t, Object, doc.Kind())
	require.Equal(t, []string{"schoolId", "nameOfInstitution", "active", "closed", "grades"}, doc.Keys())

	id, ok := doc.Field("schoolId")
	require.True(t, ok)
	require.Equal(t, Number, id.Kind())
	require.Equal(t, "255901001", id.Str())

	active, _ := doc.Field("active")
	require.True(t, active.Bool())

	closed, _ := doc.Field("closed")
	require.Equal(t, Null, closed.Kind())

	grades, _ := doc.Field("grades")
	require.Equal(t, 2, grades.Len())
	second, ok := grades.Index(1)
	require.True(t, ok)
	g, _ := second.Field("g")
	require.Equal(t, "10", g.Str())
}

func TestParseInvalid(t *testing.T) {
	_, err := ParseString(`{"a": }`)
	require.ErrorIs(t, err, ErrInvalidJSON)

	_, err = Parse([]byte(`[1, 2`))
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "string", input: `"abc"`, expected: "abc", ok: true},
		{name: "integer", input: `255901001`, expected: "255901001", ok: true},
		{name: "negative_zero", input: `-0`, expected: "0", ok: true},
		{name: "integral_float", input: `2.0`, expected: "2", ok: true},
		{name: "exponent", input: `1e3`, expected: "1000", ok: true},
		{name: "fraction", input: `1.50`, expected: "1.5", ok: true},
		{name: "big_integer", input: `123456789012345678901234567890`, expected: "123456789012345678901234567890", ok: true},
		{name: "true", input: `true`, expected: "true", ok: true},
		{name: "false", input: `false`, expected: "false", ok: true},
		{name: "null", input: `null`, ok: false},
		{name: "object", input: `{}`, ok: false},
		{name: "array", input: `[1]`, ok: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			text, ok := MustParse(test.input).Text()
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, text)
		})
	}
}

func TestMarshalPreservesKeyOrder(t *testing.T) {
	input := `{"z":1,"a":{"y":"x\"y","b":[true,false,null]},"m":"tab\tnew\nline"}`
	doc := MustParse(input)

	out, err := doc.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, input, string(out))
	require.Equal(t, input, doc.String())
}

func TestMarshalControlCharacters(t *testing.T) {
	doc := NewString("a\u0001b")
	require.Equal(t, `"a\u0001b"`, doc.String())
}

func TestUnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, v.UnmarshalJSON([]byte(`{"a":[1,2]}`)))
	require.Equal(t, `{"a":[1,2]}`, v.String())
}

func TestSetAndDelete(t *testing.T) {
	doc := NewObject()
	doc.Set("b", NewInt(1)).Set("a", NewString("x"))
	require.Equal(t, `{"b":1,"a":"x"}`, doc.String())

	doc.Set("b", NewBool(true))
	require.Equal(t, `{"b":true,"a":"x"}`, doc.String())

	doc.Delete("b")
	require.Equal(t, `{"a":"x"}`, doc.String())

	doc.Delete("missing")
	require.Equal(t, 1, doc.Len())
}

func TestSetIndex(t *testing.T) {
	arr := NewArray(NewInt(1), NewInt(2))
	require.NoError(t, arr.SetIndex(1, NewString("two")))
	require.Equal(t, `[1,"two"]`, arr.String())

	require.Error(t, arr.SetIndex(2, NewNull()))
	require.Error(t, NewObject().SetIndex(0, NewNull()))
}

func TestCloneIsDeep(t *testing.T) {
	doc := MustParse(`{"a":{"b":[1,2]}}`)
	clone := doc.Clone()
	require.True(t, doc.Equal(clone))

	a, _ := clone.Field("a")
	b, _ := a.Field("b")
	require.NoError(t, b.SetIndex(0, NewInt(42)))

	require.False(t, doc.Equal(clone))
	require.Equal(t, `{"a":{"b":[1,2]}}`, doc.String())
}

func TestEqual(t *testing.T) {
	require.True(t, MustParse(`{"a":1,"b":2}`).Equal(MustParse(`{"b":2.0,"a":1}`)))
	require.False(t, MustParse(`{"a":1}`).Equal(MustParse(`{"a":"1"}`)))
	require.False(t, MustParse(`[1,2]`).Equal(MustParse(`[2,1]`)))
	require.True(t, MustParse(`null`).Equal(NewNull()))
}

func TestNewNumber(t *testing.T) {
	n, err := NewNumber("12.5")
	require.NoError(t, err)
	require.Equal(t, "12.5", n.Str())

	_, err = NewNumber("12a")
	require.Error(t, err)
}

func TestInterface(t *testing.T) {
	doc := MustParse(`{"i":1,"f":1.5,"s":"x","b":true,"n":null,"a":[1]}`)
	require.Equal(t, map[string]any{
		"i": int64(1),
		"f": 1.5,
		"s": "x",
		"b": true,
		"n": nil,
		"a": []any{int64(1)},
	}, doc.Interface())
}
