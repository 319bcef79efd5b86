package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
)

const section = `{
  "sectionIdentifier": "c00v",
  "courseOfferingReference": {"localCourseCode": "ALG-1", "schoolId": 255901001, "sessionName": "2021-2022 Fall Semester"},
  "classPeriods": [
    {"classPeriodReference": {"classPeriodName": "01 - Traditional", "schoolId": 255901001}},
    {"classPeriodReference": {"classPeriodName": "02 - Traditional", "schoolId": 255901001}}
  ]
}`

func TestCompile(t *testing.T) {
	tests := []struct {
		expr     string
		expected string
		err      bool
	}{
		{expr: "$", expected: "$"},
		{expr: "$.schoolId", expected: "$.schoolId"},
		{expr: "$.classPeriods[*].classPeriodReference.schoolId", expected: "$.classPeriods[*].classPeriodReference.schoolId"},
		{expr: "$.classPeriods[1].classPeriodReference", expected: "$.classPeriods[1].classPeriodReference"},
		{expr: "$['odd name'].x", expected: "$['odd name'].x"},
		{expr: "$['plain']", expected: "$.plain"},
		{expr: "schoolId", err: true},
		{expr: "$.", err: true},
		{expr: "$.a[", err: true},
		{expr: "$.a[-1]", err: true},
		{expr: "$.a[x]", err: true},
		{expr: "$.*", err: true},
		{expr: "$a", err: true},
		{expr: "$['a", err: true},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			p, err := Compile(test.expr)
			if test.err {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, p.String())
		})
	}
}

func TestEvaluateResolvesWildcards(t *testing.T) {
	doc := document.MustParse(section)

	matches := MustCompile("$.classPeriods[*].classPeriodReference.classPeriodName").Evaluate(doc)
	require.Len(t, matches, 2)
	require.Equal(t, "$.classPeriods[0].classPeriodReference.classPeriodName", matches[0].Path.String())
	require.Equal(t, "$.classPeriods[1].classPeriodReference.classPeriodName", matches[1].Path.String())
	require.Equal(t, "02 - Traditional", matches[1].Value.Str())

	for _, m := range matches {
		require.True(t, m.Path.IsConcrete())
		require.True(t, MustCompile("$.classPeriods[*].classPeriodReference.classPeriodName").Matches(m.Path))
	}
}

func TestEvaluateMissing(t *testing.T) {
	doc := document.MustParse(section)

	require.Empty(t, MustCompile("$.missing.path").Evaluate(doc))
	require.Empty(t, MustCompile("$.sectionIdentifier.x").Evaluate(doc))
	require.Empty(t, MustCompile("$.classPeriods[5]").Evaluate(doc))
	require.Empty(t, MustCompile("$.courseOfferingReference[*]").Evaluate(doc))
}

func TestEvaluateRoot(t *testing.T) {
	doc := document.MustParse(section)
	matches := MustCompile("$").Evaluate(doc)
	require.Len(t, matches, 1)
	require.Same(t, doc, matches[0].Value)
}

func TestGetAndSet(t *testing.T) {
	doc := document.MustParse(section)
	p := MustCompile("$.classPeriods[1].classPeriodReference.schoolId")

	v, ok := Get(doc, p)
	require.True(t, ok)
	require.Equal(t, "255901001", v.Str())

	require.NoError(t, Set(doc, p, document.NewInt(1)))
	v, _ = Get(doc, p)
	require.Equal(t, "1", v.Str())

	require.NoError(t, Set(doc, MustCompile("$.classPeriods[0]"), document.NewNull()))
	v, _ = Get(doc, MustCompile("$.classPeriods[0]"))
	require.Equal(t, document.Null, v.Kind())

	require.Error(t, Set(doc, MustCompile("$"), document.NewNull()))
	require.Error(t, Set(doc, MustCompile("$.nope.x"), document.NewNull()))
	require.Error(t, Set(doc, MustCompile("$.classPeriods[*]"), document.NewNull()))
	require.Error(t, Set(doc, MustCompile("$.sectionIdentifier.x"), document.NewNull()))

	_, ok = Get(doc, MustCompile("$.classPeriods[*]"))
	require.False(t, ok)
}

func TestCommonPrefix(t *testing.T) {
	a := MustCompile("$.classPeriods[*].classPeriodReference.classPeriodName")
	b := MustCompile("$.classPeriods[*].classPeriodReference.schoolId")
	require.Equal(t, "$.classPeriods[*].classPeriodReference", CommonPrefix(a, b).String())
	require.Equal(t, a.String(), CommonPrefix(a).String())
	require.Equal(t, "$", CommonPrefix(a, MustCompile("$.schoolId")).String())
	require.Equal(t, "$", CommonPrefix().String())
}

func TestParentAndPrefix(t *testing.T) {
	p := MustCompile("$.a[*].b")
	require.Equal(t, "$.a[*]", p.Parent().String())
	require.Equal(t, "$.a", p.Prefix(1).String())
	require.Equal(t, "$", MustCompile("$").Parent().String())

	last, ok := p.Last()
	require.True(t, ok)
	require.Equal(t, Segment{Kind: Field, Name: "b"}, last)
	require.False(t, p.IsConcrete())
}
