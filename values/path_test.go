package values_test

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform/values"
)

func sampleTree() map[string]any {
	return map[string]any{
		"email": "",
		"profile": map[string]any{
			"name": "Ann",
			"tags": []any{"a", "b"},
		},
		"arr": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
		"nothing": nil,
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"email", []string{"email"}},
		{"arr[1].name", []string{"arr", "1", "name"}},
		{"a..b", []string{"a", "b"}},
		{"matrix[0][2]", []string{"matrix", "0", "2"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := values.Split(tc.in)
		if len(tc.want) == 0 {
			assert.Empty(t, got, tc.in)
			continue
		}
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	paths := []string{"email", "profile.name", "profile.tags[1]", "arr[1].name", "arr[0].extra", "nothing"}
	for _, p := range paths {
		tree := sampleTree()
		require.NoError(t, values.Write(p, "v", tree), p)
		got, err := values.Read(p, tree)
		require.NoError(t, err, p)
		assert.Equal(t, "v", got, "path %s in %s", p, spew.Sdump(tree))
	}
}

func TestWrite_AbsentIsNoop(t *testing.T) {
	for _, p := range []string{"email", "profile.name", "arr[1].name", "missing.deep.path", "brand_new"} {
		tree := sampleTree()
		require.NoError(t, values.Write(p, values.Absent, tree))
		assert.Equal(t, sampleTree(), tree, p)
	}
}

func TestWrite_MissingIntermediateFails(t *testing.T) {
	cases := []struct {
		path    string
		segment string
		depth   int
	}{
		{"missing.name", "missing", 0},
		{"profile.missing.name", "missing", 1},
		{"arr[5].name", "5", 1},
		{"nothing.name", "name", 1},
		{"email.name", "name", 1},
		{"profile.tags[9]", "9", 2},
	}
	for _, tc := range cases {
		tree := sampleTree()
		err := values.Write(tc.path, "x", tree)
		require.Error(t, err, tc.path)
		assert.True(t, errors.Is(err, values.ErrPathTraversal), tc.path)
		pe, ok := values.AsPathTraversal(err)
		require.True(t, ok)
		assert.Equal(t, tc.segment, pe.Segment, tc.path)
		assert.Equal(t, tc.depth, pe.Depth, tc.path)
		assert.Equal(t, sampleTree(), tree, "tree must stay untouched for %s", tc.path)
	}
}

func TestWrite_EmptyPath(t *testing.T) {
	err := values.Write("", 1, sampleTree())
	assert.ErrorIs(t, err, values.ErrPathTraversal)
}

func TestWrite_NilValueIsStored(t *testing.T) {
	tree := sampleTree()
	require.NoError(t, values.Write("profile.name", nil, tree))
	got, err := values.Read("profile.name", tree)
	require.NoError(t, err)
	assert.Nil(t, got)
}

type address struct {
	City string `json:"city"`
	Zip  string `form:"postal_code"`
}

type person struct {
	Name    string            `json:"name"`
	Address *address          `json:"address"`
	Labels  map[string]string `json:"labels"`
	Scores  []int             `json:"scores"`
}

func TestWrite_ReflectContainers(t *testing.T) {
	p := &person{Address: &address{}, Labels: map[string]string{}, Scores: []int{1, 2}}
	root := map[string]any{"person": p}

	require.NoError(t, values.Write("person.address.city", "Kyoto", root))
	require.NoError(t, values.Write("person.address.postal_code", "600-0000", root))
	require.NoError(t, values.Write("person.labels.team", "core", root))
	require.NoError(t, values.Write("person.scores[1]", 7, root))
	require.NoError(t, values.Write("person.name", "Ann", root))

	assert.Equal(t, "Kyoto", p.Address.City)
	assert.Equal(t, "600-0000", p.Address.Zip)
	assert.Equal(t, "core", p.Labels["team"])
	assert.Equal(t, []int{1, 7}, p.Scores)
	assert.Equal(t, "Ann", p.Name)

	err := values.Write("person.scores[1]", "seven", root)
	assert.ErrorIs(t, err, values.ErrPathTraversal)
}

func TestLookup(t *testing.T) {
	tree := sampleTree()
	v, ok := values.Lookup("arr[0].name", tree)
	assert.True(t, ok)
	assert.Equal(t, "first", v)
	_, ok = values.Lookup("arr[0].missing", tree)
	assert.False(t, ok)
}
