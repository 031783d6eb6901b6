package goform_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reoring/goform"
)

func TestFieldMap_InsertionOrder(t *testing.T) {
	var m goform.FieldMap[string]
	m.Set("b", "2")
	m.Set("a", "1")
	m.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, "3", m.Value("b"))
	assert.Equal(t, 2, m.Len())

	m.Delete("b")
	m.Delete("missing")
	assert.Equal(t, []string{"a"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestFieldMap_ZeroValueEntryIsPresent(t *testing.T) {
	var m goform.FieldMap[string]
	m.Set("email", "")

	v, ok := m.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, ok = m.Get("name")
	assert.False(t, ok)
}

func TestFieldMap_MergeRightBiased(t *testing.T) {
	left := goform.Fields(map[string]string{"a": "x", "b": "y"})
	var right goform.FieldMap[string]
	right.Set("c", "z")
	right.Set("a", "")

	out := left.Merge(right)

	assert.Equal(t, []string{"a", "b", "c"}, out.Keys())
	assert.Equal(t, map[string]string{"a": "", "b": "y", "c": "z"}, out.Map())
	// inputs untouched
	assert.Equal(t, "x", left.Value("a"))
	assert.Equal(t, 2, right.Len())
}

func TestFieldMap_CloneIsIndependent(t *testing.T) {
	orig := goform.Fields(map[string]bool{"a": true})
	c := orig.Clone()
	c.Set("b", true)
	c.Set("a", false)

	assert.Equal(t, map[string]bool{"a": true}, orig.Map())
}

func TestFieldMap_JSONKeepsOrder(t *testing.T) {
	var m goform.FieldMap[string]
	m.Set("zeta", "required")
	m.Set("alpha", "")
	m.Set("items[0].name", "too_short")

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"required","alpha":"","items[0].name":"too_short"}`, string(b))

	var back goform.FieldMap[string]
	require.NoError(t, json.Unmarshal([]byte(`{"z":"1","a":{"ignored":[1,2]},"m":"3"}`), &back))
	assert.Equal(t, []string{"z", "a", "m"}, back.Keys())
	assert.Equal(t, "3", back.Value("m"))

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &back))
}

func TestFieldMap_YAMLKeepsOrder(t *testing.T) {
	var m goform.FieldMap[bool]
	m.Set("second", true)
	m.Set("first", false)

	b, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "second: true\nfirst: false\n", string(b))

	var back goform.FieldMap[bool]
	require.NoError(t, yaml.Unmarshal([]byte("b: true\na: true\n"), &back))
	assert.Equal(t, []string{"b", "a"}, back.Keys())

	assert.Error(t, yaml.Unmarshal([]byte("- a\n"), &back))
}

func TestState_JSON(t *testing.T) {
	st := goform.State{
		Values:  map[string]any{"email": "a@b.com"},
		Errors:  goform.Fields(map[string]string{"email": ""}),
		Touched: goform.Fields(map[string]bool{"email": true}),
		Status:  goform.StatusSuccess,
	}
	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"values": {"email": "a@b.com"},
		"errors": {"email": ""},
		"touched": {"email": true},
		"status": "success",
		"isSubmitting": false,
		"isSubmitted": false
	}`, string(b))
}
