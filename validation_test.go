package goform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
)

func TestNormalizeValidation_Defaults(t *testing.T) {
	opts := goform.NormalizeValidation(goform.ValidationConfig{})
	require.NotNil(t, opts.Schema)
	assert.Equal(t, goform.TriggerFlags{}, opts.On)

	errs, err := opts.Schema.Validate(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, errs.Len())
}

func TestNormalizeValidation_TriggersFallBackToInitial(t *testing.T) {
	opts := goform.NormalizeValidation(goform.ValidationConfig{
		Initial: true,
		On:      goform.Triggers{Blur: goform.Bool(false)},
	})
	assert.Equal(t, goform.TriggerFlags{Change: true, Blur: false, Submit: true}, opts.On)
	assert.True(t, opts.Initial)
}

func TestRunValidation_WrapsSchemaFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := goform.RunValidation(context.Background(), schemaFailing{err: boom}, nil)

	var se *goform.SchemaError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)

	// already classified errors are not wrapped twice
	_, err = goform.RunValidation(context.Background(), schemaFailing{err: se}, nil)
	assert.Same(t, se, err)
}

func TestIssuesSchema_FirstMessageWins(t *testing.T) {
	schema := goform.IssuesSchema(func(context.Context, map[string]any) goform.Issues {
		return goform.Issues{
			{Path: "name", Code: goform.CodeRequired, Message: "name is required"},
			{Path: "name", Code: goform.CodeTooShort, Message: "too short"},
			{Path: "age", Code: goform.CodeTooSmall},
		}
	})
	errs, err := goform.RunValidation(context.Background(), schema, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, errs.Keys())
	assert.Equal(t, "name is required", errs.Value("name"))
	assert.Equal(t, goform.CodeTooSmall, errs.Value("age"))
}

func TestIssues_Error(t *testing.T) {
	iss := goform.Issues{
		{Path: "a", Code: goform.CodeRequired},
		{Path: "b", Code: goform.CodePattern},
		{Path: "c", Code: goform.CodeTooLong},
		{Path: "d", Code: goform.CodeCustom},
	}
	assert.Equal(t, "required at a; pattern at b; too_long at c; ... (total 4)", iss.Error())

	got, ok := goform.AsIssues(errors.Join(errors.New("ctx"), iss))
	require.True(t, ok)
	assert.Len(t, got, 4)

	_, ok = goform.AsIssues(errors.New("plain"))
	assert.False(t, ok)
}

func TestTransportError_Message(t *testing.T) {
	withResp := &goform.TransportError{
		Op:         "submit",
		Request:    goform.Request{Method: "POST", Endpoint: "/signup"},
		Response:   &goform.Response{StatusCode: 500},
		StatusCode: 500,
	}
	assert.Equal(t, "goform: submit POST /signup: status 500", withResp.Error())

	cause := errors.New("dial tcp: refused")
	noResp := &goform.TransportError{Op: "submit", Request: goform.Request{Method: "PUT", Endpoint: "/x"}, Err: cause}
	assert.Equal(t, "goform: submit PUT /x: dial tcp: refused", noResp.Error())
	assert.ErrorIs(t, noResp, cause)
}

func TestStore_Transitions(t *testing.T) {
	notified := 0
	s := goform.NewStore(goform.State{}, func() { notified++ })

	assert.Equal(t, goform.StatusFilling, s.Status())
	assert.NotNil(t, s.Values())

	s.SetValues(map[string]any{"a": 1})
	s.SetErrors(goform.Fields(map[string]string{"a": "bad"}))
	s.MergeErrors(goform.Fields(map[string]string{"b": "worse"}))
	s.SetTouched(goform.Fields(map[string]bool{"a": true}))
	s.SetStatus(goform.StatusPending)
	s.SetSubmitting(true)

	assert.Equal(t, 0, notified)
	assert.Equal(t, "bad", s.ErrorAt("a"))
	assert.Equal(t, "worse", s.ErrorAt("b"))
	assert.True(t, s.TouchedAt("a"))
	assert.True(t, s.IsSubmitting())

	s.Rerender()
	assert.Equal(t, 1, notified)
	assert.Equal(t, uint64(1), s.Generation())

	s.Reset()
	assert.Equal(t, map[string]any{}, s.Values())
	assert.Equal(t, 0, s.Errors().Len())
	assert.Equal(t, goform.StatusFilling, s.Status())
	assert.False(t, s.IsSubmitting())
}

func TestStore_InitialSnapshotIsCopied(t *testing.T) {
	init := map[string]any{"items": []any{map[string]any{"name": "a"}}}
	s := goform.NewStore(goform.State{Values: init}, nil)

	s.Values()["items"].([]any)[0].(map[string]any)["name"] = "changed"
	s.Reset()

	assert.Equal(t, "a", init["items"].([]any)[0].(map[string]any)["name"])
	assert.Equal(t, "a", s.Values()["items"].([]any)[0].(map[string]any)["name"])
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, goform.StatusPending.Valid())
	assert.False(t, goform.Status("done").Valid())
}
