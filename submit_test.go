package goform_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
)

type stubTransport struct {
	requests []goform.Request
	resp     *goform.Response
	err      error
}

func (s *stubTransport) Do(_ context.Context, req goform.Request) (*goform.Response, error) {
	s.requests = append(s.requests, req)
	return s.resp, s.err
}

func TestHandleSubmit_EndToEndSuccess(t *testing.T) {
	stub := &stubTransport{resp: &goform.Response{StatusCode: http.StatusCreated, Body: []byte(`{"id":7}`)}}
	var responses []*goform.Response
	var statuses []goform.Status
	rec := &fakeRecorder{}

	var f *goform.Form
	f, err := goform.New(context.Background(), goform.Props{
		InitialValues: map[string]any{"email": ""},
		Validation:    goform.ValidationConfig{Schema: requireEmail, On: on(false, false, true)},
		Submit: &goform.Submit{
			Endpoint:   "/signup",
			Config:     &goform.RequestConfig{BaseURL: "https://api.example.com", Header: http.Header{"X-Api-Key": {"k"}}},
			OnResponse: func(resp *goform.Response) { responses = append(responses, resp) },
		},
	},
		goform.WithTransport(stub),
		goform.WithRecorder(rec),
		goform.WithIDGenerator(func() string { return "sub-1" }),
		goform.WithObserver(func() { statuses = append(statuses, f.Status()) }),
	)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.SetFieldValue(ctx, "email", "a@b.com", false))
	ev := goform.NewSubmitEvent(nil)
	require.NoError(t, f.HandleSubmit(ctx, ev))

	assert.True(t, ev.DefaultPrevented())
	assert.Equal(t, goform.StatusSuccess, f.Status())
	assert.False(t, f.IsSubmitting())
	assert.True(t, f.IsSubmitted())
	require.Len(t, responses, 1)
	assert.Same(t, stub.resp, responses[0])

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "sub-1", req.ID)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/signup", req.Endpoint)
	assert.Equal(t, "https://api.example.com", req.BaseURL)
	assert.Equal(t, "k", req.Header.Get("X-Api-Key"))
	assert.Equal(t, map[string]any{"email": "a@b.com"}, req.Data)

	// set value, pending, final
	assert.Equal(t, []goform.Status{goform.StatusFilling, goform.StatusPending, goform.StatusSuccess}, statuses)
	assert.Equal(t, 1, rec.started)
	assert.Equal(t, []goform.Status{goform.StatusSuccess}, rec.finished)
	assert.Equal(t, 1, rec.validations[goform.TriggerSubmit])
}

func TestHandleSubmit_BlockedOnInvalid(t *testing.T) {
	stub := &stubTransport{resp: &goform.Response{StatusCode: 200}}
	nativeCalled := false
	var scrolled int
	for _, native := range []bool{false, true} {
		props := goform.Props{
			InitialValues: map[string]any{"email": ""},
			Validation: goform.ValidationConfig{
				Schema:            requireEmail,
				On:                on(false, false, true),
				InvalidScrollToEl: true,
			},
			Submit: &goform.Submit{Endpoint: "/x"},
		}
		if native {
			props.NativeSubmit = func(context.Context, map[string]any, *goform.SubmitEvent) error {
				nativeCalled = true
				return nil
			}
		}
		h := newHarness(t, props,
			goform.WithTransport(stub),
			goform.WithScroller(func(goform.FieldMap[string]) { scrolled++ }))

		require.NoError(t, h.form.HandleSubmit(context.Background(), goform.NewSubmitEvent(nil)))

		assert.True(t, h.form.IsSubmitted())
		assert.Equal(t, goform.StatusFilling, h.form.Status())
		assert.True(t, h.form.Touched().Value("email"))
		assert.Equal(t, "required", h.form.GetError("email", true))
		assert.Equal(t, 1, h.renders)
		assert.Equal(t, goform.SubmitOutcome{Blocked: true}, h.form.LastSubmit())
	}
	assert.Empty(t, stub.requests)
	assert.False(t, nativeCalled)
	assert.Equal(t, 2, scrolled)
}

func TestHandleSubmit_TransportErrorReachesOnError(t *testing.T) {
	terr := &goform.TransportError{Op: "submit", StatusCode: http.StatusUnprocessableEntity, Response: &goform.Response{StatusCode: 422}}
	stub := &stubTransport{err: terr}
	var got []*goform.TransportError
	responded := false
	h := newHarness(t, goform.Props{
		InitialValues: map[string]any{"email": "a@b.com"},
		Submit: &goform.Submit{
			Endpoint:   "/x",
			OnError:    func(err *goform.TransportError) { got = append(got, err) },
			OnResponse: func(*goform.Response) { responded = true },
		},
	}, goform.WithTransport(stub))

	require.NoError(t, h.form.HandleSubmit(context.Background(), goform.NewSubmitEvent(nil)))

	require.Len(t, got, 1)
	assert.Same(t, terr, got[0])
	assert.False(t, responded)
	assert.Equal(t, goform.StatusError, h.form.Status())
	assert.True(t, h.form.IsSubmitted())
	assert.False(t, h.form.IsSubmitting())
	assert.Equal(t, 2, h.renders)
}

func TestHandleSubmit_WrappedTransportErrorIsClassified(t *testing.T) {
	terr := &goform.TransportError{Op: "submit", Err: errors.New("connection refused")}
	stub := &stubTransport{err: errors.Join(errors.New("attempt 1"), terr)}
	calls := 0
	h := newHarness(t, goform.Props{
		Submit: &goform.Submit{Endpoint: "/x", OnError: func(*goform.TransportError) { calls++ }},
	}, goform.WithTransport(stub))

	require.NoError(t, h.form.HandleSubmit(context.Background(), nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, goform.StatusError, h.form.Status())
}

func TestHandleSubmit_UnclassifiedErrorSkipsOnError(t *testing.T) {
	cases := map[string]struct {
		transport goform.Transport
		transform func(map[string]any) (any, error)
	}{
		"plain transport error": {
			transport: &stubTransport{err: errors.New("opaque failure")},
		},
		"transform failure": {
			transport: &stubTransport{resp: &goform.Response{StatusCode: 200}},
			transform: func(map[string]any) (any, error) { return nil, errors.New("cannot encode") },
		},
		"no transport": {},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			calls := 0
			var opts []goform.Option
			if tc.transport != nil {
				opts = append(opts, goform.WithTransport(tc.transport))
			} else {
				prev := goform.SwapDefaultTransport(nil)
				t.Cleanup(func() { goform.SwapDefaultTransport(prev) })
			}
			h := newHarness(t, goform.Props{
				InitialValues: map[string]any{"email": "a@b.com"},
				Submit: &goform.Submit{
					Endpoint:      "/x",
					TransformData: tc.transform,
					OnError:       func(*goform.TransportError) { calls++ },
				},
			}, opts...)

			require.NoError(t, h.form.HandleSubmit(context.Background(), goform.NewSubmitEvent(nil)))

			assert.Equal(t, 0, calls)
			assert.Equal(t, goform.StatusError, h.form.Status())
			assert.True(t, h.form.IsSubmitted())
			assert.False(t, h.form.IsSubmitting())
		})
	}
}

func TestHandleSubmit_ResetDataAndTransform(t *testing.T) {
	stub := &stubTransport{resp: &goform.Response{StatusCode: 200}}
	h := newHarness(t, goform.Props{
		InitialValues: map[string]any{"email": ""},
		Submit: &goform.Submit{
			Endpoint:  "/x",
			Method:    http.MethodPut,
			ResetData: true,
			ConfigFunc: func() goform.RequestConfig {
				return goform.RequestConfig{Header: http.Header{"Authorization": {"Bearer t"}}}
			},
			TransformData: func(v map[string]any) (any, error) {
				v["email"] = "changed-in-copy"
				return map[string]any{"user": v}, nil
			},
		},
	}, goform.WithTransport(stub))
	ctx := context.Background()

	require.NoError(t, h.form.SetFieldValue(ctx, "email", "a@b.com", false))
	require.NoError(t, h.form.HandleSubmit(ctx, goform.NewSubmitEvent(nil)))

	require.Len(t, stub.requests, 1)
	assert.Equal(t, http.MethodPut, stub.requests[0].Method)
	assert.Equal(t, "Bearer t", stub.requests[0].Header.Get("Authorization"))
	assert.Equal(t, map[string]any{"user": map[string]any{"email": "changed-in-copy"}}, stub.requests[0].Data)

	assert.Equal(t, map[string]any{"email": ""}, h.form.Values())
	assert.Equal(t, goform.StatusFilling, h.form.Status())
	assert.True(t, h.form.IsSubmitted())
	assert.False(t, h.form.IsSubmitting())
	assert.Equal(t, goform.SubmitOutcome{Status: goform.StatusSuccess}, h.form.LastSubmit())
}

func TestHandleSubmit_CallbackPanicStillFinishes(t *testing.T) {
	cases := map[string]func(*goform.Submit){
		"on response":    func(s *goform.Submit) { s.OnResponse = func(*goform.Response) { panic("boom") } },
		"config func":    func(s *goform.Submit) { s.ConfigFunc = func() goform.RequestConfig { panic("boom") } },
		"transform data": func(s *goform.Submit) { s.TransformData = func(map[string]any) (any, error) { panic("boom") } },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubTransport{resp: &goform.Response{StatusCode: 200}}
			sub := &goform.Submit{Endpoint: "/x"}
			set(sub)
			h := newHarness(t, goform.Props{InitialValues: map[string]any{"email": "a@b.com"}, Submit: sub},
				goform.WithTransport(stub))

			assert.PanicsWithValue(t, "boom", func() {
				_ = h.form.HandleSubmit(context.Background(), nil)
			})

			assert.Equal(t, goform.StatusError, h.form.Status())
			assert.True(t, h.form.IsSubmitted())
			assert.False(t, h.form.IsSubmitting())
			assert.Equal(t, goform.SubmitOutcome{Status: goform.StatusError}, h.form.LastSubmit())
			assert.Equal(t, 2, h.renders)
		})
	}
}

func TestHandleSubmit_Native(t *testing.T) {
	sentinel := errors.New("native failed")
	var gotValues map[string]any
	var gotEvent *goform.SubmitEvent
	h := newHarness(t, goform.Props{
		InitialValues: map[string]any{"email": "a@b.com"},
		Validation:    goform.ValidationConfig{Schema: requireEmail, On: on(false, false, true)},
		Submit:        &goform.Submit{Endpoint: "/ignored"},
		NativeSubmit: func(_ context.Context, v map[string]any, ev *goform.SubmitEvent) error {
			gotValues, gotEvent = v, ev
			return sentinel
		},
	})

	ev := goform.NewSubmitEvent("source")
	err := h.form.HandleSubmit(context.Background(), ev)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, map[string]any{"email": "a@b.com"}, gotValues)
	assert.Same(t, ev, gotEvent)
	assert.Equal(t, goform.StatusFilling, h.form.Status())
	assert.False(t, h.form.IsSubmitted())
	assert.Equal(t, 1, h.renders)
}

func TestHandleSubmit_NothingConfigured(t *testing.T) {
	h := newHarness(t, goform.Props{InitialValues: map[string]any{"a": 1}})
	require.NoError(t, h.form.HandleSubmit(context.Background(), goform.NewSubmitEvent(nil)))
	assert.Equal(t, goform.StatusFilling, h.form.Status())
	assert.Equal(t, 1, h.renders)
}

func TestHandleSubmit_DefaultTransport(t *testing.T) {
	stub := &stubTransport{resp: &goform.Response{StatusCode: 200}}
	prev := goform.SwapDefaultTransport(nil)
	t.Cleanup(func() { goform.SwapDefaultTransport(prev) })

	goform.SetDefaultTransport(stub)
	goform.SetDefaultTransport(nil)
	assert.Same(t, stub, goform.DefaultTransport())

	h := newHarness(t, goform.Props{Submit: &goform.Submit{Endpoint: "/x"}})
	require.NoError(t, h.form.HandleSubmit(context.Background(), nil))
	assert.Len(t, stub.requests, 1)
	assert.Equal(t, goform.StatusSuccess, h.form.Status())
}

func TestResponse_Decode(t *testing.T) {
	resp := &goform.Response{Body: []byte(`{"id":7,"name":"Ann"}`)}
	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, 7, out.ID)
	assert.Equal(t, "Ann", out.Name)
}
