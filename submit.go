package goform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/reoring/goform/values"
)

// Submit describes a transport-backed submission.
type Submit struct {
	Endpoint string
	Method   string // Defaults to POST.
	// Config is used when ConfigFunc is nil.
	Config     *RequestConfig
	ConfigFunc func() RequestConfig
	// ResetData restores the initial state once the submission finished,
	// whatever its outcome.
	ResetData bool
	// TransformData maps the values tree to the request payload. Its errors
	// are not transport errors.
	TransformData func(values map[string]any) (any, error)
	OnError       func(err *TransportError)
	OnResponse    func(resp *Response)
}

// NativeSubmit bypasses transport and status handling entirely.
type NativeSubmit func(ctx context.Context, values map[string]any, ev *SubmitEvent) error

// SubmitOutcome describes how the last HandleSubmit call ended. It survives
// Submit.ResetData, which puts the state itself back to its initial values.
type SubmitOutcome struct {
	// Blocked is set when validation found errors and nothing was sent.
	Blocked bool
	// Status is success or error for a transport submission, empty otherwise.
	Status Status
}

func (f *Form) submit(ctx context.Context, s *Submit) {
	id := f.newID()
	log := f.logger.With().Str("submission_id", id).Str("endpoint", s.Endpoint).Logger()
	start := time.Now()

	f.store.SetStatus(StatusPending)
	f.store.SetSubmitting(true)
	f.store.Rerender()
	f.recorder.SubmitStarted()
	log.Debug().Msg("submission started")

	// The final phase runs even when a callback panics; a submission that
	// never settled counts as failed.
	defer func() {
		if f.store.Status() == StatusPending {
			f.store.SetStatus(StatusError)
		}
		outcome := f.store.Status()
		f.last.Status = outcome

		if s.ResetData {
			f.store.Reset()
		}
		f.store.SetSubmitted(true)
		f.store.SetSubmitting(false)
		f.recorder.SubmitFinished(outcome, time.Since(start))
		f.store.Rerender()
	}()

	resp, err := f.send(ctx, id, s)
	if err != nil {
		if te, ok := AsTransportError(err); ok {
			log.Warn().Err(err).Int("status_code", te.StatusCode).Msg("submission failed")
			if s.OnError != nil {
				s.OnError(te)
			}
		} else {
			log.Error().Err(err).Msg("submission failed")
		}
		f.store.SetStatus(StatusError)
		return
	}
	if s.OnResponse != nil {
		s.OnResponse(resp)
	}
	f.store.SetStatus(StatusSuccess)
	log.Info().Int("status_code", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("submission succeeded")
}

func (f *Form) send(ctx context.Context, id string, s *Submit) (*Response, error) {
	var cfg RequestConfig
	switch {
	case s.ConfigFunc != nil:
		cfg = s.ConfigFunc()
	case s.Config != nil:
		cfg = *s.Config
	}

	var data any = f.store.Values()
	if s.TransformData != nil {
		d, err := s.TransformData(values.Clone(f.store.Values()))
		if err != nil {
			return nil, fmt.Errorf("transform data: %w", err)
		}
		data = d
	}

	method := s.Method
	if method == "" {
		method = http.MethodPost
	}
	t := f.transport
	if t == nil {
		t = DefaultTransport()
	}
	if t == nil {
		return nil, ErrNoTransport
	}
	resp, err := t.Do(ctx, Request{
		ID:       id,
		BaseURL:  cfg.BaseURL,
		Endpoint: s.Endpoint,
		Method:   method,
		Header:   cfg.Header.Clone(),
		Query:    cfg.Query,
		Timeout:  cfg.Timeout,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &Response{}
	}
	return resp, nil
}
