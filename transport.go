package goform

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Request is what a Transport sends for a submission.
type Request struct {
	ID       string // Submission id, unique per HandleSubmit call.
	BaseURL  string
	Endpoint string
	Method   string
	Header   http.Header
	Query    url.Values
	Timeout  time.Duration // 0 means the transport default.
	Data     any           // Body payload, encoded by the transport.
}

// RequestConfig carries per-submission request settings. It is either static
// (Submit.Config) or produced on every submission (Submit.ConfigFunc).
type RequestConfig struct {
	BaseURL string
	Header  http.Header
	Query   url.Values
	Timeout time.Duration
}

// Response is a successful transport answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    Request
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error { return json.Unmarshal(r.Body, v) }

// Transport performs submission requests. Failures that come from the
// transport layer must be returned as *TransportError so they reach
// Submit.OnError; any other error only flips the form into StatusError.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// ErrNoTransport is reported when a Submit descriptor is used but neither
// WithTransport nor SetDefaultTransport supplied a transport.
var ErrNoTransport = errors.New("goform: no transport configured")

var (
	transportMu      sync.RWMutex
	defaultTransport Transport
)

// SetDefaultTransport replaces the process-wide transport used by forms
// created without WithTransport; nil values are ignored. Importing
// github.com/reoring/goform/transport installs the net/http client.
func SetDefaultTransport(t Transport) {
	if t == nil {
		return
	}
	transportMu.Lock()
	defaultTransport = t
	transportMu.Unlock()
}

// DefaultTransport returns the process-wide transport, or nil.
func DefaultTransport() Transport {
	transportMu.RLock()
	t := defaultTransport
	transportMu.RUnlock()
	return t
}
