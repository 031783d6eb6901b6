// Package httptransport submits forms over net/http.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reoring/goform"
	"github.com/reoring/goform/values"
)

// Config contains configuration for the client.
type Config struct {
	// BaseURL is used when a request carries no BaseURL of its own.
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
	UserAgent        string
}

// Client implements goform.Transport.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	maxBody int64
	agent   string
	timeout time.Duration
}

// New creates a client, filling zero values with defaults.
func New(cfg Config) (*Client, error) {
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		base = u
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}
	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody == 0 {
		maxBody = 10 << 20
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = "goform"
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
	}
	return &Client{
		client:  &http.Client{Transport: transport},
		baseURL: base,
		maxBody: maxBody,
		agent:   agent,
		timeout: timeout,
	}, nil
}

// NewWithHTTPClient wraps an existing *http.Client, for tests and for hosts
// that already configure one.
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{client: hc, maxBody: 10 << 20, agent: "goform", timeout: 30 * time.Second}
}

// Close releases idle connections.
func (c *Client) Close() { c.client.CloseIdleConnections() }

// Do sends req. Failures to build the request body are returned as plain
// errors; failures to reach the server and non-2xx answers are returned as
// *goform.TransportError.
func (c *Client) Do(ctx context.Context, req goform.Request) (*goform.Response, error) {
	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req.Data)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.agent)
	}
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &goform.TransportError{Op: "submit", Request: req, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, &goform.TransportError{Op: "submit", Request: req, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	out := &goform.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Request:    req,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &goform.TransportError{
			Op:         "submit",
			Request:    req,
			Response:   out,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return out, nil
}

func (c *Client) resolve(req goform.Request) (string, error) {
	base := c.baseURL
	if req.BaseURL != "" {
		u, err := url.Parse(req.BaseURL)
		if err != nil {
			return "", fmt.Errorf("parse base URL: %w", err)
		}
		base = u
	}
	ep, err := url.Parse(req.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	target := ep
	if base != nil && !ep.IsAbs() {
		// keep the base path: "https://h/api" + "users" -> "https://h/api/users"
		joined := *base
		joined.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ep.Path, "/")
		joined.RawQuery = ep.RawQuery
		target = &joined
	}
	if !target.IsAbs() {
		return "", fmt.Errorf("endpoint %q is not absolute and no base URL is set", req.Endpoint)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

// encodeBody picks the wire format from the payload type: raw bytes and
// readers are sent as is, url.Values url-encoded, values trees holding blobs
// as multipart and everything else as JSON.
func encodeBody(data any) (io.Reader, string, error) {
	switch d := data.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(d), "", nil
	case io.Reader:
		return d, "", nil
	case url.Values:
		return strings.NewReader(d.Encode()), "application/x-www-form-urlencoded", nil
	case map[string]any:
		if hasBlob(d) {
			return encodeMultipart(d)
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(b), "application/json", nil
}

// hasBlob reports whether a top-level value, or an element of a top-level
// list, is a blob.
func hasBlob(m map[string]any) bool {
	for _, v := range m {
		if values.IsBlob(v) {
			return true
		}
		if list, ok := v.([]any); ok && slices.ContainsFunc(list, values.IsBlob) {
			return true
		}
	}
	return false
}

// encodeMultipart writes top-level blobs as file parts, strings as plain
// fields and any other value as a JSON-encoded field. A list holding blobs
// becomes one part per element under the same name.
func encodeMultipart(m map[string]any) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := writePart(w, k, m[k]); err != nil {
			return nil, "", fmt.Errorf("field %q: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, name string, v any) error {
	if list, ok := v.([]any); ok && slices.ContainsFunc(list, values.IsBlob) {
		for i, elem := range list {
			if err := writePart(w, name, elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	switch t := v.(type) {
	case *values.File:
		part, err := w.CreateFormFile(name, t.Name)
		if err != nil {
			return err
		}
		_, err = part.Write(t.Data)
		return err
	case *multipart.FileHeader:
		src, err := t.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		part, err := w.CreateFormFile(name, t.Filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, src)
		return err
	case string:
		return w.WriteField(name, t)
	case nil:
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteField(name, string(b))
}
