package goform

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes produced by the rules package and custom schemas.
const (
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodePattern       = "pattern"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidEnum   = "invalid_enum"
	CodeMismatch      = "mismatch"
	CodeDuplicate     = "duplicate"
	// Custom marks issues raised by user supplied checks.
	CodeCustom = "custom"
)

// Issue is a single validation finding at a field path.
type Issue struct {
	Path    string // Field path (for example: items[2].price).
	Code    string
	Message string
	// Params carries structured parameters (e.g. {"min": 3}) used for message
	// interpolation.
	Params map[string]any
}

// Issues is an ordered collection of validation findings that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// FieldErrors folds issues into an error map. The first message recorded for
// a path wins, later issues at the same path are dropped.
func (iss Issues) FieldErrors() FieldMap[string] {
	var out FieldMap[string]
	for _, it := range iss {
		if out.Has(it.Path) {
			continue
		}
		msg := it.Message
		if msg == "" {
			msg = it.Code
		}
		out.Set(it.Path, msg)
	}
	return out
}

// AsIssues extracts Issues from an error using errors.As.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// SchemaError wraps a failure of the schema itself, as opposed to the values
// being invalid. It indicates a broken host configuration.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return "goform: schema failed: " + e.Err.Error() }
func (e *SchemaError) Unwrap() error { return e.Err }

// TransportError is a classified failure of the submission transport: the
// request could not be sent, or the server answered with a non-2xx status.
// Only TransportErrors reach Submit.OnError.
type TransportError struct {
	Op         string
	Request    Request
	Response   *Response // nil when no response was received
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("goform: %s %s %s: status %d", e.Op, e.Request.Method, e.Request.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("goform: %s %s %s: %v", e.Op, e.Request.Method, e.Request.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsTransportError classifies err as a transport failure.
func AsTransportError(err error) (*TransportError, bool) {
	if err == nil {
		return nil, false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
