// Package httpform exposes a server-held form over HTTP. Each request is
// turned into a form event; every response carries the resulting state.
package httpform

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/reoring/goform"
	"github.com/reoring/goform/values"
)

// maxBodyBytes bounds JSON and url-encoded bodies; multipart bodies may hold
// files and get maxMultipartBytes.
const (
	maxBodyBytes      = 1 << 20
	maxMultipartBytes = 32 << 20
)

// Server serializes access to one form. Form itself is not safe for
// concurrent use.
type Server struct {
	mu     sync.Mutex
	form   *goform.Form
	logger zerolog.Logger
}

// NewServer wraps form.
func NewServer(form *goform.Form, logger zerolog.Logger) *Server {
	return &Server{form: form, logger: logger}
}

// Replace swaps the served form, e.g. after a definition reload.
func (s *Server) Replace(form *goform.Form) {
	s.mu.Lock()
	s.form = form
	s.mu.Unlock()
}

// do runs fn with exclusive access to the form.
func (s *Server) do(fn func(f *goform.Form) error) (goform.State, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.form)
	return s.form.State(), s.form.Generation(), err
}

type stateResponse struct {
	State  goform.State             `json:"state"`
	Result *goform.FieldMap[string] `json:"result,omitempty"`
	Error  *apiError                `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, st goform.State, gen uint64, result *goform.FieldMap[string], err error) {
	w.Header().Set("X-Form-Generation", strconv.FormatUint(gen, 10))
	status := http.StatusOK
	resp := stateResponse{State: st, Result: result}
	if err != nil {
		status, resp.Error = classify(err)
		level := s.logger.Warn()
		if status >= 500 {
			level = s.logger.Error()
		}
		level.Err(err).Str("path", r.URL.Path).Msg("form operation failed")
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, *apiError) {
	if pe, ok := values.AsPathTraversal(err); ok {
		return http.StatusUnprocessableEntity, &apiError{Code: "path_traversal", Message: pe.Error()}
	}
	var se *goform.SchemaError
	if errors.As(err, &se) {
		return http.StatusInternalServerError, &apiError{Code: "schema_failed", Message: se.Error()}
	}
	var be *badRequest
	if errors.As(err, &be) {
		return http.StatusBadRequest, &apiError{Code: "bad_request", Message: be.Error()}
	}
	return http.StatusInternalServerError, &apiError{Code: "internal", Message: err.Error()}
}

type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &badRequest{err: err}
	}
	return nil
}

func mediaType(r *http.Request) string {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt
}

// formFields converts an url-encoded or multipart body into top-level
// values. Repeated keys become []any, uploaded files *multipart.FileHeader.
func formFields(r *http.Request) (map[string]any, error) {
	switch mediaType(r) {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
			return nil, &badRequest{err: err}
		}
	default:
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, &badRequest{err: err}
		}
	}
	out := map[string]any{}
	for k, vs := range r.PostForm {
		out[k] = single(vs)
	}
	if r.MultipartForm != nil {
		for k, fhs := range r.MultipartForm.File {
			if len(fhs) == 1 {
				out[k] = fhs[0]
				continue
			}
			files := make([]any, len(fhs))
			for i, fh := range fhs {
				files[i] = fh
			}
			out[k] = files
		}
	}
	return out, nil
}

func single(vs []string) any {
	if len(vs) == 1 {
		return vs[0]
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func isForm(r *http.Request) bool {
	mt := mediaType(r)
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

type changeRequest struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Validate bool   `json:"validate"`
}

// Change handles POST /change. With "validate" the value is written through
// SetFieldValue (single-field validation), otherwise through HandleChange.
func (s *Server) Change(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if isForm(r) {
		fields, err := formFields(r)
		if err != nil {
			s.respond(w, r, goform.State{}, 0, nil, err)
			return
		}
		req.Name, _ = fields["name"].(string)
		req.Value = fields["value"]
		req.Validate = r.PostForm.Get("validate") == "true"
	} else if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	if req.Name == "" {
		s.respond(w, r, goform.State{}, 0, nil, &badRequest{err: errors.New("name is required")})
		return
	}
	st, gen, err := s.do(func(f *goform.Form) error {
		if req.Validate {
			return f.SetFieldValue(r.Context(), req.Name, req.Value, true)
		}
		return f.HandleChange(r.Context(), goform.ChangeEvent{Name: req.Name, Value: req.Value})
	})
	s.respond(w, r, st, gen, nil, err)
}

// Blur handles POST /blur.
func (s *Server) Blur(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			s.respond(w, r, goform.State{}, 0, nil, &badRequest{err: err})
			return
		}
		req.Name = r.PostForm.Get("name")
	} else if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	if req.Name == "" {
		s.respond(w, r, goform.State{}, 0, nil, &badRequest{err: errors.New("name is required")})
		return
	}
	st, gen, err := s.do(func(f *goform.Form) error {
		return f.HandleBlur(r.Context(), goform.BlurEvent{Name: req.Name})
	})
	s.respond(w, r, st, gen, nil, err)
}

// Validate handles POST /validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScrollToInputs bool `json:"scroll_to_inputs"`
		TouchAll       bool `json:"touch_all"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	var result goform.FieldMap[string]
	st, gen, err := s.do(func(f *goform.Form) error {
		var err error
		result, err = f.Validate(r.Context(), goform.ValidateOptions{ScrollToInputs: req.ScrollToInputs, TouchAll: req.TouchAll})
		return err
	})
	s.respond(w, r, st, gen, &result, err)
}

// ValidateFields handles POST /validate-fields.
func (s *Server) ValidateFields(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths []string `json:"paths"`
		Touch bool     `json:"touch"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	var result goform.FieldMap[string]
	st, gen, err := s.do(func(f *goform.Form) error {
		var err error
		result, err = f.ValidateFields(r.Context(), req.Paths, goform.ValidateFieldsOptions{Touch: req.Touch})
		return err
	})
	s.respond(w, r, st, gen, &result, err)
}

// Submit handles POST /submit. Fields sent with the request (url-encoded,
// multipart or a JSON {"values": {...}} object) are merged into the top level
// of the values first. The status code reflects the outcome: 422 when
// validation blocked the submission, 502 when the transport failed.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if isForm(r) {
		var err error
		if fields, err = formFields(r); err != nil {
			s.respond(w, r, goform.State{}, 0, nil, err)
			return
		}
	} else {
		var req struct {
			Values map[string]any `json:"values"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.respond(w, r, goform.State{}, 0, nil, err)
			return
		}
		fields = req.Values
	}

	ctx := context.WithoutCancel(r.Context())
	var outcome goform.SubmitOutcome
	st, gen, err := s.do(func(f *goform.Form) error {
		if len(fields) > 0 {
			if err := f.SetFields(ctx, fields, false); err != nil {
				return err
			}
		}
		err := f.HandleSubmit(ctx, goform.NewSubmitEvent(r))
		outcome = f.LastSubmit()
		return err
	})
	if err != nil {
		s.respond(w, r, st, gen, nil, err)
		return
	}
	status := http.StatusOK
	switch {
	case outcome.Blocked:
		status = http.StatusUnprocessableEntity
	case outcome.Status == goform.StatusError:
		status = http.StatusBadGateway
	}
	w.Header().Set("X-Form-Generation", strconv.FormatUint(gen, 10))
	writeJSON(w, status, stateResponse{State: st})
}

// Reset handles POST /reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	st, gen, err := s.do(func(f *goform.Form) error {
		f.ResetForm()
		return nil
	})
	s.respond(w, r, st, gen, nil, err)
}

// State handles GET /state.
func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	st, gen, err := s.do(func(*goform.Form) error { return nil })
	s.respond(w, r, st, gen, nil, err)
}

// SetErrors handles PUT /errors (replace the error map with the body) and
// POST /errors (replace it with the single {"path", "message"} entry).
func (s *Server) SetErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		var errs goform.FieldMap[string]
		if err := decodeJSON(r, &errs); err != nil {
			s.respond(w, r, goform.State{}, 0, nil, err)
			return
		}
		st, gen, err := s.do(func(f *goform.Form) error {
			f.SetErrors(errs)
			return nil
		})
		s.respond(w, r, st, gen, nil, err)
		return
	}
	var req struct {
		Path    string `json:"path"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	st, gen, err := s.do(func(f *goform.Form) error {
		f.SetErrorValue(req.Path, req.Message)
		return nil
	})
	s.respond(w, r, st, gen, nil, err)
}

// SetTouched handles POST /touched with {"path", "touched"}.
func (s *Server) SetTouched(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Touched bool   `json:"touched"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, r, goform.State{}, 0, nil, err)
		return
	}
	st, gen, err := s.do(func(f *goform.Form) error {
		f.SetTouchedValue(req.Path, req.Touched)
		return nil
	})
	s.respond(w, r, st, gen, nil, err)
}

type fieldResponse struct {
	Path    string `json:"path"`
	Value   any    `json:"value"`
	Error   string `json:"error"`
	Touched bool   `json:"touched"`
	Valid   bool   `json:"valid"`
}

// Field handles GET /fields/{path}. ?touched_only=true hides errors of
// untouched fields.
func (s *Server) Field(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	touchedOnly, _ := strconv.ParseBool(r.URL.Query().Get("touched_only"))

	s.mu.Lock()
	f := s.form
	v, lookupErr := f.Value(path)
	resp := fieldResponse{
		Path:    path,
		Value:   v,
		Error:   f.GetError(path, touchedOnly),
		Touched: f.Touched().Value(path),
		Valid:   f.IsValidField(path),
	}
	s.mu.Unlock()

	if lookupErr != nil {
		_, apiErr := classify(lookupErr)
		writeJSON(w, http.StatusNotFound, map[string]any{"error": apiErr})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
