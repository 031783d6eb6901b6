package goform

import (
	"time"

	"github.com/rs/zerolog"
)

// Props is the construction-time description of a form.
type Props struct {
	InitialValues  map[string]any
	InitialTouched FieldMap[bool]
	InitialErrors  FieldMap[string]
	Validation     ValidationConfig
	// Submit and NativeSubmit are alternatives; NativeSubmit wins when both
	// are set.
	Submit       *Submit
	NativeSubmit NativeSubmit
}

// Option configures a Form.
type Option func(*Form)

// WithObserver registers the callback notified after every state change.
func WithObserver(fn func()) Option { return func(f *Form) { f.observer = fn } }

// WithScroller registers the callback that reveals the first invalid field.
func WithScroller(fn func(errors FieldMap[string])) Option {
	return func(f *Form) { f.scroller = fn }
}

// WithTransport overrides the process default transport.
func WithTransport(t Transport) Option { return func(f *Form) { f.transport = t } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(f *Form) { f.logger = l } }

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(f *Form) {
		if r != nil {
			f.recorder = r
		}
	}
}

// WithIDGenerator replaces the submission id generator (UUIDv4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(f *Form) {
		if fn != nil {
			f.newID = fn
		}
	}
}

// Validation triggers as reported to a Recorder.
const (
	TriggerInitial = "initial"
	TriggerManual  = "manual"
	TriggerChange  = "change"
	TriggerBlur    = "blur"
	TriggerSubmit  = "submit"
	TriggerField   = "field"
	TriggerFields  = "fields"
)

// Recorder receives validation and submission events, typically to export
// them as metrics.
type Recorder interface {
	ValidationRun(trigger string, invalid int)
	SubmitStarted()
	SubmitFinished(status Status, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ValidationRun(string, int)            {}
func (nopRecorder) SubmitStarted()                       {}
func (nopRecorder) SubmitFinished(Status, time.Duration) {}
