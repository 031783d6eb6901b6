package goform

// ChangeEvent reports a new value for the named field.
type ChangeEvent struct {
	Name  string
	Value any
}

// BlurEvent reports that the named field lost focus.
type BlurEvent struct {
	Name string
}

// SubmitEvent is handed to HandleSubmit. Source carries whatever the host
// produced the event from (an *http.Request in httpform, for example).
type SubmitEvent struct {
	Source    any
	prevented bool
}

// NewSubmitEvent wraps source in a SubmitEvent.
func NewSubmitEvent(source any) *SubmitEvent { return &SubmitEvent{Source: source} }

// PreventDefault marks the event as handled by the form.
func (e *SubmitEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *SubmitEvent) DefaultPrevented() bool { return e.prevented }
