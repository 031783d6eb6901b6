package goform

// Status is the submission status of a form.
type Status string

const (
	StatusFilling Status = "filling"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFilling, StatusPending, StatusSuccess, StatusError:
		return true
	}
	return false
}

// State is the complete state of a form.
type State struct {
	Values       map[string]any   `json:"values"`
	Errors       FieldMap[string] `json:"errors"`
	Touched      FieldMap[bool]   `json:"touched"`
	Status       Status           `json:"status"`
	IsSubmitting bool             `json:"isSubmitting"`
	IsSubmitted  bool             `json:"isSubmitted"`
}
