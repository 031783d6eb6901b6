package goform

import "github.com/reoring/goform/values"

// Store owns the state of one form. Its mutators are plain state transitions:
// none of them validates or notifies; Rerender is the only notification.
type Store struct {
	state      State
	initial    State
	observer   func()
	generation uint64
}

// NewStore captures a deep copy of initial as the reset snapshot. A nil
// values tree becomes an empty map and an empty status becomes filling.
func NewStore(initial State, observer func()) *Store {
	snap := cloneState(initial)
	if snap.Values == nil {
		snap.Values = map[string]any{}
	}
	if snap.Status == "" {
		snap.Status = StatusFilling
	}
	return &Store{state: cloneState(snap), initial: snap, observer: observer}
}

func cloneState(s State) State {
	return State{
		Values:       values.Clone(s.Values),
		Errors:       s.Errors.Clone(),
		Touched:      s.Touched.Clone(),
		Status:       s.Status,
		IsSubmitting: s.IsSubmitting,
		IsSubmitted:  s.IsSubmitted,
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State { return cloneState(s.state) }

// Values returns the live values tree. Path writes go straight into it.
func (s *Store) Values() map[string]any { return s.state.Values }

func (s *Store) Errors() FieldMap[string] { return s.state.Errors.Clone() }
func (s *Store) Touched() FieldMap[bool]  { return s.state.Touched.Clone() }
func (s *Store) Status() Status           { return s.state.Status }
func (s *Store) IsSubmitting() bool       { return s.state.IsSubmitting }
func (s *Store) IsSubmitted() bool        { return s.state.IsSubmitted }

// ErrorAt returns the stored error for path, "" when there is none.
func (s *Store) ErrorAt(path string) string { return s.state.Errors.Value(path) }

// TouchedAt reports whether path is marked touched.
func (s *Store) TouchedAt(path string) bool { return s.state.Touched.Value(path) }

// SetValues merges partial into the top level of the values tree.
func (s *Store) SetValues(partial map[string]any) {
	for k, v := range partial {
		s.state.Values[k] = v
	}
}

// SetErrors replaces the error map.
func (s *Store) SetErrors(errs FieldMap[string]) { s.state.Errors = errs.Clone() }

// MergeErrors unions errs over the error map, errs winning.
func (s *Store) MergeErrors(errs FieldMap[string]) { s.state.Errors = s.state.Errors.Merge(errs) }

func (s *Store) ClearErrors() { s.state.Errors = FieldMap[string]{} }

// SetTouched merges touched into the touched map.
func (s *Store) SetTouched(touched FieldMap[bool]) {
	s.state.Touched = s.state.Touched.Merge(touched)
}

func (s *Store) SetStatus(st Status)  { s.state.Status = st }
func (s *Store) SetSubmitting(b bool) { s.state.IsSubmitting = b }
func (s *Store) SetSubmitted(b bool)  { s.state.IsSubmitted = b }

// Reset restores a fresh deep copy of the initial snapshot.
func (s *Store) Reset() { s.state = cloneState(s.initial) }

// Rerender notifies the observer. It does not touch the state.
func (s *Store) Rerender() {
	s.generation++
	if s.observer != nil {
		s.observer()
	}
}

// Generation counts Rerender calls.
func (s *Store) Generation() uint64 { return s.generation }
