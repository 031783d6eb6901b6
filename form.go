package goform

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reoring/goform/values"
)

// Form orchestrates a Store, a Schema and a Transport. Every state-changing
// method notifies the observer exactly once when it is done; queries never
// notify. A Form is not safe for concurrent use.
type Form struct {
	store      *Store
	props      Props
	validation ValidationOptions

	observer  func()
	scroller  func(FieldMap[string])
	transport Transport
	logger    zerolog.Logger
	recorder  Recorder
	newID     func() string

	last SubmitOutcome
}

// New builds a form from props. When props.Validation.Initial is set the
// schema runs once, without touching fields and without notifying.
func New(ctx context.Context, props Props, opts ...Option) (*Form, error) {
	f := &Form{
		props:    props,
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.store = NewStore(State{
		Values:  props.InitialValues,
		Errors:  props.InitialErrors,
		Touched: props.InitialTouched,
		Status:  StatusFilling,
	}, f.observer)
	f.validation = NormalizeValidation(props.Validation)

	if f.validation.Initial {
		if _, err := f.validate(ctx, ValidateOptions{}, TriggerInitial); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ValidateOptions tune Validate.
type ValidateOptions struct {
	// ScrollToInputs hands the resulting error map to the scroller.
	ScrollToInputs bool
	// TouchAll marks every field present in the resulting error map touched.
	TouchAll bool
}

// ValidateFieldsOptions tune ValidateFields.
type ValidateFieldsOptions struct {
	Touch bool
}

// SetValidation replaces the validation configuration.
func (f *Form) SetValidation(cfg ValidationConfig) {
	f.props.Validation = cfg
	f.validation = NormalizeValidation(cfg)
}

// Validation returns the normalized validation options.
func (f *Form) Validation() ValidationOptions { return f.validation }

func (f *Form) State() State             { return f.store.State() }
func (f *Form) Values() map[string]any   { return values.Clone(f.store.Values()) }
func (f *Form) Errors() FieldMap[string] { return f.store.Errors() }
func (f *Form) Touched() FieldMap[bool]  { return f.store.Touched() }
func (f *Form) Status() Status           { return f.store.Status() }
func (f *Form) IsSubmitting() bool       { return f.store.IsSubmitting() }
func (f *Form) IsSubmitted() bool        { return f.store.IsSubmitted() }
func (f *Form) Generation() uint64       { return f.store.Generation() }

// LastSubmit reports how the most recent HandleSubmit ended.
func (f *Form) LastSubmit() SubmitOutcome { return f.last }

// Value reads the live value at path.
func (f *Form) Value(path string) (any, error) { return values.Read(path, f.store.Values()) }

// SetFieldValue writes value at path in place. With shouldValidate the whole
// schema runs but only the entry for path is merged into the errors, so
// unrelated errors survive.
func (f *Form) SetFieldValue(ctx context.Context, path string, value any, shouldValidate bool) error {
	if err := values.Write(path, value, f.store.Values()); err != nil {
		return err
	}
	var err error
	if shouldValidate {
		var errs FieldMap[string]
		if errs, err = f.runSchema(ctx, TriggerField); err == nil {
			var one FieldMap[string]
			one.Set(path, errs.Value(path))
			f.store.MergeErrors(one)
		}
	}
	f.store.Rerender()
	return err
}

// HandleChange writes the event value and, when change validation is on,
// re-validates the whole form: rules may span fields.
func (f *Form) HandleChange(ctx context.Context, ev ChangeEvent) error {
	if err := values.Write(ev.Name, ev.Value, f.store.Values()); err != nil {
		return err
	}
	var err error
	if f.validation.On.Change {
		_, err = f.validate(ctx, ValidateOptions{}, TriggerChange)
	}
	f.store.Rerender()
	return err
}

// HandleBlur touches the field and, when blur validation is on, re-validates
// the whole form.
func (f *Form) HandleBlur(ctx context.Context, ev BlurEvent) error {
	var touched FieldMap[bool]
	touched.Set(ev.Name, true)
	f.store.SetTouched(touched)
	var err error
	if f.validation.On.Blur {
		_, err = f.validate(ctx, ValidateOptions{}, TriggerBlur)
	}
	f.store.Rerender()
	return err
}

// Validate runs the schema and replaces the error map with its result, which
// is also returned.
func (f *Form) Validate(ctx context.Context, opts ValidateOptions) (FieldMap[string], error) {
	errs, err := f.validate(ctx, opts, TriggerManual)
	if err != nil {
		return errs, err
	}
	f.store.Rerender()
	return errs, nil
}

func (f *Form) validate(ctx context.Context, opts ValidateOptions, trigger string) (FieldMap[string], error) {
	errs, err := f.runSchema(ctx, trigger)
	if err != nil {
		return errs, err
	}
	if opts.TouchAll {
		var touched FieldMap[bool]
		for path := range errs.All() {
			touched.Set(path, true)
		}
		f.store.SetTouched(touched)
	}
	if opts.ScrollToInputs && f.scroller != nil {
		f.scroller(errs.Clone())
	}
	f.store.ClearErrors()
	f.store.SetErrors(errs)
	return errs, nil
}

// ValidateFields runs the schema and sets the errors to exactly the requested
// paths, replacing the whole map. Valid paths are kept as empty entries.
func (f *Form) ValidateFields(ctx context.Context, paths []string, opts ValidateFieldsOptions) (FieldMap[string], error) {
	errs, err := f.runSchema(ctx, TriggerFields)
	if err != nil {
		return FieldMap[string]{}, err
	}
	var picked FieldMap[string]
	for _, p := range paths {
		picked.Set(p, errs.Value(p))
	}
	if opts.Touch {
		var touched FieldMap[bool]
		for _, p := range paths {
			touched.Set(p, true)
		}
		f.store.SetTouched(touched)
	}
	f.store.SetErrors(picked)
	f.store.Rerender()
	return picked, nil
}

func (f *Form) runSchema(ctx context.Context, trigger string) (FieldMap[string], error) {
	errs, err := RunValidation(ctx, f.validation.Schema, f.store.Values())
	if err != nil {
		f.logger.Error().Err(err).Str("trigger", trigger).Msg("schema failed")
		return errs, err
	}
	f.recorder.ValidationRun(trigger, errs.Len())
	f.logger.Debug().Str("trigger", trigger).Int("invalid", errs.Len()).Msg("validation ran")
	return errs, nil
}

// HandleSubmit validates (when submit validation is on) and submits.
//
// A non-empty error map marks the form submitted and stops. A NativeSubmit is
// called directly and its error returned. A Submit descriptor goes through
// the transport: status moves to pending, then success or error. Transport
// failures end up in the state, not in the returned error; only schema
// failures and NativeSubmit errors are returned.
func (f *Form) HandleSubmit(ctx context.Context, ev *SubmitEvent) error {
	if ev != nil {
		ev.PreventDefault()
	}
	f.last = SubmitOutcome{}
	if f.validation.On.Submit {
		errs, err := f.validate(ctx, ValidateOptions{
			ScrollToInputs: f.validation.InvalidScrollToEl,
			TouchAll:       true,
		}, TriggerSubmit)
		if err != nil {
			return err
		}
		if errs.Len() > 0 {
			f.last.Blocked = true
			f.store.SetSubmitted(true)
			f.store.Rerender()
			f.logger.Debug().Int("invalid", errs.Len()).Msg("submission blocked by validation")
			return nil
		}
	}

	switch {
	case f.props.NativeSubmit != nil:
		f.store.Rerender()
		return f.props.NativeSubmit(ctx, f.store.Values(), ev)
	case f.props.Submit != nil:
		f.submit(ctx, f.props.Submit)
		return nil
	default:
		f.store.Rerender()
		return nil
	}
}

// SetFields merges partial into the top level of the values. With
// shouldValidate the error map is replaced by the schema result.
func (f *Form) SetFields(ctx context.Context, partial map[string]any, shouldValidate bool) error {
	f.store.SetValues(partial)
	var err error
	if shouldValidate {
		var errs FieldMap[string]
		if errs, err = f.runSchema(ctx, TriggerManual); err == nil {
			f.store.SetErrors(errs)
		}
	}
	f.store.Rerender()
	return err
}

// SetErrors replaces the error map.
func (f *Form) SetErrors(errs FieldMap[string]) {
	f.store.SetErrors(errs)
	f.store.Rerender()
}

// SetErrorValue replaces the error map with the single entry path: msg.
// Use SetErrors with a merged map to keep other errors.
func (f *Form) SetErrorValue(path, msg string) {
	var one FieldMap[string]
	one.Set(path, msg)
	f.store.SetErrors(one)
	f.store.Rerender()
}

// SetTouched merges touched into the touched map.
func (f *Form) SetTouched(touched FieldMap[bool]) {
	f.store.SetTouched(touched)
	f.store.Rerender()
}

// SetTouchedValue sets a single touched flag.
func (f *Form) SetTouchedValue(path string, touched bool) {
	var one FieldMap[bool]
	one.Set(path, touched)
	f.SetTouched(one)
}

// SetStatus sets the submission status. Unknown statuses are rejected and
// leave the state untouched.
func (f *Form) SetStatus(st Status) error {
	if !st.Valid() {
		return fmt.Errorf("goform: unknown status %q", st)
	}
	f.store.SetStatus(st)
	f.store.Rerender()
	return nil
}

// ResetForm restores the initial state.
func (f *Form) ResetForm() {
	f.store.Reset()
	f.store.Rerender()
}

// GetError returns the stored error for path. With touchedOnly, untouched
// fields report no error even when one is stored.
func (f *Form) GetError(path string, touchedOnly bool) string {
	if touchedOnly && !f.store.TouchedAt(path) {
		return ""
	}
	return f.store.ErrorAt(path)
}

// IsValidField reports whether path is touched and has no stored error.
func (f *Form) IsValidField(path string) bool {
	return f.store.TouchedAt(path) && f.store.ErrorAt(path) == ""
}
