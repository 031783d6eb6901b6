package goform

import (
	"context"
	"errors"
)

// Schema computes the error map for a complete values tree. It is the single
// source of truth for what is currently invalid. Implementations must treat
// values as read-only. A returned error means the schema itself failed, not
// that the values are invalid.
type Schema interface {
	Validate(ctx context.Context, values map[string]any) (FieldMap[string], error)
}

// SchemaFunc adapts a plain function to Schema.
type SchemaFunc func(values map[string]any) FieldMap[string]

func (f SchemaFunc) Validate(_ context.Context, values map[string]any) (FieldMap[string], error) {
	return f(values), nil
}

// IssuesSchema adapts a function producing Issues to Schema. The first issue
// recorded for a path supplies its message.
type IssuesSchema func(ctx context.Context, values map[string]any) Issues

func (f IssuesSchema) Validate(ctx context.Context, values map[string]any) (FieldMap[string], error) {
	return f(ctx, values).FieldErrors(), nil
}

type noopSchema struct{}

func (noopSchema) Validate(context.Context, map[string]any) (FieldMap[string], error) {
	return FieldMap[string]{}, nil
}

// Triggers selects the events that run a whole-form validation. Nil fields
// fall back to ValidationConfig.Initial.
type Triggers struct {
	Change *bool
	Blur   *bool
	Submit *bool
}

// ValidationConfig is the user-facing validation configuration.
type ValidationConfig struct {
	Schema Schema
	On     Triggers
	// Initial validates once, without touching fields, when the form is
	// created. It is also the default for every unset trigger.
	Initial bool
	// InvalidScrollToEl asks the scroller to reveal the first invalid field
	// when a submit is blocked by validation.
	InvalidScrollToEl bool
}

// TriggerFlags are resolved Triggers.
type TriggerFlags struct {
	Change bool
	Blur   bool
	Submit bool
}

// ValidationOptions is the canonical form of a ValidationConfig. It never has
// a nil Schema.
type ValidationOptions struct {
	Schema            Schema
	On                TriggerFlags
	Initial           bool
	InvalidScrollToEl bool
}

// NormalizeValidation applies defaults to cfg.
func NormalizeValidation(cfg ValidationConfig) ValidationOptions {
	pick := func(b *bool) bool {
		if b == nil {
			return cfg.Initial
		}
		return *b
	}
	opts := ValidationOptions{
		Schema: cfg.Schema,
		On: TriggerFlags{
			Change: pick(cfg.On.Change),
			Blur:   pick(cfg.On.Blur),
			Submit: pick(cfg.On.Submit),
		},
		Initial:           cfg.Initial,
		InvalidScrollToEl: cfg.InvalidScrollToEl,
	}
	if opts.Schema == nil {
		opts.Schema = noopSchema{}
	}
	return opts
}

// RunValidation invokes schema against values and returns its error map
// verbatim. Schema failures are reported as *SchemaError.
func RunValidation(ctx context.Context, schema Schema, values map[string]any) (FieldMap[string], error) {
	if schema == nil {
		schema = noopSchema{}
	}
	errs, err := schema.Validate(ctx, values)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return FieldMap[string]{}, err
		}
		return FieldMap[string]{}, &SchemaError{Err: err}
	}
	return errs, nil
}

// Bool returns a pointer to b, for filling Triggers.
func Bool(b bool) *bool { return &b }
