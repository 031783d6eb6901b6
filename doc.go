// Package goform provides:
//
// - Form state for one form: values tree, error map, touched map and submission status
// - Path addressed writes into nested values ("items[2].price") via the values package
// - Validation orchestration: when a Schema runs and which part of its result is committed
// - Submission through a pluggable Transport with pending/success/error status tracking
//
// Design policy:
// - Keep the public form API in the root package; path and clone helpers live in values/.
// - Rules under rules/, messages under i18n/, YAML definitions under config/.
// - Hosts (httpform/, cmd/goform) drive a Form through events; rendering is an observer callback.
//
// Typical usage:
//
//	f, err := goform.New(ctx, goform.Props{
//		InitialValues: map[string]any{"email": ""},
//		Validation: goform.ValidationConfig{
//			Schema: rules.Schema(rules.Required("email"), rules.Email("email")),
//			On:     goform.Triggers{Submit: goform.Bool(true)},
//		},
//		Submit: &goform.Submit{Endpoint: "https://api.example.com/signup"},
//	}, goform.WithObserver(render))
//
//	err = f.HandleChange(ctx, goform.ChangeEvent{Name: "email", Value: "a@b.com"})
//	err = f.HandleSubmit(ctx, goform.NewSubmitEvent(nil))
package goform
