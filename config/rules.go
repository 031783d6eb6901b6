package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/goform"
	"github.com/reoring/goform/rules"
)

// RuleSpec is one entry of validation.fields. In YAML it is either a bare
// rule name ("required") or a mapping:
//
//	- rule: min_length
//	  value: 8
//	  message: too short
//	  when: {field: country, op: eq, value: JP}
type RuleSpec struct {
	Rule    string    `yaml:"rule"`
	Value   any       `yaml:"value,omitempty"`
	Message string    `yaml:"message,omitempty"`
	When    *WhenSpec `yaml:"when,omitempty"`
}

// WhenSpec guards a rule with a condition on another field.
type WhenSpec struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"` // eq (default), ne, lt, le, gt, ge
	Value any    `yaml:"value"`
}

func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Rule = node.Value
		return nil
	}
	type plain RuleSpec
	return node.Decode((*plain)(r))
}

var ops = map[string]rules.Op{
	"":   rules.Eq,
	"eq": rules.Eq,
	"ne": rules.Ne,
	"lt": rules.Lt,
	"le": rules.Le,
	"gt": rules.Gt,
	"ge": rules.Ge,
}

// Schema compiles validation.fields into a schema.
func (d *Definition) Schema() (goform.Schema, error) {
	var all []rules.Rule
	for path, specs := range d.Validation.Fields.All() {
		for i, spec := range specs {
			r, err := spec.compile(path)
			if err != nil {
				return nil, fmt.Errorf("validation.fields[%s][%d]: %w", path, i, err)
			}
			all = append(all, r)
		}
	}
	return rules.Schema(all...), nil
}

func (r RuleSpec) compile(path string) (rules.Rule, error) {
	var out rules.Rule
	name := strings.ToLower(r.Rule)
	switch name {
	case "required":
		out = rules.Required(path)
	case "email":
		out = rules.Email(path)
	case "min_length", "max_length":
		n, ok := intValue(r.Value)
		if !ok {
			return nil, fmt.Errorf("%s needs an integer value", r.Rule)
		}
		if name == "min_length" {
			out = rules.MinLength(path, n)
		} else {
			out = rules.MaxLength(path, n)
		}
	case "min", "max":
		f, ok := floatValue(r.Value)
		if !ok {
			return nil, fmt.Errorf("%s needs a numeric value", r.Rule)
		}
		if name == "min" {
			out = rules.Min(path, f)
		} else {
			out = rules.Max(path, f)
		}
	case "pattern":
		expr, ok := r.Value.(string)
		if !ok {
			return nil, fmt.Errorf("pattern needs a string value")
		}
		if _, err := regexp.Compile(expr); err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		out = rules.Pattern(path, expr)
	case "one_of":
		opts, ok := r.Value.([]any)
		if !ok || len(opts) == 0 {
			return nil, fmt.Errorf("one_of needs a list value")
		}
		out = rules.OneOf(path, opts...)
	case "equal_to":
		other, ok := r.Value.(string)
		if !ok || other == "" {
			return nil, fmt.Errorf("equal_to needs the path of the other field")
		}
		out = rules.EqualTo(path, other)
	case "at_least_one":
		out = rules.AtLeastOne(path)
	case "unique_by":
		key, ok := r.Value.(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("unique_by needs the key path")
		}
		out = rules.UniqueBy(path, key)
	case "":
		return nil, fmt.Errorf("rule name is required")
	default:
		return nil, fmt.Errorf("unknown rule %q", r.Rule)
	}

	if r.Message != "" {
		out = rules.WithMessage(out, r.Message)
	}
	if w := r.When; w != nil {
		op, ok := ops[strings.ToLower(w.Op)]
		if !ok {
			return nil, fmt.Errorf("when.op %q is not supported", w.Op)
		}
		if w.Field == "" {
			return nil, fmt.Errorf("when.field is required")
		}
		out = rules.If(w.Field, op, w.Value).Then(out)
	}
	return out, nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
