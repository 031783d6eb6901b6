package rules

import (
	"context"
	"reflect"
	"strconv"

	"github.com/reoring/goform"
	"github.com/reoring/goform/values"
)

// Rule inspects the complete values tree and reports issues. Rules must not
// mutate values.
type Rule func(values map[string]any) goform.Issues

// Schema combines rules into a goform.Schema. All rules run; the first issue
// recorded for a path supplies its message.
func Schema(rules ...Rule) goform.Schema {
	return goform.IssuesSchema(func(_ context.Context, v map[string]any) goform.Issues {
		return And(rules...)(v)
	})
}

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates the value at path against want.
// A path that does not resolve never satisfies the condition.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Holds evaluates the condition against v.
func (c Conditional) Holds(v map[string]any) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(v) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(v) {
				return true
			}
		}
		return false
	}
	cur, ok := values.Lookup(c.path, v)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// Then attaches rules to run when the condition is satisfied.
func (c Conditional) Then(rules ...Rule) Rule {
	inner := And(rules...)
	return func(v map[string]any) goform.Issues {
		if !c.Holds(v) {
			return nil
		}
		return inner(v)
	}
}

// And executes all rules and concatenates their issues.
func And(rules ...Rule) Rule {
	return func(v map[string]any) goform.Issues {
		var out goform.Issues
		for _, r := range rules {
			if r == nil {
				continue
			}
			out = append(out, r(v)...)
		}
		return out
	}
}

// Or succeeds if any rule returns no issues. When all fail the branch with the
// fewest issues is reported.
func Or(rules ...Rule) Rule {
	return func(v map[string]any) goform.Issues {
		var best goform.Issues
		bestSet := false
		for _, r := range rules {
			if r == nil {
				continue
			}
			iss := r(v)
			if len(iss) == 0 {
				return nil
			}
			if !bestSet || len(iss) < len(best) {
				best = iss
				bestSet = true
			}
		}
		return best
	}
}

// WithMessage replaces the message of every issue reported by r.
func WithMessage(r Rule, msg string) Rule {
	return func(v map[string]any) goform.Issues {
		iss := r(v)
		for i := range iss {
			iss[i].Message = msg
		}
		return iss
	}
}

// Each runs the rule built by fn for every element of the collection at path.
// fn receives the element path, e.g. "items[2]".
func Each(path string, fn func(elem string) Rule) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := values.Lookup(path, v)
		if !ok {
			return nil
		}
		rv := reflect.ValueOf(cur)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil
		}
		var out goform.Issues
		for i := 0; i < rv.Len(); i++ {
			if r := fn(path + "[" + strconv.Itoa(i) + "]"); r != nil {
				out = append(out, r(v)...)
			}
		}
		return out
	}
}

// ------- helpers -------

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

// equal treats numbers of different Go types as equal when their values are.
func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	x, okA := numberOf(a)
	y, okB := numberOf(b)
	return okA && okB && x == y
}

func compareOrdered(cur any, op Op, want any) bool {
	a, ok := numberOf(cur)
	if !ok {
		return false
	}
	b, ok := numberOf(want)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

// numberOf converts numeric kinds and numeric strings to float64. Form inputs
// arrive as strings, so "42" counts as a number.
func numberOf(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
