package rules

import (
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/reoring/goform"
	"github.com/reoring/goform/i18n"
	"github.com/reoring/goform/values"
)

// issue builds an Issue whose message is translated at validation time, so a
// language switch applies to schemas built earlier.
func issue(path, code string, kv ...any) goform.Issue {
	it := goform.Issue{Path: path, Code: code}
	if len(kv) > 0 {
		it.Params = make(map[string]any, len(kv)/2)
		data := make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k := fmt.Sprint(kv[i])
			it.Params[k] = kv[i+1]
			data[k] = fmt.Sprint(kv[i+1])
		}
		it.Message = i18n.T(code, data)
		return it
	}
	it.Message = i18n.T(code, nil)
	return it
}

// blank reports values a user has not filled in: missing, nil, empty or
// whitespace-only strings and empty collections.
func blank(v any, ok bool) bool {
	if !ok || v == nil {
		return true
	}
	if values.IsBlob(v) {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// present returns the value at path when it is filled in. Every rule except
// Required ignores blank fields.
func present(v map[string]any, path string) (any, bool) {
	cur, ok := values.Lookup(path, v)
	if blank(cur, ok) {
		return nil, false
	}
	return cur, true
}

// Required reports blank fields.
func Required(path string) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := values.Lookup(path, v)
		if blank(cur, ok) {
			return goform.Issues{issue(path, goform.CodeRequired)}
		}
		return nil
	}
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// MinLength requires at least n characters (runes) or n elements.
func MinLength(path string, n int) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		l, ok := length(cur)
		if !ok {
			return goform.Issues{issue(path, goform.CodeInvalidType, "expected", "text")}
		}
		if l < n {
			return goform.Issues{issue(path, goform.CodeTooShort, "min", n, "actual", l)}
		}
		return nil
	}
}

// MaxLength allows at most n characters (runes) or n elements.
func MaxLength(path string, n int) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		l, ok := length(cur)
		if !ok {
			return goform.Issues{issue(path, goform.CodeInvalidType, "expected", "text")}
		}
		if l > n {
			return goform.Issues{issue(path, goform.CodeTooLong, "max", n, "actual", l)}
		}
		return nil
	}
}

// Min requires a number (or numeric string) >= n.
func Min(path string, n float64) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		f, ok := numberOf(cur)
		if !ok {
			return goform.Issues{issue(path, goform.CodeInvalidType, "expected", "number")}
		}
		if f < n {
			return goform.Issues{issue(path, goform.CodeTooSmall, "min", n)}
		}
		return nil
	}
}

// Max requires a number (or numeric string) <= n.
func Max(path string, n float64) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		f, ok := numberOf(cur)
		if !ok {
			return goform.Issues{issue(path, goform.CodeInvalidType, "expected", "number")}
		}
		if f > n {
			return goform.Issues{issue(path, goform.CodeTooBig, "max", n)}
		}
		return nil
	}
}

// Pattern requires the string at path to match expr. It panics when expr does
// not compile, like regexp.MustCompile.
func Pattern(path, expr string) Rule {
	re := regexp.MustCompile(expr)
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		s, ok := cur.(string)
		if !ok {
			return goform.Issues{issue(path, goform.CodeInvalidType, "expected", "text")}
		}
		if !re.MatchString(s) {
			return goform.Issues{issue(path, goform.CodePattern, "pattern", expr)}
		}
		return nil
	}
}

// Email requires a bare address such as "a@b.com" (no display name).
func Email(path string) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		s, _ := cur.(string)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndexByte(s, '@')+1:], ".") {
			return goform.Issues{issue(path, goform.CodeInvalidFormat, "format", "email")}
		}
		return nil
	}
}

// OneOf restricts the value to options. Values compare by their printed form,
// so "2" matches 2.
func OneOf(path string, options ...any) Rule {
	allowed := make(map[string]struct{}, len(options))
	names := make([]string, 0, len(options))
	for _, o := range options {
		s := fmt.Sprint(o)
		allowed[s] = struct{}{}
		names = append(names, s)
	}
	joined := strings.Join(names, ", ")
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		if _, ok := allowed[fmt.Sprint(cur)]; !ok {
			return goform.Issues{issue(path, goform.CodeInvalidEnum, "options", joined)}
		}
		return nil
	}
}

// EqualTo requires the value at path to equal the value at other, e.g. a
// password confirmation.
func EqualTo(path, other string) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := present(v, path)
		if !ok {
			return nil
		}
		want, _ := values.Lookup(other, v)
		if !equal(cur, want) {
			return goform.Issues{issue(path, goform.CodeMismatch, "other", other)}
		}
		return nil
	}
}

// Custom reports a custom issue at path when ok returns false. ok sees the
// raw value (nil when missing) and the whole tree. An empty message uses the
// translated default.
func Custom(path, message string, ok func(v any, all map[string]any) bool) Rule {
	return func(v map[string]any) goform.Issues {
		cur, _ := values.Lookup(path, v)
		if ok(cur, v) {
			return nil
		}
		it := issue(path, goform.CodeCustom)
		if message != "" {
			it.Message = message
		}
		return goform.Issues{it}
	}
}

// AtLeastOne ensures the collection at path has at least 1 element.
func AtLeastOne(path string) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := values.Lookup(path, v)
		if !ok {
			return goform.Issues{issue(path, goform.CodeTooShort, "min", 1)}
		}
		if n, isColl := length(cur); isColl && n == 0 {
			return goform.Issues{issue(path, goform.CodeTooShort, "min", 1)}
		}
		return nil
	}
}

// UniqueBy ensures elements of the collection at path have unique values at
// key, a path relative to each element (e.g. "sku").
// Keys compare by their printed form; keep the key a single type.
func UniqueBy(path, key string) Rule {
	return func(v map[string]any) goform.Issues {
		cur, ok := values.Lookup(path, v)
		if !ok {
			return nil
		}
		rv := reflect.ValueOf(cur)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil
		}
		seen := map[string]int{}
		var out goform.Issues
		for i := 0; i < rv.Len(); i++ {
			kv, ok := values.Lookup(key, rv.Index(i).Interface())
			if !ok {
				continue
			}
			k := fmt.Sprint(kv)
			if j, dup := seen[k]; dup {
				out = append(out, issue(fmt.Sprintf("%s[%d].%s", path, i, key), goform.CodeDuplicate, "first", j, "key", k))
			} else {
				seen[k] = i
			}
		}
		return out
	}
}
