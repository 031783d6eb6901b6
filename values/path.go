package values

import (
	"reflect"
	"strconv"
	"strings"
)

type absent struct{}

// Absent stands for "no value". Writing it anywhere is a no-op, so callers can
// forward optional values without creating entries that store nothing.
var Absent any = absent{}

// IsAbsent reports whether v is Absent.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// Split breaks a field path into its segments: "arr[1].name" -> [arr 1 name].
// Separators are '.', '[' and ']'; empty segments are dropped.
func Split(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
}

// Write stores value at path inside root, mutating root in place.
//
// Every segment but the last must already exist; Write never creates
// intermediate containers and reports a *PathTraversalError instead. Maps
// accept new keys for the last segment, slices require an in-range index.
func Write(path string, value any, root any) error {
	if IsAbsent(value) {
		return nil
	}
	segs := Split(path)
	if len(segs) == 0 {
		return &PathTraversalError{Path: path, Reason: "empty path"}
	}
	cur := root
	for i, seg := range segs[:len(segs)-1] {
		next, reason := child(cur, seg)
		if reason != "" {
			return &PathTraversalError{Path: path, Segment: seg, Depth: i, Reason: reason}
		}
		cur = next
	}
	last := len(segs) - 1
	if reason := assign(cur, segs[last], value); reason != "" {
		return &PathTraversalError{Path: path, Segment: segs[last], Depth: last, Reason: reason}
	}
	return nil
}

// Read returns the value stored at path. Missing entries are reported as a
// *PathTraversalError.
func Read(path string, root any) (any, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, &PathTraversalError{Path: path, Reason: "empty path"}
	}
	cur := root
	for i, seg := range segs {
		next, reason := child(cur, seg)
		if reason != "" {
			return nil, &PathTraversalError{Path: path, Segment: seg, Depth: i, Reason: reason}
		}
		cur = next
	}
	return cur, nil
}

// Lookup is Read without the error: ok is false when path does not resolve.
func Lookup(path string, root any) (any, bool) {
	v, err := Read(path, root)
	return v, err == nil
}

func child(cur any, seg string) (any, string) {
	switch c := cur.(type) {
	case nil:
		return nil, "cannot traverse nil"
	case map[string]any:
		v, ok := c[seg]
		if !ok {
			return nil, "no such key"
		}
		return v, ""
	case []any:
		idx, reason := index(seg, len(c))
		if reason != "" {
			return nil, reason
		}
		return c[idx], ""
	}
	if IsBlob(cur) {
		return nil, "cannot traverse blob"
	}
	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, "cannot traverse nil"
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, "map key is not a string"
		}
		mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, "no such key"
		}
		return mv.Interface(), ""
	case reflect.Slice, reflect.Array:
		idx, reason := index(seg, rv.Len())
		if reason != "" {
			return nil, reason
		}
		return rv.Index(idx).Interface(), ""
	case reflect.Struct:
		fv, ok := structField(rv, seg)
		if !ok {
			return nil, "no such field"
		}
		return fv.Interface(), ""
	}
	return nil, "cannot traverse " + rv.Kind().String()
}

func assign(cur any, seg string, value any) string {
	switch c := cur.(type) {
	case nil:
		return "cannot assign into nil"
	case map[string]any:
		c[seg] = value
		return ""
	case []any:
		idx, reason := index(seg, len(c))
		if reason != "" {
			return reason
		}
		c[idx] = value
		return ""
	}
	if IsBlob(cur) {
		return "cannot assign into blob"
	}
	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return "cannot assign into nil"
		}
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return "map key is not a string"
		}
		val, reason := convertTo(value, rv.Type().Elem())
		if reason != "" {
			return reason
		}
		rv.SetMapIndex(reflect.ValueOf(seg).Convert(kt), val)
		return ""
	case reflect.Slice:
		idx, reason := index(seg, rv.Len())
		if reason != "" {
			return reason
		}
		val, reason := convertTo(value, rv.Type().Elem())
		if reason != "" {
			return reason
		}
		rv.Index(idx).Set(val)
		return ""
	case reflect.Pointer:
		if rv.IsNil() {
			return "cannot assign into nil"
		}
		sv := rv.Elem()
		if sv.Kind() != reflect.Struct {
			return "cannot assign into " + sv.Kind().String()
		}
		fv, ok := structField(sv, seg)
		if !ok {
			return "no such field"
		}
		val, reason := convertTo(value, fv.Type())
		if reason != "" {
			return reason
		}
		fv.Set(val)
		return ""
	}
	return "cannot assign into " + rv.Kind().String()
}

func index(seg string, n int) (int, string) {
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, "not an index"
	}
	if idx < 0 || idx >= n {
		return 0, "index out of range"
	}
	return idx, ""
}

func convertTo(value any, t reflect.Type) (reflect.Value, string) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(t), ""
		}
		return reflect.Value{}, "cannot assign nil to " + t.String()
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, ""
	}
	if v.Type().ConvertibleTo(t) && v.Kind() != reflect.String && t.Kind() != reflect.String {
		return v.Convert(t), ""
	}
	return reflect.Value{}, "cannot assign " + v.Type().String() + " to " + t.String()
}

// structField resolves seg against exported fields: form tag, then json tag,
// then the Go field name.
func structField(sv reflect.Value, seg string) (reflect.Value, bool) {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		if FieldKey(sf) == seg {
			return sv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// FieldKey returns the external key of a struct field.
// Priority: form:"name" > json tag name > field name; "-" disables the field.
func FieldKey(sf reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		t := sf.Tag.Get(tag)
		if t == "" {
			continue
		}
		if i := strings.IndexByte(t, ','); i >= 0 {
			t = t[:i]
		}
		if t != "" {
			return t
		}
	}
	return sf.Name
}
