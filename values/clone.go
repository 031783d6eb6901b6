package values

import "reflect"

// Clone returns a structural copy of in. Maps, slices, arrays and struct
// pointers are copied recursively so the result shares no mutable container
// with in. Blobs are returned by reference and nil stays nil.
func Clone[T any](in T) T {
	out, ok := cloneAny(in).(T)
	if !ok {
		var zero T
		return zero
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneAny(vv)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneAny(vv)
		}
		return out
	case string, bool, int, int64, float64:
		return v
	}
	if IsBlob(v) {
		return v
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

func cloneValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return reflect.Zero(rv.Type())
		}
		inner := rv.Elem()
		if IsBlob(inner.Interface()) {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneValue(inner))
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() || (rv.CanInterface() && IsBlob(rv.Interface())) {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(cloneValue(rv.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(cloneValue(rv.Field(i)))
		}
		return out
	}
	return rv
}
