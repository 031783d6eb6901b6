package goform

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FieldMap is an insertion-ordered mapping from field path to V. Errors are a
// FieldMap[string] and touched flags a FieldMap[bool]. A missing key means
// "no error" / "not touched"; a key may be present with the zero value, which
// is how ValidateFields records that a field was checked and found valid.
//
// The zero value is an empty map ready to use. FieldMap holds references, so
// use Clone before handing a map to code that may mutate it.
type FieldMap[V any] struct {
	keys []string
	vals map[string]V
}

// Fields builds a FieldMap from a Go map with keys in sorted order.
func Fields[V any](m map[string]V) FieldMap[V] {
	var out FieldMap[V]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out.Set(k, m[k])
	}
	return out
}

// Set stores v at key. New keys are appended to the order, existing keys keep
// their position.
func (m *FieldMap[V]) Set(key string, v V) {
	if m.vals == nil {
		m.vals = make(map[string]V)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value at key and whether the key is present.
func (m FieldMap[V]) Get(key string) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Value returns the value at key or the zero value.
func (m FieldMap[V]) Value(key string) V { return m.vals[key] }

// Has reports whether key is present.
func (m FieldMap[V]) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Delete removes key.
func (m *FieldMap[V]) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

func (m FieldMap[V]) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m FieldMap[V]) Keys() []string { return slices.Clone(m.keys) }

// All iterates entries in insertion order.
func (m FieldMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (m FieldMap[V]) Clone() FieldMap[V] {
	var out FieldMap[V]
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

// Merge returns the union of m and other. Values from other win; keys new to
// m are appended in other's order.
func (m FieldMap[V]) Merge(other FieldMap[V]) FieldMap[V] {
	out := m.Clone()
	for k, v := range other.All() {
		out.Set(k, v)
	}
	return out
}

// Map returns the entries as a plain Go map (never nil).
func (m FieldMap[V]) Map() map[string]V {
	out := make(map[string]V, len(m.keys))
	for k, v := range m.All() {
		out[k] = v
	}
	return out
}

func (m FieldMap[V]) String() string { return fmt.Sprint(m.Map()) }

// MarshalJSON writes an object with keys in insertion order.
func (m FieldMap[V]) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping the document's key order.
func (m *FieldMap[V]) UnmarshalJSON(data []byte) error {
	*m = FieldMap[V]{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	keys, err := jsonKeyOrder(data)
	if err != nil {
		return err
	}
	var raw map[string]V
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range keys {
		m.Set(k, raw[k])
	}
	return nil
}

// MarshalYAML emits a mapping node with keys in insertion order.
func (m FieldMap[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range m.All() {
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &val)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping node, keeping the document's key order.
func (m *FieldMap[V]) UnmarshalYAML(node *yaml.Node) error {
	*m = FieldMap[V]{}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("goform: line %d: field map must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", node.Content[i].Value, err)
		}
		m.Set(node.Content[i].Value, v)
	}
	return nil
}

func jsonKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("goform: field map must be a JSON object")
	}
	var keys []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return keys, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("goform: unexpected token %v in field map", tok)
		}
		keys = append(keys, key)
		if err := skipJSONValue(dec); err != nil {
			return nil, err
		}
	}
}

func skipJSONValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}
