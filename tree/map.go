// Package tree implements the ordered tree model and its XML codec.
//
// A tree is made of three kinds of values:
//
//   - string: element text or attribute value
//   - *Map: an ordered mapping of keys to values
//   - List: repeated sibling elements sharing one key
//
// Map keys starting with "@" are attributes, the key "_text" holds element
// text, every other key is a child element addressed by local name or by a
// "prefix:local" qualified name. A child whose namespace URI is unknown is
// keyed as "{URI}local".
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// TextKey holds the text content of an element that also has attributes
	// or children.
	TextKey = "_text"

	// AttrPrefix marks a key as an attribute.
	AttrPrefix = "@"
)

// Value is one of string, *Map or List.
type Value interface{}

// List is a sequence of sibling elements sharing one key.
type List []Value

// Map is an ordered mapping of element keys to values.
type Map struct {
	keys   []string
	values map[string]Value

	// Order, when set, overrides the order-spec of the enclosing scope for
	// this node's children. Decode fills it with the as-received order.
	Order []string

	// Namespaces are extra prefix bindings introduced at this node.
	Namespaces map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Of builds a Map from alternating keys and values, preserving their order.
// It panics if pairs has odd length or a key is not a string.
func Of(pairs ...interface{}) *Map {
	if len(pairs)%2 != 0 {
		panic("tree: Of called with an odd number of arguments")
	}

	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("tree: Of key %v is not a string", pairs[i]))
		}
		m.Set(key, pairs[i+1])
	}

	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position. Setting a
// nil value keeps the key but it is skipped on Encode.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}

	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = normalize(v)
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}

	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// GetMap returns the child map stored under key.
func (m *Map) GetMap(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Map)
	return child, ok
}

// GetString returns the text of key. A map value yields its _text.
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}

	switch t := v.(type) {
	case string:
		return t, true
	case *Map:
		return t.GetString(TextKey)
	}

	return "", false
}

// GetList returns the value of key as a List; a single value is wrapped.
func (m *Map) GetList(key string) List {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	return AsList(v)
}

// Ensure returns the child map under key, creating it if absent or if the
// current value is not a map.
func (m *Map) Ensure(key string) *Map {
	if child, ok := m.GetMap(key); ok {
		return child
	}

	child := NewMap()
	m.Set(key, child)
	return child
}

// EnsurePath walks path creating intermediate maps.
func (m *Map) EnsurePath(path ...string) *Map {
	cur := m
	for _, key := range path {
		cur = cur.Ensure(key)
	}
	return cur
}

// Lookup walks path through nested maps. When a List is encountered the
// walk continues into its first element.
func (m *Map) Lookup(path ...string) (Value, bool) {
	var cur Value = m

	for _, key := range path {
		if l, ok := cur.(List); ok {
			if len(l) == 0 {
				return nil, false
			}
			cur = l[0]
		}

		cm, ok := cur.(*Map)
		if !ok {
			return nil, false
		}

		if cur, ok = cm.Get(key); !ok {
			return nil, false
		}
	}

	return cur, true
}

// LookupMap is Lookup constrained to a map result.
func (m *Map) LookupMap(path ...string) (*Map, bool) {
	v, ok := m.Lookup(path...)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Map)
	return child, ok
}

// RootKey returns the first key that names an element.
func (m *Map) RootKey() (string, bool) {
	for _, k := range m.Keys() {
		if IsElementKey(k) {
			return k, true
		}
	}
	return "", false
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}

	out := &Map{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]Value, len(m.values)),
	}

	if m.Order != nil {
		out.Order = append([]string(nil), m.Order...)
	}
	if m.Namespaces != nil {
		out.Namespaces = make(map[string]string, len(m.Namespaces))
		for k, v := range m.Namespaces {
			out.Namespaces[k] = v
		}
	}

	for k, v := range m.values {
		out.values[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v Value) Value {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case List:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// MarshalJSON renders m as a JSON object preserving key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// String renders m as JSON, for debugging.
func (m *Map) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("tree.Map(%v)", err)
	}
	return string(b)
}

// AsList wraps a single value in a List. A nil value yields nil.
func AsList(v Value) List {
	switch t := v.(type) {
	case nil:
		return nil
	case List:
		return t
	case []Value:
		return List(t)
	}
	return List{v}
}

// Text returns the text of a value: a string itself or a map's _text.
func Text(v Value) string {
	switch t := v.(type) {
	case string:
		return t
	case *Map:
		s, _ := t.GetString(TextKey)
		return s
	}
	return ""
}

// IsElementKey reports whether key names a child element rather than an
// attribute or text. Other names starting with an underscore are valid
// elements.
func IsElementKey(key string) bool {
	return key != TextKey && !strings.HasPrefix(key, AttrPrefix)
}

// LocalName strips any prefix or {URI} qualifier from key.
func LocalName(key string) string {
	if strings.HasPrefix(key, "{") {
		if i := strings.LastIndex(key, "}"); i >= 0 {
			return key[i+1:]
		}
	}
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// SplitPrefix splits "prefix:local" into its parts. Keys without a prefix,
// and {URI}local keys, return an empty prefix.
func SplitPrefix(key string) (prefix, local string) {
	if strings.HasPrefix(key, "{") {
		return "", key
	}
	if i := strings.Index(key, ":"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

// normalize converts convenience Go values into tree values.
func normalize(v Value) Value {
	switch t := v.(type) {
	case nil, string, *Map, List:
		return v
	case []Value:
		return List(t)
	case []interface{}:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make(List, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []*Map:
		out := make(List, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
