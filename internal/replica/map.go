package replica

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Map is a handle on a key/value container. Values are stored as JSON.
type Map struct {
	doc  *Doc
	name string
}

// NewMap returns a handle on the map container name in d.
func NewMap(d *Doc, name string) *Map {
	return &Map{doc: d, name: name}
}

// Name returns the container name.
func (m *Map) Name() string { return m.name }

// Raw returns the stored JSON for key.
func (m *Map) Raw(key string) (json.RawMessage, bool) {
	v, ok := m.doc.view.maps[m.name][key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.doc.view.maps[m.name]))
	for k := range m.doc.view.maps[m.name] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set stores v under key.
func (m *Map) Set(tx *Txn, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s[%s]: %w", m.name, key, err)
	}
	tx.record(Op{Container: m.name, Kind: OpSet, Key: key, Value: raw})
	return nil
}

// Delete removes key.
func (m *Map) Delete(tx *Txn, key string) {
	tx.record(Op{Container: m.name, Kind: OpUnset, Key: key})
}

// Observe registers fn for changes to this map.
func (m *Map) Observe(fn func()) (cancel func()) {
	return m.doc.Observe(m.name, fn)
}

// Value decodes the value stored under key into T.
//
// Postcondition: ok is false when key is absent or its value does not decode
// as T; the zero T is returned in that case.
func Value[T any](m *Map, key string) (v T, ok bool) {
	raw, present := m.Raw(key)
	if !present {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}
