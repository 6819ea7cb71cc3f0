// Package record holds the in-memory shape of stored records: a tree of
// named fields whose values are scalars, nested records, or ordered lists
// of subrecords, exactly as they come out of the JSON store.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is a decoded record tree. Nested records are Record or
// map[string]any, lists are []any.
type Record map[string]any

// Decode parses a JSON object into a Record. Numbers are kept as
// json.Number so ids survive a load/store round-trip unchanged.
func Decode(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("failed to decode record: not a JSON object")
	}
	return rec, nil
}

// Encode marshals the record as compact JSON.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

// CloneValue deep-copies any record value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return Record(cloneMap(t))
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// AsMap returns v as a field map if it is a nested record.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return t, true
	}
	return nil, false
}

// AsList returns v as a list if it is one.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// List returns the list stored under field, or nil.
func (r Record) List(field string) []any {
	l, _ := AsList(r[field])
	return l
}

// String returns the string stored under field, or "".
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// URI returns the record's uri field.
func (r Record) URI() string {
	return r.String("uri")
}

// Equal compares two values by their JSON encoding, so an int and the
// json.Number decoded from the same digits compare equal.
func Equal(a, b any) bool {
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}

// Ref is one {"ref": "<uri>"} object found inside a record.
type Ref struct {
	Path string // dotted location of the object holding the ref
	URI  string
}

// Refs walks the record and returns every reference it holds, sorted by
// path. The record's own uri is not a reference.
func (r Record) Refs() []Ref {
	var refs []Ref
	walkRefs(map[string]any(r), nil, &refs)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs
}

func walkRefs(v any, path []string, refs *[]Ref) {
	if m, ok := AsMap(v); ok {
		if uri, ok := m["ref"].(string); ok && uri != "" && len(path) > 0 {
			*refs = append(*refs, Ref{Path: strings.Join(path, "."), URI: uri})
		}
		for k, child := range m {
			walkRefs(child, append(path, k), refs)
		}
		return
	}
	if l, ok := AsList(v); ok {
		for i, child := range l {
			walkRefs(child, append(path, fmt.Sprintf("%d", i)), refs)
		}
	}
}

// RewriteRefs replaces every ref equal to from with to and returns how many
// were rewritten.
func (r Record) RewriteRefs(from, to string) int {
	return rewriteRefs(map[string]any(r), from, to, true)
}

func rewriteRefs(v any, from, to string, root bool) int {
	n := 0
	if m, ok := AsMap(v); ok {
		if uri, ok := m["ref"].(string); ok && uri == from && !root {
			m["ref"] = to
			n++
		}
		for _, child := range m {
			n += rewriteRefs(child, from, to, false)
		}
		return n
	}
	if l, ok := AsList(v); ok {
		for _, child := range l {
			n += rewriteRefs(child, from, to, false)
		}
	}
	return n
}
