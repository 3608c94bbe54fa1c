package types

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Mapping is an ordered string-keyed document node. Keys keep the order in
// which they were first set.
type Mapping struct {
	keys       []string
	values     map[string]any
	includeDir string
	frozen     bool
}

func NewMapping() *Mapping {
	return &Mapping{values: map[string]any{}}
}

// MappingOf builds a mapping from alternating key/value arguments.
func MappingOf(pairs ...any) *Mapping {
	m := NewMapping()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("types: mapping key %v is not a string", pairs[i]))
		}
		_ = m.Set(key, pairs[i+1])
	}
	return m
}

func (m *Mapping) Set(key string, value any) error {
	if m.frozen {
		return frozenError("mapping key " + key)
	}
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return nil
}

func (m *Mapping) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	value, ok := m.values[key]
	return value, ok
}

func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// String returns the value under key when it is a string.
func (m *Mapping) String(key string) (string, bool) {
	value, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func (m *Mapping) Delete(key string) error {
	if m.frozen {
		return frozenError("mapping key " + key)
	}
	if _, ok := m.values[key]; !ok {
		return nil
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an unfrozen shallow copy that keeps the include directory.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	out.includeDir = m.includeDir
	for _, key := range m.keys {
		_ = out.Set(key, m.values[key])
	}
	return out
}

// IncludeDir is the directory of the file this subtree was included from,
// or empty for subtrees of the root document.
func (m *Mapping) IncludeDir() string {
	if m == nil {
		return ""
	}
	return m.includeDir
}

func (m *Mapping) SetIncludeDir(dir string) {
	m.includeDir = dir
}

// ToMap converts the mapping into nested plain maps and slices. Entities
// and other non-document values are passed through as is.
func (m *Mapping) ToMap() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, key := range m.keys {
		out[key] = plain(m.values[key])
	}
	return out
}

func (m *Mapping) Freeze() {
	if m == nil || m.frozen {
		return
	}
	m.frozen = true
	for _, value := range m.values {
		freeze(value)
	}
}

func (m *Mapping) Frozen() bool {
	return m != nil && m.frozen
}

// Sequence is an ordered list document node.
type Sequence struct {
	items  []any
	frozen bool
}

func NewSequence(items ...any) *Sequence {
	out := make([]any, len(items))
	copy(out, items)
	return &Sequence{items: out}
}

func (s *Sequence) At(i int) (any, bool) {
	if s == nil || i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

func (s *Sequence) Set(i int, value any) error {
	if s.frozen {
		return frozenError(fmt.Sprintf("sequence index %d", i))
	}
	if i < 0 || i >= len(s.items) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("sequence index %d out of range", i))
	}
	s.items[i] = value
	return nil
}

func (s *Sequence) Append(value any) error {
	if s.frozen {
		return frozenError("sequence")
	}
	s.items = append(s.items, value)
	return nil
}

func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the sequence elements.
func (s *Sequence) Items() []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Sequence) Freeze() {
	if s == nil || s.frozen {
		return
	}
	s.frozen = true
	for _, item := range s.items {
		freeze(item)
	}
}

func (s *Sequence) Frozen() bool {
	return s != nil && s.frozen
}

func freeze(value any) {
	switch v := value.(type) {
	case *Mapping:
		v.Freeze()
	case *Sequence:
		v.Freeze()
	}
}

func plain(value any) any {
	switch v := value.(type) {
	case *Mapping:
		return v.ToMap()
	case *Sequence:
		out := make([]any, 0, v.Len())
		for _, item := range v.items {
			out = append(out, plain(item))
		}
		return out
	default:
		return value
	}
}

func frozenError(what string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("config tree is read-only: cannot modify " + what)
}
