// Package optional carries request fields that may be absent, null or blank.
package optional

import (
	"bytes"
	"encoding/json"
	"strings"
)

// String is a JSON string field that remembers whether it was sent.
// A JSON null counts as absent.
type String struct {
	value string
	set   bool
}

func Of(v string) String {
	return String{value: v, set: true}
}

func None() String {
	return String{}
}

// FromPtr maps nil to None.
func FromPtr(p *string) String {
	if p == nil {
		return None()
	}
	return Of(*p)
}

// Present reports whether the field was sent with a non-null value.
func (s String) Present() bool {
	return s.set
}

// Blank reports whether the field is absent or only whitespace.
func (s String) Blank() bool {
	return !s.set || strings.TrimSpace(s.value) == ""
}

func (s String) Value() string {
	return s.value
}

func (s String) Trimmed() string {
	return strings.TrimSpace(s.value)
}

// Ptr returns nil when the field is blank.
func (s String) Ptr() *string {
	if s.Blank() {
		return nil
	}
	v := s.value
	return &v
}

func (s *String) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = None()
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Of(v)
	return nil
}

func (s String) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}
