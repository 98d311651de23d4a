package reading

import (
	"bytes"
	"encoding/json"
)

// Sentinel is written in place of a field that has no valid reading
const Sentinel = -1

// Number is the set of field types a Reading carries
type Number interface {
	~float64 | ~int64
}

// Value is a reading field that may be absent
type Value[T Number] struct {
	v  T
	ok bool
}

// Some wraps a present value
func Some[T Number](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None is an absent value
func None[T Number]() Value[T] {
	return Value[T]{}
}

// FromSentinel treats the sentinel as absent
func FromSentinel[T Number](v T) Value[T] {
	if v == Sentinel {
		return None[T]()
	}
	return Some(v)
}

func (v Value[T]) Get() (T, bool) {
	return v.v, v.ok
}

func (v Value[T]) Valid() bool {
	return v.ok
}

// OrSentinel returns the value, or Sentinel when absent
func (v Value[T]) OrSentinel() T {
	if !v.ok {
		return Sentinel
	}
	return v.v
}

// Or returns the value, or def when absent
func (v Value[T]) Or(def T) T {
	if !v.ok {
		return def
	}
	return v.v
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = None[T]()
		return nil
	}
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*v = Some(x)
	return nil
}
