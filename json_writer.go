package fintrack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object with its keys in insertion order,
// so that a booking's "type" always comes first.
// Its zero value is an empty object. The first marshaling error sticks.
type jsonObjectWriter struct {
	fields bytes.Buffer
	err    error
}

// Append adds key with value marshaled by json.Marshal.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal field %q: %w", key, err)
		return w
	}
	k, _ := json.Marshal(key)
	if w.fields.Len() > 0 {
		w.fields.WriteByte(',')
	}
	w.fields.Write(k)
	w.fields.WriteByte(':')
	w.fields.Write(v)
	return w
}

// Optional is Append skipping the zero value of value's type.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON returns the object built so far.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := make([]byte, 0, w.fields.Len()+2)
	out = append(out, '{')
	out = append(out, w.fields.Bytes()...)
	return append(out, '}'), nil
}
