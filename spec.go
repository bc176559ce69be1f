package nouns

import (
	"bytes"
	"context"
	"math"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/future"
)

// Spec is an insertion ordered property map. Gathered identity and child specs
// are Specs so their serialization follows the declared property order.
type Spec struct {
	keys   []string
	values map[string]any
}

func NewSpec() *Spec {
	return &Spec{values: make(map[string]any)}
}

// Set stores v under key, appending key to the order the first time it is seen.
func (s *Spec) Set(key string, v any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

func (s *Spec) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

func (s *Spec) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

func (s *Spec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Map returns a plain copy of the spec. Nested specs stay as *Spec.
func (s *Spec) Map() map[string]any {
	out := make(map[string]any, s.Len())
	if s == nil {
		return out
	}
	for _, k := range s.keys {
		out[k] = s.values[k]
	}
	return out
}

func (s *Spec) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	c := codec.JSON{}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := c.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := c.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalCBOR writes the spec as a deterministic CBOR map. Deterministic CBOR
// orders keys by their encoding, so the declared order does not survive, but the
// bytes are still a pure function of the content.
func (s *Spec) MarshalCBOR() ([]byte, error) {
	if s == nil {
		return codec.CBOR{}.Marshal(nil)
	}
	return codec.CBOR{}.Marshal(s.Map())
}

// IsMissingData reports whether v counts as absent when gathering: nil, the empty
// string, false, numeric zero or NaN, and empty slices, arrays, maps or specs.
func IsMissingData(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case *Spec:
		return t.Len() == 0
	case json.Number:
		f, err := t.Float64()
		return t == "" || (err == nil && (f == 0 || math.IsNaN(f)))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0 || math.IsNaN(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.IsZero()
	case reflect.Bool:
		return !rv.Bool()
	}
	return false
}

// Gather resolves the named properties of n and collects the ones carrying data,
// in the order of keys.
func Gather(ctx context.Context, n *Noun, keys []string) *future.Future[*Spec] {
	fs := make([]*future.Future[any], len(keys))
	for i, k := range keys {
		fs[i] = n.Property(ctx, k)
	}
	return future.Map(future.All(ctx, fs), func(values []any) (*Spec, error) {
		spec := NewSpec()
		for i, v := range values {
			if !IsMissingData(v) {
				spec.Set(keys[i], v)
			}
		}
		return spec, nil
	})
}
