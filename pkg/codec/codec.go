// Package codec serializes identity specs for storage.
//
// Both codecs are deterministic: encoding the same value twice yields the same
// bytes, which is what content addressing relies on.
package codec

import "io"

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is a named Marshaler/Unmarshaler pair.
type Codec interface {
	Marshaler
	Unmarshaler
	Name() string
}

// ByName returns the codec registered under name ("json" or "cbor").
func ByName(name string) (Codec, bool) {
	switch name {
	case JSONName, "":
		return JSON{}, true
	case CBORName:
		return CBOR{}, true
	default:
		return nil, false
	}
}
