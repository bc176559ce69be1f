package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

const CBORName = "cbor"

// CBOR encodes with the Core Deterministic Encoding of RFC 8949 and decodes
// maps as map[string]any so decoded specs look like decoded JSON.
type CBOR struct{}

var (
	cborEncMode = mustEncMode()
	cborDecMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func (CBOR) Name() string { return CBORName }

func (CBOR) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (CBOR) NewEncoder(w io.Writer) Encoder {
	return cborEncMode.NewEncoder(w)
}

func (CBOR) Unmarshal(data []byte, dst any) error {
	return cborDecMode.Unmarshal(data, dst)
}

func (CBOR) NewDecoder(r io.Reader) Decoder {
	return cborDecMode.NewDecoder(r)
}
