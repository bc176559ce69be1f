package codec

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"
)

const JSONName = "json"

// JSON encodes with goccy/go-json. Map keys are written in sorted order and
// HTML escaping is off so stored content matches what other JSON producers emit.
// Numbers decode into untyped destinations as json.Number, keeping their digits
// exact when re-encoded.
type JSON struct{}

func (JSON) Name() string { return JSONName }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}

func (JSON) NewEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (c JSON) Unmarshal(data []byte, dst any) error {
	return c.NewDecoder(bytes.NewReader(data)).Decode(dst)
}

func (JSON) NewDecoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}
