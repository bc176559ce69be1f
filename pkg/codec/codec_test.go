package codec_test

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ki1r0y/nouns/pkg/codec"
)

func TestByName(t *testing.T) {
	c, ok := codec.ByName("")
	require.True(t, ok)
	assert.Equal(t, codec.JSONName, c.Name())

	c, ok = codec.ByName("cbor")
	require.True(t, ok)
	assert.Equal(t, codec.CBORName, c.Name())

	_, ok = codec.ByName("msgpack")
	assert.False(t, ok)
}

func TestDeterministicEncoding(t *testing.T) {
	spec := map[string]any{
		"title":       "a <title>",
		"description": "a description",
		"childspecs":  []any{map[string]any{"idtag": "x"}},
	}

	for _, c := range []codec.Codec{codec.JSON{}, codec.CBOR{}} {
		t.Run(c.Name(), func(t *testing.T) {
			first, err := c.Marshal(spec)
			require.NoError(t, err)
			for i := 0; i < 10; i++ {
				again, err := c.Marshal(spec)
				require.NoError(t, err)
				require.Equal(t, first, again)
			}

			var decoded map[string]any
			require.NoError(t, c.Unmarshal(first, &decoded))
			assert.Equal(t, "a <title>", decoded["title"])

			children, ok := decoded["childspecs"].([]any)
			require.True(t, ok)
			child, ok := children[0].(map[string]any)
			require.True(t, ok, "nested maps decode with string keys")
			assert.Equal(t, "x", child["idtag"])

			reencoded, err := c.Marshal(decoded)
			require.NoError(t, err)
			assert.Equal(t, first, reencoded)
		})
	}
}

func TestJSONDoesNotEscapeHTML(t *testing.T) {
	out, err := codec.JSON{}.Marshal(map[string]any{"title": "<b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"<b>"}`, string(out))
}

func TestStreaming(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.CBOR{}} {
		var buf bytes.Buffer
		require.NoError(t, c.NewEncoder(&buf).Encode(map[string]any{"keytag": "k"}))

		var decoded map[string]any
		require.NoError(t, c.NewDecoder(&buf).Decode(&decoded))
		assert.Equal(t, "k", decoded["keytag"], c.Name())
	}
}

func TestJSONKeepsLargeIntegersExact(t *testing.T) {
	c := codec.JSON{}
	first, err := c.Marshal(map[string]any{"keytag": int64(1<<60 + 1), "ratio": 0.25})
	require.NoError(t, err)
	assert.Equal(t, `{"keytag":1152921504606846977,"ratio":0.25}`, string(first))

	var decoded map[string]any
	require.NoError(t, c.Unmarshal(first, &decoded))
	assert.Equal(t, json.Number("1152921504606846977"), decoded["keytag"])

	again, err := c.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestJSONRejectsMalformedInput(t *testing.T) {
	var decoded map[string]any
	assert.Error(t, codec.JSON{}.Unmarshal([]byte("not json"), &decoded))
	assert.Error(t, codec.JSON{}.Unmarshal(nil, &decoded))
}
