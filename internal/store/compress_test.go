package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"locality":"kyiv"}`), 50)

	c := newCodec(true, 6)
	encoded, err := c.Encode(payload)
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(payload))

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCodec_Disabled(t *testing.T) {
	payload := []byte(`{"locality":"kyiv"}`)

	c := newCodec(false, 6)
	encoded, err := c.Encode(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCodec_DecodeSniffsOldPlainRecords(t *testing.T) {
	// Records written while compression was off must read back after it is
	// turned on.
	plain := []byte(`{"locality":"kyiv"}`)
	c := newCodec(true, 6)
	decoded, err := c.Decode(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, decoded)
}

func TestCodec_BadLevelFallsBack(t *testing.T) {
	c := newCodec(true, 42)
	payload := []byte(`{"a":1}`)
	encoded, err := c.Encode(payload)
	require.NoError(t, err)
	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}
