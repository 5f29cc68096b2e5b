package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte { return bytes.Repeat([]byte{7}, 32) }

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("share-1", []byte(`{"id":"c1"}`))
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, string(sealed), `"id"`)

	plain, err := s.Open("share-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"c1"}`, string(plain))
}

func TestSealer_LabelBinding(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal("share-1", []byte("payload"))
	require.NoError(t, err)

	_, err = s.Open("share-2", sealed)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSealer_PlainPassthroughAndTruncation(t *testing.T) {
	s, err := NewSealer(testKey())
	require.NoError(t, err)

	plain, err := s.Open("x", []byte(`{"legacy":true}`))
	require.NoError(t, err)
	assert.Equal(t, `{"legacy":true}`, string(plain))

	_, err = s.Open("x", []byte("vtx1:abc"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNewSealer_BadKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}
