package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	payloads := []string{
		"",
		"a",
		`{"id":"b3c8f6e2","kind":"rest"}`,
		"payload with spaces and unicode ✓",
	}
	secrets := []string{
		"short",
		"exactly-thirty-two-bytes-secret!",
		"a secret that is much longer than thirty-two bytes and gets truncated",
	}

	for _, secret := range secrets {
		codec, err := NewCodec(secret)
		require.NoError(t, err)

		for _, payload := range payloads {
			token, err := codec.Encode([]byte(payload))
			require.NoError(t, err)

			decoded, err := codec.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, payload, string(decoded))
		}
	}
}

func TestCodecNonDeterministic(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	first, err := codec.Encode([]byte("same payload"))
	require.NoError(t, err)
	second, err := codec.Encode([]byte("same payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCodecMalformed(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	t.Run("not base64", func(t *testing.T) {
		_, err := codec.Decode("!!! not base64 !!!")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("too short for nonce", func(t *testing.T) {
		_, err := codec.Decode("YWJj")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewCodec("different-secret")
		require.NoError(t, err)

		token, err := other.Encode([]byte("payload"))
		require.NoError(t, err)

		_, err = codec.Decode(token)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		token, err := codec.Encode([]byte("payload"))
		require.NoError(t, err)

		tampered := []byte(token)
		tampered[len(tampered)-5] ^= 1
		_, err = codec.Decode(string(tampered))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestNewCodecEmptySecret(t *testing.T) {
	_, err := NewCodec("")
	assert.Error(t, err)
}
