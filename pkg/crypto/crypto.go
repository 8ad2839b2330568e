package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// ErrMalformed is returned when a token is not validly shaped ciphertext:
// bad encoding, truncated nonce, or an authentication failure.
var ErrMalformed = errors.New("malformed token")

const keyLength = 32

// Codec performs reversible symmetric encoding of token payloads with
// AES-256-GCM. A fresh random nonce is generated per encode and carried
// as a prefix of the ciphertext, so two encodes of the same payload never
// produce the same token. The derived key is fixed after construction and
// safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives a cipher from secret, padding or truncating it to the
// AES-256 key length.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}

	key := []byte(secret)
	if len(key) < keyLength {
		padded := make([]byte, keyLength)
		copy(padded, key)
		key = padded
	} else if len(key) > keyLength {
		key = key[:keyLength]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead}, nil
}

// Encode seals payload into an opaque base64url token.
func (c *Codec) Encode(payload []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, payload, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Any input that does not decode and authenticate
// cleanly fails with ErrMalformed.
func (c *Codec) Decode(token string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformed
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrMalformed
	}

	payload, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrMalformed
	}

	return payload, nil
}
