package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"
)

// cipher seals and opens payloads at rest. The facade secret is stretched into
// a secretbox key with blake2b; every payload carries its own random nonce.
type cipher struct {
	key [32]byte
}

var errDecrypt = errors.New("payload decryption failed")

func newCipher(secret []byte) *cipher {
	c := &cipher{key: blake2b.Sum256(secret)}
	return c
}

func (c *cipher) seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

func (c *cipher) open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, errDecrypt
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return nil, errDecrypt
	}
	return plaintext, nil
}
