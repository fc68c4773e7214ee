// Package crypto is the signing capability consumed by the policy layer. Key
// material is only ever touched through this surface; callers pass documents
// and portfolios, not raw bytes.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/nacl/box"

	"arx/internal/document"
	"arx/internal/portfolio"
)

// ErrSigning reports that a document could not be signed. Verification never
// returns it: a failed verification is an expected outcome, not an error.
var ErrSigning = errors.New("signing failed")

// KeyPair is freshly generated ed25519 material. Seed is the 32-byte private
// seed; Verify the matching public key.
type KeyPair struct {
	Verify []byte
	Seed   []byte
}

// GenerateKeyPair produces a new ed25519 key pair from secure randomness.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: generate key pair: %v", ErrSigning, err)
	}
	return KeyPair{Verify: pub, Seed: priv.Seed()}, nil
}

// GenerateExchangePair produces a curve25519 key pair for key exchange,
// published alongside the signing key in a Keys document.
func GenerateExchangePair() (public, secret []byte, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate exchange pair: %v", ErrSigning, err)
	}
	return pub[:], priv[:], nil
}

// Sign signs data with the given ed25519 seed.
func Sign(data, seed []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrSigning, ed25519.SeedSize)
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), data), nil
}

// Verify reports whether sig is a valid signature of data under public. Bad
// input sizes report false rather than panicking; peer data is untrusted.
func Verify(data, sig, public []byte) bool {
	if len(public) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(public), data, sig)
}

// SignDocument attaches a signature over the document's canonical form using
// the portfolio's current private key. Unless multiple is set, an already
// signed document is refused.
func SignDocument(doc document.Document, priv *portfolio.PrivatePortfolio, multiple bool) error {
	h := doc.Head()
	if !multiple && len(h.Signatures) > 0 {
		return fmt.Errorf("%w: document already signed", ErrSigning)
	}

	keys := priv.PrivateKeys()
	if keys == nil {
		return fmt.Errorf("%w: portfolio holds no private keys", ErrSigning)
	}
	seed, err := keys.SeedKey()
	if err != nil {
		return fmt.Errorf("%w: decode seed: %v", ErrSigning, err)
	}

	sig, err := Sign(document.Canonical(doc), seed)
	if err != nil {
		return err
	}
	h.Signatures = append(h.Signatures, base64.StdEncoding.EncodeToString(sig))
	return nil
}

// VerifyDocument recomputes the canonical form and checks every attached
// signature against each of the claimed issuer's non-expired keys. Any
// cryptographic mismatch or malformed material reports false, never an error.
func VerifyDocument(doc document.Document, issuer *portfolio.Portfolio) bool {
	h := doc.Head()
	if len(h.Signatures) == 0 {
		return false
	}

	now := time.Now()
	data := document.Canonical(doc)
	for _, keys := range issuer.Keys() {
		if keys.Issuer != h.Issuer || keys.Expired(now) {
			continue
		}
		public, err := keys.VerifyKey()
		if err != nil {
			continue
		}
		for _, encoded := range h.Signatures {
			sig, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				continue
			}
			if Verify(data, sig, public) {
				return true
			}
		}
	}
	return false
}
