package mock

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"log/slog"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"

	"github.com/govm-net/harness/types"
)

// Crypto provides deterministic stand-ins for the node-side crypto
// primitives, all keyed by one storage nonce.
type Crypto struct {
	nonce []byte
	key   *secp256k1.PrivateKey
}

// NewCrypto derives the signing key and the encryption key from storageNonce.
func NewCrypto(storageNonce []byte) *Crypto {
	seed := sha256.Sum256(append([]byte("sign:"), storageNonce...))
	return &Crypto{
		nonce: append([]byte(nil), storageNonce...),
		key:   secp256k1.PrivKeyFromBytes(seed[:]),
	}
}

// Table exposes the primitives as mocks.
func (c *Crypto) Table() *Table {
	return &Table{
		HmacWithStorageNonce: func(data []byte, fn types.HashFunction) []byte {
			out, err := c.HMAC(data, fn)
			if err != nil {
				slog.Error("hmac stand-in failed", "error", err)
				return nil
			}
			return out
		},
		SignWithRecovery: c.Sign,
		DecryptWithStorageNonce: func(sealed []byte) []byte {
			out, err := c.Decrypt(sealed)
			if err != nil {
				slog.Error("decrypt stand-in failed", "error", err)
				return nil
			}
			return out
		},
	}
}

func hashConstructor(fn types.HashFunction) (func() hash.Hash, error) {
	switch fn {
	case types.SHA256:
		return sha256.New, nil
	case types.SHA512:
		return sha512.New, nil
	case types.SHA3_256:
		return sha3.New256, nil
	case types.SHA3_512:
		return sha3.New512, nil
	}
	return nil, fmt.Errorf("unsupported hash function %s", fn)
}

// HMAC authenticates data with the storage nonce as key.
func (c *Crypto) HMAC(data []byte, fn types.HashFunction) ([]byte, error) {
	newHash, err := hashConstructor(fn)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, c.nonce)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// PublicKey is the compressed key recoverable from Sign's signatures.
func (c *Crypto) PublicKey() []byte {
	return c.key.PubKey().SerializeCompressed()
}

// Sign returns a 65 byte compact recoverable secp256k1 signature. Data that is
// not already a 32 byte digest is hashed with SHA-256 first.
func (c *Crypto) Sign(data []byte) []byte {
	return ecdsa.SignCompact(c.key, digest(data), true)
}

// Recover returns the compressed public key that produced sig over data.
func Recover(sig, data []byte) ([]byte, error) {
	pub, _, err := ecdsa.RecoverCompact(sig, digest(data))
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

func digest(data []byte) []byte {
	if len(data) == sha256.Size {
		return data
	}
	sum := sha256.Sum256(data)
	return sum[:]
}

func (c *Crypto) aead() (cipher.AEAD, error) {
	key := sha256.Sum256(append([]byte("aead:"), c.nonce...))
	return chacha20poly1305.NewX(key[:])
}

// Encrypt seals plaintext so that Decrypt (and the decryptWithStorageNonce
// mock) can open it. The nonce is prepended to the ciphertext.
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Crypto) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, sealed, nil)
}
