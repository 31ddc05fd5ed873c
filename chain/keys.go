// Package chain simulates the chain collaborator locally: deterministic
// key chains derived from a seed, transaction signing, and settlement of UCO
// and token transfers over a pluggable Store.
package chain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/govm-net/harness/types"
)

// keyHeader prefixes keys and addresses: secp256k1 curve, SHA-256 digest.
var keyHeader = []byte{0x02, 0x00}

var (
	// ErrInvalidSignature is returned when the previous signature does not
	// match the previous public key.
	ErrInvalidSignature = errors.New("invalid previous signature")
	// ErrInvalidPublicKey is returned for keys that do not carry a
	// compressed secp256k1 point.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// ParseSeed accepts a hex seed or, failing that, the raw string bytes.
func ParseSeed(s string) []byte {
	if b, err := hex.DecodeString(s); err == nil && len(b) > 0 {
		return b
	}
	return []byte(s)
}

// RandomSeed returns a fresh 32 byte seed.
func RandomSeed() ([]byte, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// DeriveKey returns the key at index of the chain derived from seed.
func DeriveKey(seed []byte, index uint32) *secp256k1.PrivateKey {
	buf := make([]byte, len(seed)+4)
	copy(buf, seed)
	binary.BigEndian.PutUint32(buf[len(seed):], index)
	sum := sha256.Sum256(buf)
	return secp256k1.PrivKeyFromBytes(sum[:])
}

// PublicKeyOf renders the public half of key.
func PublicKeyOf(key *secp256k1.PrivateKey) types.PublicKey {
	return types.PublicKeyFromBytes(append(append([]byte(nil), keyHeader...), key.PubKey().SerializeCompressed()...))
}

// AddressOf returns the address a public key controls.
func AddressOf(pub types.PublicKey) (types.Address, error) {
	raw, err := hex.DecodeString(string(pub))
	if err != nil || len(raw) != len(keyHeader)+secp256k1.PubKeyBytesLenCompressed {
		return "", ErrInvalidPublicKey
	}
	sum := sha256.Sum256(raw[len(keyHeader):])
	return types.AddressFromBytes(append(append([]byte(nil), keyHeader...), sum[:]...)), nil
}

// DeriveAddress returns the address of the key at index.
func DeriveAddress(seed []byte, index uint32) types.Address {
	addr, err := AddressOf(PublicKeyOf(DeriveKey(seed, index)))
	if err != nil {
		panic(err)
	}
	return addr
}

// GenesisAddress is the address of the first key of seed's chain.
func GenesisAddress(seed []byte) types.Address {
	return DeriveAddress(seed, 0)
}

// Normalize upper-cases an address so it can key maps and rows.
func Normalize(a types.Address) types.Address {
	return types.Address(strings.ToUpper(string(a)))
}

func signingDigest(tx *types.Transaction) ([]byte, error) {
	payload := tx.Clone()
	payload.PreviousSignature = nil
	payload.ValidationStamp = nil
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signing payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

// Sign makes tx the transaction at index of seed's chain: it takes the
// previous key at index, the address of the key at index+1, and signs the
// payload with the previous key.
func Sign(tx *types.Transaction, seed []byte, index uint32) error {
	key := DeriveKey(seed, index)
	tx.PreviousPublicKey = PublicKeyOf(key)
	tx.Address = DeriveAddress(seed, index+1)
	tx.Genesis = GenesisAddress(seed)
	digest, err := signingDigest(tx)
	if err != nil {
		return err
	}
	tx.PreviousSignature = ecdsa.SignCompact(key, digest, true)
	return nil
}

// Verify checks the previous signature of tx against its previous key.
func Verify(tx *types.Transaction) error {
	digest, err := signingDigest(tx)
	if err != nil {
		return err
	}
	pub, _, err := ecdsa.RecoverCompact(tx.PreviousSignature, digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	recovered := types.PublicKeyFromBytes(append(append([]byte(nil), keyHeader...), pub.SerializeCompressed()...))
	if !strings.EqualFold(string(recovered), string(tx.PreviousPublicKey)) {
		return ErrInvalidSignature
	}
	return nil
}

// NormalizeKey upper-cases a public key.
func NormalizeKey(k types.PublicKey) types.PublicKey {
	return types.PublicKey(strings.ToUpper(string(k)))
}
