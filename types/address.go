package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotHex is returned when a string is not an even-length hexadecimal.
var ErrNotHex = errors.New("not an hexadecimal")

// Address is a chain address rendered as upper-case hex: a two byte
// curve/hash header followed by the digest.
type Address string

// PublicKey is a public key rendered as upper-case hex.
type PublicKey string

// ZeroAddress is the all-zero address used when a call does not say which
// contract it runs as.
var ZeroAddress = Address(strings.Repeat("0", 68))

// ParseAddress validates and normalises a hex address.
func ParseAddress(s string) (Address, error) {
	h, err := normaliseHex(s)
	return Address(h), err
}

// ParsePublicKey validates and normalises a hex public key.
func ParsePublicKey(s string) (PublicKey, error) {
	h, err := normaliseHex(s)
	return PublicKey(h), err
}

// AddressFromBytes encodes raw address bytes.
func AddressFromBytes(b []byte) Address {
	return Address(strings.ToUpper(hex.EncodeToString(b)))
}

// PublicKeyFromBytes encodes raw key bytes.
func PublicKeyFromBytes(b []byte) PublicKey {
	return PublicKey(strings.ToUpper(hex.EncodeToString(b)))
}

func (a Address) String() string { return string(a) }

// Bytes decodes the address. Invalid hex yields nil.
func (a Address) Bytes() []byte {
	b, err := hex.DecodeString(string(a))
	if err != nil {
		return nil
	}
	return b
}

// Equal compares addresses case-insensitively.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

func (k PublicKey) String() string { return string(k) }

func normaliseHex(s string) (string, error) {
	if len(s) == 0 || len(s)%2 == 1 {
		return "", ErrNotHex
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", ErrNotHex
	}
	return strings.ToUpper(s), nil
}

// Bytes is a byte string carried over JSON as lower-case hex.
type Bytes []byte

func (b Bytes) String() string { return hex.EncodeToString(b) }

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ErrNotHex
	}
	*b = raw
	return nil
}
