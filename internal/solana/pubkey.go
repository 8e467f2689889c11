package solana

import (
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of a Solana address in bytes.
const PublicKeySize = 32

// ErrInvalidPublicKey is returned for strings that are not 32-byte base58 keys.
var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKey is a 32-byte Solana address.
type PublicKey [PublicKeySize]byte

// Well-known program ids.
var (
	SystemProgramID        = PublicKey{}
	TokenMetadataProgramID = MustPublicKey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	s = strings.TrimSpace(s)
	if s == "" {
		return pk, ErrInvalidPublicKey
	}
	b, err := base58.Decode(s)
	if err != nil || len(b) != PublicKeySize {
		return pk, ErrInvalidPublicKey
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKey is ParsePublicKey for constants.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic("solana: bad public key constant " + s)
	}
	return pk
}

// String returns the base58 encoding.
func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns the key as a slice.
func (p PublicKey) Bytes() []byte {
	return p[:]
}
