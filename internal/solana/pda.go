package solana

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

// Seed limits enforced by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	// ErrMaxSeedLength is returned when a seed exceeds MaxSeedLength.
	ErrMaxSeedLength = errors.New("max seed length exceeded")

	// ErrNoViableBump is returned when no bump yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

const pdaMarker = "ProgramDerivedAddress"

// CreateProgramAddress hashes seeds and programID into an address.
// Fails if the result lies on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLength
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, ErrMaxSeedLength
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var pk PublicKey
	copy(pk[:], h.Sum(nil))

	if IsOnCurve(pk[:]) {
		return PublicKey{}, errors.New("invalid seeds: address must fall off the curve")
	}
	return pk, nil
}

// FindProgramAddress derives a Program Derived Address, searching bump seeds
// from 255 down to 0 for the first off-curve hash.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	// one slot is reserved for the bump
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, ErrMaxSeedLength
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if errors.Is(err, ErrMaxSeedLength) {
			return PublicKey{}, 0, err
		}
	}

	return PublicKey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// MetadataAddress derives the token-metadata account for a mint.
// Seeds: ["metadata", metadata_program_id, mint]
func MetadataAddress(mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"),
		TokenMetadataProgramID[:],
		mint[:],
	}, TokenMetadataProgramID)
	return pk, err
}
