// Package wallet provides the signer capability used to pay for and sign
// uploads.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConnected is returned when signing before Connect.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrUnknownKind is returned for an unsupported adapter kind.
	ErrUnknownKind = errors.New("unknown wallet kind")

	// ErrInvalidKey is returned when key material cannot be parsed.
	ErrInvalidKey = errors.New("invalid wallet key")
)

// Kind selects a wallet adapter implementation.
type Kind string

const (
	// KindKeypairFile loads a Solana CLI keypair JSON file (64-byte array).
	KindKeypairFile Kind = "keypair"
	// KindBase58 uses a base58-encoded 64-byte secret key.
	KindBase58 Kind = "base58"
)

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindKeypairFile:
		return KindKeypairFile, nil
	case KindBase58:
		return KindBase58, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Signer is the wallet capability consumed by funding and upload.
type Signer interface {
	// Connect makes the wallet ready to sign. Safe to call repeatedly.
	Connect(ctx context.Context) error

	// PublicKey returns the base58 address. Empty until connected.
	PublicKey() string

	// Sign signs msg with the wallet key.
	Sign(ctx context.Context, msg []byte) ([]byte, error)
}

// New builds a signer of the given kind. source is a file path for
// KindKeypairFile and the secret itself for KindBase58.
func New(kind Kind, source string) (Signer, error) {
	switch kind {
	case KindKeypairFile:
		return &KeypairSigner{load: keypairFileLoader(source)}, nil
	case KindBase58:
		return &KeypairSigner{load: base58Loader(source)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
