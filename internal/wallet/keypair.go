package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
)

// KeypairSigner signs with a local ed25519 key.
type KeypairSigner struct {
	load func() (ed25519.PrivateKey, error)

	mu  sync.RWMutex
	key ed25519.PrivateKey
}

// NewKeypairSigner wraps an already loaded key. The signer is connected.
func NewKeypairSigner(key ed25519.PrivateKey) *KeypairSigner {
	return &KeypairSigner{
		load: func() (ed25519.PrivateKey, error) { return key, nil },
		key:  key,
	}
}

// Connect loads the key material.
func (s *KeypairSigner) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return nil
	}
	key, err := s.load()
	if err != nil {
		return err
	}
	s.key = key
	return nil
}

// PublicKey returns the base58 address, or "" before Connect.
func (s *KeypairSigner) PublicKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return ""
	}
	return base58.Encode(s.key.Public().(ed25519.PublicKey))
}

// Sign signs msg.
func (s *KeypairSigner) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()

	if key == nil {
		return nil, ErrNotConnected
	}
	return ed25519.Sign(key, msg), nil
}

// keypairFileLoader reads a Solana CLI keypair file: a JSON array of 64 bytes.
func keypairFileLoader(path string) func() (ed25519.PrivateKey, error) {
	return func() (ed25519.PrivateKey, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keypair file: %w", err)
		}

		var raw []byte
		var ints []int
		if err := json.Unmarshal(data, &ints); err != nil {
			return nil, fmt.Errorf("%w: parse keypair file: %v", ErrInvalidKey, err)
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte out of range", ErrInvalidKey)
			}
			raw = append(raw, byte(v))
		}
		return toPrivateKey(raw)
	}
}

func base58Loader(secret string) func() (ed25519.PrivateKey, error) {
	return func() (ed25519.PrivateKey, error) {
		raw, err := base58.Decode(strings.TrimSpace(secret))
		if err != nil {
			return nil, fmt.Errorf("%w: decode base58: %v", ErrInvalidKey, err)
		}
		return toPrivateKey(raw)
	}
}

func toPrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(raw))
	}
	key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !key.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
	}
	return key, nil
}
