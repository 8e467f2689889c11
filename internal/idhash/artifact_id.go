// Package idhash computes deterministic record ids.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-token-studio/internal/domain"
)

// ComputeArtifactID computes a deterministic artifact id using SHA256.
// Formula: SHA256(session_id|kind|tx_id)
// Returns hex-encoded hash (64 characters).
func ComputeArtifactID(sessionID string, kind domain.ArtifactKind, txID string) string {
	data := fmt.Sprintf("%s|%s|%s", sessionID, string(kind), txID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeFundingEventID computes a deterministic funding event id.
// Formula: SHA256(owner|bundler|tx_signature)
func ComputeFundingEventID(owner, bundler, txSignature string) string {
	data := fmt.Sprintf("%s|%s|%s", owner, bundler, txSignature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
