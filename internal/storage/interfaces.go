package storage

import (
	"context"

	"solana-token-studio/internal/domain"
)

// ArtifactStore provides access to the artifacts ledger.
type ArtifactStore interface {
	// Insert adds a new artifact. Returns ErrDuplicateKey if artifact_id exists.
	Insert(ctx context.Context, a *domain.Artifact) error

	// GetByID retrieves an artifact by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, artifactID string) (*domain.Artifact, error)

	// GetBySession retrieves all artifacts of a session, ordered by created_at ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.Artifact, error)
}

// FundingEventStore provides access to the funding_events ledger.
type FundingEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.FundingEvent) error

	// GetByOwner retrieves all events paid by a wallet, ordered by created_at ASC.
	GetByOwner(ctx context.Context, owner string) ([]*domain.FundingEvent, error)

	// TotalFunded returns the sum of lamports a wallet has transferred to nodes.
	TotalFunded(ctx context.Context, owner string) (domain.Lamports, error)
}

// ValidateArtifact checks the fields every store requires.
func ValidateArtifact(a *domain.Artifact) error {
	if a == nil || a.ID == "" || a.SessionID == "" || a.URL == "" || !a.Kind.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// ValidateFundingEvent checks the fields every store requires.
func ValidateFundingEvent(e *domain.FundingEvent) error {
	if e == nil || e.ID == "" || e.Owner == "" || e.TxSignature == "" {
		return ErrInvalidInput
	}
	return nil
}
