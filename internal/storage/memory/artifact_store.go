package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

// ArtifactStore is an in-memory implementation of storage.ArtifactStore.
type ArtifactStore struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Artifact
	bySession map[string][]*domain.Artifact
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		byID:      make(map[string]*domain.Artifact),
		bySession: make(map[string][]*domain.Artifact),
	}
}

// Insert adds a new artifact. Returns ErrDuplicateKey if artifact_id exists.
func (s *ArtifactStore) Insert(_ context.Context, a *domain.Artifact) error {
	if err := storage.ValidateArtifact(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *a
	s.byID[a.ID] = &cp
	s.bySession[a.SessionID] = append(s.bySession[a.SessionID], &cp)
	return nil
}

// GetByID retrieves an artifact by ID. Returns ErrNotFound if not exists.
func (s *ArtifactStore) GetByID(_ context.Context, artifactID string) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.byID[artifactID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *a
	return &cp, nil
}

// GetBySession retrieves artifacts for a session ordered by created_at ASC.
func (s *ArtifactStore) GetBySession(_ context.Context, sessionID string) ([]*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.bySession[sessionID]
	out := make([]*domain.Artifact, 0, len(list))
	for _, a := range list {
		cp := *a
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

var _ storage.ArtifactStore = (*ArtifactStore)(nil)
