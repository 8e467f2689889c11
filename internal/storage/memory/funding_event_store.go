package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

// FundingEventStore is an in-memory implementation of storage.FundingEventStore.
type FundingEventStore struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	byOwner map[string][]*domain.FundingEvent
}

// NewFundingEventStore creates a new in-memory funding event store.
func NewFundingEventStore() *FundingEventStore {
	return &FundingEventStore{
		ids:     make(map[string]struct{}),
		byOwner: make(map[string][]*domain.FundingEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *FundingEventStore) Insert(_ context.Context, e *domain.FundingEvent) error {
	if err := storage.ValidateFundingEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.ids[e.ID] = struct{}{}
	s.byOwner[e.Owner] = append(s.byOwner[e.Owner], &cp)
	return nil
}

// GetByOwner retrieves events for a wallet ordered by created_at ASC.
func (s *FundingEventStore) GetByOwner(_ context.Context, owner string) ([]*domain.FundingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byOwner[owner]
	out := make([]*domain.FundingEvent, 0, len(list))
	for _, e := range list {
		cp := *e
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

// TotalFunded sums Funded over a wallet's events.
func (s *FundingEventStore) TotalFunded(_ context.Context, owner string) (domain.Lamports, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total domain.Lamports
	for _, e := range s.byOwner[owner] {
		total += e.Funded
	}
	return total, nil
}

var _ storage.FundingEventStore = (*FundingEventStore)(nil)
