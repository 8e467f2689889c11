package storage

import (
	"context"
	"errors"
	"time"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/observability"
)

// InstrumentedArtifactStore records query latency and errors of an ArtifactStore.
type InstrumentedArtifactStore struct {
	next     ArtifactStore
	metrics  *observability.Metrics
	database string
}

// InstrumentArtifacts wraps next. database labels the metrics.
func InstrumentArtifacts(next ArtifactStore, metrics *observability.Metrics, database string) *InstrumentedArtifactStore {
	return &InstrumentedArtifactStore{next: next, metrics: metrics, database: database}
}

func (s *InstrumentedArtifactStore) Insert(ctx context.Context, a *domain.Artifact) error {
	start := time.Now()
	err := s.next.Insert(ctx, a)
	s.metrics.RecordDBQuery(s.database, "insert_artifact", time.Since(start).Seconds(), err)
	return err
}

func (s *InstrumentedArtifactStore) GetByID(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	start := time.Now()
	a, err := s.next.GetByID(ctx, artifactID)
	s.metrics.RecordDBQuery(s.database, "get_artifact", time.Since(start).Seconds(), ignoreNotFound(err))
	return a, err
}

func (s *InstrumentedArtifactStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.Artifact, error) {
	start := time.Now()
	out, err := s.next.GetBySession(ctx, sessionID)
	s.metrics.RecordDBQuery(s.database, "get_artifacts_by_session", time.Since(start).Seconds(), err)
	return out, err
}

// InstrumentedFundingEventStore records query latency and errors of a FundingEventStore.
type InstrumentedFundingEventStore struct {
	next     FundingEventStore
	metrics  *observability.Metrics
	database string
}

// InstrumentFundingEvents wraps next. database labels the metrics.
func InstrumentFundingEvents(next FundingEventStore, metrics *observability.Metrics, database string) *InstrumentedFundingEventStore {
	return &InstrumentedFundingEventStore{next: next, metrics: metrics, database: database}
}

func (s *InstrumentedFundingEventStore) Insert(ctx context.Context, e *domain.FundingEvent) error {
	start := time.Now()
	err := s.next.Insert(ctx, e)
	s.metrics.RecordDBQuery(s.database, "insert_funding_event", time.Since(start).Seconds(), err)
	return err
}

func (s *InstrumentedFundingEventStore) GetByOwner(ctx context.Context, owner string) ([]*domain.FundingEvent, error) {
	start := time.Now()
	out, err := s.next.GetByOwner(ctx, owner)
	s.metrics.RecordDBQuery(s.database, "get_funding_events_by_owner", time.Since(start).Seconds(), err)
	return out, err
}

func (s *InstrumentedFundingEventStore) TotalFunded(ctx context.Context, owner string) (domain.Lamports, error) {
	start := time.Now()
	total, err := s.next.TotalFunded(ctx, owner)
	s.metrics.RecordDBQuery(s.database, "total_funded", time.Since(start).Seconds(), err)
	return total, err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

var (
	_ ArtifactStore     = (*InstrumentedArtifactStore)(nil)
	_ FundingEventStore = (*InstrumentedFundingEventStore)(nil)
)
