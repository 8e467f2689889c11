package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

// ArtifactStore implements storage.ArtifactStore using PostgreSQL.
type ArtifactStore struct {
	pool *Pool
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(pool *Pool) *ArtifactStore {
	return &ArtifactStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArtifactStore = (*ArtifactStore)(nil)

const artifactColumns = `artifact_id, session_id, kind, tx_id, url, content_type, size_bytes, cost_lamports, created_at`

// Insert adds a new artifact. Returns ErrDuplicateKey if artifact_id or url exists.
func (s *ArtifactStore) Insert(ctx context.Context, a *domain.Artifact) error {
	if err := storage.ValidateArtifact(a); err != nil {
		return err
	}

	query := `
		INSERT INTO artifacts (` + artifactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.SessionID,
		string(a.Kind),
		a.TxID,
		a.URL,
		a.ContentType,
		a.Size,
		int64(a.Cost),
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// GetByID retrieves an artifact by ID. Returns ErrNotFound if not exists.
func (s *ArtifactStore) GetByID(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE artifact_id = $1`

	a, err := scanArtifact(s.pool.QueryRow(ctx, query, artifactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get artifact by id: %w", err)
	}
	return a, nil
}

// GetBySession retrieves artifacts of a session ordered by created_at ASC.
func (s *ArtifactStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE session_id = $1
		ORDER BY created_at ASC, artifact_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts by session: %w", err)
	}
	defer rows.Close()

	var out []*domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

// scanArtifact scans a single row into Artifact.
func scanArtifact(row pgx.Row) (*domain.Artifact, error) {
	var a domain.Artifact
	var kind string
	var cost int64

	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&kind,
		&a.TxID,
		&a.URL,
		&a.ContentType,
		&a.Size,
		&cost,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = domain.ArtifactKind(kind)
	a.Cost = domain.Lamports(cost)
	return &a, nil
}
