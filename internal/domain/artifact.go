package domain

// ArtifactKind distinguishes uploaded objects.
type ArtifactKind string

const (
	ArtifactImage    ArtifactKind = "image"
	ArtifactMetadata ArtifactKind = "metadata"
)

// String returns the string representation of ArtifactKind.
func (k ArtifactKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k ArtifactKind) IsValid() bool {
	return k == ArtifactImage || k == ArtifactMetadata
}

// Artifact is a permanent object produced by an upload.
// Corresponds to artifacts table in PostgreSQL.
type Artifact struct {
	ID          string       // PK, see idhash.ComputeArtifactID
	SessionID   string       // session that produced the upload
	Kind        ArtifactKind // image or metadata
	TxID        string       // storage-network transaction id
	URL         string       // permanent gateway URL
	ContentType string
	Size        int64    // payload bytes
	Cost        Lamports // quoted cost at upload time
	CreatedAt   int64    // ms
}

// FundingEvent records a top-up of a bundler balance.
// Corresponds to funding_events table in ClickHouse.
type FundingEvent struct {
	ID            string // see idhash.ComputeFundingEventID
	Owner         string // wallet address paying
	Bundler       string // bundler base URL
	Kind          ArtifactKind
	Required      Lamports
	BalanceBefore Lamports
	Funded        Lamports
	BalanceAfter  Lamports
	TxSignature   string
	CreatedAt     int64 // ms
}
