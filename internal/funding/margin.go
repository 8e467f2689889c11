package funding

import "solana-token-studio/internal/domain"

// DefaultMargin is added on top of a shortfall so the next few uploads need no top-up.
var DefaultMargin = domain.SOL(0.2)

// MarginPolicy is the safety margin added when funding, with optional
// per-kind overrides.
type MarginPolicy struct {
	Default  domain.Lamports
	Image    *domain.Lamports
	Metadata *domain.Lamports
}

// DefaultMarginPolicy applies DefaultMargin to every kind.
func DefaultMarginPolicy() MarginPolicy {
	return MarginPolicy{Default: DefaultMargin}
}

// For returns the margin for kind.
func (p MarginPolicy) For(kind domain.ArtifactKind) domain.Lamports {
	switch kind {
	case domain.ArtifactImage:
		if p.Image != nil {
			return *p.Image
		}
	case domain.ArtifactMetadata:
		if p.Metadata != nil {
			return *p.Metadata
		}
	}
	return p.Default
}
