package upload

import "solana-token-studio/internal/domain"

// Phase is the progress of one upload operation.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseEstimating Phase = "estimating"
	PhaseFunding    Phase = "funding"
	PhaseUploading  Phase = "uploading"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// OpState is the phase of an operation plus the failure reason in PhaseFailed.
type OpState struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func failed(err error) OpState {
	return OpState{Phase: PhaseFailed, Reason: err.Error()}
}

// StagedImage describes a staged file without its bytes.
type StagedImage struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	ID          string                  `json:"id"`
	Cluster     string                  `json:"cluster,omitempty"`
	Bundler     *domain.BundlerEndpoint `json:"bundler,omitempty"`
	Connected   bool                    `json:"connected"`
	Owner       string                  `json:"owner,omitempty"`
	NodeAddress string                  `json:"node_address,omitempty"`
	Primary     *StagedImage            `json:"primary,omitempty"`
	Replace     *StagedImage            `json:"replace,omitempty"`
	Fields      domain.FormFields       `json:"fields"`
	ImageURL    string                  `json:"image_url,omitempty"`
	MetadataURL string                  `json:"metadata_url,omitempty"`
	Image       OpState                 `json:"image"`
	Metadata    OpState                 `json:"metadata"`
	Busy        bool                    `json:"busy"`
}
