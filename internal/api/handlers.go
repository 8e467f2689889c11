package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/funding"
	"solana-token-studio/internal/metadata"
	"solana-token-studio/internal/network"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/upload"
	"solana-token-studio/internal/wallet"
)

var (
	errSessionNotFound = errors.New("session not found")
	errNoReader        = errors.New("metadata reader not configured")
)

// Response is the body of every session response.
type Response struct {
	Session       *upload.Snapshot      `json:"session,omitempty"`
	URL           string                `json:"url,omitempty"`
	Signature     string                `json:"signature,omitempty"`
	Error         string                `json:"error,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
}

// NetworksResponse lists the selectable clusters and bundlers.
type NetworksResponse struct {
	Clusters []domain.ClusterEndpoint `json:"clusters"`
	Bundlers []domain.BundlerEndpoint `json:"bundlers"`
}

// MetadataResponse is the body of GET /api/metadata/{address}.
type MetadataResponse struct {
	Metadata      *domain.DisplayMetadata `json:"metadata,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Notifications []domain.Notification   `json:"notifications"`
}

type networkRequest struct {
	Cluster   string `json:"cluster"`
	BundlerID int    `json:"bundler_id"`
}

type fundRequest struct {
	// Amount is a decimal SOL string such as "0.1".
	Amount string `json:"amount"`
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NetworksResponse{
		Clusters: network.Clusters(),
		Bundlers: network.Bundlers(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e := s.newSession()
	s.respond(w, http.StatusCreated, e, "", nil)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	s.respond(w, http.StatusOK, e, "", nil)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectNetwork(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req networkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, e, "", err)
		return
	}

	var err error
	if req.Cluster != "" {
		err = e.session.SelectNetwork(req.Cluster)
	}
	if err == nil && req.BundlerID != 0 {
		err = e.session.SelectBundler(req.BundlerID)
	}
	s.respond(w, statusFor(err), e, "", err)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	err := e.session.Connect(r.Context())
	s.respond(w, statusFor(err), e, "", err)
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req fundRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, e, "", err)
		return
	}
	amount, err := domain.ParseSOL(req.Amount)
	if err != nil {
		s.respond(w, http.StatusBadRequest, e, "", err)
		return
	}

	sig, err := e.session.TopUp(r.Context(), amount)
	snap := e.session.Snapshot()
	resp := Response{Session: &snap, Signature: sig, Notifications: e.inbox.Drain()}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

func (s *Server) handleStageImage(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respond(w, http.StatusRequestEntityTooLarge, e, "", fmt.Errorf("image exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respond(w, http.StatusBadRequest, e, "", err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "image.png"
	}
	err = e.session.StageImage(name, data)
	s.respond(w, statusFor(err), e, "", err)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	url, err := e.session.UploadImage(r.Context())
	s.respond(w, statusFor(err), e, url, err)
}

func (s *Server) handleUpdateFields(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		s.respond(w, http.StatusBadRequest, e, "", err)
		return
	}
	err := e.session.UpdateFields(fields)
	s.respond(w, statusFor(err), e, "", err)
}

func (s *Server) handleUploadMetadata(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	url, err := e.session.UploadMetadata(r.Context())
	s.respond(w, statusFor(err), e, url, err)
}

// handleFetchMetadata reads from ?cluster=, or the default cluster.
func (s *Server) handleFetchMetadata(w http.ResponseWriter, r *http.Request) {
	status, resp := s.fetchMetadata(r, r.URL.Query().Get("cluster"))
	if resp.Notifications == nil {
		resp.Notifications = []domain.Notification{}
	}
	for _, n := range resp.Notifications {
		s.notifier.Notify(n)
	}
	writeJSON(w, status, resp)
}

// handleSessionMetadata reads from the cluster the session selected.
func (s *Server) handleSessionMetadata(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	status, resp := s.fetchMetadata(r, e.session.Snapshot().Cluster)
	for _, n := range resp.Notifications {
		e.inbox.Notify(n)
		s.notifier.Notify(n)
	}
	resp.Notifications = e.inbox.Drain()
	writeJSON(w, status, resp)
}

func (s *Server) fetchMetadata(r *http.Request, cluster string) (int, MetadataResponse) {
	if s.readers == nil {
		return http.StatusServiceUnavailable, MetadataResponse{Error: errNoReader.Error()}
	}
	reader, err := s.readers.For(cluster)
	if err != nil {
		return http.StatusBadRequest, MetadataResponse{Error: err.Error()}
	}

	dm, err := reader.FetchMetadata(r.Context(), r.PathValue("address"))
	if err != nil {
		return http.StatusBadRequest, MetadataResponse{
			Error:         err.Error(),
			Notifications: []domain.Notification{notify.Error(metadata.MsgInvalidTokenAddress, "")},
		}
	}
	return http.StatusOK, MetadataResponse{Metadata: dm}
}

// respond writes the session snapshot with the notifications drained from its inbox.
func (s *Server) respond(w http.ResponseWriter, status int, e *sessionEntry, url string, err error) {
	snap := e.session.Snapshot()
	resp := Response{
		Session:       &snap,
		URL:           url,
		Notifications: e.inbox.Drain(),
	}
	if err != nil {
		resp.Error = err.Error()
		if status >= http.StatusInternalServerError {
			s.logger.Warn("request failed", zap.String("session", e.session.ID()), zap.Error(err))
		}
	}
	writeJSON(w, status, resp)
}

// statusFor maps workflow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, upload.ErrBusy), errors.Is(err, upload.ErrMetadataExists):
		return http.StatusConflict
	case errors.Is(err, upload.ErrNotConnected), errors.Is(err, upload.ErrNoBundler),
		errors.Is(err, metadata.ErrImageRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, funding.ErrInsufficientAfterFunding), errors.Is(err, funding.ErrInsufficientWallet):
		return http.StatusPaymentRequired
	case errors.Is(err, upload.ErrUnknownField), errors.Is(err, upload.ErrEmptyImage),
		errors.Is(err, upload.ErrInvalidAmount),
		errors.Is(err, network.ErrUnknownCluster), errors.Is(err, network.ErrUnknownBundler):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrNotConnected), errors.Is(err, wallet.ErrInvalidKey):
		return http.StatusUnauthorized
	}
	// node and RPC failures
	return http.StatusBadGateway
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Response{Error: err.Error(), Notifications: []domain.Notification{}})
}
