// Package upload drives the image and metadata upload workflow of one user
// session: estimate the storage cost, top up the node, upload, publish the URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-token-studio/internal/bundlr"
	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/funding"
	"solana-token-studio/internal/idhash"
	"solana-token-studio/internal/metadata"
	"solana-token-studio/internal/network"
	"solana-token-studio/internal/notify"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
	"solana-token-studio/internal/storage"
	"solana-token-studio/internal/wallet"
)

// User-facing messages.
const (
	MsgSelectNetwork        = "Please select network"
	MsgConnectFirst         = "Please connect wallet"
	MsgAddressNotFound      = "Unexpected error: bundlr address not found"
	MsgInsufficientFunding  = "Insufficient balance after funding. Please ensure your wallet has enough SOL."
	MsgMetadataExists       = "Metadata already uploaded"
	MsgImageUploaded        = "Image uploaded"
	MsgMetadataUploaded     = "Metadata uploaded"
	connectedMessagePattern = "Connected to %s"
	fundedMessagePattern    = "Funded %s SOL"
)

var (
	// ErrNotConnected is returned when an upload runs before Connect.
	ErrNotConnected = errors.New("storage node not connected")

	// ErrNoBundler is returned by Connect when no bundler is selected.
	ErrNoBundler = errors.New("no bundler selected")

	// ErrBusy is returned when another operation of the session is running.
	ErrBusy = errors.New("session busy")

	// ErrMetadataExists is returned when the metadata URL is already set.
	ErrMetadataExists = errors.New("metadata already uploaded")

	// ErrUnknownField is returned by UpdateField for a field outside the form.
	ErrUnknownField = errors.New("unknown form field")

	// ErrEmptyImage is returned when staging an empty file.
	ErrEmptyImage = errors.New("empty image")

	// ErrInvalidAmount is returned by TopUp for a zero amount.
	ErrInvalidAmount = errors.New("top-up amount must be positive")
)

// Node is the storage node surface: funding plus uploads.
type Node interface {
	funding.Node
	Upload(ctx context.Context, req bundlr.UploadRequest) (string, error)
}

var _ Node = (*bundlr.Client)(nil)

// Options are shared by every session of a process.
type Options struct {
	Signer wallet.Signer

	// NodeFor returns the storage node client for a bundler.
	NodeFor func(b domain.BundlerEndpoint) Node
	// RPCFor returns the Solana provider paired with a bundler.
	RPCFor func(b domain.BundlerEndpoint) solana.RPCClient
	// ConfirmerFor optionally overrides funding confirmation.
	ConfirmerFor func(b domain.BundlerEndpoint, rpc solana.RPCClient) solana.Confirmer

	Margin       *funding.MarginPolicy
	FundingStore storage.FundingEventStore
	Artifacts    storage.ArtifactStore
	Notifier     notify.Notifier
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Gateway      string
	Now          func() time.Time
}

type stagedFile struct {
	name string
	data []byte
}

func (f *stagedFile) info() *StagedImage {
	if f == nil {
		return nil
	}
	return &StagedImage{Name: f.name, Size: len(f.data)}
}

// Session is one user's upload workflow. All state changes go through its
// intent methods; at most one network-bound operation runs at a time.
type Session struct {
	id       string
	opts     Options
	selector *network.Selector
	logger   *zap.Logger

	mu          sync.Mutex
	op          string
	client      *funding.Client
	node        Node
	primary     *stagedFile
	replace     *stagedFile
	fields      domain.FormFields
	imageURL    string
	metadataURL string
	imageOp     OpState
	metadataOp  OpState
}

// NewSession creates an empty session.
func NewSession(id string, opts Options) *Session {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NodeFor == nil {
		opts.NodeFor = func(b domain.BundlerEndpoint) Node { return bundlr.NewClient(b.URL) }
	}
	if opts.Gateway == "" {
		opts.Gateway = DefaultGateway
	}

	return &Session{
		id:         id,
		opts:       opts,
		selector:   &network.Selector{},
		logger:     opts.Logger.Named("upload").With(zap.String("session", id)),
		imageOp:    OpState{Phase: PhaseIdle},
		metadataOp: OpState{Phase: PhaseIdle},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id,
		Connected:   s.client != nil,
		Primary:     s.primary.info(),
		Replace:     s.replace.info(),
		Fields:      s.fields,
		ImageURL:    s.imageURL,
		MetadataURL: s.metadataURL,
		Image:       s.imageOp,
		Metadata:    s.metadataOp,
		Busy:        s.op != "",
	}
	if c, ok := s.selector.Cluster(); ok {
		snap.Cluster = c.Cluster.String()
	}
	if b, ok := s.selector.Bundler(); ok {
		snap.Bundler = &b
	}
	if s.client != nil {
		snap.Owner = s.client.Owner()
		snap.NodeAddress = s.client.Address()
	}
	return snap
}

// SelectNetwork sets the wallet cluster. A change drops the funding client.
func (s *Session) SelectNetwork(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.op != "" {
		return ErrBusy
	}
	changed, err := s.selector.SelectCluster(name)
	if err != nil {
		s.notify(notify.Error(err.Error(), name))
		return err
	}
	if changed {
		s.dropClient()
	}
	return nil
}

// SelectBundler sets the storage node. A change drops the funding client.
func (s *Session) SelectBundler(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.op != "" {
		return ErrBusy
	}
	changed, err := s.selector.SelectBundler(id)
	if err != nil {
		s.notify(notify.Error(MsgSelectNetwork, err.Error()))
		return err
	}
	if changed {
		s.dropClient()
	}
	return nil
}

func (s *Session) dropClient() {
	if s.client != nil {
		s.logger.Info("selection changed, dropping funding client")
	}
	s.client = nil
	s.node = nil
}

// Connect connects the wallet and initialises a funding client for the
// selected bundler. On failure the session stays unconnected.
func (s *Session) Connect(ctx context.Context) error {
	b, ok := s.selector.Bundler()
	if !ok {
		s.notify(notify.Error(MsgSelectNetwork, ""))
		return ErrNoBundler
	}
	if err := s.begin("connect"); err != nil {
		return err
	}
	defer s.end()

	client, node, err := s.initialize(ctx, b)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, funding.ErrNoAddress) {
			msg = MsgAddressNotFound
		}
		s.notify(notify.Error(msg, ""))
		s.logger.Warn("connect failed", zap.String("bundler", b.URL), zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.client = client
	s.node = node
	s.mu.Unlock()

	s.notify(notify.Success(fmt.Sprintf(connectedMessagePattern, b.Network)))
	return nil
}

func (s *Session) initialize(ctx context.Context, b domain.BundlerEndpoint) (*funding.Client, Node, error) {
	if s.opts.Signer == nil {
		return nil, nil, wallet.ErrNotConnected
	}
	if err := s.opts.Signer.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect wallet: %w", err)
	}
	if s.opts.RPCFor == nil {
		return nil, nil, errors.New("no rpc provider configured")
	}

	rpc := s.opts.RPCFor(b)
	node := s.opts.NodeFor(b)

	var confirmer solana.Confirmer
	if s.opts.ConfirmerFor != nil {
		confirmer = s.opts.ConfirmerFor(b, rpc)
	}

	client, err := funding.Initialize(ctx, b, s.opts.Signer, funding.Options{
		RPC:       rpc,
		Node:      node,
		Confirmer: confirmer,
		Margin:    s.opts.Margin,
		Store:     s.opts.FundingStore,
		Metrics:   s.opts.Metrics,
		Logger:    s.opts.Logger,
		Now:       s.opts.Now,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, node, nil
}

// StageImage stages a local file. Before an image URL exists it fills the
// primary slot, afterwards the replace slot.
func (s *Session) StageImage(name string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.op != "" {
		return ErrBusy
	}
	f := &stagedFile{name: name, data: append([]byte(nil), data...)}
	if s.imageURL == "" {
		s.primary = f
	} else {
		s.replace = f
	}
	return nil
}

// UpdateField sets one form field by its JSON name.
func (s *Session) UpdateField(field, value string) error {
	return s.UpdateFields(map[string]string{field: value})
}

// UpdateFields sets several form fields at once. Every name is checked
// before any is applied, so an unknown name leaves the form unchanged.
func (s *Session) UpdateFields(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.fields
	for field, value := range values {
		p := formField(&next, field)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		*p = value
	}
	s.fields = next
	return nil
}

func formField(f *domain.FormFields, name string) *string {
	switch name {
	case "name":
		return &f.Name
	case "symbol":
		return &f.Symbol
	case "description":
		return &f.Description
	case "website":
		return &f.Website
	case "twitter":
		return &f.Twitter
	case "telegram":
		return &f.Telegram
	case "discord":
		return &f.Discord
	}
	return nil
}

// UploadImage uploads the staged image, preferring the replace slot.
// With nothing staged it does nothing and returns "". On success both slots
// are cleared and the image URL is published; on failure they are kept.
func (s *Session) UploadImage(ctx context.Context) (string, error) {
	if err := s.begin("image"); err != nil {
		return "", err
	}
	defer s.end()

	s.mu.Lock()
	client, node := s.client, s.node
	file := s.replace
	if file == nil {
		file = s.primary
	}
	s.mu.Unlock()

	if file == nil {
		return "", nil
	}
	if client == nil {
		s.notify(notify.Error(MsgConnectFirst, ""))
		return "", ErrNotConnected
	}

	ext := imageExt(file.name)
	contentType := imageContentType(ext)

	id, cost, err := s.run(ctx, client, node, domain.ArtifactImage, file.data, contentType, &s.imageOp)
	if err != nil {
		return "", err
	}
	url := ImageURL(s.opts.Gateway, id, ext)

	s.mu.Lock()
	s.imageURL = url
	s.primary = nil
	s.replace = nil
	s.imageOp = OpState{Phase: PhaseDone}
	s.mu.Unlock()

	s.recordArtifact(ctx, domain.ArtifactImage, id, url, contentType, len(file.data), cost)
	s.notify(notify.Success(MsgImageUploaded))
	return url, nil
}

// UploadMetadata builds the metadata document from the form and the image
// URL and uploads it. The metadata URL is set once per session.
func (s *Session) UploadMetadata(ctx context.Context) (string, error) {
	if err := s.begin("metadata"); err != nil {
		return "", err
	}
	defer s.end()

	s.mu.Lock()
	client, node := s.client, s.node
	imageURL, metadataURL, fields := s.imageURL, s.metadataURL, s.fields
	s.mu.Unlock()

	doc, err := metadata.BuildDocument(fields, imageURL)
	if err != nil {
		s.notify(notify.Error(metadata.MsgImageRequired, metadata.MsgImageRequired))
		return "", err
	}
	if metadataURL != "" {
		s.notify(notify.Error(MsgMetadataExists, metadataURL))
		return "", ErrMetadataExists
	}
	if client == nil {
		s.notify(notify.Error(MsgConnectFirst, ""))
		return "", ErrNotConnected
	}

	payload, err := metadata.Encode(doc)
	if err != nil {
		s.setOp(&s.metadataOp, failed(err))
		return "", err
	}

	id, cost, err := s.run(ctx, client, node, domain.ArtifactMetadata, payload, metadata.ContentTypeJSON, &s.metadataOp)
	if err != nil {
		return "", err
	}
	url := MetadataURL(s.opts.Gateway, id)

	s.mu.Lock()
	s.metadataURL = url
	s.metadataOp = OpState{Phase: PhaseDone}
	s.mu.Unlock()

	s.recordArtifact(ctx, domain.ArtifactMetadata, id, url, metadata.ContentTypeJSON, len(payload), cost)
	s.notify(notify.Success(MsgMetadataUploaded))
	return url, nil
}

// TopUp transfers amount to the storage node whatever the loaded balance.
// Returns the transfer signature.
func (s *Session) TopUp(ctx context.Context, amount domain.Lamports) (string, error) {
	if amount == 0 {
		return "", ErrInvalidAmount
	}
	if err := s.begin("fund"); err != nil {
		return "", err
	}
	defer s.end()

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		s.notify(notify.Error(MsgConnectFirst, ""))
		return "", ErrNotConnected
	}

	sig, err := client.Fund(ctx, amount)
	if err != nil {
		s.logger.Warn("top-up failed", zap.Stringer("amount", amount), zap.String("signature", sig), zap.Error(err))
		s.notify(notify.Error(err.Error(), sig))
		return sig, err
	}
	s.notify(notify.Success(fmt.Sprintf(fundedMessagePattern, amount)))
	return sig, nil
}

// run estimates, funds and uploads data, tracking progress in state.
// Returns the storage transaction id and the quoted cost.
func (s *Session) run(ctx context.Context, client *funding.Client, node Node, kind domain.ArtifactKind,
	data []byte, contentType string, state *OpState) (string, domain.Lamports, error) {
	start := s.opts.Now()
	log := s.logger.With(zap.String("kind", kind.String()), zap.Int("bytes", len(data)))

	fail := func(stage string, err error) (string, domain.Lamports, error) {
		s.setOp(state, failed(err))
		s.opts.Metrics.RecordUpload(kind.String(), "failed", len(data), s.opts.Now().Sub(start).Seconds())
		log.Warn("upload failed", zap.String("stage", stage), zap.Error(err))

		msg := err.Error()
		if errors.Is(err, funding.ErrInsufficientAfterFunding) {
			msg = MsgInsufficientFunding
		}
		s.notify(notify.Error(msg, ""))
		return "", 0, err
	}

	s.setOp(state, OpState{Phase: PhaseEstimating})
	cost, err := client.EstimateCost(ctx, int64(len(data)))
	if err != nil {
		return fail("estimate", err)
	}
	s.opts.Metrics.RecordEstimate(kind.String(), uint64(cost))

	s.setOp(state, OpState{Phase: PhaseFunding})
	if _, err := client.EnsureFunded(ctx, cost, kind); err != nil {
		return fail("fund", err)
	}

	s.setOp(state, OpState{Phase: PhaseUploading})
	tags := []bundlr.Tag{{Name: "Content-Type", Value: contentType}}
	sig, err := client.Signer().Sign(ctx, bundlr.SigningPayload(data, tags))
	if err != nil {
		return fail("sign", err)
	}
	id, err := node.Upload(ctx, bundlr.UploadRequest{
		Data:        data,
		ContentType: contentType,
		Tags:        tags,
		Owner:       client.Owner(),
		Signature:   sig,
	})
	if err != nil {
		return fail("upload", err)
	}

	s.opts.Metrics.RecordUpload(kind.String(), "ok", len(data), s.opts.Now().Sub(start).Seconds())
	log.Info("uploaded", zap.String("id", id), zap.Stringer("cost", cost))
	return id, cost, nil
}

func (s *Session) recordArtifact(ctx context.Context, kind domain.ArtifactKind, txID, url, contentType string, size int, cost domain.Lamports) {
	if s.opts.Artifacts == nil {
		return
	}
	a := &domain.Artifact{
		ID:          idhash.ComputeArtifactID(s.id, kind, txID),
		SessionID:   s.id,
		Kind:        kind,
		TxID:        txID,
		URL:         url,
		ContentType: contentType,
		Size:        int64(size),
		Cost:        cost,
		CreatedAt:   s.opts.Now().UnixMilli(),
	}
	if err := s.opts.Artifacts.Insert(ctx, a); err != nil {
		s.logger.Warn("record artifact", zap.String("url", url), zap.Error(err))
	}
}

func (s *Session) begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.op != "" {
		return fmt.Errorf("%w: %s running", ErrBusy, s.op)
	}
	s.op = op
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.op = ""
	s.mu.Unlock()
}

func (s *Session) setOp(state *OpState, v OpState) {
	s.mu.Lock()
	*state = v
	s.mu.Unlock()
}

func (s *Session) notify(n domain.Notification) {
	s.opts.Notifier.Notify(n)
}
