package api

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bundlrstub "solana-token-studio/internal/bundlr/stub"
	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/metadata"
	"solana-token-studio/internal/network"
	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
	solanastub "solana-token-studio/internal/solana/stub"
	"solana-token-studio/internal/upload"
	"solana-token-studio/internal/wallet"
)

type testEnv struct {
	srv     *httptest.Server
	rpc     *solanastub.RPCClient
	node    *bundlrstub.Node
	readRPC map[domain.Cluster]*solanastub.RPCClient
}

// clusterReaders serves one reader per cluster, devnet by default. The devnet
// reader shares the funding RPC.
type clusterReaders struct {
	readers map[domain.Cluster]*metadata.Reader
}

func (c clusterReaders) For(name string) (*metadata.Reader, error) {
	if name == "" {
		name = string(domain.ClusterDevnet)
	}
	cluster, err := network.ClusterByName(name)
	if err != nil {
		return nil, err
	}
	return c.readers[cluster.Cluster], nil
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{1}, ed25519.SeedSize))
	signer := wallet.NewKeypairSigner(key)
	nodeKey := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{2}, ed25519.SeedSize)).Public().(ed25519.PublicKey)

	env := &testEnv{
		rpc:  solanastub.NewRPCClient(),
		node: bundlrstub.NewNode(base58.Encode(nodeKey)),
	}
	env.readRPC = map[domain.Cluster]*solanastub.RPCClient{
		domain.ClusterDevnet:  env.rpc,
		domain.ClusterTestnet: solanastub.NewRPCClient(),
		domain.ClusterMainnet: solanastub.NewRPCClient(),
	}
	env.rpc.SetBalance(signer.PublicKey(), uint64(10*domain.LamportsPerSOL))
	env.node.Attach(env.rpc, signer.PublicKey())

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith("test", reg)
	cfg.MetricsHandler = observability.HandlerFor(reg)

	opts := upload.Options{
		Signer:  signer,
		NodeFor: func(domain.BundlerEndpoint) upload.Node { return env.node },
		RPCFor:  func(domain.BundlerEndpoint) solana.RPCClient { return env.rpc },
		ConfirmerFor: func(_ domain.BundlerEndpoint, rpc solana.RPCClient) solana.Confirmer {
			return solana.NewPollingConfirmer(rpc, time.Millisecond, 3)
		},
		Metrics: metrics,
	}
	readers := clusterReaders{readers: make(map[domain.Cluster]*metadata.Reader)}
	for c, rpc := range env.readRPC {
		readers.readers[c] = metadata.NewReader(rpc, metadata.WithMetrics(metrics))
	}

	env.srv = httptest.NewServer(NewServer(cfg, opts, readers))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp, out := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, out.Session)
	require.NotEmpty(t, out.Session.ID)
	return out.Session.ID
}

func messagesOf(out Response) []string {
	var msgs []string
	for _, n := range out.Notifications {
		msgs = append(msgs, n.Message)
	}
	return msgs
}

func TestServer_FullFlow(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	resp, out := env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"cluster":"devnet","bundler_id":2}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "devnet", out.Session.Cluster)

	resp, out = env.do(t, http.MethodPost, base+"/connect", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.True(t, out.Session.Connected)
	assert.Equal(t, []string{"Connected to devnet"}, messagesOf(out))

	resp, out = env.do(t, http.MethodPost, base+"/image?name=logo.png", bytes.NewReader(bytes.Repeat([]byte{1}, 2048)))
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	require.NotNil(t, out.Session.Primary)
	assert.Equal(t, 2048, out.Session.Primary.Size)

	resp, out = env.do(t, http.MethodPost, base+"/image/upload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "https://arweave.net/tx1?ext=png", out.URL)
	assert.Equal(t, out.URL, out.Session.ImageURL)

	resp, out = env.do(t, http.MethodPut, base+"/fields", strings.NewReader(`{"name":"My Token","symbol":"MYT"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "MYT", out.Session.Fields.Symbol)

	resp, out = env.do(t, http.MethodPost, base+"/metadata/upload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "https://arweave.net/tx2", out.URL)

	resp, out = env.do(t, http.MethodPost, base+"/metadata/upload", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, out.Error)
}

func TestServer_MetadataRequiresImage(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)

	resp, out := env.do(t, http.MethodPost, "/api/sessions/"+id+"/metadata/upload", nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, []string{"Please upload Image!"}, messagesOf(out))
	assert.Equal(t, 0, env.node.PriceCalls)
}

func TestServer_ConnectWithoutNetwork(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)

	resp, out := env.do(t, http.MethodPost, "/api/sessions/"+id+"/connect", nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, []string{"Please select network"}, messagesOf(out))
}

func TestServer_BadRequests(t *testing.T) {
	env := newTestEnv(t, Config{MaxImageBytes: 16})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	resp, _ := env.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"bundler_id":7}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"color":"red"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, base+"/fields", strings.NewReader(`{"color":"red"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, base+"/image", bytes.NewReader(make([]byte, 17)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, base+"/image", bytes.NewReader(nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := env.do(t, http.MethodPost, base+"/image/upload", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "nothing staged is a no-op")
	assert.Empty(t, out.URL)
}

func TestServer_RejectedFieldsLeaveFormUnchanged(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	resp, _ := env.do(t, http.MethodPut, base+"/fields", strings.NewReader(`{"name":"Before"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 20; i++ {
		resp, out := env.do(t, http.MethodPut, base+"/fields",
			strings.NewReader(`{"name":"X","symbol":"Y","description":"D","bogus":"z"}`))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, domain.FormFields{Name: "Before"}, out.Session.Fields)
	}
}

func TestServer_TopUp(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)
	base := "/api/sessions/" + id

	resp, _ := env.do(t, http.MethodPost, base+"/fund", strings.NewReader(`{"amount":"0.1"}`))
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, out := env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"cluster":"devnet","bundler_id":2}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	resp, out = env.do(t, http.MethodPost, base+"/connect", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)

	resp, _ = env.do(t, http.MethodPost, base+"/fund", strings.NewReader(`{"amount":"lots"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, base+"/fund", strings.NewReader(`{"amount":"0"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out = env.do(t, http.MethodPost, base+"/fund", strings.NewReader(`{"amount":"0.1"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.NotEmpty(t, out.Signature)
	assert.Equal(t, []string{"Funded 0.100000000 SOL"}, messagesOf(out))
	assert.Equal(t, domain.SOL(0.1), env.node.Balances[out.Session.Owner])
}

func TestServer_MetadataFollowsCluster(t *testing.T) {
	env := newTestEnv(t, Config{})
	mint := solana.PublicKey{7, 7, 7}.String()
	devnet := env.readRPC[domain.ClusterDevnet]
	mainnet := env.readRPC[domain.ClusterMainnet]

	get := func(path string) (*http.Response, MetadataResponse) {
		resp, err := http.Get(env.srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out MetadataResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp, out
	}

	// no account exists on either cluster, so each read fails after one lookup
	resp, _ := get("/api/metadata/" + mint)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, devnet.AccountCalls)
	assert.Equal(t, 0, mainnet.AccountCalls)

	get("/api/metadata/" + mint + "?cluster=mainnet-beta")
	assert.Equal(t, 1, devnet.AccountCalls)
	assert.Equal(t, 1, mainnet.AccountCalls)

	resp, out := get("/api/metadata/" + mint + "?cluster=localnet")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "unknown cluster")

	id := env.createSession(t)
	base := "/api/sessions/" + id
	r, _ := env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"cluster":"mainnet-beta"}`))
	require.Equal(t, http.StatusOK, r.StatusCode)

	resp, out = get(base + "/metadata/" + mint)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 2, mainnet.AccountCalls)
	assert.Equal(t, 1, devnet.AccountCalls)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, "Please input valid token address", out.Notifications[0].Message)

	r, _ = env.do(t, http.MethodPut, base+"/network", strings.NewReader(`{"cluster":"devnet"}`))
	require.Equal(t, http.StatusOK, r.StatusCode)
	get(base + "/metadata/" + mint)
	assert.Equal(t, 2, devnet.AccountCalls)
	assert.Equal(t, 2, mainnet.AccountCalls)
}

func TestServer_DeleteSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	id := env.createSession(t)

	resp, _ := env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_FetchMetadata_InvalidAddress(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp, err := http.Get(env.srv.URL + "/api/metadata/invalid!!")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out MetadataResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, "Please input valid token address", out.Notifications[0].Message)
	assert.Equal(t, domain.NotificationError, out.Notifications[0].Type)
	assert.Equal(t, 0, env.rpc.AccountCalls)
}

func TestServer_Static(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(env.srv.URL + "/api/networks")
	require.NoError(t, err)
	var nets NetworksResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nets))
	resp.Body.Close()
	assert.Len(t, nets.Clusters, 3)
	assert.Len(t, nets.Bundlers, 2)

	// create a session so the gauge has a sample
	env.createSession(t)
	resp, err = http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "test_upload_active_sessions")
}
