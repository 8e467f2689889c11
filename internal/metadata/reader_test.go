package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-studio/internal/observability"
	"solana-token-studio/internal/solana"
	"solana-token-studio/internal/solana/stub"
)

func testMint() solana.PublicKey {
	var m solana.PublicKey
	for i := range m {
		m[i] = byte(i + 1)
	}
	return m
}

// seedAccount stores a metadata account for mint in rpc.
func seedAccount(t *testing.T, rpc *stub.RPCClient, mint solana.PublicKey, uri string) {
	t.Helper()
	pda, err := solana.MetadataAddress(mint)
	require.NoError(t, err)

	var authority [32]byte
	authority[31] = 9
	data := encodeAccount(authority, mint, pad("MYTOKEN", 32), pad("MYT", 10), uri, 0)
	rpc.SetAccount(pda.String(), &solana.AccountInfo{
		Lamports: 5616720,
		Owner:    solana.TokenMetadataProgramID.String(),
		Data:     base64.StdEncoding.EncodeToString(data),
	})
}

func documentServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchMetadata(t *testing.T) {
	var hits atomic.Int32
	srv := documentServer(t, `{"name":"MYTOKEN","image":"https://arweave.net/img?ext=png"}`, &hits)

	rpc := stub.NewRPCClient()
	mint := testMint()
	seedAccount(t, rpc, mint, pad(srv.URL, 200))

	reader := NewReader(rpc, WithHTTPClient(srv.Client()))
	dm, err := reader.FetchMetadata(context.Background(), mint.String())
	require.NoError(t, err)

	assert.Equal(t, "MYTOKEN", dm.Name)
	assert.Equal(t, "MYT", dm.Symbol)
	assert.Equal(t, srv.URL, dm.URI)
	assert.Equal(t, mint.String(), dm.Mint)
	require.NotNil(t, dm.Image)
	assert.Equal(t, "https://arweave.net/img?ext=png", *dm.Image)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchMetadata_EmptyURISkipsDocument(t *testing.T) {
	for _, uri := range []string{"", "\x00\x00\x00\x00"} {
		rpc := stub.NewRPCClient()
		mint := testMint()
		seedAccount(t, rpc, mint, uri)

		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			t.Fatal("no document fetch expected")
			return nil, nil
		})}

		dm, err := NewReader(rpc, WithHTTPClient(client)).FetchMetadata(context.Background(), mint.String())
		require.NoError(t, err)
		assert.Equal(t, "MYTOKEN", dm.Name)
		assert.Nil(t, dm.Image)
	}
}

func TestFetchMetadata_InvalidAddress(t *testing.T) {
	rpc := stub.NewRPCClient()
	reader := NewReader(rpc)

	_, err := reader.FetchMetadata(context.Background(), "invalid!!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTokenAddress))
	assert.True(t, errors.Is(err, solana.ErrInvalidPublicKey))
	assert.Equal(t, "Please input valid token address", err.Error())
	assert.Equal(t, 0, rpc.AccountCalls)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "invalid!!", readErr.Address)
}

func TestFetchMetadata_Failures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer garbage.Close()

	tests := []struct {
		name  string
		setup func(rpc *stub.RPCClient, mint solana.PublicKey)
	}{
		{"no account", func(*stub.RPCClient, solana.PublicKey) {}},
		{"undecodable account", func(rpc *stub.RPCClient, mint solana.PublicKey) {
			pda, _ := solana.MetadataAddress(mint)
			rpc.SetAccount(pda.String(), &solana.AccountInfo{Data: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})})
		}},
		{"document 404", func(rpc *stub.RPCClient, mint solana.PublicKey) {
			seedAccount(t, rpc, mint, failing.URL)
		}},
		{"document not json", func(rpc *stub.RPCClient, mint solana.PublicKey) {
			seedAccount(t, rpc, mint, garbage.URL)
		}},
		{"unsupported scheme", func(rpc *stub.RPCClient, mint solana.PublicKey) {
			seedAccount(t, rpc, mint, "ftp://example.com/m.json")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := stub.NewRPCClient()
			mint := testMint()
			tt.setup(rpc, mint)

			_, err := NewReader(rpc).FetchMetadata(context.Background(), mint.String())
			var readErr *ReadError
			require.True(t, errors.As(err, &readErr), "got %v", err)
			assert.Equal(t, MsgInvalidTokenAddress, err.Error())
			assert.Error(t, readErr.Cause)
		})
	}
}

func TestFetchMetadata_Cache(t *testing.T) {
	var hits atomic.Int32
	srv := documentServer(t, `{"image":"https://arweave.net/img?ext=png"}`, &hits)

	rpc := stub.NewRPCClient()
	mint := testMint()
	seedAccount(t, rpc, mint, srv.URL)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith("test", reg)

	reader := NewReader(rpc,
		WithHTTPClient(srv.Client()),
		WithCache(time.Minute, time.Minute),
		WithMetrics(metrics),
	)

	first, err := reader.FetchMetadata(context.Background(), mint.String())
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := reader.FetchMetadata(context.Background(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, "MYTOKEN", second.Name)

	assert.Equal(t, 1, rpc.AccountCalls)
	assert.Equal(t, int32(1), hits.Load())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
