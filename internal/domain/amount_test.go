package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamports_String(t *testing.T) {
	assert.Equal(t, "0.200000000", SOL(0.2).String())
	assert.Equal(t, "0.001000000", Lamports(1_000_000).String())
	assert.Equal(t, "18446744073.709551615", Lamports(^uint64(0)).String())
}

func TestSOL(t *testing.T) {
	assert.Equal(t, Lamports(200_000_000), SOL(0.2))
	assert.Equal(t, Lamports(1_000_000), SOL(0.001))
	assert.Equal(t, Lamports(0), SOL(-1))
	assert.Equal(t, LamportsPerSOL, SOL(1))
}

func TestParseSOL(t *testing.T) {
	l, err := ParseSOL("0.2")
	require.NoError(t, err)
	assert.Equal(t, Lamports(200_000_000), l)

	// sub-lamport precision rounds up
	l, err = ParseSOL("0.0000000001")
	require.NoError(t, err)
	assert.Equal(t, Lamports(1), l)

	_, err = ParseSOL("-0.1")
	assert.Error(t, err)
	_, err = ParseSOL("abc")
	assert.Error(t, err)
}

func TestLamports_Sub(t *testing.T) {
	assert.Equal(t, Lamports(5), Lamports(10).Sub(5))
	assert.Equal(t, Lamports(0), Lamports(5).Sub(10))
}
