package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/solana"
)

// metadataKeyV1 is the account discriminator of a Metadata account.
const metadataKeyV1 = 4

// maxStringLen bounds borsh string lengths; on-chain fields are at most 200 bytes.
const maxStringLen = 1024

// ErrMalformedAccount is returned when account bytes do not decode.
var ErrMalformedAccount = errors.New("malformed metadata account")

// DecodeAccount decodes a token metadata account.
// Layout:
// - key: u8 (4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name, symbol, uri: borsh String (u32 length + bytes), NUL padded
// - sellerFeeBasisPoints: u16
func DecodeAccount(data []byte) (*domain.OnChainMetadata, error) {
	if len(data) < 1+2*solana.PublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedAccount, len(data))
	}
	if data[0] != metadataKeyV1 {
		return nil, fmt.Errorf("%w: key %d", ErrMalformedAccount, data[0])
	}

	var authority, mint solana.PublicKey
	copy(authority[:], data[1:33])
	copy(mint[:], data[33:65])

	r := &reader{buf: data, off: 65}
	name := r.string()
	symbol := r.string()
	uri := r.string()
	fee := r.u16()
	if r.err != nil {
		return nil, r.err
	}

	return &domain.OnChainMetadata{
		UpdateAuthority:      authority.String(),
		Mint:                 mint.String(),
		Name:                 TrimNull(name),
		Symbol:               TrimNull(symbol),
		URI:                  TrimNull(uri),
		SellerFeeBasisPoints: fee,
	}, nil
}

// TrimNull cuts s at the first NUL; on-chain strings are padded with them.
func TrimNull(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// reader is a sticky-error cursor over borsh data.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrMalformedAccount, r.off)
		return false
	}
	return true
}

func (r *reader) string() string {
	if !r.need(4) {
		return ""
	}
	n := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	if n > maxStringLen {
		r.err = fmt.Errorf("%w: string length %d", ErrMalformedAccount, n)
		return ""
	}
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}
