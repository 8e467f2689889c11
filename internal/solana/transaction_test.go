package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

type edSigner struct {
	key ed25519.PrivateKey
}

func (s edSigner) PublicKey() string {
	return base58.Encode(s.key.Public().(ed25519.PublicKey))
}

func (s edSigner) Sign(_ context.Context, msg []byte) ([]byte, error) {
	return ed25519.Sign(s.key, msg), nil
}

func newEdSigner() edSigner {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	return edSigner{key: ed25519.NewKeyFromSeed(seed)}
}

var testBlockhash = base58.Encode(bytes.Repeat([]byte{9}, 32))

func TestWriteCompactU16(t *testing.T) {
	cases := map[int][]byte{
		0:     {0x00},
		127:   {0x7f},
		128:   {0x80, 0x01},
		16383: {0xff, 0x7f},
		16384: {0x80, 0x80, 0x01},
	}
	for n, want := range cases {
		var buf bytes.Buffer
		writeCompactU16(&buf, n)
		if !bytes.Equal(buf.Bytes(), want) {
			t.Errorf("compact(%d) = %x, want %x", n, buf.Bytes(), want)
		}
	}
}

func TestTransferTransaction_Layout(t *testing.T) {
	signer := newEdSigner()
	from := MustPublicKey(signer.PublicKey())
	to := TokenMetadataProgramID

	tx, err := NewTransferTransaction(from, to, 1_500_000, testBlockhash)
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	msg := tx.Message.Serialize()
	if len(msg) != 150 {
		t.Fatalf("expected 150-byte message, got %d", len(msg))
	}
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Errorf("unexpected header %v", msg[:3])
	}
	if !bytes.Equal(msg[4:36], from[:]) || !bytes.Equal(msg[36:68], to[:]) {
		t.Errorf("account keys out of order")
	}

	data := msg[len(msg)-12:]
	if binary.LittleEndian.Uint32(data[:4]) != 2 {
		t.Errorf("expected transfer discriminator 2")
	}
	if binary.LittleEndian.Uint64(data[4:]) != 1_500_000 {
		t.Errorf("unexpected lamports in instruction data")
	}

	if _, err := tx.Serialize(); err == nil {
		t.Errorf("expected error serializing unsigned transaction")
	}

	if err := tx.Sign(context.Background(), signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	b64, err := tx.Base64()
	if err != nil {
		t.Fatalf("Base64: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(b64)
	if len(raw) != 1+64+150 {
		t.Fatalf("expected 215-byte transaction, got %d", len(raw))
	}
	if !ed25519.Verify(signer.key.Public().(ed25519.PublicKey), raw[65:], raw[1:65]) {
		t.Errorf("signature does not verify against message")
	}
	if tx.Signature() != base58.Encode(raw[1:65]) {
		t.Errorf("Signature() mismatch")
	}
}

func TestTransferTransaction_Rejects(t *testing.T) {
	signer := newEdSigner()
	from := MustPublicKey(signer.PublicKey())

	if _, err := NewTransferTransaction(from, from, 1, testBlockhash); err == nil {
		t.Errorf("expected error for self transfer")
	}
	if _, err := NewTransferTransaction(from, SystemProgramID, 0, testBlockhash); err == nil {
		t.Errorf("expected error for zero amount")
	}
	if _, err := NewTransferTransaction(from, SystemProgramID, 1, "bad!"); err == nil {
		t.Errorf("expected error for bad blockhash")
	}

	tx, _ := NewTransferTransaction(TokenMetadataProgramID, from, 1, testBlockhash)
	if err := tx.Sign(context.Background(), signer); err == nil {
		t.Errorf("expected error when signer is not fee payer")
	}
}
