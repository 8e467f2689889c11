package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureSize is the length of an ed25519 signature.
const SignatureSize = 64

// systemTransferIndex is the System Program Transfer instruction discriminator.
const systemTransferIndex uint32 = 2

// Signer signs serialized transaction messages.
type Signer interface {
	PublicKey() string
	Sign(ctx context.Context, msg []byte) ([]byte, error)
}

// MessageHeader counts signer and read-only accounts.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash [32]byte
	Instructions    []CompiledInstruction
}

// Transaction is a message plus one signature per required signer.
type Transaction struct {
	Signatures [][]byte
	Message    Message
}

// NewTransferTransaction builds an unsigned System Program transfer.
func NewTransferTransaction(from, to PublicKey, lamports uint64, recentBlockhash string) (*Transaction, error) {
	if from == to {
		return nil, errors.New("transfer source and destination are the same account")
	}
	if lamports == 0 {
		return nil, errors.New("transfer amount must be positive")
	}

	bh, err := base58.Decode(recentBlockhash)
	if err != nil || len(bh) != 32 {
		return nil, fmt.Errorf("invalid blockhash %q", recentBlockhash)
	}

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	msg := Message{
		Header: MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1, // system program
		},
		AccountKeys: []PublicKey{from, to, SystemProgramID},
		Instructions: []CompiledInstruction{{
			ProgramIDIndex: 2,
			Accounts:       []uint8{0, 1},
			Data:           data,
		}},
	}
	copy(msg.RecentBlockhash[:], bh)

	return &Transaction{Message: msg}, nil
}

// Serialize encodes the message in wire format.
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)

	writeCompactU16(&buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf.Write(k[:])
	}
	buf.Write(m.RecentBlockhash[:])

	writeCompactU16(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeCompactU16(&buf, len(ix.Accounts))
		buf.Write(ix.Accounts)
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// Sign signs the message with the fee payer. The signer must own AccountKeys[0].
func (tx *Transaction) Sign(ctx context.Context, signer Signer) error {
	if len(tx.Message.AccountKeys) == 0 {
		return errors.New("message has no accounts")
	}
	if signer.PublicKey() != tx.Message.AccountKeys[0].String() {
		return fmt.Errorf("signer %s is not the fee payer", signer.PublicKey())
	}

	sig, err := signer.Sign(ctx, tx.Message.Serialize())
	if err != nil {
		return fmt.Errorf("sign message: %w", err)
	}
	if len(sig) != SignatureSize {
		return fmt.Errorf("unexpected signature length %d", len(sig))
	}
	tx.Signatures = [][]byte{sig}
	return nil
}

// Signature returns the base58 transaction id (first signature).
func (tx *Transaction) Signature() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}

// Serialize encodes the signed transaction in wire format.
func (tx *Transaction) Serialize() ([]byte, error) {
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return nil, errors.New("transaction is not fully signed")
	}
	var buf bytes.Buffer
	writeCompactU16(&buf, len(tx.Signatures))
	for _, s := range tx.Signatures {
		buf.Write(s)
	}
	buf.Write(tx.Message.Serialize())
	return buf.Bytes(), nil
}

// Base64 returns the serialized transaction for sendTransaction.
func (tx *Transaction) Base64() (string, error) {
	b, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// writeCompactU16 writes the shortvec length encoding.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
