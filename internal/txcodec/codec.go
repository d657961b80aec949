// Package txcodec reads and writes the Solana legacy transaction wire
// format: a compact-u16 prefixed signature array followed by the message
// (header, account keys, recent blockhash, instructions). Only the parts
// the signer needs are interpreted; instruction data stays opaque.
package txcodec

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// SignatureLength is the ed25519 signature size.
	SignatureLength = 64
	// AccountKeyLength is the ed25519 public key size.
	AccountKeyLength = 32
	// blockhashLength is the recent blockhash size.
	blockhashLength = 32
)

var (
	// ErrTruncated is returned when a blob ends before a complete field.
	ErrTruncated = errors.New("transaction blob truncated")
	// ErrSignerIndex is returned for a signature slot outside the
	// required-signer range.
	ErrSignerIndex = errors.New("signer index out of range")
)

// Transaction is a decoded transaction: the signature slots plus the raw
// message bytes that those signatures cover.
type Transaction struct {
	// Signatures has exactly numRequiredSignatures slots; unsigned
	// slots are all-zero placeholders.
	Signatures [][]byte

	// Message is the raw serialized message, the exact bytes each
	// signature signs.
	Message []byte

	numRequiredSignatures int
	accountKeys           [][]byte
}

// Decode parses a serialized transaction.
func Decode(blob []byte) (*Transaction, error) {
	sigCount, offset, err := decodeShortvec(blob, 0)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}

	sigs := make([][]byte, 0, sigCount)
	for i := 0; i < sigCount; i++ {
		if offset+SignatureLength > len(blob) {
			return nil, fmt.Errorf("signature %d: %w", i, ErrTruncated)
		}
		sig := make([]byte, SignatureLength)
		copy(sig, blob[offset:offset+SignatureLength])
		sigs = append(sigs, sig)
		offset += SignatureLength
	}

	message := make([]byte, len(blob)-offset)
	copy(message, blob[offset:])

	tx := &Transaction{Signatures: sigs, Message: message}
	if err := tx.parseMessage(); err != nil {
		return nil, err
	}

	// Builders may emit fewer signature slots than required signers;
	// pad with zero placeholders so slot indexes line up with the
	// required-signer key order.
	for len(tx.Signatures) < tx.numRequiredSignatures {
		tx.Signatures = append(tx.Signatures, make([]byte, SignatureLength))
	}
	if len(tx.Signatures) > tx.numRequiredSignatures {
		return nil, fmt.Errorf("%d signature slots for %d required signers",
			len(tx.Signatures), tx.numRequiredSignatures)
	}

	return tx, nil
}

// Encode serializes the transaction back to wire bytes.
func (t *Transaction) Encode() []byte {
	out := encodeShortvec(len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig...)
	}
	return append(out, t.Message...)
}

// NumRequiredSignatures returns the signer count from the message header.
func (t *Transaction) NumRequiredSignatures() int {
	return t.numRequiredSignatures
}

// RequiredSigners returns the base58 addresses that must sign, in
// signature-slot order (the first numRequiredSignatures account keys).
func (t *Transaction) RequiredSigners() []string {
	signers := make([]string, 0, t.numRequiredSignatures)
	for i := 0; i < t.numRequiredSignatures; i++ {
		signers = append(signers, base58.Encode(t.accountKeys[i]))
	}
	return signers
}

// HasSignature reports whether slot i already carries a non-zero
// signature. Used to preserve signatures applied upstream by the builder.
func (t *Transaction) HasSignature(i int) bool {
	if i < 0 || i >= len(t.Signatures) {
		return false
	}
	for _, b := range t.Signatures[i] {
		if b != 0 {
			return true
		}
	}
	return false
}

// SetSignature fills signature slot i.
func (t *Transaction) SetSignature(i int, sig []byte) error {
	if i < 0 || i >= t.numRequiredSignatures {
		return ErrSignerIndex
	}
	if len(sig) != SignatureLength {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	s := make([]byte, SignatureLength)
	copy(s, sig)
	t.Signatures[i] = s
	return nil
}

// parseMessage reads the header and account keys out of the raw message.
func (t *Transaction) parseMessage() error {
	msg := t.Message
	if len(msg) < 3 {
		return fmt.Errorf("message header: %w", ErrTruncated)
	}
	t.numRequiredSignatures = int(msg[0])
	// msg[1], msg[2]: readonly signed / readonly unsigned counts, not
	// needed for signing.

	keyCount, offset, err := decodeShortvec(msg, 3)
	if err != nil {
		return fmt.Errorf("account key count: %w", err)
	}
	if keyCount < t.numRequiredSignatures {
		return fmt.Errorf("%d account keys for %d required signers", keyCount, t.numRequiredSignatures)
	}

	t.accountKeys = make([][]byte, 0, keyCount)
	for i := 0; i < keyCount; i++ {
		if offset+AccountKeyLength > len(msg) {
			return fmt.Errorf("account key %d: %w", i, ErrTruncated)
		}
		key := make([]byte, AccountKeyLength)
		copy(key, msg[offset:offset+AccountKeyLength])
		t.accountKeys = append(t.accountKeys, key)
		offset += AccountKeyLength
	}

	if offset+blockhashLength > len(msg) {
		return fmt.Errorf("recent blockhash: %w", ErrTruncated)
	}
	return nil
}

// decodeShortvec reads a compact-u16 length at offset and returns the
// value plus the offset past it.
func decodeShortvec(data []byte, offset int) (int, int, error) {
	value := 0
	shift := 0
	for i := 0; i < 3; i++ {
		if offset >= len(data) {
			return 0, 0, ErrTruncated
		}
		b := data[offset]
		offset++
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, offset, nil
		}
		shift += 7
	}
	return 0, 0, errors.New("compact-u16 too long")
}

// encodeShortvec writes a compact-u16 length.
func encodeShortvec(value int) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
