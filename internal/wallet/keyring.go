// Package wallet manages the local wallet set: ed25519 signing keys keyed
// by base58 address. Credentials live only in memory; nothing here
// persists a secret key.
package wallet

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet is one address + signing credential pair.
type Wallet struct {
	Address string // base58-encoded public key
	pub     ed25519.PublicKey
	priv    ed25519.PrivateKey
}

// Sign signs a message with the wallet's credential.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}

// PublicKey returns the 32-byte public key.
func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.pub
}

// Keyring is the in-memory wallet set, ordered by insertion. Wallet
// processing order within an action follows this order.
type Keyring struct {
	mu     sync.RWMutex
	byAddr map[string]*Wallet
	order  []string
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{byAddr: make(map[string]*Wallet)}
}

// Add registers a wallet from a 64-byte ed25519 private key (seed ||
// public key, the standard Solana keypair layout). Returns the derived
// address.
func (k *Keyring) Add(priv ed25519.PrivateKey) (string, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}

	pub := priv.Public().(ed25519.PublicKey)
	addr := base58.Encode(pub)

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.byAddr[addr]; exists {
		return addr, nil
	}
	k.byAddr[addr] = &Wallet{Address: addr, pub: pub, priv: priv}
	k.order = append(k.order, addr)
	return addr, nil
}

// AddBase58 registers a wallet from a base58-encoded 64-byte keypair.
func (k *Keyring) AddBase58(encoded string) (string, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("decode keypair: %w", err)
	}
	return k.Add(ed25519.PrivateKey(raw))
}

// Get returns the wallet for an address.
func (k *Keyring) Get(address string) (*Wallet, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	w, ok := k.byAddr[address]
	return w, ok
}

// Addresses returns all wallet addresses in insertion order.
func (k *Keyring) Addresses() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]string(nil), k.order...)
}

// Len returns the number of wallets.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.order)
}

// DecodeAddress decodes a base58 wallet address and verifies it is a
// canonical on-curve ed25519 point. Program-derived addresses are
// deliberately rejected: only signable wallet addresses are accepted here.
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("address must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, fmt.Errorf("address is not on the ed25519 curve: %w", err)
	}
	return raw, nil
}
