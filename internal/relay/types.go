// Package relay holds the outbound service boundary: the transaction
// builder that produces unsigned transaction blobs and the bundler relay
// that lands signed bundles on-chain.
package relay

import (
	"context"
	"fmt"

	"solana-autotrader/internal/domain"
)

// BuildRequest asks the builder service for unsigned swap transactions.
type BuildRequest struct {
	WalletAddresses []string              `json:"walletAddresses"`
	TokenAddress    string                `json:"tokenAddress"`
	Direction       domain.TradeDirection `json:"direction"`
	Amount          float64               `json:"amount"`
	SlippagePct     float64               `json:"slippagePct"`
	Priority        domain.Priority       `json:"priority,omitempty"`
}

// BuilderClient obtains unsigned (possibly partially signed) transaction
// blobs from the external builder service.
type BuilderClient interface {
	BuildSwap(ctx context.Context, req BuildRequest) ([][]byte, error)
}

// RelayClient submits a signed bundle to the external relay and returns
// the relay-assigned bundle id.
type RelayClient interface {
	SubmitBundle(ctx context.Context, signedTxs [][]byte) (string, error)
}

// RelayError is a structured relay failure (code + message).
type RelayError struct {
	Code    int
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}
