package domain

import "time"

// TradeRequest is a concrete trade for one wallet, produced by the action
// resolver and consumed by the submission pipeline.
type TradeRequest struct {
	ID            string // uuid
	StrategyID    string
	WalletAddress string // base58
	TokenAddress  string // base58 mint
	Direction     TradeDirection
	Amount        float64 // native units (SOL)
	SlippagePct   float64
	Priority      Priority
}

// TransactionBundle is an ordered set of transactions submitted together
// to the relay.
type TransactionBundle struct {
	Index int      // position within the trade request's bundle sequence
	Blobs [][]byte // serialized transactions, signed or partially signed

	// Critical marks the bundle whose failure aborts the remainder of
	// the trade request. The first bundle of a multi-bundle flow is
	// always critical.
	Critical bool
}

// SubmissionResult records the outcome of delivering one bundle.
type SubmissionResult struct {
	BundleID string // relay-assigned id, empty on failure
	Attempts int
	Err      error
}

// ExecutionEntry is one record in the execution log: the outcome of a
// fired strategy action. Never mutated after creation.
type ExecutionEntry struct {
	StrategyID string
	Time       time.Time
	Action     string // human-readable action description
	Success    bool
	Message    string
}
