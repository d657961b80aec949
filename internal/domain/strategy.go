package domain

import (
	"errors"
	"fmt"
	"time"
)

// CombineRule determines how a strategy's conditions are combined.
type CombineRule string

const (
	CombineAll CombineRule = "all" // logical AND
	CombineAny CombineRule = "any" // logical OR
)

// ConditionKind identifies the market metric a condition observes.
type ConditionKind string

const (
	ConditionMarketCap         ConditionKind = "market-cap"
	ConditionBuyVolume         ConditionKind = "buy-volume"
	ConditionSellVolume        ConditionKind = "sell-volume"
	ConditionNetVolume         ConditionKind = "net-volume"
	ConditionLastTradeType     ConditionKind = "last-trade-type"
	ConditionLastTradeAmount   ConditionKind = "last-trade-amount"
	ConditionPriceChange       ConditionKind = "price-change"
	ConditionWhitelistActivity ConditionKind = "whitelist-activity"
)

// Operator is a comparison operator applied to (observed, threshold).
type Operator string

const (
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "="
	OpGTE Operator = ">="
	OpLTE Operator = "<="
)

// WhitelistMetric selects which per-address metric a whitelist-activity
// condition observes.
type WhitelistMetric string

const (
	WhitelistBuyVolume       WhitelistMetric = "buy-volume"
	WhitelistSellVolume      WhitelistMetric = "sell-volume"
	WhitelistNetVolume       WhitelistMetric = "net-volume"
	WhitelistLastTradeAmount WhitelistMetric = "last-trade-amount"
)

// Condition is a single comparison between a market metric and a threshold.
// JSON tags define the persistence shape (strategies round-trip through the
// persistence port without field loss).
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Operator  Operator      `json:"operator"`
	Threshold float64       `json:"threshold"`

	// LookbackSeconds bounds the observation window for kinds that
	// support one (price-change). Nil means the builder default.
	LookbackSeconds *int64 `json:"lookbackSeconds,omitempty"`

	// TradeType is compared instead of Threshold for last-trade-type.
	TradeType TradeType `json:"tradeType,omitempty"`

	// TargetAddress and Metric apply only to whitelist-activity.
	TargetAddress string          `json:"targetAddress,omitempty"`
	Metric        WhitelistMetric `json:"metric,omitempty"`
}

// TradeDirection is the side of a trade action.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// AmountKind identifies how an action's trade amount is resolved.
type AmountKind string

const (
	AmountFixed                   AmountKind = "fixed"
	AmountPercentage              AmountKind = "percentage"
	AmountLastTradeMultiple       AmountKind = "last-trade-multiple"
	AmountVolumeMultiple          AmountKind = "volume-multiple"
	AmountWhitelistVolumeMultiple AmountKind = "whitelist-volume-multiple"
)

// VolumeSide selects the aggregate used by volume-based amount kinds.
type VolumeSide string

const (
	VolumeBuy  VolumeSide = "buy"
	VolumeSell VolumeSide = "sell"
	VolumeNet  VolumeSide = "net"
)

// Priority is a fee priority hint forwarded to the transaction builder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Action is a trade instruction executed when a strategy fires.
type Action struct {
	Direction TradeDirection `json:"direction"`
	Amount    AmountKind     `json:"amount"`
	Value     float64        `json:"value"` // amount, percentage or multiple depending on Amount

	// VolumeSide applies to volume-multiple and as the fallback metric
	// for whitelist-volume-multiple without a target address.
	VolumeSide VolumeSide `json:"volumeSide,omitempty"`

	// TargetAddress applies only to whitelist-volume-multiple.
	TargetAddress string `json:"targetAddress,omitempty"`

	SlippagePct float64  `json:"slippagePct"`
	Priority    Priority `json:"priority,omitempty"`
}

// Strategy is a named, user-defined rule set with conditions, actions and
// execution-limiting state.
type Strategy struct {
	ID         string
	Name       string
	Conditions []Condition
	Combine    CombineRule
	Actions    []Action

	Active          bool
	CooldownSeconds int64
	MaxExecutions   *int64 // nil means unlimited
	ExecutionCount  int64
	LastExecutedAt  *time.Time

	// WhitelistedAddresses are tracked external wallets this strategy
	// may reference in conditions and actions.
	WhitelistedAddresses []string
}

// Validation errors.
var (
	ErrNoConditions = errors.New("strategy has no conditions")
	ErrNoActions    = errors.New("strategy has no actions")
)

// Validate reports whether the strategy is well-formed enough to fire.
// An active strategy with zero conditions or zero actions must never fire.
func (s *Strategy) Validate() error {
	if len(s.Conditions) == 0 {
		return ErrNoConditions
	}
	if len(s.Actions) == 0 {
		return ErrNoActions
	}
	if s.Combine != CombineAll && s.Combine != CombineAny {
		return fmt.Errorf("unknown combine rule %q", s.Combine)
	}
	if s.CooldownSeconds < 0 {
		return fmt.Errorf("negative cooldown %d", s.CooldownSeconds)
	}
	return nil
}

// Exhausted reports whether the execution cap has been reached.
func (s *Strategy) Exhausted() bool {
	return s.MaxExecutions != nil && s.ExecutionCount >= *s.MaxExecutions
}

// CoolingDown reports whether the strategy fired within its cooldown window.
func (s *Strategy) CoolingDown(now time.Time) bool {
	if s.LastExecutedAt == nil {
		return false
	}
	return now.Sub(*s.LastExecutedAt) < time.Duration(s.CooldownSeconds)*time.Second
}

// Clone returns a deep copy safe to hand across goroutines.
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.Conditions = append([]Condition(nil), s.Conditions...)
	c.Actions = append([]Action(nil), s.Actions...)
	c.WhitelistedAddresses = append([]string(nil), s.WhitelistedAddresses...)
	if s.MaxExecutions != nil {
		v := *s.MaxExecutions
		c.MaxExecutions = &v
	}
	if s.LastExecutedAt != nil {
		t := *s.LastExecutedAt
		c.LastExecutedAt = &t
	}
	return &c
}
