// Package automation implements the trading automation core: the pure
// condition evaluator, the strategy scheduler and the action resolver.
package automation

import (
	"math"

	"solana-autotrader/internal/domain"
)

// EqualityTolerance is the absolute tolerance applied to '=' comparisons
// so float aggregates do not produce false negatives.
const EqualityTolerance = 1e-4

// Evaluate applies a condition to a market snapshot. Pure: no I/O, no
// mutation, deterministic for identical inputs.
//
// Conditions over data the snapshot does not carry (no last trade, an
// untracked whitelist address) fail closed and return false.
func Evaluate(c domain.Condition, snap *domain.MarketSnapshot) bool {
	if snap == nil {
		return false
	}

	switch c.Kind {
	case domain.ConditionMarketCap:
		return compare(snap.MarketCap, c.Operator, c.Threshold)
	case domain.ConditionBuyVolume:
		return compare(snap.BuyVolume, c.Operator, c.Threshold)
	case domain.ConditionSellVolume:
		return compare(snap.SellVolume, c.Operator, c.Threshold)
	case domain.ConditionNetVolume:
		return compare(snap.NetVolume(), c.Operator, c.Threshold)
	case domain.ConditionLastTradeType:
		// Type equality is the only meaningful comparison here.
		if snap.LastTrade == nil || c.Operator != domain.OpEQ {
			return false
		}
		return snap.LastTrade.Type == c.TradeType
	case domain.ConditionLastTradeAmount:
		if snap.LastTrade == nil {
			return false
		}
		return compare(snap.LastTrade.Amount, c.Operator, c.Threshold)
	case domain.ConditionPriceChange:
		return compare(snap.PriceChangePct, c.Operator, c.Threshold)
	case domain.ConditionWhitelistActivity:
		activity, ok := snap.Whitelist[c.TargetAddress]
		if !ok {
			return false
		}
		return compare(whitelistValue(activity, c.Metric), c.Operator, c.Threshold)
	default:
		return false
	}
}

// EvaluateStrategy applies the strategy's combination rule across its
// conditions. Short-circuits; safe because Evaluate is side-effect free.
func EvaluateStrategy(s *domain.Strategy, snap *domain.MarketSnapshot) bool {
	if len(s.Conditions) == 0 {
		return false
	}

	switch s.Combine {
	case domain.CombineAny:
		for _, c := range s.Conditions {
			if Evaluate(c, snap) {
				return true
			}
		}
		return false
	default: // all
		for _, c := range s.Conditions {
			if !Evaluate(c, snap) {
				return false
			}
		}
		return true
	}
}

// whitelistValue extracts the observed metric from an activity record.
func whitelistValue(a domain.AddressActivity, m domain.WhitelistMetric) float64 {
	switch m {
	case domain.WhitelistSellVolume:
		return a.SellVolume
	case domain.WhitelistNetVolume:
		return a.NetVolume()
	case domain.WhitelistLastTradeAmount:
		if a.LastTrade == nil {
			return 0
		}
		return a.LastTrade.Amount
	default: // buy-volume
		return a.BuyVolume
	}
}

// compare applies op to (observed, threshold).
func compare(observed float64, op domain.Operator, threshold float64) bool {
	switch op {
	case domain.OpGT:
		return observed > threshold
	case domain.OpLT:
		return observed < threshold
	case domain.OpEQ:
		return math.Abs(observed-threshold) <= EqualityTolerance
	case domain.OpGTE:
		return observed >= threshold
	case domain.OpLTE:
		return observed <= threshold
	default:
		return false
	}
}
