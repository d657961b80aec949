package automation

import (
	"fmt"

	"github.com/google/uuid"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/observability"
)

// DefaultFeeReserve is the native balance a wallet must hold to cover
// network fees; wallets below it are skipped.
const DefaultFeeReserve = 0.01

// WalletInfo pairs a wallet address with its last known native balance.
// Balances are read non-blocking from the surrounding application's cache.
type WalletInfo struct {
	Address string
	Balance float64
}

// SkippedWallet records a wallet excluded from an action with the reason.
type SkippedWallet struct {
	Address string
	Reason  string
}

// Resolver turns a fired action into concrete trade requests, one per
// eligible wallet. A wallet that fails validation is skipped without
// aborting the rest.
type Resolver struct {
	// TokenAddress is the mint all trade requests target.
	TokenAddress string

	// FeeReserve overrides DefaultFeeReserve when positive.
	FeeReserve float64
}

// Resolve produces trade requests for one action across the wallet set,
// preserving wallet order.
func (r *Resolver) Resolve(st *domain.Strategy, action domain.Action, snap *domain.MarketSnapshot, wallets []WalletInfo) ([]domain.TradeRequest, []SkippedWallet) {
	feeReserve := r.FeeReserve
	if feeReserve <= 0 {
		feeReserve = DefaultFeeReserve
	}

	var (
		requests []domain.TradeRequest
		skipped  []SkippedWallet
	)

	for _, w := range wallets {
		if w.Balance < feeReserve {
			skipped = append(skipped, SkippedWallet{
				Address: w.Address,
				Reason:  fmt.Sprintf("insufficient balance for network fees (%.4f < %.4f)", w.Balance, feeReserve),
			})
			observability.RecordWalletSkip("insufficient_fee_balance")
			continue
		}

		amount, reason := resolveAmount(action, snap, w)
		if amount <= 0 {
			if reason == "" {
				reason = fmt.Sprintf("resolved amount %.6f is not positive", amount)
			}
			skipped = append(skipped, SkippedWallet{Address: w.Address, Reason: reason})
			observability.RecordWalletSkip("non_positive_amount")
			continue
		}

		requests = append(requests, domain.TradeRequest{
			ID:            uuid.NewString(),
			StrategyID:    st.ID,
			WalletAddress: w.Address,
			TokenAddress:  r.TokenAddress,
			Direction:     action.Direction,
			Amount:        amount,
			SlippagePct:   action.SlippagePct,
			Priority:      action.Priority,
		})
		observability.RecordTradeRequest()
	}

	return requests, skipped
}

// resolveAmount computes the trade amount for an action. Returns a
// non-positive amount with a reason when the amount rule cannot
// resolve against the snapshot or wallet.
func resolveAmount(action domain.Action, snap *domain.MarketSnapshot, w WalletInfo) (float64, string) {
	switch action.Amount {
	case domain.AmountFixed:
		return action.Value, ""

	case domain.AmountPercentage:
		return action.Value / 100 * w.Balance, ""

	case domain.AmountLastTradeMultiple:
		if snap == nil || snap.LastTrade == nil {
			return 0, "no last trade observed"
		}
		return action.Value * snap.LastTrade.Amount, ""

	case domain.AmountVolumeMultiple:
		if snap == nil {
			return 0, "no market snapshot"
		}
		return action.Value * volumeBySide(snap, action.VolumeSide), ""

	case domain.AmountWhitelistVolumeMultiple:
		if snap == nil {
			return 0, "no market snapshot"
		}
		// Whitelist volume takes precedence when a target address is
		// set; otherwise fall back to the aggregate volume side.
		if action.TargetAddress != "" {
			activity, ok := snap.Whitelist[action.TargetAddress]
			if !ok {
				return 0, fmt.Sprintf("no recorded activity for %s", action.TargetAddress)
			}
			return action.Value * whitelistVolumeBySide(activity, action.VolumeSide), ""
		}
		return action.Value * volumeBySide(snap, action.VolumeSide), ""

	default:
		return 0, fmt.Sprintf("unknown amount kind %q", action.Amount)
	}
}

func volumeBySide(snap *domain.MarketSnapshot, side domain.VolumeSide) float64 {
	switch side {
	case domain.VolumeSell:
		return snap.SellVolume
	case domain.VolumeNet:
		return snap.NetVolume()
	default: // buy
		return snap.BuyVolume
	}
}

func whitelistVolumeBySide(a domain.AddressActivity, side domain.VolumeSide) float64 {
	switch side {
	case domain.VolumeSell:
		return a.SellVolume
	case domain.VolumeNet:
		return a.NetVolume()
	default: // buy
		return a.BuyVolume
	}
}
