package automation

import (
	"testing"
	"time"

	"solana-autotrader/internal/domain"
)

func testSnapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		BuyVolume:      100,
		SellVolume:     40,
		MarketCap:      50000,
		PriceChangePct: 12.5,
		LastTrade: &domain.Trade{
			Type:      domain.TradeBuy,
			Amount:    2.5,
			Address:   "whale1",
			Timestamp: time.Now(),
		},
		Whitelist: map[string]domain.AddressActivity{
			"whale1": {
				BuyVolume:  30,
				SellVolume: 10,
				LastTrade:  &domain.Trade{Type: domain.TradeBuy, Amount: 5},
			},
		},
	}
}

func TestEvaluate_Operators(t *testing.T) {
	snap := testSnapshot() // market cap 50000

	tests := []struct {
		name      string
		operator  domain.Operator
		threshold float64
		want      bool
	}{
		{"gt true", domain.OpGT, 40000, true},
		{"gt false", domain.OpGT, 50000, false},
		{"lt true", domain.OpLT, 60000, true},
		{"lt false", domain.OpLT, 50000, false},
		{"gte equal", domain.OpGTE, 50000, true},
		{"gte below", domain.OpGTE, 50001, false},
		{"lte equal", domain.OpLTE, 50000, true},
		{"lte above", domain.OpLTE, 49999, false},
		{"eq exact", domain.OpEQ, 50000, true},
		{"eq outside tolerance", domain.OpEQ, 50001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.Condition{
				Kind:      domain.ConditionMarketCap,
				Operator:  tt.operator,
				Threshold: tt.threshold,
			}
			if got := Evaluate(c, snap); got != tt.want {
				t.Errorf("Evaluate(%s %v) = %v, want %v", tt.operator, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestEvaluate_EqualityTolerance(t *testing.T) {
	snap := &domain.MarketSnapshot{BuyVolume: 1.0}

	// Within tolerance on both sides
	for _, threshold := range []float64{1.0, 1.0 + 0.5e-4, 1.0 - 0.5e-4} {
		c := domain.Condition{Kind: domain.ConditionBuyVolume, Operator: domain.OpEQ, Threshold: threshold}
		if !Evaluate(c, snap) {
			t.Errorf("threshold %v should be within tolerance of 1.0", threshold)
		}
	}

	// Outside tolerance
	c := domain.Condition{Kind: domain.ConditionBuyVolume, Operator: domain.OpEQ, Threshold: 1.0 + 2e-4}
	if Evaluate(c, snap) {
		t.Error("threshold outside tolerance should not match")
	}
}

func TestEvaluate_VolumeKinds(t *testing.T) {
	snap := testSnapshot() // buy 100, sell 40, net 60

	tests := []struct {
		kind      domain.ConditionKind
		threshold float64
		want      bool
	}{
		{domain.ConditionBuyVolume, 99, true},
		{domain.ConditionBuyVolume, 100, false},
		{domain.ConditionSellVolume, 39, true},
		{domain.ConditionNetVolume, 59, true},
		{domain.ConditionNetVolume, 60, false},
	}

	for _, tt := range tests {
		c := domain.Condition{Kind: tt.kind, Operator: domain.OpGT, Threshold: tt.threshold}
		if got := Evaluate(c, snap); got != tt.want {
			t.Errorf("%s > %v = %v, want %v", tt.kind, tt.threshold, got, tt.want)
		}
	}
}

func TestEvaluate_LastTradeType(t *testing.T) {
	snap := testSnapshot() // last trade is a buy

	c := domain.Condition{
		Kind:      domain.ConditionLastTradeType,
		Operator:  domain.OpEQ,
		TradeType: domain.TradeBuy,
	}
	if !Evaluate(c, snap) {
		t.Error("last trade type buy should match")
	}

	c.TradeType = domain.TradeSell
	if Evaluate(c, snap) {
		t.Error("last trade type sell should not match a buy")
	}

	// Only equality is meaningful for a categorical comparison
	c.TradeType = domain.TradeBuy
	c.Operator = domain.OpGT
	if Evaluate(c, snap) {
		t.Error("non-equality operator on trade type should fail closed")
	}

	// No last trade observed yet
	snap.LastTrade = nil
	c.Operator = domain.OpEQ
	if Evaluate(c, snap) {
		t.Error("missing last trade should fail closed")
	}
}

func TestEvaluate_LastTradeAmount(t *testing.T) {
	snap := testSnapshot() // last trade amount 2.5

	c := domain.Condition{Kind: domain.ConditionLastTradeAmount, Operator: domain.OpGTE, Threshold: 2.5}
	if !Evaluate(c, snap) {
		t.Error("last trade amount 2.5 >= 2.5 should match")
	}

	snap.LastTrade = nil
	if Evaluate(c, snap) {
		t.Error("missing last trade should fail closed")
	}
}

func TestEvaluate_PriceChange(t *testing.T) {
	snap := testSnapshot() // +12.5%

	c := domain.Condition{Kind: domain.ConditionPriceChange, Operator: domain.OpGT, Threshold: 10}
	if !Evaluate(c, snap) {
		t.Error("price change 12.5 > 10 should match")
	}

	c = domain.Condition{Kind: domain.ConditionPriceChange, Operator: domain.OpLT, Threshold: -5}
	if Evaluate(c, snap) {
		t.Error("price change 12.5 < -5 should not match")
	}
}

func TestEvaluate_WhitelistActivity(t *testing.T) {
	snap := testSnapshot() // whale1: buy 30, sell 10, last trade 5

	tests := []struct {
		name      string
		metric    domain.WhitelistMetric
		operator  domain.Operator
		threshold float64
		want      bool
	}{
		{"buy volume", domain.WhitelistBuyVolume, domain.OpGTE, 30, true},
		{"sell volume", domain.WhitelistSellVolume, domain.OpGT, 10, false},
		{"net volume", domain.WhitelistNetVolume, domain.OpEQ, 20, true},
		{"last trade amount", domain.WhitelistLastTradeAmount, domain.OpGT, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.Condition{
				Kind:          domain.ConditionWhitelistActivity,
				Operator:      tt.operator,
				Threshold:     tt.threshold,
				TargetAddress: "whale1",
				Metric:        tt.metric,
			}
			if got := Evaluate(c, snap); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestEvaluate_WhitelistFailsClosed(t *testing.T) {
	// An address with no recorded activity must never satisfy a condition,
	// even one that zero activity would trivially pass.
	snap := testSnapshot()

	c := domain.Condition{
		Kind:          domain.ConditionWhitelistActivity,
		Operator:      domain.OpGTE,
		Threshold:     0, // any volume satisfies >= 0
		TargetAddress: "unknown-address",
		Metric:        domain.WhitelistBuyVolume,
	}
	if Evaluate(c, snap) {
		t.Error("untracked whitelist address should fail closed")
	}
}

func TestEvaluate_NilSnapshot(t *testing.T) {
	c := domain.Condition{Kind: domain.ConditionMarketCap, Operator: domain.OpGTE, Threshold: 0}
	if Evaluate(c, nil) {
		t.Error("nil snapshot should fail closed")
	}
}

func TestEvaluate_UnknownKind(t *testing.T) {
	c := domain.Condition{Kind: "volume-weighted-price", Operator: domain.OpGT, Threshold: 0}
	if Evaluate(c, testSnapshot()) {
		t.Error("unknown condition kind should fail closed")
	}
}

func TestEvaluate_DoesNotMutateSnapshot(t *testing.T) {
	snap := testSnapshot()
	before := *snap
	beforeTrade := *snap.LastTrade

	for _, kind := range []domain.ConditionKind{
		domain.ConditionMarketCap, domain.ConditionBuyVolume, domain.ConditionSellVolume,
		domain.ConditionNetVolume, domain.ConditionLastTradeAmount, domain.ConditionPriceChange,
	} {
		Evaluate(domain.Condition{Kind: kind, Operator: domain.OpGT, Threshold: 1}, snap)
	}

	if snap.BuyVolume != before.BuyVolume || snap.SellVolume != before.SellVolume ||
		snap.MarketCap != before.MarketCap || snap.PriceChangePct != before.PriceChangePct {
		t.Error("evaluation mutated snapshot aggregates")
	}
	if *snap.LastTrade != beforeTrade {
		t.Error("evaluation mutated last trade")
	}
}

func TestEvaluateStrategy_CombineAll(t *testing.T) {
	snap := testSnapshot()

	st := &domain.Strategy{
		Combine: domain.CombineAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionMarketCap, Operator: domain.OpGT, Threshold: 40000},
			{Kind: domain.ConditionBuyVolume, Operator: domain.OpGT, Threshold: 50},
		},
	}
	if !EvaluateStrategy(st, snap) {
		t.Error("all conditions hold, strategy should fire")
	}

	// One failing condition blocks the whole strategy
	st.Conditions = append(st.Conditions, domain.Condition{
		Kind: domain.ConditionSellVolume, Operator: domain.OpGT, Threshold: 1000,
	})
	if EvaluateStrategy(st, snap) {
		t.Error("one failing condition should block combine=all")
	}
}

func TestEvaluateStrategy_CombineAny(t *testing.T) {
	snap := testSnapshot()

	st := &domain.Strategy{
		Combine: domain.CombineAny,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionSellVolume, Operator: domain.OpGT, Threshold: 1000}, // fails
			{Kind: domain.ConditionBuyVolume, Operator: domain.OpGT, Threshold: 50},    // holds
		},
	}
	if !EvaluateStrategy(st, snap) {
		t.Error("one holding condition should satisfy combine=any")
	}

	st.Conditions = []domain.Condition{
		{Kind: domain.ConditionSellVolume, Operator: domain.OpGT, Threshold: 1000},
	}
	if EvaluateStrategy(st, snap) {
		t.Error("no holding conditions should not satisfy combine=any")
	}
}

func TestEvaluateStrategy_NoConditions(t *testing.T) {
	st := &domain.Strategy{Combine: domain.CombineAll}
	if EvaluateStrategy(st, testSnapshot()) {
		t.Error("strategy without conditions must never fire")
	}
}
