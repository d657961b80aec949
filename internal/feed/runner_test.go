package feed

import (
	"context"
	"io"
	"log"
	"testing"

	"solana-autotrader/internal/domain"
)

func TestRunner_AppliesNotifications(t *testing.T) {
	builder := NewSnapshotBuilder()
	builder.Track("whale")
	runner := NewRunner(builder, log.New(io.Discard, "", 0))

	ch := make(chan TradeNotification, 4)
	ch <- TradeNotification{TradeType: "buy", Amount: 5, Price: 1.2, MarketCap: 10000, Trader: "whale", TimestampMs: 1717243200000}
	ch <- TradeNotification{TradeType: "sell", Amount: 2, Price: 1.1, MarketCap: 9500, Trader: "other", TimestampMs: 1717243205000}
	close(ch)

	runner.Run(context.Background(), ch)

	snap := builder.Snapshot()
	if snap.BuyVolume != 5 || snap.SellVolume != 2 {
		t.Errorf("volumes = %v/%v, want 5/2", snap.BuyVolume, snap.SellVolume)
	}
	if snap.MarketCap != 9500 {
		t.Errorf("market cap = %v, want 9500 (latest)", snap.MarketCap)
	}
	if snap.LastTrade == nil || snap.LastTrade.Type != domain.TradeSell {
		t.Errorf("last trade = %+v", snap.LastTrade)
	}
	if snap.Whitelist["whale"].BuyVolume != 5 {
		t.Errorf("whitelist activity = %+v", snap.Whitelist["whale"])
	}
}

func TestRunner_UnknownTradeTypeStillUpdatesMarketCap(t *testing.T) {
	builder := NewSnapshotBuilder()
	runner := NewRunner(builder, log.New(io.Discard, "", 0))

	ch := make(chan TradeNotification, 1)
	ch <- TradeNotification{TradeType: "liquidity-add", Amount: 3, MarketCap: 7777}
	close(ch)

	runner.Run(context.Background(), ch)

	snap := builder.Snapshot()
	if snap.BuyVolume != 0 || snap.SellVolume != 0 {
		t.Error("unknown trade type should not move volumes")
	}
	if snap.MarketCap != 7777 {
		t.Errorf("market cap = %v, want 7777", snap.MarketCap)
	}
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	builder := NewSnapshotBuilder()
	runner := NewRunner(builder, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		runner.Run(ctx, make(chan TradeNotification))
		close(done)
	}()

	<-done
}
