package feed

import (
	"context"
	"log"
	"time"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/observability"
)

// Runner consumes the trade stream and folds every notification into the
// snapshot builder. It owns no connection state; the client reconnects on
// its own and the runner simply keeps draining the channel.
type Runner struct {
	builder *SnapshotBuilder
	logger  *log.Logger
}

// NewRunner creates a Runner writing into the given builder.
func NewRunner(builder *SnapshotBuilder, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "[feed] ", log.LstdFlags)
	}
	return &Runner{
		builder: builder,
		logger:  logger,
	}
}

// Run blocks consuming notifications until the channel closes or the
// context is cancelled.
func (r *Runner) Run(ctx context.Context, notifications <-chan TradeNotification) {
	r.logger.Println("consuming trade stream")

	for {
		select {
		case <-ctx.Done():
			r.logger.Println("stopped")
			return
		case n, ok := <-notifications:
			if !ok {
				r.logger.Println("trade stream closed")
				return
			}
			r.apply(n)
		}
	}
}

// apply converts one notification into a trade and folds it in. A frame
// with an unknown trade type still carries a market cap update.
func (r *Runner) apply(n TradeNotification) {
	if n.MarketCap > 0 {
		r.builder.SetMarketCap(n.MarketCap)
	}

	tradeType := domain.TradeType(n.TradeType)
	if tradeType != domain.TradeBuy && tradeType != domain.TradeSell {
		return
	}

	ts := time.Now()
	if n.TimestampMs > 0 {
		ts = time.UnixMilli(n.TimestampMs)
	}

	r.builder.Apply(domain.Trade{
		Type:      tradeType,
		Amount:    n.Amount,
		Price:     n.Price,
		Address:   n.Trader,
		Timestamp: ts,
	})
	observability.RecordTradeIngested()
}
