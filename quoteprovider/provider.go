// Package quoteprovider keeps an in-memory ticker → Quote map derived from
// the last price bar seen for each security, standing in for a live
// market-data feed during backtests and paper trading.
package quoteprovider

import (
	"fmt"
	"sync"

	"github.com/kestrel-trading/kestrel/models"
)

// Provider looks up the current Quote for a Security. The broker and the
// risk engine both depend on this capability, never on a concrete type, so
// a future live-data implementation can be swapped in without touching
// either.
type Provider interface {
	Quote(sec models.Security) (models.Quote, error)
}

// Spread is the default bid/ask spread used to derive a Quote from a bar's
// close price, expressed as a fraction of price (e.g. 0.001 == 10bps).
const defaultSpread = 0.001

// InMemory is the back-tester's Provider: it derives bid/ask from the most
// recent PriceBar ingested for each ticker.
type InMemory struct {
	mu     sync.RWMutex
	quotes map[models.Security]models.Quote
	spread models.Price
}

// NewInMemory builds an InMemory provider with the given spread (as a
// fraction of price). A zero value selects the package default.
func NewInMemory(spread models.Price) *InMemory {
	if spread.IsZero() {
		spread = models.PriceFromFloat(defaultSpread)
	}
	return &InMemory{
		quotes: make(map[models.Security]models.Quote),
		spread: spread,
	}
}

// Ingest derives a Quote from bar.Close and records it, overwriting any
// previous quote for the security: half = close * spread / 2; bid = close -
// half; ask = close + half; timestamp = bar.EndTime.
func (p *InMemory) Ingest(bar models.PriceBar) error {
	half := bar.Close.Mul(p.spread).Div(models.PriceFromFloat(2))
	bid := bar.Close.Sub(half)
	ask := bar.Close.Add(half)

	q, err := models.NewQuote(bar.Security, bid, ask, 0, 0, bar.EndTime)
	if err != nil {
		return fmt.Errorf("quoteprovider: %w", err)
	}

	p.mu.Lock()
	p.quotes[bar.Security] = q
	p.mu.Unlock()
	return nil
}

// Quote implements Provider. It fails if the ticker has not yet been seen
// in the bar stream.
func (p *InMemory) Quote(sec models.Security) (models.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q, ok := p.quotes[sec]
	if !ok {
		return models.Quote{}, fmt.Errorf("quoteprovider: no quote seen yet for %s", sec)
	}
	return q, nil
}
