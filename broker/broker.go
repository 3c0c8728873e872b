// Package broker implements the simulated broker/order book: the hardest
// subsystem in the engine. It owns per-security transaction history, derives
// net positions and realized profit under a position-flipping algorithm,
// manages pending limit/OCO/stop-limit orders, and triggers them when a new
// price bar crosses their trigger.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/tracing"
)

// QuoteProvider is the narrow capability the broker needs from a market-data
// feed. quoteprovider.Provider satisfies it directly.
type QuoteProvider interface {
	Quote(sec models.Security) (models.Quote, error)
}

// SimBroker is the in-process simulated broker. It combines four concerns:
// order intake, position bookkeeping, cash accounting, and pending-order
// lifecycle.
type SimBroker struct {
	quoteProvider      QuoteProvider
	commissionPerShare models.Price

	balanceMu sync.RWMutex
	balance   models.Price

	txMu         sync.RWMutex
	transactions map[models.Security]*models.SecurityTransaction

	pending *pendingIndex
}

// NewSimBroker builds a broker with the given starting cash balance and
// per-share commission (zero is a valid commission).
func NewSimBroker(startingBalance models.Price, quoteProvider QuoteProvider, commissionPerShare models.Price) *SimBroker {
	return &SimBroker{
		quoteProvider:      quoteProvider,
		commissionPerShare: commissionPerShare,
		balance:            startingBalance,
		transactions:       make(map[models.Security]*models.SecurityTransaction),
		pending:            newPendingIndex(),
	}
}

// Balance returns the current cash balance under a read lock.
func (b *SimBroker) Balance() models.Price {
	b.balanceMu.RLock()
	defer b.balanceMu.RUnlock()
	return b.balance
}

// GetPosition returns the folded position for sec, or nil if there is none.
func (b *SimBroker) GetPosition(sec models.Security) *models.SecurityPosition {
	b.txMu.RLock()
	defer b.txMu.RUnlock()

	st, ok := b.transactions[sec]
	if !ok {
		return nil
	}
	return models.Position(*st)
}

// GetPositions returns every open position.
func (b *SimBroker) GetPositions() []models.SecurityPosition {
	b.txMu.RLock()
	defer b.txMu.RUnlock()

	out := make([]models.SecurityPosition, 0, len(b.transactions))
	for _, st := range b.transactions {
		if pos := models.Position(*st); pos != nil {
			out = append(out, *pos)
		}
	}
	return out
}

// TransactionHistory returns a snapshot of every security's order history,
// for reporting (see analysis.CalculateMetrics). The returned slice shares no
// state with the broker's internal map — callers may not mutate it back in.
func (b *SimBroker) TransactionHistory() []models.SecurityTransaction {
	b.txMu.RLock()
	defer b.txMu.RUnlock()

	out := make([]models.SecurityTransaction, 0, len(b.transactions))
	for _, st := range b.transactions {
		out = append(out, *st)
	}
	return out
}

// GetPendingOrders returns a snapshot of pending orders matching key.
func (b *SimBroker) GetPendingOrders(key pendingKey) []models.PendingOrder {
	return b.pending.get(key)
}

// PlaceOrder is the placement protocol entry point (spec §4.3.1). It
// dispatches on the concrete NewOrder kind. ctx carries the audit/trace
// fields of the caller (the risk engine propagates its own engine- or
// HTTP-origin context here; see audit.NewEngineContextWithTrace) so every
// fill is attributable in the logs regardless of what triggered it.
func (b *SimBroker) PlaceOrder(ctx context.Context, order models.NewOrder) (models.OrderResult, error) {
	tracing.Logger(ctx).Debug().Str("order_kind", order.Kind()).Msg("broker: placing order")

	switch o := order.(type) {
	case models.MarketOrder:
		return b.placeMarket(o)
	case models.LimitOrder:
		return b.placePending(o)
	case models.OCOOrder:
		return b.placePending(o)
	case models.StopLimitMarketOrder:
		return b.placeStopLimitMarket(o)
	default:
		return nil, fmt.Errorf("broker: unknown order kind %T", order)
	}
}

func (b *SimBroker) placeStopLimitMarket(o models.StopLimitMarketOrder) (models.OrderResult, error) {
	if _, err := b.placeMarket(o.Market); err != nil {
		return nil, err
	}
	return b.placePending(o.StopOCO)
}

func (b *SimBroker) placePending(order models.NewOrder) (models.OrderResult, error) {
	id := models.OrderID(uuid.NewString())
	p := models.PendingOrder{OrderID: id, Order: order}
	b.pending.update(p)
	return models.PendingOrderResult{PendingOrder: p}, nil
}

// placeMarket executes a market order immediately: it computes cost and the
// resulting FilledOrder via trade synthesis (§4.3.3), checks solvency, and
// if solvent commits the fill and debits the balance.
func (b *SimBroker) placeMarket(o models.MarketOrder) (models.OrderResult, error) {
	quote, err := b.quoteProvider.Quote(o.Sec)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}

	b.balanceMu.Lock()
	defer b.balanceMu.Unlock()

	cost, filled := b.synthesizeTrade(o, quote)

	commission := models.PriceFromFloat(float64(o.Details.Quantity)).Mul(b.commissionPerShare)
	tradeCost := cost.Sub(commission)

	if b.balance.Add(tradeCost).LessThan(models.ZeroPrice) {
		return nil, ErrInsufficientFunds
	}

	b.commit(o.Sec, filled)
	b.balance = b.balance.Add(tradeCost)

	return models.FilledOrderResult{FilledOrder: filled}, nil
}

// synthesizeTrade implements §4.3.3. fillPrice always uses the passive side
// of the spread (bid if Long, ask if Short) — a source-level choice
// preserved for replay determinism, not the marketable/aggressive side.
func (b *SimBroker) synthesizeTrade(o models.MarketOrder, quote models.Quote) (models.Price, models.FilledOrder) {
	fillPrice := quote.Bid
	if o.Details.Side == models.SideShort {
		fillPrice = quote.Ask
	}

	filled := models.FilledOrder{
		Sec:      o.Sec,
		OrderID:  models.OrderID(uuid.NewString()),
		Price:    fillPrice,
		DateTime: time.Now(),
		Details:  o.Details,
	}

	qty := models.PriceFromFloat(float64(o.Details.Quantity))

	active := b.GetPosition(o.Sec)
	if active == nil {
		// No active position: cost = -fillPrice * quantity.
		return fillPrice.Mul(qty).Neg(), filled
	}

	if active.Side == o.Details.Side {
		// Additive lot: cost = -fillPrice * quantity.
		return fillPrice.Mul(qty).Neg(), filled
	}

	// Opposite side — exact close, partial reduction, or flip: the
	// calculate_cost rule is uniform here, cost = +fillPrice*qty (closing
	// releases cash). The realized gain/loss relative to the lots consumed
	// is a separate bookkeeping concern handled by the per-strategy profit
	// calculation (§4.3.6), not by this cash-cost formula.
	return fillPrice.Mul(qty), filled
}

// commit appends the fill to the security's transaction history, creating
// the history lazily on first fill. A security mismatch between the fill and
// an existing history is a data-model invariant violation, not a
// recoverable error — SecurityTransaction.Insert panics in that case, and we
// never construct one with a mismatched security here.
func (b *SimBroker) commit(sec models.Security, filled models.FilledOrder) {
	b.txMu.Lock()
	defer b.txMu.Unlock()

	st, ok := b.transactions[sec]
	if !ok {
		st = &models.SecurityTransaction{Security: sec}
		b.transactions[sec] = st
	}
	st.Insert(sec, models.NewTransaction(filled))
}

// Cancel removes a pending order by id. It fails with ErrPendingOrderNotFound
// if no such order exists.
func (b *SimBroker) Cancel(ctx context.Context, orderID models.OrderID) (models.OrderResult, error) {
	p, ok := b.pending.remove(orderID)
	if !ok {
		return nil, ErrPendingOrderNotFound
	}
	tracing.Logger(ctx).Debug().Str("order_id", string(orderID)).Msg("broker: cancelled pending order")
	return models.CancelledResult{Meta: models.OrderMeta{OrderID: p.OrderID, StrategyID: p.Order.StrategyID()}}, nil
}

// Update re-indexes a pending order (e.g. after a strategy-initiated
// modify), upserting it under its existing OrderID.
func (b *SimBroker) Update(ctx context.Context, p models.PendingOrder) models.OrderResult {
	b.pending.update(p)
	tracing.Logger(ctx).Debug().Str("order_id", string(p.OrderID)).Msg("broker: updated pending order")
	return models.UpdatedResult{Meta: models.OrderMeta{OrderID: p.OrderID, StrategyID: p.Order.StrategyID()}}
}

// OnPriceBar evaluates pending-order triggers for bar.Security (§4.3.5) and
// returns every OrderResult produced, to be emitted upstream so the owning
// Algorithm can react. ctx carries the engine's per-bar trace so triggered
// fills log under the same trace ID as the bar that caused them.
func (b *SimBroker) OnPriceBar(ctx context.Context, bar models.PriceBar) []models.OrderResult {
	snapshot := b.pending.get(PendingKeyBySecurity(bar.Security))
	var results []models.OrderResult

	for _, p := range snapshot {
		switch order := p.Order.(type) {
		case models.LimitOrder:
			if !limitTriggers(order, bar.Close) {
				continue
			}
			result, err := b.fireLimit(ctx, p.OrderID, order)
			if err != nil {
				continue
			}
			results = append(results, result)
		case models.OCOOrder:
			result, fired := b.fireOCO(ctx, p.OrderID, order, bar.Close)
			if !fired {
				continue
			}
			results = append(results, result)
		}
	}
	return results
}

// limitTriggers implements the §4.3.5 trigger condition: Long triggers when
// price >= bar.close, Short when price <= bar.close.
func limitTriggers(l models.LimitOrder, close models.Price) bool {
	if l.Details.Side == models.SideLong {
		return l.Price.GreaterThanOrEqual(close)
	}
	return l.Price.LessThanOrEqual(close)
}

func (b *SimBroker) fireLimit(ctx context.Context, orderID models.OrderID, l models.LimitOrder) (models.OrderResult, error) {
	if _, ok := b.pending.remove(orderID); !ok {
		return nil, ErrPendingOrderNotFound
	}
	tracing.Logger(ctx).Debug().Str("order_id", string(orderID)).Msg("broker: limit order triggered")
	market := models.MarketOrder{Sec: l.Sec, Details: l.Details}
	return b.placeMarket(market)
}

// fireOCO evaluates each child in order; on the first that triggers, it
// fires that child's market order and removes the whole OCO (the "one
// cancels others" invariant — a single pending.remove call drops every
// child because OCO indexes under one OrderID).
func (b *SimBroker) fireOCO(ctx context.Context, orderID models.OrderID, oco models.OCOOrder, close models.Price) (models.OrderResult, bool) {
	for _, child := range oco.Children {
		if !limitTriggers(child, close) {
			continue
		}
		if _, ok := b.pending.remove(orderID); !ok {
			return nil, false
		}
		tracing.Logger(ctx).Debug().Str("order_id", string(orderID)).Msg("broker: OCO leg triggered")
		market := models.MarketOrder{Sec: child.Sec, Details: child.Details}
		result, err := b.placeMarket(market)
		if err != nil {
			return nil, false
		}
		return result, true
	}
	return nil, false
}
