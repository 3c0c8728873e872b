package broker

import (
	"github.com/kestrel-trading/kestrel/models"
)

// StrategyPortfolio presents a per-strategy view over the broker's global
// bookkeeping, so the risk engine and API surface never need a concrete
// broker handle — only this narrower capability.
type StrategyPortfolio struct {
	b *SimBroker
}

// NewStrategyPortfolio wraps a SimBroker behind the StrategyPortfolio view.
func NewStrategyPortfolio(b *SimBroker) *StrategyPortfolio {
	return &StrategyPortfolio{b: b}
}

// GetProfit sums calculateProfit across every security's transaction
// history, filtered to transactions attributed to strategyID.
func (sp *StrategyPortfolio) GetProfit(strategyID models.StrategyID) models.Price {
	sp.b.txMu.RLock()
	defer sp.b.txMu.RUnlock()

	total := models.ZeroPrice
	for _, st := range sp.b.transactions {
		total = total.Add(calculateProfit(*st, strategyID))
	}
	return total
}

// GetSecurityPositions filters open positions to those containing at least
// one HoldingDetail attributed to strategyID.
func (sp *StrategyPortfolio) GetSecurityPositions(strategyID models.StrategyID) []models.SecurityPosition {
	var out []models.SecurityPosition
	for _, pos := range sp.b.GetPositions() {
		for _, hd := range pos.HoldingDetails {
			if hd.StrategyID == strategyID {
				out = append(out, pos)
				break
			}
		}
	}
	return out
}

// GetPending filters the pending snapshot to orders owned by strategyID.
func (sp *StrategyPortfolio) GetPending(strategyID models.StrategyID) []models.PendingOrder {
	var out []models.PendingOrder
	for _, p := range sp.b.GetPendingOrders(PendingKeyAll()) {
		if p.Order.StrategyID() == strategyID {
			out = append(out, p)
		}
	}
	return out
}

// AccountValue returns the broker's cash balance, used by the risk engine as
// the denominator for portfolio-risk fraction checks.
func (sp *StrategyPortfolio) AccountValue() models.Price {
	return sp.b.Balance()
}

// OpenTradeCount returns the number of open positions, used by the risk
// engine's max_open_trades check.
func (sp *StrategyPortfolio) OpenTradeCount() int {
	return len(sp.b.GetPositions())
}

// openExposure is the synthetic "still open" transaction calculateProfit
// folds against.
type openExposure struct {
	side     models.Side
	quantity uint64
	price    models.Price // VWAP of the open side
}

// calculateProfit implements §4.3.6: fold transactions for one strategy,
// keeping at most one open VWAP-weighted exposure C. Same-side transactions
// merge into C; opposite-side transactions consume the smaller quantity
// against the larger and realize profit on the consumed amount. If C is
// still open at the end, realized profit for the window is zero — the
// source reports only fully-closed cycles, not mark-to-market.
func calculateProfit(st models.SecurityTransaction, strategyID models.StrategyID) models.Price {
	var open *openExposure
	profit := models.ZeroPrice

	for _, tx := range st.OrderHistory {
		if tx.Details.StrategyID != strategyID {
			continue
		}
		qty := tx.Details.Quantity

		if open == nil {
			open = &openExposure{side: tx.Details.Side, quantity: qty, price: tx.Price}
			continue
		}

		if open.side == tx.Details.Side {
			// Merge into VWAP: new_price = (old_qty*old_price + qty*price) / (old_qty+qty)
			totalQty := open.quantity + qty
			weighted := models.PriceFromFloat(float64(open.quantity)).Mul(open.price).
				Add(models.PriceFromFloat(float64(qty)).Mul(tx.Price))
			open.price = weighted.Div(models.PriceFromFloat(float64(totalQty)))
			open.quantity = totalQty
			continue
		}

		// Opposite side: consume min(open.quantity, qty).
		consumed := qty
		if open.quantity < consumed {
			consumed = open.quantity
		}

		buyPrice, sellPrice := open.price, tx.Price
		if open.side == models.SideShort {
			buyPrice, sellPrice = tx.Price, open.price
		}
		profit = profit.Add(sellPrice.Sub(buyPrice).Mul(models.PriceFromFloat(float64(consumed))))

		switch {
		case qty == open.quantity:
			open = nil
		case qty < open.quantity:
			open.quantity -= qty
		default:
			open = &openExposure{side: tx.Details.Side, quantity: qty - open.quantity, price: tx.Price}
		}
	}

	if open != nil {
		return models.ZeroPrice
	}
	return profit
}
