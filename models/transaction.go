package models

import "time"

// Transaction is one element of a security's order history.
type Transaction struct {
	OrderID  OrderID
	Price    Price
	DateTime time.Time
	Details  OrderDetails
}

// NewTransaction builds a Transaction from a FilledOrder.
func NewTransaction(f FilledOrder) Transaction {
	return Transaction{
		OrderID:  f.OrderID,
		Price:    f.Price,
		DateTime: f.DateTime,
		Details:  f.Details,
	}
}

// SecurityTransaction is the append-only order history for one security. It
// is created lazily on the first fill and never deleted during the life of
// a process.
type SecurityTransaction struct {
	Security     Security
	OrderHistory []Transaction
}

// Insert appends a transaction, rejecting one that targets a different
// security than this history tracks — that would be a data-model invariant
// violation, not a recoverable error.
func (st *SecurityTransaction) Insert(sec Security, tx Transaction) {
	if sec != st.Security {
		panic("security_transaction: fill security does not match transaction history security")
	}
	st.OrderHistory = append(st.OrderHistory, tx)
}

// HoldingDetail is one lot within the current open position, preserving the
// strategy that opened it and its entry price.
type HoldingDetail struct {
	StrategyID StrategyID
	Quantity   uint64
	Price      Price
}

// SecurityPosition is the net position derived from a SecurityTransaction by
// folding its order history. See Position for the fold rule.
type SecurityPosition struct {
	Security       Security
	Side           Side
	HoldingDetails []HoldingDetail
}

// Quantity is the sum of the holding details' quantities.
func (p SecurityPosition) Quantity() uint64 {
	var total uint64
	for _, hd := range p.HoldingDetails {
		total += hd.Quantity
	}
	return total
}

// Position folds a SecurityTransaction's order history into a SecurityPosition,
// or nil if the net quantity is zero.
//
// The fold is LIFO for reductions (an opposite-side fill drains the
// most-recently-pushed holding detail first, recursing onto earlier lots if
// it overdrains one) and FIFO for additions (a same-side fill is always
// appended). This is intentional — it mirrors the source broker's semantics
// and must be preserved exactly, not "improved" into pure FIFO or pure LIFO.
func Position(st SecurityTransaction) *SecurityPosition {
	pos := SecurityPosition{Security: st.Security}
	for _, tx := range st.OrderHistory {
		hd := HoldingDetail{StrategyID: tx.Details.StrategyID, Quantity: tx.Details.Quantity, Price: tx.Price}
		pos.holdFold(tx.Details.Side, hd, tx.Details.Quantity)
	}
	if pos.Quantity() == 0 {
		return nil
	}
	return &pos
}

// holdFold applies one transaction's worth of quantity against the
// position, implemented iteratively (no recursion, no TCO dependency) to
// express the pseudocode's tail-recursive drain.
func (p *SecurityPosition) holdFold(side Side, hd HoldingDetail, remaining uint64) {
	for {
		if len(p.HoldingDetails) == 0 {
			p.Side = side
			p.HoldingDetails = append(p.HoldingDetails, HoldingDetail{
				StrategyID: hd.StrategyID, Quantity: remaining, Price: hd.Price,
			})
			return
		}
		if p.Side == side {
			p.HoldingDetails = append(p.HoldingDetails, HoldingDetail{
				StrategyID: hd.StrategyID, Quantity: remaining, Price: hd.Price,
			})
			return
		}
		// Opposite side: pop the last-pushed lot and drain against it.
		lastIdx := len(p.HoldingDetails) - 1
		last := p.HoldingDetails[lastIdx]
		p.HoldingDetails = p.HoldingDetails[:lastIdx]

		switch {
		case last.Quantity == remaining:
			// Exact close of the top lot.
			return
		case last.Quantity > remaining:
			p.HoldingDetails = append(p.HoldingDetails, HoldingDetail{
				StrategyID: last.StrategyID, Quantity: last.Quantity - remaining, Price: last.Price,
			})
			return
		default:
			// remaining > last.Quantity: drain the rest against the next lot.
			remaining -= last.Quantity
			if len(p.HoldingDetails) == 0 {
				// All same-side lots drained; the position flips to the
				// incoming side and the residual opens a fresh lot there.
				p.Side = side
				p.HoldingDetails = append(p.HoldingDetails, HoldingDetail{
					StrategyID: hd.StrategyID, Quantity: remaining, Price: hd.Price,
				})
				return
			}
			// Continue the loop to drain against the next popped lot.
		}
	}
}
