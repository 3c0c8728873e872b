package models

import "time"

// Signal is a strategy-emitted intent, prior to risk filtering: Entry,
// Modify, Cancel, Close, or Liquidate.
type Signal interface {
	Kind() string
	StrategyID() StrategyID
	isSignal()
}

// EntrySignal proposes opening or adding to a position via order. Strength
// is a confidence score in [0,1]; the risk engine does not currently use it
// but strategies may attach one for future sizing logic.
type EntrySignal struct {
	Order    NewOrder
	DateTime time.Time
	Strength float64
}

func (e EntrySignal) Kind() string          { return "entry" }
func (e EntrySignal) StrategyID() StrategyID { return e.Order.StrategyID() }
func (EntrySignal) isSignal()                {}

// ModifySignal requests replacing a resting pending order.
type ModifySignal struct {
	Pending  PendingOrder
	DateTime time.Time
}

func (m ModifySignal) Kind() string          { return "modify" }
func (m ModifySignal) StrategyID() StrategyID { return m.Pending.Order.StrategyID() }
func (ModifySignal) isSignal()                {}

// CancelSignal requests cancelling a resting pending order by id.
type CancelSignal struct {
	OrderID    OrderID
	StrategyIDValue StrategyID
	DateTime   time.Time
}

func (c CancelSignal) Kind() string          { return "cancel" }
func (c CancelSignal) StrategyID() StrategyID { return c.StrategyIDValue }
func (CancelSignal) isSignal()                {}

// CloseSignal requests flattening the strategy's position in one security.
type CloseSignal struct {
	Sec             Security
	StrategyIDValue StrategyID
	DateTime        time.Time
}

func (c CloseSignal) Kind() string          { return "close" }
func (c CloseSignal) StrategyID() StrategyID { return c.StrategyIDValue }
func (CloseSignal) isSignal()                {}

// LiquidateSignal requests flattening every position owned by the strategy.
type LiquidateSignal struct {
	StrategyIDValue StrategyID
}

func (l LiquidateSignal) Kind() string          { return "liquidate" }
func (l LiquidateSignal) StrategyID() StrategyID { return l.StrategyIDValue }
func (LiquidateSignal) isSignal()                {}
