package models

import "time"

// Side is the direction of an order or a position.
type Side string

const (
	// SideLong intends to buy, or benefits from the price going up.
	SideLong Side = "long"
	// SideShort is the opposite of Long.
	SideShort Side = "short"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// TimeInForce controls how long an order stays working. Values follow the
// conventional broker vocabulary (see e.g. IBKR's time-in-force reference).
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceOPG TimeInForce = "opg"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceGTD TimeInForce = "gtd"
	TimeInForceDTC TimeInForce = "dtc"
)

// OrderID is an opaque, broker-assigned identifier for a pending order.
type OrderID string

// StrategyID identifies an algorithm instance for attribution of P&L and
// positions.
type StrategyID string

// OrderDetails is the common payload every concrete order carries.
type OrderDetails struct {
	StrategyID StrategyID
	Quantity   uint64
	Side       Side
}

// NewOrder is the tagged sum of order kinds a caller can submit to the
// broker: Market, Limit, StopLimitMarket, and OCO. Implementations are
// concrete structs with a marker method; callers type-switch on the
// concrete type (or call Kind for a stable string tag).
type NewOrder interface {
	Kind() string
	Security() Security
	StrategyID() StrategyID
	OrderDetails() OrderDetails
	isNewOrder()
}

// MarketOrder executes immediately against the current quote.
type MarketOrder struct {
	Sec     Security
	Details OrderDetails
}

func (m MarketOrder) Kind() string               { return "market" }
func (m MarketOrder) Security() Security          { return m.Sec }
func (m MarketOrder) StrategyID() StrategyID      { return m.Details.StrategyID }
func (m MarketOrder) OrderDetails() OrderDetails  { return m.Details }
func (MarketOrder) isNewOrder()                   {}

// LimitOrder rests until the trigger condition in the broker's pending-order
// evaluator fires it as a market order.
type LimitOrder struct {
	Sec         Security
	Price       Price
	TimeInForce TimeInForce
	Details     OrderDetails
}

func (l LimitOrder) Kind() string              { return "limit" }
func (l LimitOrder) Security() Security         { return l.Sec }
func (l LimitOrder) StrategyID() StrategyID     { return l.Details.StrategyID }
func (l LimitOrder) OrderDetails() OrderDetails { return l.Details }
func (LimitOrder) isNewOrder()                  {}

// OCOOrder (One-Cancels-Others) groups limit children sharing one security
// and strategy; the first child to trigger cancels the rest. It is modeled
// as a single logical pending entity, not two independent orders, so
// cancellation atomicity falls out of the pending-index design.
type OCOOrder struct {
	Children []LimitOrder
}

func (o OCOOrder) Kind() string          { return "oco" }
func (o OCOOrder) Security() Security     { return o.Children[0].Sec }
func (o OCOOrder) StrategyID() StrategyID { return o.Children[0].Details.StrategyID }

// OrderDetails for an OCO is not well-defined in source terms — quantity and
// side differ per child. Callers needing a single quantity/side should
// inspect Children directly.
func (o OCOOrder) OrderDetails() OrderDetails { return o.Children[0].Details }
func (OCOOrder) isNewOrder()                  {}

// GetStop returns the first-added child, which carries the opposite side to
// the StopLimitMarket's market leg when built via NewStopLimitMarket.
func (o OCOOrder) GetStop() LimitOrder { return o.Children[0] }

// GetLimit returns the last-added child, which shares the market leg's side
// and reinforces the position rather than closing it.
func (o OCOOrder) GetLimit() LimitOrder { return o.Children[len(o.Children)-1] }

// StopLimitMarketOrder is sugar for a Market leg plus an OCO of two Limit
// children: a stop (opposite side to the market leg) and a limit (same side,
// reinforcing the position). The market leg fills immediately on placement;
// the OCO is what actually becomes pending.
type StopLimitMarketOrder struct {
	Market   MarketOrder
	StopOCO  OCOOrder
}

func (s StopLimitMarketOrder) Kind() string              { return "stop_limit_market" }
func (s StopLimitMarketOrder) Security() Security         { return s.Market.Sec }
func (s StopLimitMarketOrder) StrategyID() StrategyID     { return s.Market.Details.StrategyID }
func (s StopLimitMarketOrder) OrderDetails() OrderDetails { return s.Market.Details }
func (StopLimitMarketOrder) isNewOrder()                  {}

// NewStopLimitMarket builds a StopLimitMarketOrder, validating the stop/limit
// geometry. Construction fails iff (side=Long && stop>=limit) ||
// (side=Short && stop<=limit).
func NewStopLimitMarket(sec Security, details OrderDetails, stopPrice, limitPrice Price, tif TimeInForce) (StopLimitMarketOrder, error) {
	if details.Side == SideLong && stopPrice.GreaterThanOrEqual(limitPrice) {
		return StopLimitMarketOrder{}, ErrInvalidStopLimitGeometry
	}
	if details.Side == SideShort && stopPrice.LessThanOrEqual(limitPrice) {
		return StopLimitMarketOrder{}, ErrInvalidStopLimitGeometry
	}
	market := MarketOrder{Sec: sec, Details: details}
	stopSide := details.Side.Opposite()
	stopChild := LimitOrder{
		Sec:         sec,
		Price:       stopPrice,
		TimeInForce: tif,
		Details:     OrderDetails{StrategyID: details.StrategyID, Quantity: details.Quantity, Side: stopSide},
	}
	limitChild := LimitOrder{
		Sec:         sec,
		Price:       limitPrice,
		TimeInForce: tif,
		Details:     OrderDetails{StrategyID: details.StrategyID, Quantity: details.Quantity, Side: details.Side},
	}
	return StopLimitMarketOrder{
		Market:  market,
		StopOCO: OCOOrder{Children: []LimitOrder{stopChild, limitChild}},
	}, nil
}

// ErrInvalidStopLimitGeometry is returned by NewStopLimitMarket when the
// stop/limit prices do not bracket the position correctly.
var ErrInvalidStopLimitGeometry = errInvalidStopLimitGeometry{}

type errInvalidStopLimitGeometry struct{}

func (errInvalidStopLimitGeometry) Error() string {
	return "invalid stop/limit geometry: long requires stop < limit, short requires stop > limit"
}

// PendingOrder is a non-market NewOrder awaiting a trigger event, identified
// by a broker-assigned OrderID.
type PendingOrder struct {
	OrderID OrderID
	Order   NewOrder
}

// FilledOrder is a completed execution: it changed a position.
type FilledOrder struct {
	Sec      Security
	OrderID  OrderID
	Price    Price
	DateTime time.Time
	Details  OrderDetails
}

// OrderMeta is the metadata carried by Updated/Cancelled order results.
type OrderMeta struct {
	OrderID    OrderID
	StrategyID StrategyID
}

// OrderResult is the tagged sum the broker returns from every order
// operation: FilledOrder, PendingOrder, Updated, or Cancelled.
type OrderResult interface {
	Kind() string
	StrategyID() StrategyID
	isOrderResult()
}

// FilledOrderResult wraps a FilledOrder.
type FilledOrderResult struct{ FilledOrder FilledOrder }

func (f FilledOrderResult) Kind() string          { return "filled" }
func (f FilledOrderResult) StrategyID() StrategyID { return f.FilledOrder.Details.StrategyID }
func (FilledOrderResult) isOrderResult()           {}

// PendingOrderResult wraps a PendingOrder.
type PendingOrderResult struct{ PendingOrder PendingOrder }

func (p PendingOrderResult) Kind() string          { return "pending" }
func (p PendingOrderResult) StrategyID() StrategyID { return p.PendingOrder.Order.StrategyID() }
func (PendingOrderResult) isOrderResult()           {}

// UpdatedResult reports a successful modify/re-index.
type UpdatedResult struct{ Meta OrderMeta }

func (u UpdatedResult) Kind() string          { return "updated" }
func (u UpdatedResult) StrategyID() StrategyID { return u.Meta.StrategyID }
func (UpdatedResult) isOrderResult()           {}

// CancelledResult reports a successful cancel.
type CancelledResult struct{ Meta OrderMeta }

func (c CancelledResult) Kind() string          { return "cancelled" }
func (c CancelledResult) StrategyID() StrategyID { return c.Meta.StrategyID }
func (CancelledResult) isOrderResult()           {}
