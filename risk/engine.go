// Package risk implements the risk engine: a stateful filter applying
// portfolio- and per-strategy-level constraints to every proposed order
// before it reaches the broker.
package risk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/tracing"
)

// OrderManager is the narrow broker capability the risk engine needs:
// placing, updating, and cancelling orders. Holding only this capability
// (never a concrete broker) avoids a cyclic dependency between the broker
// and the risk engine/portfolio view. Every method takes the caller's
// context so the broker can attribute the resulting log entries to the
// same trace, whether the order originated from an engine tick or an HTTP
// request.
type OrderManager interface {
	PlaceOrder(ctx context.Context, order models.NewOrder) (models.OrderResult, error)
	Cancel(ctx context.Context, orderID models.OrderID) (models.OrderResult, error)
	Update(ctx context.Context, p models.PendingOrder) models.OrderResult
}

// QuoteProvider is the narrow quote-lookup capability.
type QuoteProvider interface {
	Quote(sec models.Security) (models.Quote, error)
}

// Portfolio is the narrow account-state capability: current value and open
// trade count, used for the portfolio-accumulation and open-trades checks.
type Portfolio interface {
	AccountValue() models.Price
	OpenTradeCount() int
	GetSecurityPositions(strategyID models.StrategyID) []models.SecurityPosition
}

// Publisher emits an OrderResult upstream once a signal has produced one,
// so the owning Algorithm can react. Implemented by the event fabric.
type Publisher interface {
	PublishOrderResult(ctx context.Context, result models.OrderResult)
}

// SignalResult is what ProcessSignal returns: either a rejection reason or
// the OrderResult a placed order produced.
type SignalResult struct {
	Rejected string
	Result   models.OrderResult
}

// RiskEngine is a stateful filter: tradingState plus a portfolio-wide config
// and per-strategy configs.
type RiskEngine struct {
	config        EngineConfig
	quoteProvider QuoteProvider
	orderManager  OrderManager
	portfolio     Portfolio
	publisher     Publisher

	state atomic.Value // TradingState

	mu           sync.RWMutex
	algoConfigs  map[models.StrategyID]AlgorithmConfig
}

// New builds a RiskEngine in the Active state.
func New(config EngineConfig, quoteProvider QuoteProvider, orderManager OrderManager, portfolio Portfolio, publisher Publisher) *RiskEngine {
	re := &RiskEngine{
		config:        config,
		quoteProvider: quoteProvider,
		orderManager:  orderManager,
		portfolio:     portfolio,
		publisher:     publisher,
		algoConfigs:   make(map[models.StrategyID]AlgorithmConfig),
	}
	re.state.Store(StateActive)
	return re
}

// SetAlgorithmConfig registers or replaces the risk config for one strategy.
func (re *RiskEngine) SetAlgorithmConfig(cfg AlgorithmConfig) {
	re.mu.Lock()
	defer re.mu.Unlock()
	re.algoConfigs[cfg.StrategyID] = cfg
}

// State returns the current trading state.
func (re *RiskEngine) State() TradingState {
	return re.state.Load().(TradingState)
}

// SetState transitions the trading state. Reducing is accepted but not yet
// enforced as "only position-reducing orders pass" — see DESIGN.md.
func (re *RiskEngine) SetState(s TradingState) {
	re.state.Store(s)
}

// ProcessSignal implements the processing contract in spec.md §4.2. ctx
// carries the audit/trace fields of the caller: engine-originated signals
// arrive with an audit.NewEngineContextWithTrace context built per bar tick,
// HTTP-originated ones carry the requestor's audit.WithHTTPOrigin context,
// and both are propagated unchanged down to every order the signal places.
func (re *RiskEngine) ProcessSignal(ctx context.Context, signal models.Signal) SignalResult {
	start := time.Now()
	result := re.processSignal(ctx, signal)
	re.recordOutcome(ctx, signal, result, time.Since(start))
	return result
}

func (re *RiskEngine) processSignal(ctx context.Context, signal models.Signal) SignalResult {
	if re.State() == StateHalted {
		return SignalResult{Rejected: string(KindTradingHalted)}
	}

	switch sig := signal.(type) {
	case models.EntrySignal:
		return re.processEntry(ctx, sig)
	case models.ModifySignal:
		result := re.orderManager.Update(ctx, sig.Pending)
		return SignalResult{Result: result}
	case models.CancelSignal:
		result, err := re.orderManager.Cancel(ctx, sig.OrderID)
		if err != nil {
			return SignalResult{Rejected: err.Error()}
		}
		return SignalResult{Result: result}
	case models.CloseSignal:
		return re.processClose(ctx, sig.StrategyIDValue, sig.Sec)
	case models.LiquidateSignal:
		return re.processLiquidate(ctx, sig.StrategyIDValue)
	default:
		return SignalResult{Rejected: string(KindUnsupportedSignalType)}
	}
}

// processEntry implements §4.2 step 2. OCO is currently unsupported at this
// path — it has no single (security, quantity, side) to risk-check against.
func (re *RiskEngine) processEntry(ctx context.Context, sig models.EntrySignal) SignalResult {
	if _, ok := sig.Order.(models.OCOOrder); ok {
		return SignalResult{Rejected: string(KindUnsupportedSignalType)}
	}

	sec := sig.Order.Security()
	details := sig.Order.OrderDetails()

	quote, err := re.quoteProvider.Quote(sec)
	if err != nil {
		return SignalResult{Rejected: err.Error()}
	}

	obtainPrice := quote.Ask
	if details.Side == models.SideShort {
		obtainPrice = quote.Bid
	}
	spend := obtainPrice.Mul(models.PriceFromFloat(float64(details.Quantity)))
	accountValue := re.portfolio.AccountValue()

	maxSpend := accountValue.Mul(models.PriceFromFloat(re.config.MaxTradePortfolioAccumulation))
	if spend.GreaterThan(maxSpend) {
		return SignalResult{Rejected: string(KindExceededPortfolioRiskPerTrade)}
	}

	if re.config.MaxOpenTrades != nil && uint32(re.portfolio.OpenTradeCount()) >= *re.config.MaxOpenTrades {
		return SignalResult{Rejected: string(KindExceededPortfolioOpenTrades)}
	}

	result, err := re.orderManager.PlaceOrder(ctx, sig.Order)
	if err != nil {
		return SignalResult{Rejected: err.Error()}
	}

	if re.publisher != nil {
		re.publisher.PublishOrderResult(ctx, result)
	}
	return SignalResult{Result: result}
}

// processClose flattens a strategy's position in one security by placing an
// opposite-side market order sized to the net open quantity.
func (re *RiskEngine) processClose(ctx context.Context, strategyID models.StrategyID, sec models.Security) SignalResult {
	for _, pos := range re.portfolio.GetSecurityPositions(strategyID) {
		if pos.Security != sec {
			continue
		}
		qty := sumStrategyQuantity(pos, strategyID)
		if qty == 0 {
			continue
		}
		order := models.MarketOrder{
			Sec:     sec,
			Details: models.OrderDetails{StrategyID: strategyID, Quantity: qty, Side: pos.Side.Opposite()},
		}
		result, err := re.orderManager.PlaceOrder(ctx, order)
		if err != nil {
			return SignalResult{Rejected: err.Error()}
		}
		if re.publisher != nil {
			re.publisher.PublishOrderResult(ctx, result)
		}
		return SignalResult{Result: result}
	}
	return SignalResult{Rejected: "no open position to close"}
}

// processLiquidate flattens every position owned by the strategy.
func (re *RiskEngine) processLiquidate(ctx context.Context, strategyID models.StrategyID) SignalResult {
	var last SignalResult
	for _, pos := range re.portfolio.GetSecurityPositions(strategyID) {
		last = re.processClose(ctx, strategyID, pos.Security)
	}
	return last
}

func sumStrategyQuantity(pos models.SecurityPosition, strategyID models.StrategyID) uint64 {
	var total uint64
	for _, hd := range pos.HoldingDetails {
		if hd.StrategyID == strategyID {
			total += hd.Quantity
		}
	}
	return total
}

func (re *RiskEngine) recordOutcome(ctx context.Context, signal models.Signal, result SignalResult, elapsed time.Duration) {
	logger := tracing.Logger(ctx)
	outcome := "accepted"
	if result.Rejected != "" {
		outcome = "rejected"
	}
	logger.Debug().
		Str("signal_kind", signal.Kind()).
		Str("strategy_id", string(signal.StrategyID())).
		Str("outcome", outcome).
		Str("error_kind", result.Rejected).
		Dur("elapsed", elapsed).
		Msg("risk engine processed signal")
}
