// Package engine wires the event-driven pipeline together: a PriceSource
// feeds bars through the event fabric to every Algorithm and the broker's
// trigger evaluator; Algorithms emit Signals to the risk engine; the risk
// engine places orders against the broker and the fabric routes the
// resulting OrderResults back to their owning Algorithm.
package engine

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kestrel-trading/kestrel/audit"
	"github.com/kestrel-trading/kestrel/broker"
	"github.com/kestrel-trading/kestrel/eventbus"
	"github.com/kestrel-trading/kestrel/marketdata"
	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/quoteprovider"
	"github.com/kestrel-trading/kestrel/realtime"
	"github.com/kestrel-trading/kestrel/risk"
	"github.com/kestrel-trading/kestrel/strategies"
	"github.com/kestrel-trading/kestrel/telemetry"
	"github.com/kestrel-trading/kestrel/tracing"
)

// Algorithm pairs a registered Strategy with the StrategyID every Signal and
// OrderResult it produces or receives is tagged with.
type Algorithm struct {
	StrategyID models.StrategyID
	Strategy   strategies.Strategy
}

// Engine owns the process-wide pipeline: one PriceSource, one Bus, one
// SimBroker, one RiskEngine, and every registered Algorithm.
type Engine struct {
	source        marketdata.PriceSource
	quoteProvider *quoteprovider.InMemory
	bus           *eventbus.Bus
	broker        *broker.SimBroker
	risk          *risk.RiskEngine
	portfolio     *broker.StrategyPortfolio
	algorithms    []Algorithm
	wsManager     *realtime.WebSocketManager
	metrics       *telemetry.Metrics

	mu      sync.Mutex
	running bool
}

// New builds an Engine. quoteProvider also implements quoteprovider.Provider
// so it can be fed bars directly as they arrive.
func New(
	source marketdata.PriceSource,
	quoteProvider *quoteprovider.InMemory,
	startingBalance models.Price,
	commissionPerShare models.Price,
	riskConfig risk.EngineConfig,
	algorithms []Algorithm,
	wsManager *realtime.WebSocketManager,
	metrics *telemetry.Metrics,
) *Engine {
	bus := eventbus.New()
	simBroker := broker.NewSimBroker(startingBalance, quoteProvider, commissionPerShare)
	portfolio := broker.NewStrategyPortfolio(simBroker)
	riskEngine := risk.New(riskConfig, quoteProvider, simBroker, portfolio, bus)

	return &Engine{
		source:        source,
		quoteProvider: quoteProvider,
		bus:           bus,
		broker:        simBroker,
		risk:          riskEngine,
		portfolio:     portfolio,
		algorithms:    algorithms,
		wsManager:     wsManager,
		metrics:       metrics,
	}
}

// Broker exposes the simulated broker for the API surface.
func (e *Engine) Broker() *broker.SimBroker { return e.broker }

// Portfolio exposes the per-strategy portfolio view for the API surface.
func (e *Engine) Portfolio() *broker.StrategyPortfolio { return e.portfolio }

// RiskEngine exposes the risk engine for the API surface.
func (e *Engine) RiskEngine() *risk.RiskEngine { return e.risk }

// Run subscribes every Algorithm and the broker to the bus, then pulls bars
// from the source until ctx is cancelled or the source is exhausted. Run
// blocks; callers typically invoke it in its own goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine: already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		e.bus.Shutdown()
	}()

	e.bus.SubscribeBroker(func(bar models.PriceBar) error {
		ctx := newEngineTraceContext()
		for _, result := range e.broker.OnPriceBar(ctx, bar) {
			e.bus.PublishOrderResult(ctx, result)
			if e.wsManager != nil {
				e.wsManager.Broadcast("order_result", result)
			}
			if e.metrics != nil {
				e.metrics.OrdersPlaced.WithLabelValues(result.Kind()).Inc()
			}
		}
		return nil
	})

	e.bus.SubscribeRiskEngine(func(signal models.Signal) error {
		result := e.risk.ProcessSignal(newEngineTraceContext(), signal)
		if e.metrics != nil {
			outcome := "accepted"
			if result.Rejected != "" {
				outcome = "rejected"
				e.metrics.RiskErrors.WithLabelValues(result.Rejected).Inc()
			}
			e.metrics.SignalsProcessed.WithLabelValues(outcome).Inc()
		}
		return nil
	})

	for _, algo := range e.algorithms {
		algo := algo
		e.bus.SubscribeAlgorithm(algo.StrategyID,
			func(bar models.PriceBar) error {
				signal := algo.Strategy.OnBar(algo.StrategyID, bar)
				if signal == nil {
					return nil
				}
				e.bus.PublishSignal(signal)
				return nil
			},
			func(result models.OrderResult) error {
				algo.Strategy.OnOrderResult(result)
				return nil
			},
		)
	}

	return e.pump(ctx)
}

// newEngineTraceContext builds a fresh per-tick audit/trace context for work
// the engine itself originates (as opposed to an HTTP-originated order,
// which carries the requestor's audit.WithHTTPOrigin context instead). Each
// bar and signal gets its own trace ID so its downstream fills can be
// correlated in the logs without threading a context through the bus's
// untyped mailboxes.
func newEngineTraceContext() context.Context {
	return audit.NewEngineContextWithTrace(tracing.WithTraceID(context.Background(), tracing.NewTraceID()))
}

// pump is the data-event producer loop: it reads bars from the source,
// forwards each to the quote provider so downstream lookups see it, and
// broadcasts it on the bus.
func (e *Engine) pump(ctx context.Context) error {
	logger := tracing.Logger(audit.NewEngineContext())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bar, err := e.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error().Err(err).Msg("price source error")
			continue
		}

		if err := e.quoteProvider.Ingest(bar); err != nil {
			logger.Warn().Err(err).Msg("failed to derive quote from bar")
			continue
		}

		if e.wsManager != nil {
			e.wsManager.Broadcast("market_data", bar)
		}
		e.bus.PublishDataEvent(bar)
	}
}

// Shutdown stops accepting further pipeline work. Safe to call even if Run
// has already returned.
func (e *Engine) Shutdown() {
	e.bus.Shutdown()
	_ = e.source.Close()
}
