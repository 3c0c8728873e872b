package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kestrel-trading/kestrel/models"
)

// defaultMailboxCapacity bounds how far a producer can run ahead of a slow
// subscriber before back-pressure kicks in.
const defaultMailboxCapacity = 64

// Bus is the typed pub/sub fabric wiring strategies, the risk engine, and
// the broker into a deterministic pipeline.
//
// Data-bar broadcast to Algorithms and to the broker's trigger evaluator is
// not cross-ordered: an Algorithm may observe bar N before the broker
// processes bar N's triggers, or vice versa. For a single subscriber,
// messages always arrive in publication order.
type Bus struct {
	mu              sync.RWMutex
	dataSubscribers []*mailbox
	algoBoxes       map[models.StrategyID]*mailbox
	riskBox         *mailbox

	shuttingDown atomic.Bool
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{algoBoxes: make(map[models.StrategyID]*mailbox)}
}

// SubscribeBroker registers the broker's price-tick trigger evaluator as a
// DataEvent broadcast destination.
func (b *Bus) SubscribeBroker(handler func(bar models.PriceBar) error) {
	mb := newMailbox("broker", defaultMailboxCapacity, func(_ context.Context, msg any) error {
		bar, ok := msg.(models.PriceBar)
		if !ok {
			return nil
		}
		return handler(bar)
	})
	mb.start()
	b.mu.Lock()
	b.dataSubscribers = append(b.dataSubscribers, mb)
	b.mu.Unlock()
}

// SubscribeAlgorithm registers an Algorithm as both a DataEvent broadcast
// destination and the targeted recipient of its own OrderResults.
func (b *Bus) SubscribeAlgorithm(strategyID models.StrategyID, onData func(bar models.PriceBar) error, onOrderResult func(result models.OrderResult) error) {
	mb := newMailbox(string(strategyID), defaultMailboxCapacity, func(_ context.Context, msg any) error {
		switch m := msg.(type) {
		case models.PriceBar:
			return onData(m)
		case models.OrderResult:
			return onOrderResult(m)
		}
		return nil
	})
	mb.start()

	b.mu.Lock()
	b.dataSubscribers = append(b.dataSubscribers, mb)
	b.algoBoxes[strategyID] = mb
	b.mu.Unlock()
}

// SubscribeRiskEngine registers the RiskEngine as the SignalMessage
// consumer.
func (b *Bus) SubscribeRiskEngine(handler func(signal models.Signal) error) {
	mb := newMailbox("risk_engine", defaultMailboxCapacity, func(_ context.Context, msg any) error {
		sig, ok := msg.(models.Signal)
		if !ok {
			return nil
		}
		return handler(sig)
	})
	mb.start()
	b.mu.Lock()
	b.riskBox = mb
	b.mu.Unlock()
}

// PublishDataEvent broadcasts bar to every Algorithm and the broker's
// trigger evaluator. Producers check the shutdown flag between emissions;
// once shutdown has fired, publication is a no-op.
func (b *Bus) PublishDataEvent(bar models.PriceBar) {
	if b.shuttingDown.Load() {
		return
	}
	b.mu.RLock()
	subs := append([]*mailbox(nil), b.dataSubscribers...)
	b.mu.RUnlock()

	for _, mb := range subs {
		mb.send(bar)
	}
}

// PublishSignal delivers signal to the RiskEngine's mailbox.
func (b *Bus) PublishSignal(signal models.Signal) {
	if b.shuttingDown.Load() {
		return
	}
	b.mu.RLock()
	box := b.riskBox
	b.mu.RUnlock()
	if box == nil {
		return
	}
	box.send(signal)
}

// PublishOrderResult delivers result to the single Algorithm it belongs to,
// matched by StrategyID — the targeted half of AlgoEvent's delivery
// contract. It implements risk.Publisher. ctx is accepted to match that
// interface; the mailbox itself doesn't yet propagate per-message context
// (see mailbox.start), so it is not threaded further here.
func (b *Bus) PublishOrderResult(ctx context.Context, result models.OrderResult) {
	if b.shuttingDown.Load() {
		return
	}
	b.mu.RLock()
	box, ok := b.algoBoxes[result.StrategyID()]
	b.mu.RUnlock()
	if !ok {
		return
	}
	box.send(result)
}

// Shutdown flips the single process-wide atomic flag and stops every
// subscriber's mailbox, draining in-flight work but not the bus itself.
func (b *Bus) Shutdown() {
	b.shuttingDown.Store(true)

	b.mu.RLock()
	subs := append([]*mailbox(nil), b.dataSubscribers...)
	risk := b.riskBox
	b.mu.RUnlock()

	for _, mb := range subs {
		mb.stop()
	}
	if risk != nil {
		risk.stop()
	}
}
