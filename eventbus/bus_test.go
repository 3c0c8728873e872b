package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ge = models.NewEquity(models.ExchangeNYSE, "GE")

func TestBus_BroadcastsDataEventToAlgorithmsAndBroker(t *testing.T) {
	bus := New()

	var algoMu sync.Mutex
	var algoBars []models.PriceBar
	bus.SubscribeAlgorithm("s1",
		func(bar models.PriceBar) error {
			algoMu.Lock()
			algoBars = append(algoBars, bar)
			algoMu.Unlock()
			return nil
		},
		func(models.OrderResult) error { return nil })

	var brokerMu sync.Mutex
	var brokerBars []models.PriceBar
	bus.SubscribeBroker(func(bar models.PriceBar) error {
		brokerMu.Lock()
		brokerBars = append(brokerBars, bar)
		brokerMu.Unlock()
		return nil
	})

	bar := models.PriceBar{Security: ge, Close: models.PriceFromFloat(1000)}
	bus.PublishDataEvent(bar)

	require.Eventually(t, func() bool {
		algoMu.Lock()
		defer algoMu.Unlock()
		brokerMu.Lock()
		defer brokerMu.Unlock()
		return len(algoBars) == 1 && len(brokerBars) == 1
	}, time.Second, time.Millisecond)

	bus.Shutdown()
}

func TestBus_OrderResultIsTargetedNotBroadcast(t *testing.T) {
	bus := New()

	var s1Results, s2Results []models.OrderResult
	var mu sync.Mutex

	bus.SubscribeAlgorithm("s1", func(models.PriceBar) error { return nil }, func(r models.OrderResult) error {
		mu.Lock()
		s1Results = append(s1Results, r)
		mu.Unlock()
		return nil
	})
	bus.SubscribeAlgorithm("s2", func(models.PriceBar) error { return nil }, func(r models.OrderResult) error {
		mu.Lock()
		s2Results = append(s2Results, r)
		mu.Unlock()
		return nil
	})

	result := models.FilledOrderResult{FilledOrder: models.FilledOrder{Details: models.OrderDetails{StrategyID: "s1"}}}
	bus.PublishOrderResult(context.Background(), result)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(s1Results) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Empty(t, s2Results)
	mu.Unlock()

	bus.Shutdown()
}

func TestBus_SignalDeliveredToRiskEngine(t *testing.T) {
	bus := New()

	var received []models.Signal
	var mu sync.Mutex
	bus.SubscribeRiskEngine(func(sig models.Signal) error {
		mu.Lock()
		received = append(received, sig)
		mu.Unlock()
		return nil
	})

	sig := models.LiquidateSignal{StrategyIDValue: "s1"}
	bus.PublishSignal(sig)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, time.Millisecond)

	bus.Shutdown()
}

func TestBus_ShutdownStopsFurtherDelivery(t *testing.T) {
	bus := New()
	var count int
	var mu sync.Mutex
	bus.SubscribeAlgorithm("s1", func(models.PriceBar) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, func(models.OrderResult) error { return nil })

	bus.Shutdown()
	bus.PublishDataEvent(models.PriceBar{Security: ge})

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, count)
	mu.Unlock()
}
