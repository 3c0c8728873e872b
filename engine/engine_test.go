package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/quoteprovider"
	"github.com/kestrel-trading/kestrel/risk"
	"github.com/kestrel-trading/kestrel/strategies"
)

var ge = models.NewEquity(models.ExchangeNYSE, "GE")

// fixedSource replays a canned sequence of bars then returns io.EOF.
type fixedSource struct {
	bars []models.PriceBar
	i    int
}

func (f *fixedSource) Next(ctx context.Context) (models.PriceBar, error) {
	if f.i >= len(f.bars) {
		return models.PriceBar{}, io.EOF
	}
	bar := f.bars[f.i]
	f.i++
	return bar, nil
}

func (f *fixedSource) Close() error { return nil }

func barSeries(closes []float64) []models.PriceBar {
	var bars []models.PriceBar
	start := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		p := models.PriceFromFloat(c)
		bars = append(bars, models.PriceBar{
			Security:  ge,
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			StartTime: start.Add(time.Duration(i) * time.Minute),
			EndTime:   start.Add(time.Duration(i+1) * time.Minute),
			Volume:    100,
		})
	}
	return bars
}

func TestEngine_RunDrainsSourceAndStops(t *testing.T) {
	source := &fixedSource{bars: barSeries([]float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20, 22, 24})}
	qp := quoteprovider.NewInMemory(models.ZeroPrice)

	strategy := strategies.NewMACrossover()
	if err := strategy.Init(map[string]interface{}{"short_period": 2, "long_period": 4}); err != nil {
		t.Fatalf("init strategy: %v", err)
	}

	maxOpen := uint32(10)
	e := New(
		source,
		qp,
		models.PriceFromFloat(100000),
		models.ZeroPrice,
		risk.EngineConfig{MaxTradePortfolioAccumulation: 1.0, MaxOpenTrades: &maxOpen},
		[]Algorithm{{StrategyID: "s1", Strategy: strategy}},
		nil,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestEngine_RunRejectsConcurrentRun(t *testing.T) {
	source := &fixedSource{bars: barSeries([]float64{10, 11, 12})}
	qp := quoteprovider.NewInMemory(models.ZeroPrice)
	e := New(source, qp, models.PriceFromFloat(1000), models.ZeroPrice, risk.EngineConfig{MaxTradePortfolioAccumulation: 1.0}, nil, nil, nil)

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	if err := e.Run(context.Background()); err == nil {
		t.Fatal("expected error when Run is called while already running")
	}
}
