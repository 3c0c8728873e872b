package marketdata

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kestrel-trading/kestrel/models"
)

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

func barsFor(sec models.Security, n int) []models.PriceBar {
	var bars []models.PriceBar
	start := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := models.PriceFromFloat(100 + float64(i))
		bars = append(bars, models.PriceBar{
			Security:  sec,
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

func TestMerge_DrainsAllSourcesThenEOF(t *testing.T) {
	aapl := models.NewEquity(models.ExchangeNASDAQ, "AAPL")
	msft := models.NewEquity(models.ExchangeNASDAQ, "MSFT")

	a := &fixedSource{bars: barsFor(aapl, 5)}
	m := &fixedSource{bars: barsFor(msft, 3)}

	merged := Merge(a, m)
	defer merged.Close()

	ctx := context.Background()
	count := 0
	for {
		_, err := merged.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
	}

	if count != 8 {
		t.Fatalf("expected 8 merged bars, got %d", count)
	}
}

func TestMerge_CloseStopsPumpsAndClosesSources(t *testing.T) {
	a := &fixedSource{bars: barsFor(models.NewEquity(models.ExchangeNASDAQ, "AAPL"), 100)}
	merged := Merge(a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := merged.Next(ctx); err != nil {
		t.Fatalf("expected first bar without error, got %v", err)
	}

	if err := merged.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}
