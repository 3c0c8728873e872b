package strategies

import (
	"testing"
	"time"

	"github.com/kestrel-trading/kestrel/models"
)

var testSec = models.NewEquity(models.ExchangeNYSE, "GE")

func barAt(close float64, start time.Time) models.PriceBar {
	p := models.PriceFromFloat(close)
	return models.PriceBar{
		Security:  testSec,
		Open:      p,
		High:      p,
		Low:       p,
		Close:     p,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Volume:    100,
	}
}

func feed(t Strategy, strategyID models.StrategyID, closes []float64) []models.Signal {
	var signals []models.Signal
	start := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		sig := t.OnBar(strategyID, barAt(c, start.Add(time.Duration(i)*time.Minute)))
		if sig != nil {
			signals = append(signals, sig)
		}
	}
	return signals
}

func TestMACrossover_SignalsOnCrossover(t *testing.T) {
	s := NewMACrossover()
	if err := s.Init(map[string]interface{}{"short_period": 2, "long_period": 4}); err != nil {
		t.Fatalf("init: %v", err)
	}

	// Flat then a sharp rise should eventually trip a bullish crossover.
	closes := []float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20}
	signals := feed(s, "s1", closes)
	if len(signals) == 0 {
		t.Fatal("expected at least one signal once the short MA overtakes the long MA")
	}
	if signals[0].Kind() != "entry" {
		t.Fatalf("expected first signal to be entry, got %s", signals[0].Kind())
	}
}

func TestMACrossover_ValidateRejectsInvertedPeriods(t *testing.T) {
	s := NewMACrossover()
	if err := s.Init(map[string]interface{}{"short_period": 20, "long_period": 10}); err == nil {
		t.Fatal("expected validation error when short_period >= long_period")
	}
}
