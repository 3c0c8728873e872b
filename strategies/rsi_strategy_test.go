package strategies

import "testing"

func TestRSIStrategy_EntersOnOversold(t *testing.T) {
	s := NewRSIStrategy()
	s.Period = 3
	s.OverboughtThreshold = 70
	s.OversoldThreshold = 30

	// A sustained decline should drive RSI below the oversold threshold.
	closes := []float64{20, 19, 18, 17, 16, 15, 14, 13}
	signals := feed(s, "s1", closes)
	if len(signals) == 0 {
		t.Fatal("expected an entry signal once RSI drops below the oversold threshold")
	}
	if signals[0].Kind() != "entry" {
		t.Fatalf("expected entry, got %s", signals[0].Kind())
	}
}

func TestRSIStrategy_ValidateRejectsInvertedThresholds(t *testing.T) {
	s := NewRSIStrategy()
	s.OverboughtThreshold = 20
	s.OversoldThreshold = 30
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error when overbought <= oversold")
	}
}
