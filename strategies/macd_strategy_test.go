package strategies

import "testing"

func TestMACDStrategy_EntersOnBullishCrossover(t *testing.T) {
	s := NewMACDStrategy()
	s.FastPeriod = 3
	s.SlowPeriod = 6
	s.SignalPeriod = 3

	closes := []float64{10, 10, 10, 10, 10, 10, 10, 11, 13, 16, 20, 25}
	signals := feed(s, "s1", closes)
	if len(signals) == 0 {
		t.Fatal("expected a signal once MACD has enough history to cross its signal line")
	}
}

func TestMACDStrategy_ValidateRejectsFastNotLessThanSlow(t *testing.T) {
	s := NewMACDStrategy()
	s.FastPeriod = 26
	s.SlowPeriod = 12
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error when fast period is not less than slow period")
	}
}
