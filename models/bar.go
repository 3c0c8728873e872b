package models

import "time"

// Resolution is the width of a PriceBar's time window.
type Resolution string

const (
	ResolutionSecond Resolution = "1s"
	ResolutionMinute Resolution = "1m"
	Resolution5Min   Resolution = "5m"
	Resolution15Min  Resolution = "15m"
	ResolutionHour   Resolution = "1h"
	Resolution4Hour  Resolution = "4h"
	ResolutionDay    Resolution = "1d"
)

// PriceBar is one OHLCV candle for a Security over [StartTime, EndTime].
//
// Invariants: Low <= {Open, Close} <= High, and StartTime <= EndTime. Bars
// for a single security are ordered by StartTime.
type PriceBar struct {
	Security   Security
	Resolution Resolution
	Open       Price
	High       Price
	Low        Price
	Close      Price
	StartTime  time.Time
	EndTime    time.Time
	Volume     uint64
}

// Validate checks the bar invariants. Callers that construct bars from
// untrusted input (the parser) must call this before publishing the bar.
func (b PriceBar) Validate() error {
	if b.Low.GreaterThan(b.Open) || b.Open.GreaterThan(b.High) {
		return errBarInvariant("open outside [low, high]")
	}
	if b.Low.GreaterThan(b.Close) || b.Close.GreaterThan(b.High) {
		return errBarInvariant("close outside [low, high]")
	}
	if b.StartTime.After(b.EndTime) {
		return errBarInvariant("startTime after endTime")
	}
	return nil
}

type barInvariantError string

func (e barInvariantError) Error() string { return "invalid price bar: " + string(e) }

func errBarInvariant(msg string) error { return barInvariantError(msg) }
