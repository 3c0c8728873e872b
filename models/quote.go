package models

import (
	"fmt"
	"time"
)

// Quote is the current best bid/ask pair for a Security.
type Quote struct {
	Security Security
	Bid      Price
	Ask      Price
	BidSize  uint64
	AskSize  uint64
	Timestamp time.Time
}

// NewQuote validates bid < ask before returning a Quote.
func NewQuote(security Security, bid, ask Price, bidSize, askSize uint64, ts time.Time) (Quote, error) {
	if !bid.LessThan(ask) {
		return Quote{}, fmt.Errorf("invalid quote for %s: bid %s not less than ask %s", security, bid, ask)
	}
	return Quote{
		Security:  security,
		Bid:       bid,
		Ask:       ask,
		BidSize:   bidSize,
		AskSize:   askSize,
		Timestamp: ts,
	}, nil
}
