package marketdata

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"github.com/kestrel-trading/kestrel/models"
)

// yahooAPI narrows finance-go's quote package down to the single call
// YahooSource needs.
type yahooAPI interface {
	GetQuote(symbol string) (*finance.Quote, error)
}

type defaultYahooAPI struct{}

func (defaultYahooAPI) GetQuote(symbol string) (*finance.Quote, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("no quote returned for %s", symbol)
	}
	return q, nil
}

// YahooSource polls Yahoo Finance's quote endpoint on a fixed interval and
// synthesizes a one-tick PriceBar from the returned regular-market price,
// open, high, and low. It is the equities leg of the live PriceSource pair.
type YahooSource struct {
	api      yahooAPI
	security models.Security
	poll     time.Duration

	lastTimestamp int64
}

// NewYahooSource builds a YahooSource for sec, polling every poll.
func NewYahooSource(sec models.Security, poll time.Duration) *YahooSource {
	return &YahooSource{api: defaultYahooAPI{}, security: sec, poll: poll}
}

// Next blocks until a new quote timestamp is observed, the poll interval
// elapses with nothing new, or ctx is cancelled.
func (s *YahooSource) Next(ctx context.Context) (models.PriceBar, error) {
	for {
		select {
		case <-ctx.Done():
			return models.PriceBar{}, ctx.Err()
		default:
		}

		q, err := s.api.GetQuote(s.security.Ticker)
		if err != nil {
			return models.PriceBar{}, fmt.Errorf("yahoo: fetch quote for %s: %w", s.security.Ticker, err)
		}

		ts := int64(q.RegularMarketTime)
		if ts > s.lastTimestamp {
			s.lastTimestamp = ts
			bar := s.quoteToBar(q)
			if err := bar.Validate(); err != nil {
				return models.PriceBar{}, fmt.Errorf("yahoo: %w", err)
			}
			return bar, nil
		}

		select {
		case <-ctx.Done():
			return models.PriceBar{}, ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

func (s *YahooSource) quoteToBar(q *finance.Quote) models.PriceBar {
	sec := s.security
	end := time.Unix(int64(q.RegularMarketTime), 0)
	open := q.RegularMarketOpen
	high := q.RegularMarketDayHigh
	low := q.RegularMarketDayLow
	last := q.RegularMarketPrice

	// Yahoo occasionally omits the day range outside market hours; fall
	// back to the last price so Validate's low<=open,close<=high holds.
	if high == 0 {
		high = last
	}
	if low == 0 {
		low = last
	}
	if open == 0 {
		open = last
	}
	if high < low {
		high, low = low, high
	}
	if high < last {
		high = last
	}
	if low > last {
		low = last
	}

	return models.PriceBar{
		Security:   sec,
		Resolution: models.ResolutionMinute,
		Open:       models.PriceFromFloat(open),
		High:       models.PriceFromFloat(high),
		Low:        models.PriceFromFloat(low),
		Close:      models.PriceFromFloat(last),
		StartTime:  end.Add(-s.pollOrDefault()),
		EndTime:    end,
	}
}

func (s *YahooSource) pollOrDefault() time.Duration {
	if s == nil || s.poll <= 0 {
		return time.Minute
	}
	return s.poll
}

func (s *YahooSource) Close() error { return nil }
