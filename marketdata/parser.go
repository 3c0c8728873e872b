// Package marketdata turns wire-format bar records into typed PriceBars and
// defines the PriceSource capability that feeds the engine, plus a handful
// of concrete adapters (replay file, live exchange feeds).
package marketdata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-trading/kestrel/models"
)

// ParseError wraps a malformed record, matching spec.md §7's
// UnableToParseData error kind.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("unable to parse data %q: %v", e.Raw, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// rawBar mirrors the newline-delimited wire record: {ev,sym,v,op,o,c,h,l,a,z,s,e,otc}.
// Only sym,o,h,l,c,v,s,e,otc are required; ev/op/a/z are accepted but
// otherwise unused by the engine today.
type rawBar struct {
	Ev    string  `json:"ev"`
	Sym   string  `json:"sym"`
	V     uint64  `json:"v"`
	Op    float64 `json:"op"`
	O     float64 `json:"o"`
	C     float64 `json:"c"`
	H     float64 `json:"h"`
	L     float64 `json:"l"`
	A     float64 `json:"a"`
	Z     float64 `json:"z"`
	S     int64   `json:"s"`
	E     int64   `json:"e"`
	OTC   bool    `json:"otc"`
}

// ParseRecord decodes one newline-delimited JSON record into a PriceBar.
// Unknown exchange information (the wire format carries none) resolves to
// Exchange Unknown unless OTC is set, in which case it resolves to OTC.
// Returns (nil, err) for a malformed record, and (nil, nil) for a record
// this parser intentionally skips (none today — every well-formed record
// yields a bar).
func ParseRecord(raw []byte) (*models.PriceBar, error) {
	var rb rawBar
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, &ParseError{Raw: string(raw), Err: err}
	}
	if rb.Sym == "" {
		return nil, &ParseError{Raw: string(raw), Err: fmt.Errorf("missing sym")}
	}

	exchange := models.ExchangeUnknown
	if rb.OTC {
		exchange = models.ExchangeOTC
	}

	bar := models.PriceBar{
		Security:  models.Security{AssetType: models.AssetTypeEquity, Exchange: exchange, Ticker: rb.Sym},
		Open:      models.PriceFromFloat(rb.O),
		High:      models.PriceFromFloat(rb.H),
		Low:       models.PriceFromFloat(rb.L),
		Close:     models.PriceFromFloat(rb.C),
		Volume:    rb.V,
		StartTime: time.UnixMilli(rb.S),
		EndTime:   time.UnixMilli(rb.E),
	}

	if err := bar.Validate(); err != nil {
		return nil, &ParseError{Raw: string(raw), Err: err}
	}
	return &bar, nil
}
