// Package models holds the value types shared by the event fabric, the risk
// engine, and the simulated broker: securities, prices, bars, quotes, orders,
// and the transaction/position types the broker folds them into.
package models

// AssetType classifies the instrument a Security refers to.
type AssetType string

const (
	AssetTypeEquity AssetType = "equity"
	AssetTypeForex  AssetType = "forex"
	AssetTypeFuture AssetType = "future"
	AssetTypeOption AssetType = "option"
	AssetTypeCrypto AssetType = "crypto"
)

// Exchange identifies where a Security trades.
type Exchange string

const (
	ExchangeNASDAQ Exchange = "NASDAQ"
	ExchangeNYSE   Exchange = "NYSE"
	ExchangeAMEX   Exchange = "AMEX"
	ExchangeOTC    Exchange = "OTC"
	ExchangeUnknown Exchange = "UNKNOWN"
)

// Security is a value type identifying a tradable instrument. It is used as a
// map key throughout the broker, so equality must stay structural — do not
// add pointer or slice fields.
type Security struct {
	AssetType AssetType
	Exchange  Exchange
	Ticker    string
}

// NewEquity builds a Security for a NASDAQ/NYSE/AMEX/OTC-listed equity.
func NewEquity(exchange Exchange, ticker string) Security {
	return Security{AssetType: AssetTypeEquity, Exchange: exchange, Ticker: ticker}
}

// NewCrypto builds a Security for a crypto pair; crypto has no exchange
// concept in this model, so Exchange is always Unknown.
func NewCrypto(ticker string) Security {
	return Security{AssetType: AssetTypeCrypto, Exchange: ExchangeUnknown, Ticker: ticker}
}

func (s Security) String() string {
	return string(s.Exchange) + ":" + s.Ticker
}
