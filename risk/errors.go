package risk

// ErrorKind enumerates the risk-rejection taxonomy from spec.md §7. These
// are kinds, not types: RiskError carries one plus context.
type ErrorKind string

const (
	KindTradingHalted                 ErrorKind = "trading_halted"
	KindExceededPortfolioOpenTrades    ErrorKind = "exceeded_portfolio_open_trades"
	KindExceededPortfolioRiskPerTrade  ErrorKind = "exceeded_portfolio_risk_per_trade"
	KindExceededAlgoOpenTrades         ErrorKind = "exceeded_algo_open_trades"
	KindInsufficientAlgoAccountBalance ErrorKind = "insufficient_algo_account_balance"
	KindUnsupportedSignalType          ErrorKind = "unsupported_signal_type"
	KindUnableToFindAlgoRiskConfig     ErrorKind = "unable_to_find_algo_risk_config"
)

// Error is the risk engine's error type.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
