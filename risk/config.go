package risk

import "github.com/kestrel-trading/kestrel/models"

// TradingState gates whether the risk engine accepts new entries.
type TradingState string

const (
	// StateActive accepts every signal kind.
	StateActive TradingState = "active"
	// StateReducing is reserved for restricting processing to
	// position-reducing orders only; the engine does not yet enforce this
	// restriction (see RiskEngine.SetState).
	StateReducing TradingState = "reducing"
	// StateHalted rejects every Entry signal.
	StateHalted TradingState = "halted"
)

// EngineConfig holds the portfolio-wide risk limits.
type EngineConfig struct {
	// MaxPortfolioRisk is reserved for a future aggregate-risk check; not yet
	// enforced by ProcessSignal (see Open Questions in DESIGN.md).
	MaxPortfolioRisk float64
	// MaxTradePortfolioAccumulation is the maximum fraction of portfolio
	// value a single trade may consume.
	MaxTradePortfolioAccumulation float64
	// MaxOpenTrades caps the number of concurrently open positions across
	// every strategy. Nil means unlimited.
	MaxOpenTrades *uint32
}

// AlgorithmConfig holds per-strategy risk limits. Only StartingBalance is
// required; every other field is optional (nil means "no limit").
type AlgorithmConfig struct {
	StrategyID       models.StrategyID
	StartingBalance  models.Price
	MaxOpenTrades    *uint32
	MaxPortfolioLoss *float64
	MaxPortfolioRisk *float64
	MaxRiskPerTrade  *float64
	MaxPendingOrders *uint32
}
