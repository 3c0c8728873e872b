// Package replay runs the event-driven engine over a finite PriceSource
// (typically marketdata.FileSource replaying historical bars) and reports
// the resulting performance, adapting the role the teacher's hand-rolled
// backtesting loop used to play: here the loop itself is engine.Engine, so a
// replay run exercises the exact same risk/broker/strategy wiring that
// drives live or simulated trading.
package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-trading/kestrel/analysis"
	"github.com/kestrel-trading/kestrel/engine"
	"github.com/kestrel-trading/kestrel/marketdata"
	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/quoteprovider"
	"github.com/kestrel-trading/kestrel/risk"
)

// Result summarizes one replay run.
type Result struct {
	Metrics       analysis.PerformanceMetrics
	FinalBalance  models.Price
	FinalPositions []models.SecurityPosition
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Run drives source to exhaustion through a freshly built engine.Engine and
// returns the realized performance. e.Shutdown (which closes source) is
// called before Run returns, whether the run succeeds or fails.
func Run(
	ctx context.Context,
	source marketdata.PriceSource,
	startingBalance models.Price,
	commissionPerShare models.Price,
	riskConfig risk.EngineConfig,
	algorithms []engine.Algorithm,
) (*Result, error) {
	qp := quoteprovider.NewInMemory(models.ZeroPrice)
	e := engine.New(source, qp, startingBalance, commissionPerShare, riskConfig, algorithms, nil, nil)
	defer e.Shutdown()

	startedAt := time.Now()
	if err := e.Run(ctx); err != nil {
		return nil, fmt.Errorf("replay: engine run failed: %w", err)
	}

	initialCapital, _ := startingBalance.Float64()
	history := e.Broker().TransactionHistory()

	return &Result{
		Metrics:        analysis.CalculateMetrics(history, initialCapital),
		FinalBalance:   e.Broker().Balance(),
		FinalPositions: e.Broker().GetPositions(),
		StartedAt:      startedAt,
		CompletedAt:    time.Now(),
	}, nil
}

// Summary renders a short human-readable report, in the spirit of the
// multi-section text reports strategies tend to print after a replay.
func (r *Result) Summary() string {
	if r == nil {
		return "no replay result available"
	}
	m := r.Metrics
	var sb strings.Builder
	fmt.Fprintf(&sb, "replay complete: %s -> %s\n", r.StartedAt.Format(time.RFC3339), r.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "  trades:        %d (win rate %.1f%%)\n", m.TotalTrades, m.WinRate*100)
	fmt.Fprintf(&sb, "  total pnl:     %.2f\n", m.TotalPnL)
	fmt.Fprintf(&sb, "  sharpe:        %.3f\n", m.SharpeRatio)
	fmt.Fprintf(&sb, "  max drawdown:  %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&sb, "  final balance: %s\n", r.FinalBalance.String())
	return sb.String()
}
