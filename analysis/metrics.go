// Package analysis computes aggregate performance statistics from the
// broker's transaction history: win rate, Sharpe ratio, max drawdown, and
// profit factor.
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/kestrel-trading/kestrel/models"
)

// PerformanceMetrics holds aggregate performance statistics over a
// transaction history.
type PerformanceMetrics struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	TotalPnL        float64 `json:"total_pnl"`
	AveragePnL      float64 `json:"average_pnl"`
	BestTrade       float64 `json:"best_trade"`
	WorstTrade      float64 `json:"worst_trade"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	ProfitFactor    float64 `json:"profit_factor"`
	AverageHoldTime string  `json:"average_hold_time"`
	AvgHoldTimeSecs float64 `json:"avg_hold_time_secs"`
}

// timedTx pairs a transaction with the security it belongs to, so
// transactions across every security can be folded in a single
// chronologically-ordered pass.
type timedTx struct {
	sec models.Security
	tx  models.Transaction
}

// CalculateMetrics folds a set of per-security transaction histories into
// portfolio-wide performance metrics. It uses a weighted-average cost basis
// per security and realizes PnL whenever a fill reduces that security's
// position, mirroring the sign convention of models.Position's LIFO/FIFO
// fold but simplified to an average rather than discrete lots — adequate for
// reporting, not for attributing PnL back to individual lots.
func CalculateMetrics(history []models.SecurityTransaction, initialBalance float64) PerformanceMetrics {
	var all []timedTx
	for _, st := range history {
		for _, tx := range st.OrderHistory {
			all = append(all, timedTx{sec: st.Security, tx: tx})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].tx.DateTime.Before(all[j].tx.DateTime)
	})

	metrics := PerformanceMetrics{}

	type position struct {
		side     models.Side
		avgPrice float64
		quantity float64
		openTime time.Time
	}
	positions := make(map[models.Security]position)

	var realizedPnLs []float64
	var equityCurve []float64
	currentEquity := initialBalance
	equityCurve = append(equityCurve, currentEquity)

	var totalHoldDuration time.Duration
	var closedTradeCount int
	grossProfit := 0.0
	grossLoss := 0.0

	for _, t := range all {
		sec := t.sec
		price, _ := t.tx.Price.Float64()
		qty := float64(t.tx.Details.Quantity)
		side := t.tx.Details.Side
		pos := positions[sec]

		switch {
		case pos.quantity == 0:
			pos.side = side
			pos.avgPrice = price
			pos.quantity = qty
			pos.openTime = t.tx.DateTime

		case pos.side == side:
			totalCost := pos.avgPrice*pos.quantity + price*qty
			pos.quantity += qty
			pos.avgPrice = totalCost / pos.quantity

		default:
			closeQty := math.Min(qty, pos.quantity)
			var pnl float64
			if pos.side == models.SideLong {
				pnl = (price - pos.avgPrice) * closeQty
			} else {
				pnl = (pos.avgPrice - price) * closeQty
			}

			realizedPnLs = append(realizedPnLs, pnl)
			currentEquity += pnl
			equityCurve = append(equityCurve, currentEquity)

			if pnl > 0 {
				metrics.WinningTrades++
				grossProfit += pnl
			} else {
				metrics.LosingTrades++
				grossLoss += math.Abs(pnl)
			}
			metrics.TotalPnL += pnl
			closedTradeCount++

			if pnl > metrics.BestTrade {
				metrics.BestTrade = pnl
			}
			if pnl < metrics.WorstTrade {
				metrics.WorstTrade = pnl
			}
			if !pos.openTime.IsZero() {
				totalHoldDuration += t.tx.DateTime.Sub(pos.openTime)
			}

			pos.quantity -= closeQty
			remaining := qty - closeQty
			if pos.quantity <= 1e-9 {
				if remaining > 0 {
					// Flip: the incoming fill overdrains the position and
					// opens a fresh one on the opposite side.
					pos.side = side
					pos.quantity = remaining
					pos.avgPrice = price
					pos.openTime = t.tx.DateTime
				} else {
					pos = position{}
				}
			}
		}
		positions[sec] = pos
	}

	metrics.TotalTrades = closedTradeCount
	if closedTradeCount > 0 {
		metrics.WinRate = float64(metrics.WinningTrades) / float64(closedTradeCount)
		metrics.AveragePnL = metrics.TotalPnL / float64(closedTradeCount)
		metrics.AvgHoldTimeSecs = totalHoldDuration.Seconds() / float64(closedTradeCount)
		metrics.AverageHoldTime = (time.Duration(metrics.AvgHoldTimeSecs) * time.Second).String()
	}

	if grossLoss > 0 {
		metrics.ProfitFactor = grossProfit / grossLoss
	}

	metrics.MaxDrawdown = calculateMaxDrawdown(equityCurve)
	metrics.SharpeRatio = calculateSharpeRatio(realizedPnLs)

	return metrics
}

func calculateMaxDrawdown(equityCurve []float64) float64 {
	maxPeak := -math.MaxFloat64
	maxDrawdown := 0.0

	for _, equity := range equityCurve {
		if equity > maxPeak {
			maxPeak = equity
		}
		drawdown := (maxPeak - equity) / maxPeak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0.0
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-mean, 2)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0.0
	}

	return mean / stdDev
}
