package strategies

import (
	"fmt"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/utils/indicators"
)

// RSIStrategy enters long on oversold and closes on overbought.
type RSIStrategy struct {
	*BaseStrategy
	Period              int
	OverboughtThreshold float64
	OversoldThreshold   float64
}

// NewRSIStrategy creates a new RSI strategy.
func NewRSIStrategy() *RSIStrategy {
	return &RSIStrategy{
		BaseStrategy: NewBaseStrategy(
			"rsi_momentum",
			"RSI Momentum Strategy - enter on oversold, close on overbought",
			200,
		),
		Period:              14,
		OverboughtThreshold: 70.0,
		OversoldThreshold:   30.0,
	}
}

func (s *RSIStrategy) Init(config map[string]interface{}) error {
	if err := s.BaseStrategy.Init(config); err != nil {
		return err
	}
	if val, ok := config["period"].(float64); ok {
		s.Period = int(val)
	}
	if val, ok := config["overbought"].(float64); ok {
		s.OverboughtThreshold = val
	}
	if val, ok := config["oversold"].(float64); ok {
		s.OversoldThreshold = val
	}
	return s.Validate()
}

func (s *RSIStrategy) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("RSI period must be positive")
	}
	if s.OverboughtThreshold <= s.OversoldThreshold {
		return fmt.Errorf("overbought threshold must be greater than oversold threshold")
	}
	return nil
}

func (s *RSIStrategy) GetParameters() map[string]Parameter {
	return map[string]Parameter{
		"period":     {Description: "RSI Period", Type: "int", Default: 14},
		"overbought": {Description: "Level above which asset is considered overbought", Type: "float", Default: 70.0},
		"oversold":   {Description: "Level below which asset is considered oversold", Type: "float", Default: 30.0},
	}
}

// OnBar computes RSI over the rolling window and signals on threshold
// crossings; everything between oversold and overbought is a no-op.
func (s *RSIStrategy) OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal {
	series := s.pushBar(bar)
	if len(series) < s.Period+1 {
		return nil
	}

	rsiValues := indicators.RSI(closes(series), s.Period)
	currentRSI := rsiValues[len(rsiValues)-1]

	switch {
	case currentRSI < s.OversoldThreshold:
		return models.EntrySignal{
			Order: models.MarketOrder{
				Sec:     bar.Security,
				Details: models.OrderDetails{StrategyID: strategyID, Quantity: defaultOrderQuantity, Side: models.SideLong},
			},
			DateTime: time.Now(),
			Strength: 0.7,
		}
	case currentRSI > s.OverboughtThreshold:
		return models.CloseSignal{Sec: bar.Security, StrategyIDValue: strategyID, DateTime: time.Now()}
	default:
		return nil
	}
}
