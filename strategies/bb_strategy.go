package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/utils/indicators"
)

// BollingerBandsStrategy is a mean-reversion strategy: enter long at the
// lower band, close at the upper band.
type BollingerBandsStrategy struct {
	*BaseStrategy
	Period           int
	StdDevMultiplier float64
}

func NewBollingerBandsStrategy() *BollingerBandsStrategy {
	return &BollingerBandsStrategy{
		BaseStrategy: NewBaseStrategy(
			"bb_mean_reversion",
			"Bollinger Bands Mean Reversion - enter at lower band, close at upper band",
			200,
		),
		Period:           20,
		StdDevMultiplier: 2.0,
	}
}

func (s *BollingerBandsStrategy) Init(config map[string]interface{}) error {
	if err := s.BaseStrategy.Init(config); err != nil {
		return err
	}
	if val, ok := config["period"].(float64); ok {
		s.Period = int(val)
	}
	if val, ok := config["stdDevMultiplier"].(float64); ok {
		s.StdDevMultiplier = val
	}
	return s.Validate()
}

func (s *BollingerBandsStrategy) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("period must be positive")
	}
	if s.StdDevMultiplier <= 0 {
		return fmt.Errorf("stdDevMultiplier must be positive")
	}
	return nil
}

func (s *BollingerBandsStrategy) GetParameters() map[string]Parameter {
	return map[string]Parameter{
		"period":           {Description: "Moving Average Period", Type: "int", Default: 20},
		"stdDevMultiplier": {Description: "Standard Deviation Multiplier", Type: "float", Default: 2.0},
	}
}

func (s *BollingerBandsStrategy) OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal {
	series := s.pushBar(bar)
	if len(series) < s.Period {
		return nil
	}

	closePrices := closes(series)
	upper, _, lower := indicators.BollingerBands(closePrices, s.Period, s.StdDevMultiplier)

	last := len(closePrices) - 1
	currentPrice := closePrices[last]
	currentUpper := upper[last]
	currentLower := lower[last]
	if math.IsNaN(currentUpper) || math.IsNaN(currentLower) {
		return nil
	}

	switch {
	case currentPrice <= currentLower:
		return models.EntrySignal{
			Order: models.MarketOrder{
				Sec:     bar.Security,
				Details: models.OrderDetails{StrategyID: strategyID, Quantity: defaultOrderQuantity, Side: models.SideLong},
			},
			DateTime: time.Now(),
			Strength: 0.6,
		}
	case currentPrice >= currentUpper:
		return models.CloseSignal{Sec: bar.Security, StrategyIDValue: strategyID, DateTime: time.Now()}
	default:
		return nil
	}
}
