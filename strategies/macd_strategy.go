package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/utils/indicators"
)

// MACDStrategy is a trend follower: enter long on a bullish MACD/signal
// crossover, close on the bearish reverse.
type MACDStrategy struct {
	*BaseStrategy
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

func NewMACDStrategy() *MACDStrategy {
	return &MACDStrategy{
		BaseStrategy: NewBaseStrategy(
			"macd_trend_follower",
			"MACD Trend Follower - enter on bullish crossover, close on bearish crossover",
			200,
		),
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
	}
}

func (s *MACDStrategy) Init(config map[string]interface{}) error {
	if err := s.BaseStrategy.Init(config); err != nil {
		return err
	}
	if val, ok := config["fastPeriod"].(float64); ok {
		s.FastPeriod = int(val)
	}
	if val, ok := config["slowPeriod"].(float64); ok {
		s.SlowPeriod = int(val)
	}
	if val, ok := config["signalPeriod"].(float64); ok {
		s.SignalPeriod = int(val)
	}
	return s.Validate()
}

func (s *MACDStrategy) Validate() error {
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 || s.SignalPeriod <= 0 {
		return fmt.Errorf("all periods must be positive")
	}
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("fast period must be less than slow period")
	}
	return nil
}

func (s *MACDStrategy) GetParameters() map[string]Parameter {
	return map[string]Parameter{
		"fastPeriod":   {Description: "Fast EMA Period", Type: "int", Default: 12},
		"slowPeriod":   {Description: "Slow EMA Period", Type: "int", Default: 26},
		"signalPeriod": {Description: "Signal Line Period", Type: "int", Default: 9},
	}
}

func (s *MACDStrategy) OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal {
	series := s.pushBar(bar)
	minData := s.SlowPeriod + s.SignalPeriod
	if len(series) < minData {
		return nil
	}

	closePrices := closes(series)
	macdLine, signalLine, _ := indicators.MACD(closePrices, s.FastPeriod, s.SlowPeriod, s.SignalPeriod)

	last := len(closePrices) - 1
	prev := last - 1
	currentMACD, currentSignal := macdLine[last], signalLine[last]
	prevMACD, prevSignal := macdLine[prev], signalLine[prev]

	if math.IsNaN(currentMACD) || math.IsNaN(currentSignal) || math.IsNaN(prevMACD) || math.IsNaN(prevSignal) {
		return nil
	}

	switch {
	case prevMACD <= prevSignal && currentMACD > currentSignal:
		return models.EntrySignal{
			Order: models.MarketOrder{
				Sec:     bar.Security,
				Details: models.OrderDetails{StrategyID: strategyID, Quantity: defaultOrderQuantity, Side: models.SideLong},
			},
			DateTime: time.Now(),
			Strength: 0.6,
		}
	case prevMACD >= prevSignal && currentMACD < currentSignal:
		return models.CloseSignal{Sec: bar.Security, StrategyIDValue: strategyID, DateTime: time.Now()}
	default:
		return nil
	}
}
