package strategies

import (
	"fmt"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/utils/indicators"
)

// defaultOrderQuantity is the flat share count every strategy in this
// package trades; position sizing is not modeled.
const defaultOrderQuantity = 10

// MACrossover generates an EntrySignal when the short SMA crosses above the
// long SMA, and a CloseSignal on the reverse crossover.
type MACrossover struct {
	*BaseStrategy
	shortPeriod int
	longPeriod  int
}

// NewMACrossover creates a new Moving Average Crossover strategy.
func NewMACrossover() *MACrossover {
	return &MACrossover{
		BaseStrategy: NewBaseStrategy(
			"ma_crossover",
			"Moving Average Crossover Strategy - generates signals on MA crossovers",
			200,
		),
		shortPeriod: 10,
		longPeriod:  20,
	}
}

func (s *MACrossover) Init(config map[string]interface{}) error {
	if err := s.BaseStrategy.Init(config); err != nil {
		return err
	}
	s.shortPeriod = s.GetConfigInt("short_period", 10)
	s.longPeriod = s.GetConfigInt("long_period", 20)
	return s.Validate()
}

func (s *MACrossover) Validate() error {
	if s.shortPeriod <= 0 {
		return fmt.Errorf("short_period must be positive: %d", s.shortPeriod)
	}
	if s.longPeriod <= 0 {
		return fmt.Errorf("long_period must be positive: %d", s.longPeriod)
	}
	if s.shortPeriod >= s.longPeriod {
		return fmt.Errorf("short_period (%d) must be less than long_period (%d)", s.shortPeriod, s.longPeriod)
	}
	return nil
}

func (s *MACrossover) GetParameters() map[string]Parameter {
	return map[string]Parameter{
		"short_period": {Type: "int", Default: 10, Min: 2, Max: 50, Description: "Short moving average period"},
		"long_period":  {Type: "int", Default: 20, Min: 5, Max: 200, Description: "Long moving average period"},
	}
}

// OnBar appends bar to the rolling window and checks for a crossover
// between the current and previous bar's SMAs.
func (s *MACrossover) OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal {
	series := s.pushBar(bar)
	if len(series) < s.longPeriod+1 {
		return nil
	}

	closePrices := closes(series)
	shortMA := indicators.SMA(closePrices, s.shortPeriod)
	longMA := indicators.SMA(closePrices, s.longPeriod)

	last := len(closePrices) - 1
	currentShort, currentLong := shortMA[last], longMA[last]
	prevShort, prevLong := shortMA[last-1], longMA[last-1]

	switch {
	case prevShort <= prevLong && currentShort > currentLong:
		return models.EntrySignal{
			Order: models.MarketOrder{
				Sec:     bar.Security,
				Details: models.OrderDetails{StrategyID: strategyID, Quantity: defaultOrderQuantity, Side: models.SideLong},
			},
			DateTime: time.Now(),
			Strength: 0.5,
		}
	case prevShort >= prevLong && currentShort < currentLong:
		return models.CloseSignal{Sec: bar.Security, StrategyIDValue: strategyID, DateTime: time.Now()}
	default:
		return nil
	}
}
