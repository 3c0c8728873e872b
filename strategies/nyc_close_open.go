package strategies

import (
	"fmt"
	"time"

	"github.com/kestrel-trading/kestrel/models"
)

// NYCCloseOpen buys at 16:00 ET (market close) and closes the position at
// 08:30 ET (pre-market), intended for assets that trade through the
// overnight session (crypto, or equities on a venue with extended hours).
type NYCCloseOpen struct {
	*BaseStrategy
	location *time.Location
}

func NewNYCCloseOpen() *NYCCloseOpen {
	return &NYCCloseOpen{
		BaseStrategy: NewBaseStrategy(
			"nyc_close_open",
			"NYC Close/Open Strategy - enter at 16:00 ET, close at 08:30 ET",
			2,
		),
	}
}

func (s *NYCCloseOpen) Init(config map[string]interface{}) error {
	if err := s.BaseStrategy.Init(config); err != nil {
		return err
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return fmt.Errorf("failed to load NYC timezone: %w", err)
	}
	s.location = loc
	return nil
}

func (s *NYCCloseOpen) Validate() error { return nil }

func (s *NYCCloseOpen) GetParameters() map[string]Parameter {
	return map[string]Parameter{
		"buy_hour":    {Type: "int", Default: 16, Description: "Hour to enter (ET)", Min: 0, Max: 23},
		"buy_minute":  {Type: "int", Default: 0, Description: "Minute to enter (ET)", Min: 0, Max: 59},
		"sell_hour":   {Type: "int", Default: 8, Description: "Hour to close (ET)", Min: 0, Max: 23},
		"sell_minute": {Type: "int", Default: 30, Description: "Minute to close (ET)", Min: 0, Max: 59},
	}
}

// OnBar fires on the bar whose StartTime lands on the configured
// buy/sell minute, in the America/New_York zone. Weekends are skipped so a
// Friday-close position rolls to the following Monday's open.
func (s *NYCCloseOpen) OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal {
	if s.location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return nil
		}
		s.location = loc
	}

	nyc := bar.StartTime.In(s.location)
	if nyc.Weekday() == time.Saturday || nyc.Weekday() == time.Sunday {
		return nil
	}

	buyHour := s.GetConfigInt("buy_hour", 16)
	buyMinute := s.GetConfigInt("buy_minute", 0)
	sellHour := s.GetConfigInt("sell_hour", 8)
	sellMinute := s.GetConfigInt("sell_minute", 30)

	switch {
	case nyc.Hour() == buyHour && nyc.Minute() == buyMinute:
		return models.EntrySignal{
			Order: models.MarketOrder{
				Sec:     bar.Security,
				Details: models.OrderDetails{StrategyID: strategyID, Quantity: defaultOrderQuantity, Side: models.SideLong},
			},
			DateTime: time.Now(),
			Strength: 0.5,
		}
	case nyc.Hour() == sellHour && nyc.Minute() == sellMinute:
		return models.CloseSignal{Sec: bar.Security, StrategyIDValue: strategyID, DateTime: time.Now()}
	default:
		return nil
	}
}
