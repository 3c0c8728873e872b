// Package strategies turns a stream of PriceBars into trading Signals.
package strategies

import (
	"fmt"

	"github.com/kestrel-trading/kestrel/models"
)

// Strategy is one Algorithm in the event fabric's fan-out: it receives every
// DataEvent broadcast and its own OrderResults, and emits zero or more
// Signals for the risk engine to judge.
type Strategy interface {
	// Name returns the strategy's unique identifier.
	Name() string

	// Description returns a human-readable description of the strategy.
	Description() string

	// Init initializes the strategy with configuration parameters.
	Init(config map[string]interface{}) error

	// OnBar processes one new price bar for strategyID and returns a signal,
	// or nil if the bar doesn't warrant one (not enough history yet, no
	// crossover, etc).
	OnBar(strategyID models.StrategyID, bar models.PriceBar) models.Signal

	// OnOrderResult lets the strategy observe the outcome of its own prior
	// orders. Most strategies ignore this; stateful ones use it to track
	// open quantity without querying the broker directly.
	OnOrderResult(result models.OrderResult)

	// Validate checks if the strategy configuration is valid.
	Validate() error

	// Timeframe returns the bar resolution this strategy expects.
	Timeframe() models.Resolution

	// GetParameters returns the strategy's configurable parameters.
	GetParameters() map[string]Parameter
}

// Parameter describes a configurable strategy parameter.
type Parameter struct {
	Type        string      `json:"type"`
	Default     interface{} `json:"default"`
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Description string      `json:"description"`
}

// barHistory keeps a bounded, per-security window of recent bars so a
// strategy can compute indicators without the engine replaying history on
// every tick.
type barHistory struct {
	bars     map[models.Security][]models.PriceBar
	capacity int
}

func newBarHistory(capacity int) barHistory {
	return barHistory{bars: make(map[models.Security][]models.PriceBar), capacity: capacity}
}

// push appends bar to its security's window, evicting the oldest entry once
// capacity is exceeded, and returns the window (oldest first).
func (h *barHistory) push(bar models.PriceBar) []models.PriceBar {
	series := append(h.bars[bar.Security], bar)
	if len(series) > h.capacity {
		series = series[len(series)-h.capacity:]
	}
	h.bars[bar.Security] = series
	return series
}

func closes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i], _ = b.Close.Float64()
	}
	return out
}

// BaseStrategy provides common bookkeeping for strategies.
type BaseStrategy struct {
	name        string
	description string
	config      map[string]interface{}
	history     barHistory
}

// NewBaseStrategy creates a new BaseStrategy with a history window sized to
// historyCapacity bars per security.
func NewBaseStrategy(name, description string, historyCapacity int) *BaseStrategy {
	return &BaseStrategy{
		name:        name,
		description: description,
		config:      make(map[string]interface{}),
		history:     newBarHistory(historyCapacity),
	}
}

func (s *BaseStrategy) Name() string        { return s.name }
func (s *BaseStrategy) Description() string { return s.description }

// Timeframe defaults to one-minute bars; strategies with coarser needs
// override it.
func (s *BaseStrategy) Timeframe() models.Resolution { return models.ResolutionMinute }

func (s *BaseStrategy) Init(config map[string]interface{}) error {
	s.config = config
	return nil
}

// OnOrderResult is a no-op for stateless strategies; stateful ones override
// it.
func (s *BaseStrategy) OnOrderResult(models.OrderResult) {}

func (s *BaseStrategy) GetConfig(key string, defaultValue interface{}) interface{} {
	if val, exists := s.config[key]; exists {
		return val
	}
	return defaultValue
}

func (s *BaseStrategy) GetConfigInt(key string, defaultValue int) int {
	switch v := s.GetConfig(key, defaultValue).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

func (s *BaseStrategy) GetConfigFloat(key string, defaultValue float64) float64 {
	switch v := s.GetConfig(key, defaultValue).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// pushBar records bar in the rolling window and returns it (oldest first).
func (s *BaseStrategy) pushBar(bar models.PriceBar) []models.PriceBar {
	return s.history.push(bar)
}

// Registry manages available strategies by name.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

func (r *Registry) Register(strategy Strategy) error {
	name := strategy.Name()
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy already registered: %s", name)
	}
	r.strategies[name] = strategy
	return nil
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, exists := r.strategies[name]
	return s, exists
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

func (r *Registry) All() map[string]Strategy {
	return r.strategies
}
