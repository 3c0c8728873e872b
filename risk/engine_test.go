package risk

import (
	"context"
	"testing"
	"time"

	"github.com/kestrel-trading/kestrel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ge = models.NewEquity(models.ExchangeNYSE, "GE")

type stubQuoteProvider struct{ q models.Quote }

func (s stubQuoteProvider) Quote(models.Security) (models.Quote, error) { return s.q, nil }

type stubOrderManager struct {
	placed []models.NewOrder
	result models.OrderResult
	err    error
}

func (s *stubOrderManager) PlaceOrder(_ context.Context, order models.NewOrder) (models.OrderResult, error) {
	s.placed = append(s.placed, order)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
func (s *stubOrderManager) Cancel(context.Context, models.OrderID) (models.OrderResult, error) {
	return s.result, s.err
}
func (s *stubOrderManager) Update(context.Context, models.PendingOrder) models.OrderResult {
	return s.result
}

type stubPortfolio struct {
	accountValue models.Price
	openTrades   int
}

func (s stubPortfolio) AccountValue() models.Price { return s.accountValue }
func (s stubPortfolio) OpenTradeCount() int        { return s.openTrades }
func (s stubPortfolio) GetSecurityPositions(models.StrategyID) []models.SecurityPosition {
	return nil
}

func flatQuote(price float64) stubQuoteProvider {
	return stubQuoteProvider{q: models.Quote{
		Security: ge, Bid: models.PriceFromFloat(price), Ask: models.PriceFromFloat(price), Timestamp: time.Now(),
	}}
}

func TestProcessSignal_Halted(t *testing.T) {
	om := &stubOrderManager{result: models.FilledOrderResult{}}
	re := New(EngineConfig{MaxTradePortfolioAccumulation: 1}, flatQuote(1000), om, stubPortfolio{accountValue: models.PriceFromFloat(100000)}, nil)
	re.SetState(StateHalted)

	entry := models.EntrySignal{Order: models.MarketOrder{Sec: ge, Details: models.OrderDetails{StrategyID: "s1", Quantity: 10, Side: models.SideLong}}}
	result := re.ProcessSignal(context.Background(), entry)
	assert.Equal(t, string(KindTradingHalted), result.Rejected)
	assert.Empty(t, om.placed)
}

func TestProcessSignal_ExceedsPortfolioAccumulation(t *testing.T) {
	om := &stubOrderManager{result: models.FilledOrderResult{}}
	re := New(EngineConfig{MaxTradePortfolioAccumulation: 0.05}, flatQuote(1000), om, stubPortfolio{accountValue: models.PriceFromFloat(1000)}, nil)

	entry := models.EntrySignal{Order: models.MarketOrder{Sec: ge, Details: models.OrderDetails{StrategyID: "s1", Quantity: 10, Side: models.SideLong}}}
	result := re.ProcessSignal(context.Background(), entry)
	assert.Equal(t, string(KindExceededPortfolioRiskPerTrade), result.Rejected)
	assert.Empty(t, om.placed)
}

func TestProcessSignal_ExceedsMaxOpenTrades(t *testing.T) {
	maxOpen := uint32(1)
	om := &stubOrderManager{result: models.FilledOrderResult{}}
	re := New(EngineConfig{MaxTradePortfolioAccumulation: 1, MaxOpenTrades: &maxOpen}, flatQuote(1000), om,
		stubPortfolio{accountValue: models.PriceFromFloat(100000), openTrades: 1}, nil)

	entry := models.EntrySignal{Order: models.MarketOrder{Sec: ge, Details: models.OrderDetails{StrategyID: "s1", Quantity: 10, Side: models.SideLong}}}
	result := re.ProcessSignal(context.Background(), entry)
	assert.Equal(t, string(KindExceededPortfolioOpenTrades), result.Rejected)
}

func TestProcessSignal_Accepted(t *testing.T) {
	om := &stubOrderManager{result: models.FilledOrderResult{}}
	re := New(EngineConfig{MaxTradePortfolioAccumulation: 1}, flatQuote(1000), om,
		stubPortfolio{accountValue: models.PriceFromFloat(100000)}, nil)

	entry := models.EntrySignal{Order: models.MarketOrder{Sec: ge, Details: models.OrderDetails{StrategyID: "s1", Quantity: 10, Side: models.SideLong}}}
	result := re.ProcessSignal(context.Background(), entry)
	require.Empty(t, result.Rejected)
	require.Len(t, om.placed, 1)
}

func TestProcessSignal_OCORejectedAtEntry(t *testing.T) {
	om := &stubOrderManager{result: models.FilledOrderResult{}}
	re := New(EngineConfig{MaxTradePortfolioAccumulation: 1}, flatQuote(1000), om,
		stubPortfolio{accountValue: models.PriceFromFloat(100000)}, nil)

	oco := models.OCOOrder{Children: []models.LimitOrder{{Sec: ge, Price: models.PriceFromFloat(1000), Details: models.OrderDetails{StrategyID: "s1", Quantity: 10, Side: models.SideLong}}}}
	result := re.ProcessSignal(context.Background(), models.EntrySignal{Order: oco})
	assert.Equal(t, string(KindUnsupportedSignalType), result.Rejected)
}
