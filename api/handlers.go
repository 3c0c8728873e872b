package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kestrel-trading/kestrel/broker"
	"github.com/kestrel-trading/kestrel/config"
	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/risk"
	"github.com/kestrel-trading/kestrel/strategies"
)

// Handler holds the HTTP handlers for the API.
type Handler struct {
	registry  *strategies.Registry
	config    *config.Config
	broker    *broker.SimBroker
	portfolio *broker.StrategyPortfolio
	risk      *risk.RiskEngine
	startTime time.Time
}

// NewHandler creates a new handler instance.
func NewHandler(
	registry *strategies.Registry,
	cfg *config.Config,
	simBroker *broker.SimBroker,
	portfolio *broker.StrategyPortfolio,
	riskEngine *risk.RiskEngine,
) *Handler {
	return &Handler{
		registry:  registry,
		config:    cfg,
		broker:    simBroker,
		portfolio: portfolio,
		risk:      riskEngine,
		startTime: time.Now(),
	}
}

// HealthHandler returns the health status of the API.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"broker":       "active",
		"risk_engine":  string(h.risk.State()),
		"data_provider": h.config.DataProvider,
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"mode":      string(h.config.TradingMode),
		"timestamp": time.Now(),
		"checks":    checks,
	})
}

// MetricsHandler returns basic runtime statistics. Prometheus metrics are
// served separately at /metrics via telemetry.Handler.
func (h *Handler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]uint64{
			"alloc":       m.Alloc,
			"total_alloc": m.TotalAlloc,
			"sys":         m.Sys,
			"num_gc":      uint64(m.NumGC),
		},
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"timestamp":      time.Now(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ListStrategiesHandler returns all available trading strategies.
func (h *Handler) ListStrategiesHandler(w http.ResponseWriter, r *http.Request) {
	strategiesList := h.registry.List()
	details := make([]map[string]interface{}, 0, len(strategiesList))

	for _, name := range strategiesList {
		if strategy, ok := h.registry.Get(name); ok {
			details = append(details, map[string]interface{}{
				"name":        strategy.Name(),
				"description": strategy.Description(),
				"parameters":  strategy.GetParameters(),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": details,
	})
}

// GetStrategyHandler returns details for a specific strategy.
func (h *Handler) GetStrategyHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "id")
	strategy, ok := h.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "strategy not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        strategy.Name(),
		"description": strategy.Description(),
		"parameters":  strategy.GetParameters(),
	})
}

// GetConfigHandler returns the current configuration (sanitized).
func (h *Handler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	safeConfig := map[string]interface{}{
		"server_port":        h.config.ServerPort,
		"server_host":        h.config.ServerHost,
		"trading_mode":       h.config.TradingMode,
		"log_level":          h.config.LogLevel,
		"data_provider":      h.config.DataProvider,
		"enabled_strategies": h.config.EnabledStrategies,
	}
	writeJSON(w, http.StatusOK, safeConfig)
}

// GetConfigValidationHandler returns configuration validation status and details.
func (h *Handler) GetConfigValidationHandler(w http.ResponseWriter, r *http.Request) {
	enabledStrategies := make([]map[string]interface{}, 0, len(h.config.EnabledStrategies))
	invalidStrategies := make([]string, 0)

	for _, strategyName := range h.config.EnabledStrategies {
		if strategy, ok := h.registry.Get(strategyName); ok {
			enabledStrategies = append(enabledStrategies, map[string]interface{}{
				"name":        strategy.Name(),
				"description": strategy.Description(),
				"status":      "active",
			})
		} else {
			invalidStrategies = append(invalidStrategies, strategyName)
		}
	}

	availableStrategies := h.registry.List()
	isValid := len(invalidStrategies) == 0 && len(enabledStrategies) > 0

	response := map[string]interface{}{
		"valid": isValid,
		"configuration": map[string]interface{}{
			"trading_mode":       h.config.TradingMode,
			"server_port":        h.config.ServerPort,
			"log_level":          h.config.LogLevel,
			"data_provider":      h.config.DataProvider,
			"enabled_strategies": h.config.EnabledStrategies,
		},
		"provider": map[string]interface{}{
			"name":        h.config.DataProvider,
			"description": getProviderDescription(h.config.DataProvider),
		},
		"strategies": map[string]interface{}{
			"enabled":   enabledStrategies,
			"available": availableStrategies,
			"invalid":   invalidStrategies,
			"count": map[string]int{
				"enabled":   len(enabledStrategies),
				"available": len(availableStrategies),
				"invalid":   len(invalidStrategies),
			},
		},
		"warnings": generateConfigWarnings(h.config, len(enabledStrategies)),
	}

	writeJSON(w, http.StatusOK, response)
}

// getProviderDescription returns a human-readable description for a provider.
func getProviderDescription(providerName string) string {
	descriptions := map[string]string{
		"yahoo":   "Yahoo Finance - free, no API key required",
		"binance": "Binance - cryptocurrency exchange klines",
		"file":    "NDJSON file replay - historical bars from disk",
	}
	if desc, ok := descriptions[providerName]; ok {
		return desc
	}
	return "Unknown provider"
}

// generateConfigWarnings generates warnings about configuration issues.
func generateConfigWarnings(cfg *config.Config, enabledCount int) []string {
	warnings := make([]string, 0)

	if enabledCount == 0 {
		warnings = append(warnings, "No strategies enabled - engine will not execute any trades")
	}
	if cfg.IsLive() && cfg.APIKey == "" {
		warnings = append(warnings, "Running in LIVE mode without API_KEY - this is insecure!")
	}
	if cfg.DataProvider == "binance" && (cfg.BinanceAPIKey == "" || cfg.BinanceAPISecret == "") {
		warnings = append(warnings, "Binance provider selected but API credentials not set")
	}

	return warnings
}

// GetBalanceHandler returns the current simulated account balance.
func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":      h.broker.Balance(),
		"account_value": h.portfolio.AccountValue(),
	})
}

// GetPositionsHandler returns every open position across all strategies.
func (h *Handler) GetPositionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.broker.GetPositions())
}

// GetStrategyPositionsHandler returns a single strategy's per-security positions.
func (h *Handler) GetStrategyPositionsHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.portfolio.GetSecurityPositions(strategyID))
}

// GetStrategyProfitHandler returns a strategy's realized profit over the
// transaction history currently held in the broker.
func (h *Handler) GetStrategyProfitHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_id": strategyID,
		"profit":      h.portfolio.GetProfit(strategyID),
	})
}

// GetStrategyPendingHandler returns a strategy's resting pending orders.
func (h *Handler) GetStrategyPendingHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.portfolio.GetPending(strategyID))
}

// GetPortfolioSummaryHandler returns an aggregated portfolio summary.
func (h *Handler) GetPortfolioSummaryHandler(w http.ResponseWriter, r *http.Request) {
	positions := h.broker.GetPositions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":        h.broker.Balance(),
		"account_value":  h.portfolio.AccountValue(),
		"open_positions": len(positions),
		"positions":      positions,
	})
}

// PlaceOrderRequest defines the payload for manual order placement. Orders
// are submitted as NewOrder.Kind() "market" or "limit"; manual entries route
// through the risk engine exactly like strategy-emitted signals do.
type PlaceOrderRequest struct {
	StrategyID string  `json:"strategy_id" validate:"required,min=1,max=50"`
	Ticker     string  `json:"ticker" validate:"required,min=1,max=20"`
	AssetType  string  `json:"asset_type" validate:"required,oneof=equity crypto"`
	Exchange   string  `json:"exchange" validate:"omitempty"`
	Side       string  `json:"side" validate:"required,oneof=long short"`
	Quantity   uint64  `json:"quantity" validate:"required,gt=0"`
}

// PlaceOrderHandler submits a manual market-entry signal through the risk engine.
func (h *Handler) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if valErr := validateStruct(req); valErr != nil {
		writeValidationError(w, valErr)
		return
	}

	var sec models.Security
	if req.AssetType == "crypto" {
		sec = models.NewCrypto(req.Ticker)
	} else {
		sec = models.NewEquity(models.Exchange(req.Exchange), req.Ticker)
	}

	order := models.MarketOrder{
		Sec: sec,
		Details: models.OrderDetails{
			StrategyID: models.StrategyID(req.StrategyID),
			Quantity:   req.Quantity,
			Side:       models.Side(req.Side),
		},
	}

	result := h.risk.ProcessSignal(r.Context(), models.EntrySignal{Order: order, DateTime: time.Now()})
	if result.Rejected != "" {
		writeError(w, http.StatusUnprocessableEntity, result.Rejected, "SIGNAL_REJECTED")
		return
	}

	writeJSON(w, http.StatusOK, result.Result)
}

// CancelOrderHandler cancels a pending order owned by the given strategy.
func (h *Handler) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))
	orderID := models.OrderID(chi.URLParam(r, "orderID"))

	result := h.risk.ProcessSignal(r.Context(), models.CancelSignal{OrderID: orderID, StrategyIDValue: strategyID, DateTime: time.Now()})
	if result.Rejected != "" {
		writeError(w, http.StatusUnprocessableEntity, result.Rejected, "SIGNAL_REJECTED")
		return
	}
	writeJSON(w, http.StatusOK, result.Result)
}

// CloseSignalRequest closes a strategy's position in one security.
type CloseSignalRequest struct {
	Ticker    string `json:"ticker" validate:"required"`
	AssetType string `json:"asset_type" validate:"required,oneof=equity crypto"`
	Exchange  string `json:"exchange" validate:"omitempty"`
}

// CloseStrategyPositionHandler flattens a strategy's position in one security.
func (h *Handler) CloseStrategyPositionHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))

	var req CloseSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if valErr := validateStruct(req); valErr != nil {
		writeValidationError(w, valErr)
		return
	}

	var sec models.Security
	if req.AssetType == "crypto" {
		sec = models.NewCrypto(req.Ticker)
	} else {
		sec = models.NewEquity(models.Exchange(req.Exchange), req.Ticker)
	}

	result := h.risk.ProcessSignal(r.Context(), models.CloseSignal{Sec: sec, StrategyIDValue: strategyID, DateTime: time.Now()})
	if result.Rejected != "" {
		writeError(w, http.StatusUnprocessableEntity, result.Rejected, "SIGNAL_REJECTED")
		return
	}
	writeJSON(w, http.StatusOK, result.Result)
}

// LiquidateStrategyHandler flattens every position owned by a strategy.
func (h *Handler) LiquidateStrategyHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := models.StrategyID(chi.URLParam(r, "id"))
	result := h.risk.ProcessSignal(r.Context(), models.LiquidateSignal{StrategyIDValue: strategyID})
	if result.Rejected != "" {
		writeError(w, http.StatusUnprocessableEntity, result.Rejected, "SIGNAL_REJECTED")
		return
	}
	writeJSON(w, http.StatusOK, result.Result)
}

// RiskStateRequest updates the risk engine's trading state.
type RiskStateRequest struct {
	State string `json:"state" validate:"required,oneof=active reducing halted"`
}

// GetRiskStateHandler returns the risk engine's current trading state.
func (h *Handler) GetRiskStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": string(h.risk.State())})
}

// SetRiskStateHandler transitions the risk engine's trading state.
func (h *Handler) SetRiskStateHandler(w http.ResponseWriter, r *http.Request) {
	var req RiskStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if valErr := validateStruct(req); valErr != nil {
		writeValidationError(w, valErr)
		return
	}
	h.risk.SetState(risk.TradingState(req.State))
	writeJSON(w, http.StatusOK, map[string]string{"state": req.State})
}

// getQueryInt parses a query parameter as an integer.
func getQueryInt(r *http.Request, key string, defaultVal int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, code ...string) {
	errCode := "UNKNOWN_ERROR"
	if len(code) > 0 {
		errCode = code[0]
	} else {
		switch status {
		case http.StatusBadRequest:
			errCode = "BAD_REQUEST"
		case http.StatusUnauthorized:
			errCode = "UNAUTHORIZED"
		case http.StatusForbidden:
			errCode = "FORBIDDEN"
		case http.StatusNotFound:
			errCode = "NOT_FOUND"
		case http.StatusServiceUnavailable:
			errCode = "SERVICE_UNAVAILABLE"
		case http.StatusUnprocessableEntity:
			errCode = "UNPROCESSABLE"
		case http.StatusInternalServerError:
			errCode = "INTERNAL_ERROR"
		}
	}

	resp := APIError{
		Error: message,
		Code:  errCode,
	}
	writeJSON(w, status, resp)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}
