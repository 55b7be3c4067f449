package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"equity-backtest/internal/api/models"
	"equity-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests.
type StrategyHandler struct{}

func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

var strategyDocs = map[string]models.StrategyInfo{
	"ma_cross": {
		Name:        "ma_cross",
		Description: "Moving-average crossover with an RSI filter. Buys a golden cross while RSI is oversold, exits on a death cross or an overbought RSI.",
		Parameters: []models.ParameterInfo{
			{Name: "ma_short", Type: "int", Description: "Fast moving-average period", Default: 5},
			{Name: "ma_long", Type: "int", Description: "Slow moving-average period", Default: 20},
			{Name: "rsi_period", Type: "int", Description: "RSI lookback period", Default: 14},
			{Name: "rsi_buy", Type: "float", Description: "RSI ceiling for entries", Default: 30.0},
			{Name: "rsi_sell", Type: "float", Description: "RSI floor that forces an exit", Default: 70.0},
			{Name: "lot_size", Type: "int", Description: "Order size granularity in shares", Default: 100},
		},
	},
}

// ListStrategies handles GET /api/v1/strategies.
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	strategies := make([]models.StrategyInfo, 0, len(strategy.Names()))
	for _, name := range strategy.Names() {
		if info, ok := strategyDocs[name]; ok {
			strategies = append(strategies, info)
			continue
		}
		strategies = append(strategies, models.StrategyInfo{Name: name})
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
