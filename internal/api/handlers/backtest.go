package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"equity-backtest/internal/api/models"
	"equity-backtest/internal/backtest"
	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/strategy"
)

// BacktestHandler runs backtests against the server's data source and
// keeps their results for later retrieval.
type BacktestHandler struct {
	base     *config.Config
	stage    *data.Stage
	store    *checkpoint.Store
	calendar data.Calendar
	results  *ResultStore
	log      *zap.SugaredLogger
}

func NewBacktestHandler(base *config.Config, stage *data.Stage, store *checkpoint.Store, calendar data.Calendar, log *zap.SugaredLogger) *BacktestHandler {
	return &BacktestHandler{
		base:     base,
		stage:    stage,
		store:    store,
		calendar: calendar,
		results:  NewResultStore(),
		log:      log,
	}
}

// RunBacktest handles POST /api/v1/backtest.
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	cfg := h.buildConfig(req)
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_CONFIG", Message: err.Error()},
		})
		return
	}

	strat, err := strategy.New(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_STRATEGY", Message: err.Error()},
		})
		return
	}

	engine := backtest.NewEngine(cfg, h.stage, h.store, h.calendar, h.log)
	res := engine.Run(c.Request.Context(), strat)
	id := h.results.Put(res)

	c.JSON(http.StatusOK, h.response(id, res, req.Options))
}

// GetBacktest handles GET /api/v1/backtest/:id.
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.results.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "no backtest with id " + id},
		})
		return
	}
	c.JSON(http.StatusOK, h.response(id, res, models.BacktestOptions{
		IncludeTrades:  true,
		IncludeReturns: true,
	}))
}

// buildConfig layers the request onto the server configuration.
func (h *BacktestHandler) buildConfig(req models.BacktestRequest) *config.Config {
	cfg := *h.base

	cfg.Backtest.StartDate = req.Backtest.StartDate
	cfg.Backtest.EndDate = req.Backtest.EndDate
	if len(req.Backtest.Universe) > 0 {
		cfg.Data.Universe = req.Backtest.Universe
	}
	if req.Backtest.InitialCapital > 0 {
		cfg.Backtest.InitialCapital = req.Backtest.InitialCapital
	}
	if req.Backtest.CommissionRate > 0 {
		cfg.Backtest.CommissionRate = req.Backtest.CommissionRate
	}
	if req.Backtest.SlippageRate > 0 {
		cfg.Backtest.SlippageRate = req.Backtest.SlippageRate
	}

	cfg.Strategy.Name = req.Strategy.Name
	if req.Strategy.Params != nil {
		cfg.Strategy.Params = req.Strategy.Params
	}
	return &cfg
}

func (h *BacktestHandler) response(id string, res *backtest.Result, opts models.BacktestOptions) models.BacktestResponse {
	resp := models.BacktestResponse{
		ID:          id,
		Status:      "completed",
		Summary:     res.Summary,
		FinalEquity: res.FinalEquity,
		FinalCash:   res.FinalCash,
		Stats:       res.Stats,
	}
	if res.Failed() {
		resp.Status = "failed"
		resp.Error = res.Error
	}
	if opts.IncludeTrades {
		resp.Trades = res.Trades
	}
	if opts.IncludeReturns {
		resp.Returns = res.Returns
	}
	return resp
}
