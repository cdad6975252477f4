package restapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// GetCandles implementa ports.CandleProvider: GET /api/candles?symbol=&type=.
func (c *Client) GetCandles(ctx context.Context, symbol string, iv domain.Interval) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", iv.String())

	var raw []candleDTO
	if err := c.get(ctx, c.endpoint("/api/candles", q), &raw); err != nil {
		return nil, fmt.Errorf("restapi.GetCandles: %s %s: %w", symbol, iv, err)
	}
	candles, err := mapCandles(raw)
	if err != nil {
		return nil, fmt.Errorf("restapi.GetCandles: %s %s: %w", symbol, iv, err)
	}
	return candles, nil
}

// RunBacktest implementa ports.BacktestRunner: POST /api/backtest con los
// parámetros en la query, como lo espera el controller del backend.
func (c *Client) RunBacktest(ctx context.Context, req domain.RunRequest) (domain.BacktestRun, error) {
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("start", domain.FormatDateTime(req.Start))
	q.Set("end", domain.FormatDateTime(req.End))
	if req.StrategyID != "" {
		q.Set("strategyId", req.StrategyID)
	}
	if req.Params != "" {
		q.Set("params", req.Params)
	}

	var raw backtestDTO
	if err := c.post(ctx, c.endpoint("/api/backtest", q), &raw); err != nil {
		return domain.BacktestRun{}, fmt.Errorf("restapi.RunBacktest: %w", err)
	}
	run, err := mapBacktest(raw, req)
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("restapi.RunBacktest: %w", err)
	}
	return run, nil
}

// GetStrategies implementa ports.StrategyProvider: GET /api/strategies.
func (c *Client) GetStrategies(ctx context.Context) ([]domain.Strategy, error) {
	var raw []strategyDTO
	if err := c.get(ctx, c.endpoint("/api/strategies", nil), &raw); err != nil {
		return nil, fmt.Errorf("restapi.GetStrategies: %w", err)
	}
	return mapStrategies(raw), nil
}

// KillSwitchStatus implementa ports.StatusProvider: GET /api/system/kill-switch.
func (c *Client) KillSwitchStatus(ctx context.Context) (bool, error) {
	var active bool
	if err := c.get(ctx, c.endpoint("/api/system/kill-switch", nil), &active); err != nil {
		return false, fmt.Errorf("restapi.KillSwitchStatus: %w", err)
	}
	return active, nil
}

// SchedulerStatus implementa ports.StatusProvider: GET /api/scheduler/status.
func (c *Client) SchedulerStatus(ctx context.Context) (domain.SchedulerStatus, error) {
	var raw schedulerDTO
	if err := c.get(ctx, c.endpoint("/api/scheduler/status", nil), &raw); err != nil {
		return domain.SchedulerStatus{}, fmt.Errorf("restapi.SchedulerStatus: %w", err)
	}
	return mapScheduler(raw), nil
}
