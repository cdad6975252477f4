package restapi

import (
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// mapCandles convierte las velas del backend. Una fecha ilegible invalida la respuesta.
func mapCandles(raw []candleDTO) ([]domain.Candle, error) {
	out := make([]domain.Candle, 0, len(raw))
	for i, r := range raw {
		t, err := domain.ParseTime(r.Time)
		if err != nil {
			return nil, fmt.Errorf("candle %d: %w", i, err)
		}
		out = append(out, domain.Candle{
			Time:   t,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return out, nil
}

// mapTrades convierte los trades. Un lado desconocido es un error, no se ignora.
func mapTrades(raw []tradeDTO) ([]domain.TradeEvent, error) {
	out := make([]domain.TradeEvent, 0, len(raw))
	for i, r := range raw {
		t, err := domain.ParseTime(r.Time)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
		side, err := domain.ParseSide(r.Type)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
		out = append(out, domain.TradeEvent{
			Time:       t,
			Side:       side,
			Price:      r.Price,
			Quantity:   r.Quantity,
			Reason:     r.Reason,
			PnLPercent: r.PnLPercent,
		})
	}
	return out, nil
}

// mapBacktest arma el BacktestRun con los datos de la petición que el backend no devuelve.
func mapBacktest(raw backtestDTO, req domain.RunRequest) (domain.BacktestRun, error) {
	candles, err := mapCandles(raw.Candles)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	trades, err := mapTrades(raw.Trades)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	symbol := raw.Symbol
	if symbol == "" {
		symbol = req.Symbol
	}
	return domain.NewBacktestRun(symbol, req.StrategyID, req.Params, req.Start, req.End,
		candles, trades, domain.Summary{
			FinalBalance:       raw.FinalBalance,
			TotalReturnPercent: raw.TotalReturnPercent,
			TotalTrades:        raw.TotalTrades,
			WinRate:            raw.WinRate,
			MaxDrawdown:        raw.MaxDrawdown,
		}), nil
}

func mapStrategies(raw []strategyDTO) []domain.Strategy {
	out := make([]domain.Strategy, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Strategy{
			ID:            r.ID,
			Name:          r.Name,
			Description:   r.Description,
			DefaultParams: r.DefaultParams,
		})
	}
	return out
}

func mapScheduler(raw schedulerDTO) domain.SchedulerStatus {
	st := domain.SchedulerStatus{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err == nil {
			st.Fields[k] = val
		}
	}
	st.Enabled, _ = st.Fields["enabled"].(bool)
	st.Running, _ = st.Fields["isRunning"].(bool)
	return st
}

// ParseCandles decodifica un cuerpo de GET /api/candles (usado también para
// sembrar el archivo offline).
func ParseCandles(data []byte) ([]domain.Candle, error) {
	var raw []candleDTO
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("restapi.ParseCandles: %w", err)
	}
	out, err := mapCandles(raw)
	if err != nil {
		return nil, fmt.Errorf("restapi.ParseCandles: %w", err)
	}
	return out, nil
}

// ParseBacktest decodifica un cuerpo de POST /api/backtest para req.
func ParseBacktest(data []byte, req domain.RunRequest) (domain.BacktestRun, error) {
	var raw backtestDTO
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.BacktestRun{}, fmt.Errorf("restapi.ParseBacktest: %w", err)
	}
	run, err := mapBacktest(raw, req)
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("restapi.ParseBacktest: %w", err)
	}
	return run, nil
}

// ParseStrategies decodifica un cuerpo de GET /api/strategies.
func ParseStrategies(data []byte) ([]domain.Strategy, error) {
	var raw []strategyDTO
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("restapi.ParseStrategies: %w", err)
	}
	return mapStrategies(raw), nil
}
