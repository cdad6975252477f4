package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidParams se devuelve cuando los parámetros de estrategia no son JSON válido.
var ErrInvalidParams = errors.New("invalid strategy params")

// Summary son los KPIs agregados de un run. WinRate y MaxDrawdown pueden faltar
// en la respuesta del backend.
type Summary struct {
	FinalBalance       float64
	TotalReturnPercent float64
	TotalTrades        int
	WinRate            *float64
	MaxDrawdown        *float64
}

// EffectiveWinRate prefiere el valor del backend; si falta lo calcula de los trades.
func (s Summary) EffectiveWinRate(trades []TradeEvent) float64 {
	if s.WinRate != nil {
		return *s.WinRate
	}
	return WinRate(trades)
}

// NetProfit devuelve FinalBalance - initial.
func (s Summary) NetProfit(initial float64) float64 {
	return s.FinalBalance - initial
}

// BacktestRun es el resultado inmutable de un backtest. Candles y Trades se
// exponen como copias.
type BacktestRun struct {
	Symbol     string
	StrategyID string
	Params     string
	Start      time.Time
	End        time.Time
	Summary    Summary

	candles []Candle
	trades  []TradeEvent
}

// NewBacktestRun copia candles y trades; los trades quedan en orden ascendente.
func NewBacktestRun(symbol, strategyID, params string, start, end time.Time, candles []Candle, trades []TradeEvent, summary Summary) BacktestRun {
	cs := make([]Candle, len(candles))
	copy(cs, candles)
	ts := make([]TradeEvent, len(trades))
	copy(ts, trades)
	sortTrades(ts)
	return BacktestRun{
		Symbol:     symbol,
		StrategyID: strategyID,
		Params:     params,
		Start:      start,
		End:        end,
		Summary:    summary,
		candles:    cs,
		trades:     ts,
	}
}

// Candles devuelve una copia de las velas del run (puede estar vacía).
func (r BacktestRun) Candles() []Candle {
	out := make([]Candle, len(r.candles))
	copy(out, r.candles)
	return out
}

// Trades devuelve una copia de los trades del run.
func (r BacktestRun) Trades() []TradeEvent {
	out := make([]TradeEvent, len(r.trades))
	copy(out, r.trades)
	return out
}

func sortTrades(ts []TradeEvent) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Time.Before(ts[j].Time)
	})
}

// RunRequest es la petición de un backtest.
type RunRequest struct {
	ID         string
	Symbol     string
	StrategyID string
	Params     string
	Start      time.Time
	End        time.Time
	Interval   Interval
}

// NewRunRequest construye y normaliza una petición a partir de los valores del
// formulario de ajustes.
func NewRunRequest(symbol, strategyID, params, start, end string, iv Interval) (RunRequest, error) {
	from, to, err := ParseRunWindow(start, end)
	if err != nil {
		return RunRequest{}, err
	}
	req := RunRequest{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		StrategyID: strategyID,
		Params:     params,
		Start:      from,
		End:        to,
		Interval:   iv,
	}
	if err := req.Normalize(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

// Normalize rellena ID y Params vacíos y valida la petición.
func (r *RunRequest) Normalize() error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Symbol = strings.TrimSpace(r.Symbol)
	if r.Symbol == "" {
		return errors.New("domain.RunRequest: empty symbol")
	}
	if strings.TrimSpace(r.StrategyID) == "" {
		return errors.New("domain.RunRequest: empty strategy id")
	}
	if strings.TrimSpace(r.Params) == "" {
		r.Params = "{}"
	}
	if !json.Valid([]byte(r.Params)) {
		return fmt.Errorf("domain.RunRequest: %w: %s", ErrInvalidParams, r.Params)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("domain.RunRequest: missing start or end")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("domain.RunRequest: end %s before start %s",
			FormatDateTime(r.End), FormatDateTime(r.Start))
	}
	if r.Interval == 0 {
		r.Interval = IntervalDaily
	}
	return nil
}

// ParseRunWindow interpreta los límites del formulario. Una fecha sola cubre el
// día completo; "HH:MM" se completa con :00 al inicio y :59 al final.
func ParseRunWindow(start, end string) (time.Time, time.Time, error) {
	from, err := parseBound(start, "T00:00:00", ":00")
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("domain.ParseRunWindow: start: %w", err)
	}
	to, err := parseBound(end, "T23:59:59", ":59")
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("domain.ParseRunWindow: end: %w", err)
	}
	return from, to, nil
}

func parseBound(s, dateSuffix, secondSuffix string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case len("2006-01-02"):
		s += dateSuffix
	case len("2006-01-02T15:04"):
		s = strings.Replace(s, " ", "T", 1) + secondSuffix
	}
	return ParseTime(s)
}
