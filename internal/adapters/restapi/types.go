package restapi

import "encoding/json"

// candleDTO es una vela de GET /api/candles.
type candleDTO struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// tradeDTO es un trade dentro del resultado de POST /api/backtest.
type tradeDTO struct {
	Time       string  `json:"time"`
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Reason     string  `json:"reason"`
	PnLPercent float64 `json:"pnlPercent"`
}

// backtestDTO es el cuerpo de POST /api/backtest.
type backtestDTO struct {
	Symbol             string      `json:"symbol"`
	FinalBalance       float64     `json:"finalBalance"`
	TotalReturnPercent float64     `json:"totalReturnPercent"`
	TotalTrades        int         `json:"totalTrades"`
	WinRate            *float64    `json:"winRate"`
	MaxDrawdown        *float64    `json:"maxDrawdown"`
	Trades             []tradeDTO  `json:"trades"`
	Candles            []candleDTO `json:"candles"`
}

// strategyDTO es una entrada de GET /api/strategies.
type strategyDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DefaultParams string `json:"defaultParams"`
}

// schedulerDTO es GET /api/scheduler/status. Se guarda también el objeto crudo.
type schedulerDTO map[string]json.RawMessage
