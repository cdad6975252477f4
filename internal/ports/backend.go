package ports

import (
	"context"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// CandleProvider obtiene la serie de velas de un instrumento.
type CandleProvider interface {
	// GetCandles devuelve las velas en orden ascendente por tiempo.
	GetCandles(ctx context.Context, symbol string, interval domain.Interval) ([]domain.Candle, error)
}

// BacktestRunner ejecuta un backtest en el backend.
type BacktestRunner interface {
	// RunBacktest envía la petición y espera el resultado completo.
	// No es idempotente en el servidor: cada llamada crea un run.
	RunBacktest(ctx context.Context, req domain.RunRequest) (domain.BacktestRun, error)
}

// StrategyProvider lista el catálogo de estrategias.
type StrategyProvider interface {
	GetStrategies(ctx context.Context) ([]domain.Strategy, error)
}

// StatusProvider expone el estado operativo del backend para los paneles auxiliares.
type StatusProvider interface {
	KillSwitchStatus(ctx context.Context) (bool, error)
	SchedulerStatus(ctx context.Context) (domain.SchedulerStatus, error)
}

// Backend agrupa las operaciones que consume el motor de sincronización.
// Se inyecta; en tests se sustituye por un fake.
type Backend interface {
	CandleProvider
	BacktestRunner
	StrategyProvider
}
