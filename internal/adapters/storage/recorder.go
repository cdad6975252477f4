package storage

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// Recorder decora un backend y archiva lo que devuelve, para reproducirlo
// después offline. Los fallos al archivar solo se loguean.
type Recorder struct {
	next    ports.Backend
	archive *Archive
}

// NewRecorder crea el decorador.
func NewRecorder(next ports.Backend, archive *Archive) *Recorder {
	return &Recorder{next: next, archive: archive}
}

func (r *Recorder) GetCandles(ctx context.Context, symbol string, iv domain.Interval) ([]domain.Candle, error) {
	candles, err := r.next.GetCandles(ctx, symbol, iv)
	if err != nil {
		return nil, err
	}
	key := domain.SeriesKey{Symbol: symbol, Interval: iv}
	if err := r.archive.SaveCandles(ctx, key, candles); err != nil {
		slog.Warn("archive: save candles failed", "key", key.String(), "err", err)
	}
	return candles, nil
}

func (r *Recorder) RunBacktest(ctx context.Context, req domain.RunRequest) (domain.BacktestRun, error) {
	run, err := r.next.RunBacktest(ctx, req)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	if err := r.archive.SaveRun(ctx, req, run); err != nil {
		slog.Warn("archive: save run failed", "strategy", req.StrategyID, "symbol", req.Symbol, "err", err)
	}
	return run, nil
}

func (r *Recorder) GetStrategies(ctx context.Context) ([]domain.Strategy, error) {
	strategies, err := r.next.GetStrategies(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.archive.SaveStrategies(ctx, strategies); err != nil {
		slog.Warn("archive: save strategies failed", "err", err)
	}
	return strategies, nil
}
