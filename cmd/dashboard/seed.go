package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alejandrodnm/chartsync/internal/adapters/restapi"
	"github.com/alejandrodnm/chartsync/internal/adapters/storage"
	"github.com/alejandrodnm/chartsync/internal/domain"
)

// seedWindow es la ventana bajo la que se archivan los backtests sembrados.
type seedWindow struct {
	Symbol string
	Start  string
	End    string
}

// seedArchive carga en el archivo las respuestas guardadas en dir:
// candles_daily.json, candles_minute.json, strategies.json y backtest_<id>.json.
// Cada backtest se archiva con los params por defecto de su estrategia.
func seedArchive(ctx context.Context, archive *storage.Archive, dir string, w seedWindow) error {
	for _, iv := range []domain.Interval{domain.IntervalDaily, domain.IntervalMinute} {
		data, err := os.ReadFile(filepath.Join(dir, "candles_"+iv.String()+".json"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		candles, err := restapi.ParseCandles(data)
		if err != nil {
			return fmt.Errorf("seed: %s: %w", iv, err)
		}
		key := domain.SeriesKey{Symbol: w.Symbol, Interval: iv}
		if err := archive.SaveCandles(ctx, key, candles); err != nil {
			return err
		}
		slog.Info("seed: candles archived", "key", key.String(), "count", len(candles))
	}

	var catalogue []domain.Strategy
	data, err := os.ReadFile(filepath.Join(dir, "strategies.json"))
	switch {
	case err == nil:
		if catalogue, err = restapi.ParseStrategies(data); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if err := archive.SaveStrategies(ctx, catalogue); err != nil {
			return err
		}
		slog.Info("seed: strategies archived", "count", len(catalogue))
	case !os.IsNotExist(err):
		return fmt.Errorf("seed: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "backtest_*.json"))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for _, path := range files {
		id := strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "backtest_"), ".json"))
		st, ok := domain.FindStrategy(catalogue, id)
		if !ok {
			st = domain.Strategy{ID: id}
		}
		req, err := domain.NewRunRequest(w.Symbol, st.ID, st.DefaultParams, w.Start, w.End, st.Interval())
		if err != nil {
			return fmt.Errorf("seed: %s: %w", id, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		run, err := restapi.ParseBacktest(data, req)
		if err != nil {
			return fmt.Errorf("seed: %s: %w", id, err)
		}
		if err := archive.SaveRun(ctx, req, run); err != nil {
			return err
		}
		slog.Info("seed: run archived", "strategy", id, "trades", len(run.Trades()))
	}
	return nil
}
