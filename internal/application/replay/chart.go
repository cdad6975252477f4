package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// ChartOptions configura el gráfico de replay.
type ChartOptions struct {
	Overlays    []OverlayConfig
	FocusBefore time.Duration
	FocusAfter  time.Duration
}

// Chart agrupa los componentes del gráfico y los encadena: cada reemplazo del
// store recalcula medias, reproyecta marcadores y ajusta el viewport.
type Chart struct {
	Store     *Store
	Fetcher   *Fetcher
	Viewport  *Viewport
	Markers   *Markers
	Overlays  *Overlays
	Highlight *Highlight

	subs []*Subscription
}

// NewChart construye el gráfico. Se usa desde el loop.
func NewChart(loop *Loop, provider ports.CandleProvider, opts ChartOptions) (*Chart, error) {
	cfgs := opts.Overlays
	if cfgs == nil {
		cfgs = DefaultOverlays()
	}
	overlays, err := NewOverlays(cfgs)
	if err != nil {
		return nil, fmt.Errorf("replay.NewChart: %w", err)
	}

	store := NewStore()
	viewport := NewViewport(store, opts.FocusBefore, opts.FocusAfter)
	c := &Chart{
		Store:     store,
		Fetcher:   NewFetcher(loop, store, provider),
		Viewport:  viewport,
		Markers:   NewMarkers(),
		Overlays:  overlays,
		Highlight: NewHighlight(viewport),
	}
	c.subs = append(c.subs, store.OnReplace(func(s domain.Series) {
		c.Overlays.Compute(s)
		c.Markers.Reproject(s)
		c.Viewport.FitAll()
	}))
	return c, nil
}

// Load selecciona key y dispara su fetch.
func (c *Chart) Load(ctx context.Context, key domain.SeriesKey) *Ticket[FetchResult] {
	return c.Fetcher.Fetch(ctx, key)
}

// ShowRun muestra un run: sus trades como marcadores y, si trae velas, las
// adopta como serie de key. Termina con el viewport ajustado a todo.
func (c *Chart) ShowRun(key domain.SeriesKey, run domain.BacktestRun) {
	c.Markers.SetTrades(run.Trades(), c.Store.Current())
	if candles := run.Candles(); len(candles) > 0 {
		c.Fetcher.Adopt(key, candles)
		return
	}
	c.Viewport.FitAll()
}

// ClearRun quita los marcadores del run.
func (c *Chart) ClearRun() {
	c.Markers.SetTrades(nil, c.Store.Current())
}

// Close libera el encadenamiento interno.
func (c *Chart) Close() {
	for i := len(c.subs) - 1; i >= 0; i-- {
		c.subs[i].Release()
	}
	c.subs = nil
}
