package replay

import (
	"fmt"
	"sort"

	"github.com/markcheno/go-talib"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// ComputeMovingAverage calcula la media móvil simple trailing de los cierres.
// Devuelve max(0, n-window+1) puntos; el punto i corresponde a candles[i+window-1].
// Con n < window o window <= 0 devuelve vacío.
//
// talib.Sma mantiene una suma acumulada (suma el nuevo cierre, resta el más
// antiguo), así que el resultado puede diferir de la media exacta de cada
// ventana en el último bit. Solo es visible si conviven cierres de magnitudes
// muy distintas (p. ej. 1e17 junto a 1); con precios reales el error es < 1e-9.
func ComputeMovingAverage(candles []domain.Candle, window int) []domain.MovingAveragePoint {
	n := len(candles)
	if window <= 0 || n < window {
		return []domain.MovingAveragePoint{}
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}
	sma := talib.Sma(closes, window)

	out := make([]domain.MovingAveragePoint, 0, n-window+1)
	for i := window - 1; i < n; i++ {
		out = append(out, domain.MovingAveragePoint{Time: candles[i].Time, Value: sma[i]})
	}
	return out
}

// OverlayConfig describe una media móvil dibujable.
type OverlayConfig struct {
	Window  int
	Color   string
	Enabled bool
}

// DefaultOverlays son las medias del gráfico de precios: 20 y 60 visibles, 5 apagada.
func DefaultOverlays() []OverlayConfig {
	return []OverlayConfig{
		{Window: 5, Color: "#facc15", Enabled: false},
		{Window: 20, Color: "#4ade80", Enabled: true},
		{Window: 60, Color: "#c084fc", Enabled: true},
	}
}

// Overlays mantiene las medias móviles derivadas del store. Se recalculan
// desde cero en cada reemplazo y en cada toggle.
type Overlays struct {
	configs []OverlayConfig
	series  []domain.OverlaySeries
	last    domain.Series
	subs    listeners[[]domain.OverlaySeries]
}

// NewOverlays ordena las configuraciones por ventana. Ventanas repetidas o no
// positivas son un error.
func NewOverlays(configs []OverlayConfig) (*Overlays, error) {
	cfgs := append([]OverlayConfig(nil), configs...)
	sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].Window < cfgs[j].Window })
	for i, c := range cfgs {
		if c.Window <= 0 {
			return nil, fmt.Errorf("replay.NewOverlays: invalid window %d", c.Window)
		}
		if i > 0 && cfgs[i-1].Window == c.Window {
			return nil, fmt.Errorf("replay.NewOverlays: duplicate window %d", c.Window)
		}
	}
	return &Overlays{configs: cfgs}, nil
}

// Configs devuelve una copia de la configuración actual.
func (o *Overlays) Configs() []OverlayConfig {
	return append([]OverlayConfig(nil), o.configs...)
}

// Toggle activa o desactiva la media de la ventana indicada.
func (o *Overlays) Toggle(window int, on bool) error {
	for i := range o.configs {
		if o.configs[i].Window == window {
			if o.configs[i].Enabled == on {
				return nil
			}
			o.configs[i].Enabled = on
			o.Compute(o.last)
			return nil
		}
	}
	return fmt.Errorf("replay.Overlays.Toggle: unknown window %d", window)
}

// Compute recalcula todas las medias activas sobre series.
func (o *Overlays) Compute(series domain.Series) {
	o.last = series
	out := make([]domain.OverlaySeries, 0, len(o.configs))
	for _, c := range o.configs {
		if !c.Enabled {
			continue
		}
		out = append(out, domain.OverlaySeries{
			Window: c.Window,
			Color:  c.Color,
			Points: ComputeMovingAverage(series.Candles, c.Window),
		})
	}
	o.series = out
	o.subs.emit(o.Current())
}

// Current devuelve las medias calculadas para la última serie.
func (o *Overlays) Current() []domain.OverlaySeries {
	return append([]domain.OverlaySeries(nil), o.series...)
}

// OnChange registra fn para cada recálculo.
func (o *Overlays) OnChange(fn func([]domain.OverlaySeries)) *Subscription {
	return o.subs.add(fn)
}
