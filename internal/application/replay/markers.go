package replay

import (
	"log/slog"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// ProjectMarkers convierte trades en marcadores sobre las velas de series.
// El tiempo del trade se trunca a la granularidad del intervalo; si no cae
// exactamente en una vela, no produce marcador.
func ProjectMarkers(trades []domain.TradeEvent, series domain.Series) []domain.Marker {
	out := make([]domain.Marker, 0, len(trades))
	if series.Key.Interval == 0 {
		return out
	}
	for _, tr := range trades {
		bucket := series.Key.Interval.Truncate(tr.Time)
		if _, ok := series.IndexOf(bucket); !ok {
			continue
		}
		color, placement, shape := domain.MarkerStyle(tr.Side)
		out = append(out, domain.Marker{
			Time:      bucket,
			Side:      tr.Side,
			Price:     tr.Price,
			Color:     color,
			Placement: placement,
			Shape:     shape,
			Text:      tr.Side.String(),
		})
	}
	return out
}

// Markers mantiene los marcadores del run activo proyectados sobre el store.
type Markers struct {
	trades  []domain.TradeEvent
	markers []domain.Marker
	subs    listeners[[]domain.Marker]
}

// NewMarkers crea un proyector vacío.
func NewMarkers() *Markers {
	return &Markers{}
}

// SetTrades reemplaza los trades y reproyecta sobre series. nil limpia.
func (m *Markers) SetTrades(trades []domain.TradeEvent, series domain.Series) {
	m.trades = append([]domain.TradeEvent(nil), trades...)
	m.Reproject(series)
}

// Reproject recalcula los marcadores para series.
func (m *Markers) Reproject(series domain.Series) {
	m.markers = ProjectMarkers(m.trades, series)
	if dropped := len(m.trades) - len(m.markers); dropped > 0 {
		slog.Debug("markers: trades without matching candle",
			"series", series.Key.String(), "dropped", dropped)
	}
	m.subs.emit(m.Current())
}

// Current devuelve los marcadores vigentes.
func (m *Markers) Current() []domain.Marker {
	return append([]domain.Marker(nil), m.markers...)
}

// Trades devuelve los trades proyectados.
func (m *Markers) Trades() []domain.TradeEvent {
	return append([]domain.TradeEvent(nil), m.trades...)
}

// OnChange registra fn para cada reproyección.
func (m *Markers) OnChange(fn func([]domain.Marker)) *Subscription {
	return m.subs.add(fn)
}
