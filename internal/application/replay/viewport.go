package replay

import (
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// Ventana de foco por defecto: más contexto hacia atrás que hacia adelante.
const (
	DefaultFocusBefore = 30 * 24 * time.Hour
	DefaultFocusAfter  = 10 * 24 * time.Hour
)

// Viewport es el dueño del rango visible del gráfico.
type Viewport struct {
	store  *Store
	before time.Duration
	after  time.Duration
	rng    domain.TimeRange
	subs   listeners[domain.TimeRange]
}

// NewViewport crea un viewport sobre store. Duraciones no positivas usan los defaults.
func NewViewport(store *Store, before, after time.Duration) *Viewport {
	if before <= 0 {
		before = DefaultFocusBefore
	}
	if after <= 0 {
		after = DefaultFocusAfter
	}
	return &Viewport{store: store, before: before, after: after}
}

// FitAll ajusta el rango a la extensión exacta del store. Store vacío: rango vacío.
func (v *Viewport) FitAll() domain.TimeRange {
	ext, _ := v.store.Extent()
	v.set(ext)
	return ext
}

// Focus centra el rango en t: [t-before, t+after] recortado a la extensión del
// store. Es idempotente.
func (v *Viewport) Focus(t time.Time) domain.TimeRange {
	ext, _ := v.store.Extent()
	r := FocusWindow(t, v.before, v.after, ext)
	v.set(r)
	return r
}

// Range devuelve el rango visible actual.
func (v *Viewport) Range() domain.TimeRange {
	return v.rng
}

// OnChange registra fn para cada cambio de rango.
func (v *Viewport) OnChange(fn func(domain.TimeRange)) *Subscription {
	return v.subs.add(fn)
}

func (v *Viewport) set(r domain.TimeRange) {
	v.rng = r
	v.subs.emit(r)
}

// FocusWindow calcula [t-before, t+after] ∩ extent. Si la ventana no toca la
// extensión, colapsa al borde más cercano.
func FocusWindow(t time.Time, before, after time.Duration, extent domain.TimeRange) domain.TimeRange {
	if extent.Empty() {
		return domain.TimeRange{}
	}
	from := t.Add(-before)
	to := t.Add(after)

	switch {
	case to.Before(extent.From):
		return domain.TimeRange{From: extent.From, To: extent.From}
	case from.After(extent.To):
		return domain.TimeRange{From: extent.To, To: extent.To}
	}
	if from.Before(extent.From) {
		from = extent.From
	}
	if to.After(extent.To) {
		to = extent.To
	}
	return domain.TimeRange{From: from, To: to}
}
