package replay

import (
	"time"

	"github.com/alejandrodnm/chartsync/internal/ports"
)

type highlightKind uint8

const (
	highlightSelect highlightKind = iota + 1
	highlightClear
	highlightHover
)

type highlightSignal struct {
	kind highlightKind
	t    *time.Time
}

// Highlight es el único dueño del trade seleccionado. Todas las vistas
// (click en el gráfico, click en la lista) pasan por aquí.
type Highlight struct {
	viewport *Viewport
	selected *time.Time
	subs     listeners[highlightSignal]
}

// NewHighlight crea el coordinador; Select enfoca viewport.
func NewHighlight(viewport *Viewport) *Highlight {
	return &Highlight{viewport: viewport}
}

// Select fija la selección, enfoca el viewport y avisa a las vistas.
func (h *Highlight) Select(t time.Time) {
	h.selected = &t
	h.viewport.Focus(t)
	h.subs.emit(highlightSignal{kind: highlightSelect, t: &t})
}

// Hover reenvía la señal efímera sin tocar la selección.
func (h *Highlight) Hover(t time.Time) {
	h.subs.emit(highlightSignal{kind: highlightHover, t: &t})
}

// Unhover termina el hover.
func (h *Highlight) Unhover() {
	h.subs.emit(highlightSignal{kind: highlightHover})
}

// Clear vacía la selección.
func (h *Highlight) Clear() {
	h.selected = nil
	h.subs.emit(highlightSignal{kind: highlightClear})
}

// Selected devuelve la selección actual, si hay.
func (h *Highlight) Selected() (time.Time, bool) {
	if h.selected == nil {
		return time.Time{}, false
	}
	return *h.selected, true
}

// AddListener registra una vista dependiente.
func (h *Highlight) AddListener(l ports.HighlightListener) *Subscription {
	return h.subs.add(func(s highlightSignal) {
		switch s.kind {
		case highlightSelect:
			l.OnSelect(*s.t)
		case highlightClear:
			l.OnClear()
		case highlightHover:
			l.OnHover(s.t)
		}
	})
}
