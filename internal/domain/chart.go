package domain

import "time"

// MovingAveragePoint es un punto de la media móvil, alineado con la vela que lo cierra.
type MovingAveragePoint struct {
	Time  time.Time
	Value float64
}

// OverlaySeries es una media móvil lista para dibujar.
type OverlaySeries struct {
	Window int
	Color  string
	Points []MovingAveragePoint
}

// MarkerPlacement es la posición del marcador respecto a la vela.
type MarkerPlacement string

const (
	PlacementBelowBar MarkerPlacement = "belowBar"
	PlacementAboveBar MarkerPlacement = "aboveBar"
)

// MarkerShape es la forma del marcador.
type MarkerShape string

const (
	ShapeArrowUp   MarkerShape = "arrowUp"
	ShapeArrowDown MarkerShape = "arrowDown"
)

// Colores de marcador por lado.
const (
	ColorBuy  = "#ef4444"
	ColorSell = "#3b82f6"
)

// Marker es un trade proyectado sobre una vela del gráfico.
type Marker struct {
	Time      time.Time
	Side      Side
	Price     float64
	Color     string
	Placement MarkerPlacement
	Shape     MarkerShape
	Text      string
}

// MarkerStyle devuelve color, posición y forma del marcador de un lado.
func MarkerStyle(s Side) (string, MarkerPlacement, MarkerShape) {
	switch s {
	case SideBuy:
		return ColorBuy, PlacementBelowBar, ShapeArrowUp
	case SideSell:
		return ColorSell, PlacementAboveBar, ShapeArrowDown
	}
	panic("domain: unhandled side " + s.String())
}
