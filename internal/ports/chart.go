package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// ChartSurface es el recurso de dibujo del gráfico. Se adquiere una vez por
// sesión y se libera con Close.
type ChartSurface interface {
	SetCandles(series domain.Series)
	SetOverlays(overlays []domain.OverlaySeries)
	SetMarkers(markers []domain.Marker)
	SetVisibleRange(r domain.TimeRange)

	// SubscribeClick registra fn para los clicks sobre una vela. La función
	// devuelta cancela la suscripción.
	SubscribeClick(fn func(t time.Time)) (unsubscribe func())

	Close() error
}

// ChartOpener adquiere superficies de gráfico.
type ChartOpener interface {
	Open(ctx context.Context, title string) (ChartSurface, error)
}
