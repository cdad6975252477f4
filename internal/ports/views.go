package ports

import (
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// HighlightListener recibe los cambios del cursor compartido de trades.
type HighlightListener interface {
	// OnSelect se emite al seleccionar t desde cualquier vista.
	OnSelect(t time.Time)
	// OnClear se emite al limpiar la selección (reset o nuevo run).
	OnClear()
	// OnHover es una señal efímera; nil significa fin del hover.
	OnHover(t *time.Time)
}

// TradeView es la lista de trades del run activo.
type TradeView interface {
	HighlightListener
	ShowTrades(trades []domain.TradeEvent, interval domain.Interval)
}

// ResultView muestra los KPIs de un run o el motivo del fallo.
type ResultView interface {
	ShowResult(run domain.BacktestRun)
	ShowFailure(err error)
	ClearResult()
}

// StatusView muestra el estado del kill switch y del scheduler.
type StatusView interface {
	ShowKillSwitch(active bool)
	ShowScheduler(status domain.SchedulerStatus)
}
