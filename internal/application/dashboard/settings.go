package dashboard

import (
	"time"

	"github.com/alejandrodnm/chartsync/internal/application/backtest"
	"github.com/alejandrodnm/chartsync/internal/domain"
)

// Settings es el formulario de ajustes del backtest tal como lo edita el usuario.
type Settings struct {
	StrategyID string
	Params     string
	Start      string // "2006-01-02" o "2006-01-02T15:04"
	End        string
}

// Request construye la petición. Una estrategia intradía corre sobre velas de
// minuto aunque el gráfico esté en diario.
func (st Settings) Request(symbol string, iv domain.Interval, catalogue []domain.Strategy) (domain.RunRequest, error) {
	if s, ok := domain.FindStrategy(catalogue, st.StrategyID); ok {
		iv = s.Interval()
	}
	return domain.NewRunRequest(symbol, st.StrategyID, st.Params, st.Start, st.End, iv)
}

// Snapshot es la vista de solo lectura de una sesión.
type Snapshot struct {
	Symbol   string
	Interval domain.Interval
	Series   domain.Series
	Version  uint64
	Token    uint64
	Overlays []domain.OverlaySeries
	Markers  []domain.Marker
	Visible  domain.TimeRange
	Selected *time.Time
	State    backtest.State
	Run      *domain.BacktestRun
	LastErr  error
	Settings Settings
}
