package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/chartsync/internal/application/backtest"
	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// ErrRunInFlight se devuelve al pedir un backtest con otro en curso.
var ErrRunInFlight = errors.New("backtest already running")

// ErrClosed se devuelve al usar una sesión cerrada.
var ErrClosed = errors.New("session closed")

// ErrUnknownStrategy se devuelve al seleccionar una estrategia fuera del catálogo.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Deps son los colaboradores inyectados en la sesión.
type Deps struct {
	Backend ports.Backend
	Opener  ports.ChartOpener
	Trades  ports.TradeView
	Results ports.ResultView

	// Listeners extra del cursor de trades (p. ej. el log de detalle).
	Listeners []ports.HighlightListener
}

// Options configura una sesión.
type Options struct {
	Title    string
	Symbol   string
	Interval domain.Interval
	Chart    replay.ChartOptions
	Settings Settings
}

// Session es la fachada que usa la shell de UI. Sus métodos pueden llamarse
// desde cualquier goroutine: todo se ejecuta en el loop.
type Session struct {
	loop    *replay.Loop
	deps    Deps
	ctx     context.Context
	surface ports.ChartSurface

	// solo se tocan desde el loop
	chart      *replay.Chart
	ctrl       *backtest.Controller
	subs       []*replay.Subscription
	symbol     string
	interval   domain.Interval
	settings   Settings
	strategies []domain.Strategy
	lastFetch  *replay.Ticket[replay.FetchResult]
	closed     bool

	closeOnce sync.Once
	closeErr  error
}

// Open adquiere la superficie del gráfico, registra las suscripciones una sola
// vez y lanza la carga inicial. ctx acota la I/O de toda la sesión.
func Open(ctx context.Context, loop *replay.Loop, deps Deps, opts Options) (*Session, error) {
	if deps.Backend == nil || deps.Opener == nil {
		return nil, errors.New("dashboard.Open: backend and chart opener are required")
	}
	if opts.Interval == 0 {
		opts.Interval = domain.IntervalDaily
	}

	surface, err := deps.Opener.Open(ctx, opts.Title)
	if err != nil {
		return nil, fmt.Errorf("dashboard.Open: open chart: %w", err)
	}

	s := &Session{
		loop:     loop,
		deps:     deps,
		ctx:      ctx,
		surface:  surface,
		symbol:   opts.Symbol,
		interval: opts.Interval,
		settings: opts.Settings,
	}

	var wireErr error
	err = loop.Do(ctx, func() { wireErr = s.wire(opts) })
	if err == nil {
		err = wireErr
	}
	if err != nil {
		_ = surface.Close()
		return nil, fmt.Errorf("dashboard.Open: %w", err)
	}

	slog.Info("dashboard: session opened", "symbol", s.symbol, "interval", s.interval.String())
	return s, nil
}

func (s *Session) wire(opts Options) error {
	chart, err := replay.NewChart(s.loop, s.deps.Backend, opts.Chart)
	if err != nil {
		return err
	}
	s.chart = chart
	s.ctrl = backtest.NewController(s.loop, chart, s.deps.Backend, backtest.Views{
		Trades:  s.deps.Trades,
		Results: s.deps.Results,
	})

	s.subs = append(s.subs,
		chart.Store.OnReplace(s.surface.SetCandles),
		chart.Overlays.OnChange(s.surface.SetOverlays),
		chart.Markers.OnChange(s.surface.SetMarkers),
		chart.Viewport.OnChange(s.surface.SetVisibleRange),
		replay.NewSubscription(s.surface.SubscribeClick(s.OnChartClick)),
	)
	if s.deps.Trades != nil {
		s.subs = append(s.subs, chart.Highlight.AddListener(s.deps.Trades))
	}
	for _, l := range s.deps.Listeners {
		s.subs = append(s.subs, chart.Highlight.AddListener(l))
	}

	if s.symbol != "" {
		s.lastFetch = chart.Load(s.ctx, s.key())
	}
	return nil
}

func (s *Session) key() domain.SeriesKey {
	return domain.SeriesKey{Symbol: s.symbol, Interval: s.interval}
}

// do ejecuta fn en el loop y espera.
func (s *Session) do(ctx context.Context, fn func() error) error {
	var fnErr error
	err := s.loop.Do(ctx, func() {
		if s.closed {
			fnErr = ErrClosed
			return
		}
		fnErr = fn()
	})
	if err != nil {
		return err
	}
	return fnErr
}

// OnChartClick es el callback de click sobre una vela.
func (s *Session) OnChartClick(t time.Time) {
	s.post(func() { s.chart.Highlight.Select(t) })
}

// post encola fn sin esperar; se ignora si la sesión ya se cerró.
func (s *Session) post(fn func()) {
	s.loop.Post(func() {
		if !s.closed {
			fn()
		}
	})
}

// OnClickTrade es el callback de click sobre una fila de la lista de trades.
func (s *Session) OnClickTrade(t time.Time) {
	s.post(func() { s.chart.Highlight.Select(t) })
}

// OnHoverTrade reenvía el hover de la lista; nil termina el hover.
func (s *Session) OnHoverTrade(t *time.Time) {
	s.post(func() {
		if t == nil {
			s.chart.Highlight.Unhover()
			return
		}
		s.chart.Highlight.Hover(*t)
	})
}

// SelectSymbol cambia de instrumento. El run visible se descarta, como al
// cambiar de instrumento en el panel.
func (s *Session) SelectSymbol(ctx context.Context, symbol string) (*replay.Ticket[replay.FetchResult], error) {
	var tk *replay.Ticket[replay.FetchResult]
	err := s.do(ctx, func() error {
		if symbol == "" {
			return errors.New("dashboard.SelectSymbol: empty symbol")
		}
		s.ctrl.Reset()
		s.symbol = symbol
		tk = s.chart.Load(s.ctx, s.key())
		s.lastFetch = tk
		return nil
	})
	return tk, err
}

// SetInterval cambia entre velas diarias y de minuto.
func (s *Session) SetInterval(ctx context.Context, iv domain.Interval) (*replay.Ticket[replay.FetchResult], error) {
	var tk *replay.Ticket[replay.FetchResult]
	err := s.do(ctx, func() error {
		if s.symbol == "" {
			return errors.New("dashboard.SetInterval: no symbol selected")
		}
		s.interval = iv
		tk = s.chart.Load(s.ctx, s.key())
		s.lastFetch = tk
		return nil
	})
	return tk, err
}

// Reload vuelve a pedir la serie actual.
func (s *Session) Reload(ctx context.Context) (*replay.Ticket[replay.FetchResult], error) {
	var tk *replay.Ticket[replay.FetchResult]
	err := s.do(ctx, func() error {
		if s.symbol == "" {
			return errors.New("dashboard.Reload: no symbol selected")
		}
		tk = s.chart.Load(s.ctx, s.key())
		s.lastFetch = tk
		return nil
	})
	return tk, err
}

// LastFetch devuelve el ticket de la última carga emitida (nil si ninguna).
func (s *Session) LastFetch(ctx context.Context) *replay.Ticket[replay.FetchResult] {
	var tk *replay.Ticket[replay.FetchResult]
	_ = s.do(ctx, func() error {
		tk = s.lastFetch
		return nil
	})
	return tk
}

// ToggleOverlay muestra u oculta la media móvil de la ventana indicada.
func (s *Session) ToggleOverlay(ctx context.Context, window int, on bool) error {
	return s.do(ctx, func() error {
		return s.chart.Overlays.Toggle(window, on)
	})
}

// LoadStrategies trae el catálogo del backend.
func (s *Session) LoadStrategies(ctx context.Context) error {
	all, err := s.deps.Backend.GetStrategies(ctx)
	if err != nil {
		return fmt.Errorf("dashboard.LoadStrategies: %w", err)
	}
	return s.do(ctx, func() error {
		s.strategies = all
		return nil
	})
}

// Strategies devuelve el catálogo filtrado por modo.
func (s *Session) Strategies(ctx context.Context, mode domain.StrategyMode) ([]domain.Strategy, error) {
	var out []domain.Strategy
	err := s.do(ctx, func() error {
		out = domain.FilterStrategies(s.strategies, mode)
		return nil
	})
	return out, err
}

// SelectStrategy elige la estrategia e inyecta sus parámetros por defecto.
func (s *Session) SelectStrategy(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		st, ok := domain.FindStrategy(s.strategies, id)
		if !ok {
			return fmt.Errorf("dashboard.SelectStrategy: %w: %s", ErrUnknownStrategy, id)
		}
		s.settings.StrategyID = st.ID
		s.settings.Params = st.DefaultParams
		return nil
	})
}

// Settings devuelve el formulario de ajustes pendiente.
func (s *Session) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.do(ctx, func() error {
		out = s.settings
		return nil
	})
	return out, err
}

// UpdateSettings aplica fn sobre el formulario de ajustes.
func (s *Session) UpdateSettings(ctx context.Context, fn func(*Settings)) error {
	return s.do(ctx, func() error {
		fn(&s.settings)
		return nil
	})
}

// RunBacktest envía los ajustes actuales. Con un run en vuelo devuelve
// ErrRunInFlight.
func (s *Session) RunBacktest(ctx context.Context) (*replay.Ticket[backtest.Outcome], error) {
	var tk *replay.Ticket[backtest.Outcome]
	err := s.do(ctx, func() error {
		if s.ctrl.Busy() {
			return ErrRunInFlight
		}
		req, err := s.settings.Request(s.symbol, s.interval, s.strategies)
		if err != nil {
			return fmt.Errorf("dashboard.RunBacktest: %w", err)
		}
		tk, err = s.ctrl.Start(s.ctx, req)
		return err
	})
	return tk, err
}

// ResetBacktest descarta el resultado y vuelve a Idle.
func (s *Session) ResetBacktest(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.ctrl.Reset()
		return nil
	})
}

// Snapshot devuelve una vista de solo lectura de todo el estado.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Symbol:   s.symbol,
		Interval: s.interval,
		Series:   s.chart.Store.Current(),
		Version:  s.chart.Store.Version(),
		Token:    s.chart.Fetcher.Token(s.key()),
		Overlays: s.chart.Overlays.Current(),
		Markers:  s.chart.Markers.Current(),
		Visible:  s.chart.Viewport.Range(),
		State:    s.ctrl.State(),
		LastErr:  s.ctrl.LastError(),
		Settings: s.settings,
	}
	if t, ok := s.chart.Highlight.Selected(); ok {
		snap.Selected = &t
	}
	if run, err := s.ctrl.Run(); err == nil {
		snap.Run = &run
	}
	return snap
}

// Close libera las suscripciones en orden inverso y después la superficie.
// Es idempotente.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		release := func() {
			s.closed = true
			for i := len(s.subs) - 1; i >= 0; i-- {
				s.subs[i].Release()
			}
			s.subs = nil
			s.chart.Close()
		}
		// si el loop ya terminó nadie más toca el estado
		if err := s.loop.Do(context.Background(), release); errors.Is(err, replay.ErrLoopClosed) {
			release()
		}
		s.closeErr = s.surface.Close()
		slog.Info("dashboard: session closed", "symbol", s.symbol)
	})
	return s.closeErr
}
