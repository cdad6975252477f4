package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// ErrNoRun se devuelve al pedir el resultado cuando no hay ninguno visible.
var ErrNoRun = errors.New("no backtest result")

// State es el estado de la máquina de runs.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateResult
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateResult:
		return "result"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Outcome es el desenlace de un Start.
type Outcome struct {
	RequestID  string
	Generation uint64
	Run        *domain.BacktestRun
	Err        error
	Superseded bool // otro Start o un Reset llegó antes que la respuesta
}

// Views son las vistas que el controlador actualiza. Cualquiera puede ser nil.
type Views struct {
	Trades  ports.TradeView
	Results ports.ResultView
}

// Controller orquesta ajustes → envío → resultado → reset y es el dueño del
// BacktestRun activo. Solo se usa desde el loop.
//
// Cada Start incrementa una generación; solo se aplica la respuesta de la
// última. La llamada de red anterior no se aborta, solo se ignora.
type Controller struct {
	loop   *replay.Loop
	chart  *replay.Chart
	runner ports.BacktestRunner
	views  Views

	state   State
	gen     uint64
	req     *domain.RunRequest
	run     *domain.BacktestRun
	lastErr error
}

// NewController crea un controlador en Idle.
func NewController(loop *replay.Loop, chart *replay.Chart, runner ports.BacktestRunner, views Views) *Controller {
	return &Controller{
		loop:   loop,
		chart:  chart,
		runner: runner,
		views:  views,
	}
}

// Start valida req y lanza el run. La selección y el resultado previo se
// limpian en el acto, no al llegar la respuesta. Un Start con otro run en vuelo
// lo reemplaza.
func (c *Controller) Start(ctx context.Context, req domain.RunRequest) (*replay.Ticket[Outcome], error) {
	if err := req.Normalize(); err != nil {
		return nil, fmt.Errorf("backtest.Controller.Start: %w", err)
	}

	if c.state == StateRunning {
		slog.Info("backtest: superseding in-flight run", "previous", c.req.ID, "request", req.ID)
	}
	c.gen++
	gen := c.gen
	c.req = &req
	c.run = nil
	c.lastErr = nil
	c.state = StateRunning
	c.discardPresentation(req.Interval)

	slog.Info("backtest: submitted",
		"request", req.ID, "symbol", req.Symbol, "strategy", req.StrategyID,
		"start", domain.FormatDateTime(req.Start), "end", domain.FormatDateTime(req.End))

	ticket := replay.NewTicket[Outcome]()
	go func() {
		run, err := c.runner.RunBacktest(ctx, req)
		posted := c.loop.Post(func() {
			ticket.Resolve(c.complete(gen, req, run, err))
		})
		if !posted {
			ticket.Resolve(Outcome{RequestID: req.ID, Generation: gen, Err: replay.ErrLoopClosed})
		}
	}()
	return ticket, nil
}

// Reset descarta el resultado (o el run en vuelo) y vuelve a Idle.
func (c *Controller) Reset() {
	iv := domain.IntervalDaily
	if c.req != nil {
		iv = c.req.Interval
	}
	if c.state == StateRunning {
		slog.Info("backtest: abandoning in-flight run", "request", c.req.ID)
	}
	c.gen++
	c.state = StateIdle
	c.run = nil
	c.lastErr = nil
	c.discardPresentation(iv)
}

func (c *Controller) discardPresentation(iv domain.Interval) {
	c.chart.Highlight.Clear()
	c.chart.ClearRun()
	if c.views.Results != nil {
		c.views.Results.ClearResult()
	}
	if c.views.Trades != nil {
		c.views.Trades.ShowTrades(nil, iv)
	}
}

func (c *Controller) complete(gen uint64, req domain.RunRequest, run domain.BacktestRun, err error) Outcome {
	out := Outcome{RequestID: req.ID, Generation: gen}

	if gen != c.gen {
		slog.Info("backtest: ignoring superseded response", "request", req.ID, "err", err)
		out.Superseded = true
		return out
	}

	if err != nil {
		c.state = StateIdle
		c.lastErr = fmt.Errorf("backtest.Controller.Start: %s %s: %w", req.Symbol, req.StrategyID, err)
		slog.Warn("backtest: run failed", "request", req.ID, "err", err)
		if c.views.Results != nil {
			c.views.Results.ShowFailure(c.lastErr)
		}
		out.Err = c.lastErr
		return out
	}

	c.state = StateResult
	c.run = &run
	trades := run.Trades()
	c.chart.ShowRun(domain.SeriesKey{Symbol: req.Symbol, Interval: req.Interval}, run)
	if c.views.Trades != nil {
		c.views.Trades.ShowTrades(trades, req.Interval)
	}
	if c.views.Results != nil {
		c.views.Results.ShowResult(run)
	}

	slog.Info("backtest: completed",
		"request", req.ID, "trades", len(trades), "candles", len(run.Candles()),
		"return_pct", run.Summary.TotalReturnPercent)
	out.Run = &run
	return out
}

// State devuelve el estado actual.
func (c *Controller) State() State { return c.state }

// Busy indica que hay un run en vuelo. La shell lo usa para deshabilitar el envío.
func (c *Controller) Busy() bool { return c.state == StateRunning }

// Run devuelve el resultado visible.
func (c *Controller) Run() (domain.BacktestRun, error) {
	if c.state != StateResult || c.run == nil {
		return domain.BacktestRun{}, ErrNoRun
	}
	return *c.run, nil
}

// Request devuelve la última petición enviada.
func (c *Controller) Request() (domain.RunRequest, bool) {
	if c.req == nil {
		return domain.RunRequest{}, false
	}
	return *c.req, true
}

// LastError devuelve el motivo del último fallo, si el estado viene de uno.
func (c *Controller) LastError() error { return c.lastErr }

// Generation devuelve la generación del último Start o Reset.
func (c *Controller) Generation() uint64 { return c.gen }
