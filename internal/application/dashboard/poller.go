package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/chartsync/internal/ports"
)

// Intervalos de los paneles de estado.
const (
	DefaultKillSwitchEvery = 5 * time.Second
	DefaultSchedulerEvery  = 10 * time.Second
)

// Poller refresca los paneles de kill switch y scheduler a intervalo fijo, sin
// backoff ni jitter. No toca el estado del gráfico.
type Poller struct {
	status          ports.StatusProvider
	view            ports.StatusView
	killSwitchEvery time.Duration
	schedulerEvery  time.Duration
}

// NewPoller crea el poller. Intervalos no positivos usan los defaults.
func NewPoller(status ports.StatusProvider, view ports.StatusView, killSwitchEvery, schedulerEvery time.Duration) *Poller {
	if killSwitchEvery <= 0 {
		killSwitchEvery = DefaultKillSwitchEvery
	}
	if schedulerEvery <= 0 {
		schedulerEvery = DefaultSchedulerEvery
	}
	return &Poller{
		status:          status,
		view:            view,
		killSwitchEvery: killSwitchEvery,
		schedulerEvery:  schedulerEvery,
	}
}

// Run consulta ambos estados de inmediato y luego en cada tick, hasta que ctx
// se cancela. Un error se registra y el loop sigue.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, p.killSwitchEvery, "kill_switch", p.pollKillSwitch)
	})
	g.Go(func() error {
		return every(ctx, p.schedulerEvery, "scheduler", p.pollScheduler)
	})
	return g.Wait()
}

func (p *Poller) pollKillSwitch(ctx context.Context) error {
	active, err := p.status.KillSwitchStatus(ctx)
	if err != nil {
		return err
	}
	p.view.ShowKillSwitch(active)
	return nil
}

func (p *Poller) pollScheduler(ctx context.Context) error {
	st, err := p.status.SchedulerStatus(ctx)
	if err != nil {
		return err
	}
	p.view.ShowScheduler(st)
	return nil
}

func every(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) error {
	tick := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("poller: status fetch failed", "panel", name, "err", err)
		}
	}
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick()
		}
	}
}
