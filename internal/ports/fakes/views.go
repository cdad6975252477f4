package fakes

import (
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// Recorder registra en orden las señales que recibe como vista. Implementa
// ports.TradeView, ports.ResultView y ports.StatusView.
type Recorder struct {
	mu     sync.Mutex
	events []string

	Trades     []domain.TradeEvent
	Result     *domain.BacktestRun
	Failure    error
	KillSwitch *bool
	Scheduler  *domain.SchedulerStatus
}

func (r *Recorder) record(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *Recorder) OnSelect(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("select %s", t.Format(time.RFC3339))
}

func (r *Recorder) OnClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("clear")
}

func (r *Recorder) OnHover(t *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		r.record("unhover")
		return
	}
	r.record("hover %s", t.Format(time.RFC3339))
}

func (r *Recorder) ShowTrades(trades []domain.TradeEvent, iv domain.Interval) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Trades = trades
	r.record("trades %d %s", len(trades), iv)
}

func (r *Recorder) ShowResult(run domain.BacktestRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = &run
	r.Failure = nil
	r.record("result %s", run.StrategyID)
}

func (r *Recorder) ShowFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = nil
	r.Failure = err
	r.record("failure")
}

func (r *Recorder) ClearResult() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = nil
	r.Failure = nil
	r.record("clear result")
}

func (r *Recorder) ShowKillSwitch(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.KillSwitch = &active
	r.record("kill switch %t", active)
}

func (r *Recorder) ShowScheduler(s domain.SchedulerStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scheduler = &s
	r.record("scheduler %t", s.Running)
}

// Events devuelve una copia del registro.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset vacía el registro.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
