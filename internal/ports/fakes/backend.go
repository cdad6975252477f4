// Package fakes contiene implementaciones en memoria de los ports para tests.
package fakes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

// CallTimeout es cuánto espera NextCandleCall/NextRunCall antes de fallar el test.
const CallTimeout = 2 * time.Second

type candleReply struct {
	candles []domain.Candle
	err     error
}

// CandleCall es una llamada a GetCandles pendiente de respuesta.
type CandleCall struct {
	Symbol   string
	Interval domain.Interval
	reply    chan candleReply
}

// Respond resuelve la llamada.
func (c *CandleCall) Respond(candles []domain.Candle, err error) {
	c.reply <- candleReply{candles: candles, err: err}
}

type runReply struct {
	run domain.BacktestRun
	err error
}

// RunCall es una llamada a RunBacktest pendiente de respuesta.
type RunCall struct {
	Req   domain.RunRequest
	reply chan runReply
}

// Respond resuelve la llamada.
func (c *RunCall) Respond(run domain.BacktestRun, err error) {
	c.reply <- runReply{run: run, err: err}
}

// Backend es un ports.Backend controlado por el test: GetCandles y RunBacktest
// se bloquean hasta que el test responde, salvo que AutoCandles/AutoRun estén
// definidos.
type Backend struct {
	CandleCalls chan *CandleCall
	RunCalls    chan *RunCall

	AutoCandles func(symbol string, iv domain.Interval) ([]domain.Candle, error)
	AutoRun     func(req domain.RunRequest) (domain.BacktestRun, error)

	mu            sync.Mutex
	strategies    []domain.Strategy
	strategiesErr error
	killSwitch    bool
	scheduler     domain.SchedulerStatus
	statusErr     error
	statusCalls   int
}

// NewBackend crea un backend sin respuestas automáticas.
func NewBackend() *Backend {
	return &Backend{
		CandleCalls: make(chan *CandleCall, 32),
		RunCalls:    make(chan *RunCall, 32),
	}
}

func (b *Backend) GetCandles(ctx context.Context, symbol string, iv domain.Interval) ([]domain.Candle, error) {
	if b.AutoCandles != nil {
		return b.AutoCandles(symbol, iv)
	}
	call := &CandleCall{Symbol: symbol, Interval: iv, reply: make(chan candleReply, 1)}
	b.CandleCalls <- call
	select {
	case r := <-call.reply:
		return r.candles, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Backend) RunBacktest(ctx context.Context, req domain.RunRequest) (domain.BacktestRun, error) {
	if b.AutoRun != nil {
		return b.AutoRun(req)
	}
	call := &RunCall{Req: req, reply: make(chan runReply, 1)}
	b.RunCalls <- call
	select {
	case r := <-call.reply:
		return r.run, r.err
	case <-ctx.Done():
		return domain.BacktestRun{}, ctx.Err()
	}
}

// SetStrategies fija la respuesta de GetStrategies.
func (b *Backend) SetStrategies(s []domain.Strategy, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strategies, b.strategiesErr = s, err
}

func (b *Backend) GetStrategies(context.Context) ([]domain.Strategy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Strategy(nil), b.strategies...), b.strategiesErr
}

// SetStatus fija las respuestas de KillSwitchStatus y SchedulerStatus.
func (b *Backend) SetStatus(killSwitch bool, scheduler domain.SchedulerStatus, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killSwitch, b.scheduler, b.statusErr = killSwitch, scheduler, err
}

func (b *Backend) KillSwitchStatus(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls++
	return b.killSwitch, b.statusErr
}

func (b *Backend) SchedulerStatus(context.Context) (domain.SchedulerStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls++
	return b.scheduler, b.statusErr
}

// StatusCalls cuenta las llamadas a los endpoints de estado.
func (b *Backend) StatusCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusCalls
}

// NextCandleCall espera la siguiente llamada a GetCandles.
func (b *Backend) NextCandleCall(t testing.TB) *CandleCall {
	t.Helper()
	select {
	case c := <-b.CandleCalls:
		return c
	case <-time.After(CallTimeout):
		t.Fatal("timed out waiting for GetCandles")
		return nil
	}
}

// NextRunCall espera la siguiente llamada a RunBacktest.
func (b *Backend) NextRunCall(t testing.TB) *RunCall {
	t.Helper()
	select {
	case c := <-b.RunCalls:
		return c
	case <-time.After(CallTimeout):
		t.Fatal("timed out waiting for RunBacktest")
		return nil
	}
}
