package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// DefaultInitialBalance es el capital inicial con el que el backend corre los backtests.
const DefaultInitialBalance = 10_000_000

// ResultPanel implementa ports.ResultView con una tabla de KPIs.
type ResultPanel struct {
	mu      sync.Mutex
	out     io.Writer
	initial float64
	last    *domain.BacktestRun
	failure error
}

// NewResultPanel crea el panel; initial <= 0 usa DefaultInitialBalance.
func NewResultPanel(w io.Writer, initial float64) *ResultPanel {
	if initial <= 0 {
		initial = DefaultInitialBalance
	}
	return &ResultPanel{out: w, initial: initial}
}

func (p *ResultPanel) ShowResult(run domain.BacktestRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &run
	p.failure = nil

	s := run.Summary
	mdd := "-"
	if s.MaxDrawdown != nil {
		mdd = fmt.Sprintf("%.2f%%", *s.MaxDrawdown)
	}

	fmt.Fprintf(p.out, "\n=== BACKTEST %s %s (%s → %s) ===\n", run.StrategyID, run.Symbol,
		run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))

	table := tablewriter.NewWriter(p.out)
	table.Header("Return", "Final balance", "Net profit", "Trades", "Win rate", "MDD")
	table.Append(
		fmt.Sprintf("%+.2f%%", s.TotalReturnPercent),
		money(s.FinalBalance),
		money(s.NetProfit(p.initial)),
		fmt.Sprintf("%d", s.TotalTrades),
		fmt.Sprintf("%.1f%%", s.EffectiveWinRate(run.Trades())),
		mdd,
	)
	table.Render()
}

func (p *ResultPanel) ShowFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
	p.failure = err
	fmt.Fprintf(p.out, "\n  backtest failed: %v\n", err)
}

func (p *ResultPanel) ClearResult() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
	p.failure = nil
}

// Last devuelve el último run mostrado.
func (p *ResultPanel) Last() (domain.BacktestRun, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return domain.BacktestRun{}, false
	}
	return *p.last, true
}

// Failure devuelve el último error mostrado.
func (p *ResultPanel) Failure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}
