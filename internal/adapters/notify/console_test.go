package notify_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/chartsync/internal/adapters/notify"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.UTC)
}

func sampleTrades() []domain.TradeEvent {
	return []domain.TradeEvent{
		{Time: at(9, 15, 30), Side: domain.SideBuy, Price: 72000, Quantity: 10, Reason: "golden cross"},
		{Time: at(12, 15, 30), Side: domain.SideSell, Price: 74280, Quantity: 10, Reason: "take profit", PnLPercent: 3.17},
	}
}

func TestTradeList_ShowTradesPrintsRows(t *testing.T) {
	var buf bytes.Buffer
	l := notify.NewTradeListWriter(&buf)

	l.ShowTrades(sampleTrades(), domain.IntervalDaily)

	out := buf.String()
	assert.Contains(t, out, "2 trades (daily)")
	assert.Contains(t, out, "2024-01-09")
	assert.Contains(t, out, "72,000")
	assert.Contains(t, out, "+3.17%")
	assert.NotContains(t, out, ">")
}

func TestTradeList_SelectMarksRow(t *testing.T) {
	var buf bytes.Buffer
	l := notify.NewTradeListWriter(&buf)
	l.ShowTrades(sampleTrades(), domain.IntervalDaily)
	buf.Reset()

	l.OnSelect(time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, l.Selected())

	var marked string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, ">") {
			marked = line
		}
	}
	assert.Contains(t, marked, "SELL")

	l.OnClear()
	assert.Equal(t, -1, l.Selected())
}

func TestTradeList_SelectWithoutTradeDoesNotPrint(t *testing.T) {
	var buf bytes.Buffer
	l := notify.NewTradeListWriter(&buf)
	l.ShowTrades(sampleTrades(), domain.IntervalDaily)
	buf.Reset()

	l.OnSelect(at(10, 0, 0))
	assert.Equal(t, -1, l.Selected())
	assert.Empty(t, buf.String())
}

func TestTradeList_HoverIsTracked(t *testing.T) {
	l := notify.NewTradeListWriter(&bytes.Buffer{})
	l.ShowTrades(sampleTrades(), domain.IntervalDaily)

	ts := at(9, 0, 0)
	l.OnHover(&ts)
	assert.Equal(t, 0, l.Hovered())
	l.OnHover(nil)
	assert.Equal(t, -1, l.Hovered())
}

func TestTradeList_EmptyShowClearsSilently(t *testing.T) {
	var buf bytes.Buffer
	l := notify.NewTradeListWriter(&buf)
	l.ShowTrades(nil, domain.IntervalDaily)
	assert.Empty(t, buf.String())

	_, _, ok := l.Lookup(at(9, 0, 0))
	assert.False(t, ok)
}

func TestDetailLog_PrintsSelectedTrade(t *testing.T) {
	l := notify.NewTradeListWriter(&bytes.Buffer{})
	l.ShowTrades(sampleTrades(), domain.IntervalDaily)

	var buf bytes.Buffer
	d := notify.NewDetailLog(&buf, l)

	d.OnSelect(at(12, 0, 0))
	out := buf.String()
	assert.Contains(t, out, "SELL")
	assert.Contains(t, out, "742,800")
	assert.Contains(t, out, "take profit")

	buf.Reset()
	d.OnSelect(at(20, 0, 0))
	assert.Contains(t, buf.String(), "no trade")
}

func TestResultPanel_ShowResult(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewResultPanel(&buf, 0)

	mdd := 4.2
	run := domain.NewBacktestRun("005930", "S1", "{}", at(1, 0, 0), at(31, 0, 0), nil, sampleTrades(),
		domain.Summary{FinalBalance: 10_254_300, TotalReturnPercent: 2.543, TotalTrades: 2, MaxDrawdown: &mdd})
	p.ShowResult(run)

	out := buf.String()
	assert.Contains(t, out, "BACKTEST S1 005930")
	assert.Contains(t, out, "+2.54%")
	assert.Contains(t, out, "10,254,300")
	assert.Contains(t, out, "254,300")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "4.20%")

	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, "S1", last.StrategyID)

	p.ClearResult()
	_, ok = p.Last()
	assert.False(t, ok)
}

func TestResultPanel_ShowResultWithLoss(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewResultPanel(&buf, 0)

	run := domain.NewBacktestRun("005930", "S1", "{}", at(1, 0, 0), at(31, 0, 0), nil, nil,
		domain.Summary{FinalBalance: 9_499_999.6, TotalReturnPercent: -5})
	p.ShowResult(run)

	out := buf.String()
	assert.Contains(t, out, "-5.00%")
	assert.Contains(t, out, "9,500,000")
	assert.Contains(t, out, "-500,000")
}

func TestResultPanel_ShowFailure(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewResultPanel(&buf, 1000)

	p.ShowFailure(errors.New("server error 500"))
	assert.Contains(t, buf.String(), "backtest failed: server error 500")
	assert.EqualError(t, p.Failure(), "server error 500")
}

func TestStatusPanel_PrintsOnlyOnChange(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewStatusPanel(&buf)

	p.ShowKillSwitch(false)
	p.ShowKillSwitch(false)
	p.ShowKillSwitch(true)
	p.ShowScheduler(domain.SchedulerStatus{Enabled: true})
	p.ShowScheduler(domain.SchedulerStatus{Enabled: true})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "kill switch: off"))
	assert.Equal(t, 1, strings.Count(out, "kill switch: ACTIVE"))
	assert.Equal(t, 1, strings.Count(out, "scheduler: enabled=true running=false"))
}
