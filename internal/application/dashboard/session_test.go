package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/chartsync/internal/application/backtest"
	"github.com/alejandrodnm/chartsync/internal/application/dashboard"
	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
	"github.com/alejandrodnm/chartsync/internal/ports/fakes"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func daily(from time.Time, n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		c := float64(100 + i)
		out[i] = domain.Candle{Time: from.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

type env struct {
	loop    *replay.Loop
	backend *fakes.Backend
	surface *fakes.Surface
	views   *fakes.Recorder
	detail  *fakes.Recorder
	session *dashboard.Session
}

func openSession(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := replay.NewLoop()
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})

	backend := fakes.NewBackend()
	backend.SetStrategies([]domain.Strategy{
		{ID: "S1", Name: "Golden cross", DefaultParams: `{"short":5,"long":20}`},
		{ID: "S5", Name: "Opening range", DefaultParams: `{"minutes":30}`},
	}, nil)
	e := &env{
		loop:    loop,
		backend: backend,
		surface: fakes.NewSurface(),
		views:   &fakes.Recorder{},
		detail:  &fakes.Recorder{},
	}

	s, err := dashboard.Open(ctx, loop, dashboard.Deps{
		Backend:   backend,
		Opener:    &fakes.Opener{Surface: e.surface},
		Trades:    e.views,
		Results:   e.views,
		Listeners: []ports.HighlightListener{e.detail},
	}, dashboard.Options{
		Title:    "005930",
		Symbol:   "005930",
		Interval: domain.IntervalDaily,
		Settings: dashboard.Settings{StrategyID: "S1", Start: "2024-01-01", End: "2024-03-31"},
	})
	require.NoError(t, err)
	e.session = s
	t.Cleanup(func() { _ = s.Close() })
	return e
}

func waitTicket[R any](t *testing.T, tk *replay.Ticket[R]) R {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := tk.Wait(ctx)
	require.NoError(t, err)
	return r
}

func snapshot(t *testing.T, s *dashboard.Session) dashboard.Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func TestSession_InitialLoadPushesToSurface(t *testing.T) {
	e := openSession(t)
	call := e.backend.NextCandleCall(t)
	assert.Equal(t, "005930", call.Symbol)
	assert.Equal(t, domain.IntervalDaily, call.Interval)
	call.Respond(daily(day("2024-01-01"), 91), nil)

	res := waitTicket(t, e.session.LastFetch(context.Background()))
	require.True(t, res.Applied)

	snap := snapshot(t, e.session)
	assert.Equal(t, 91, snap.Series.Len())
	assert.Equal(t, domain.TimeRange{From: day("2024-01-01"), To: day("2024-03-31")}, snap.Visible)

	assert.Equal(t, 91, e.surface.Series().Len())
	assert.Equal(t, snap.Visible, e.surface.Visible())
	require.Len(t, e.surface.Overlays(), 2)
	assert.Len(t, e.surface.Overlays()[0].Points, 72)
}

func TestSession_ChartClickSelectsAndFocuses(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(daily(day("2024-01-01"), 91), nil)
	waitTicket(t, e.session.LastFetch(context.Background()))

	e.surface.Click(day("2024-02-15"))

	snap := snapshot(t, e.session)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, day("2024-02-15"), *snap.Selected)
	assert.Equal(t, domain.TimeRange{From: day("2024-01-16"), To: day("2024-02-25")}, snap.Visible)
	assert.Equal(t, snap.Visible, e.surface.Visible())
	assert.Contains(t, e.views.Events(), "select 2024-02-15T00:00:00Z")
	assert.Contains(t, e.detail.Events(), "select 2024-02-15T00:00:00Z")
}

func TestSession_TradeClickAndHover(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(daily(day("2024-01-01"), 91), nil)
	waitTicket(t, e.session.LastFetch(context.Background()))

	hover := day("2024-01-10")
	e.session.OnHoverTrade(&hover)
	e.session.OnHoverTrade(nil)
	e.session.OnClickTrade(day("2024-03-01"))

	snap := snapshot(t, e.session)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, day("2024-03-01"), *snap.Selected)
	assert.Equal(t, []string{
		"hover 2024-01-10T00:00:00Z",
		"unhover",
		"select 2024-03-01T00:00:00Z",
	}, e.detail.Events())
}

func TestSession_RapidSymbolSwitchKeepsLastSelection(t *testing.T) {
	e := openSession(t)
	ctx := context.Background()
	initial := e.backend.NextCandleCall(t)
	initialTk := e.session.LastFetch(ctx)

	hynixTk, err := e.session.SelectSymbol(ctx, "000660")
	require.NoError(t, err)
	hynix := e.backend.NextCandleCall(t)
	naverTk, err := e.session.SelectSymbol(ctx, "035420")
	require.NoError(t, err)
	naver := e.backend.NextCandleCall(t)

	naver.Respond(daily(day("2024-05-01"), 10), nil)
	assert.True(t, waitTicket(t, naverTk).Applied)
	hynix.Respond(daily(day("2024-01-01"), 50), nil)
	assert.True(t, waitTicket(t, hynixTk).Stale)
	initial.Respond(daily(day("2023-01-01"), 30), nil)
	assert.True(t, waitTicket(t, initialTk).Stale)

	snap := snapshot(t, e.session)
	assert.Equal(t, "035420", snap.Series.Key.Symbol)
	assert.Equal(t, 10, snap.Series.Len())
	assert.Equal(t, 10, e.surface.Series().Len())
}

func TestSession_RunBacktestFlow(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(daily(day("2024-01-01"), 91), nil)
	waitTicket(t, e.session.LastFetch(context.Background()))

	ctx := context.Background()
	require.NoError(t, e.session.LoadStrategies(ctx))
	require.NoError(t, e.session.SelectStrategy(ctx, "S1"))

	tk, err := e.session.RunBacktest(ctx)
	require.NoError(t, err)

	_, err = e.session.RunBacktest(ctx)
	assert.ErrorIs(t, err, dashboard.ErrRunInFlight)

	call := e.backend.NextRunCall(t)
	assert.Equal(t, `{"short":5,"long":20}`, call.Req.Params)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), call.Req.End)

	trades := []domain.TradeEvent{
		{Time: time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC), Side: domain.SideBuy, Price: 109, Quantity: 10},
		{Time: time.Date(2024, 2, 10, 15, 30, 0, 0, time.UTC), Side: domain.SideSell, Price: 140, Quantity: 10, PnLPercent: 28.4},
	}
	call.Respond(domain.NewBacktestRun("005930", "S1", call.Req.Params, call.Req.Start, call.Req.End,
		nil, trades, domain.Summary{FinalBalance: 10_000_310, TotalTrades: 2}), nil)
	out := waitTicket(t, tk)
	require.NoError(t, out.Err)

	snap := snapshot(t, e.session)
	assert.Equal(t, backtest.StateResult, snap.State)
	require.NotNil(t, snap.Run)
	require.Len(t, snap.Markers, 2)
	assert.Len(t, e.surface.Markers(), 2)
	assert.Equal(t, 91, snap.Series.Len(), "run without candles keeps the fetched series")

	require.NoError(t, e.session.ResetBacktest(ctx))
	snap = snapshot(t, e.session)
	assert.Equal(t, backtest.StateIdle, snap.State)
	assert.Empty(t, snap.Markers)
	assert.Empty(t, e.surface.Markers())
}

func TestSession_SelectSymbolDiscardsRun(t *testing.T) {
	e := openSession(t)
	e.backend.AutoRun = func(req domain.RunRequest) (domain.BacktestRun, error) {
		return domain.NewBacktestRun(req.Symbol, req.StrategyID, req.Params, req.Start, req.End,
			daily(day("2024-01-01"), 5), nil, domain.Summary{}), nil
	}
	e.backend.NextCandleCall(t).Respond(nil, nil)

	ctx := context.Background()
	tk, err := e.session.RunBacktest(ctx)
	require.NoError(t, err)
	require.NoError(t, waitTicket(t, tk).Err)
	assert.Equal(t, backtest.StateResult, snapshot(t, e.session).State)

	_, err = e.session.SelectSymbol(ctx, "000660")
	require.NoError(t, err)
	snap := snapshot(t, e.session)
	assert.Equal(t, backtest.StateIdle, snap.State)
	assert.Nil(t, snap.Run)
	assert.Equal(t, 0, snap.Series.Len())
}

func TestSession_IntradayStrategyRunsOnMinutes(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(nil, nil)

	ctx := context.Background()
	require.NoError(t, e.session.LoadStrategies(ctx))

	intraday, err := e.session.Strategies(ctx, domain.ModeIntraday)
	require.NoError(t, err)
	require.Len(t, intraday, 1)
	assert.Equal(t, "S5", intraday[0].ID)

	require.NoError(t, e.session.SelectStrategy(ctx, "S5"))
	require.NoError(t, e.session.UpdateSettings(ctx, func(s *dashboard.Settings) {
		s.Start = "2024-12-13T09:00"
		s.End = "2024-12-13T15:30"
	}))
	_, err = e.session.RunBacktest(ctx)
	require.NoError(t, err)

	call := e.backend.NextRunCall(t)
	assert.Equal(t, domain.IntervalMinute, call.Req.Interval)
	assert.Equal(t, time.Date(2024, 12, 13, 15, 30, 59, 0, time.UTC), call.Req.End)

	assert.ErrorIs(t, e.session.SelectStrategy(ctx, "S9"), dashboard.ErrUnknownStrategy)
}

func TestSession_FailedRunSurfacesError(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(nil, nil)

	tk, err := e.session.RunBacktest(context.Background())
	require.NoError(t, err)
	e.backend.NextRunCall(t).Respond(domain.BacktestRun{}, errors.New("500 internal"))
	assert.Error(t, waitTicket(t, tk).Err)

	snap := snapshot(t, e.session)
	assert.Equal(t, backtest.StateIdle, snap.State)
	assert.Error(t, snap.LastErr)
	assert.Contains(t, e.views.Events(), "failure")
}

func TestSession_ToggleOverlay(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(daily(day("2024-01-01"), 30), nil)
	waitTicket(t, e.session.LastFetch(context.Background()))

	require.NoError(t, e.session.ToggleOverlay(context.Background(), 5, true))
	assert.Len(t, e.surface.Overlays(), 3)
	require.NoError(t, e.session.ToggleOverlay(context.Background(), 60, false))
	assert.Len(t, e.surface.Overlays(), 2)
	assert.Error(t, e.session.ToggleOverlay(context.Background(), 13, true))
}

func TestSession_CloseReleasesEverything(t *testing.T) {
	e := openSession(t)
	e.backend.NextCandleCall(t).Respond(daily(day("2024-01-01"), 30), nil)
	waitTicket(t, e.session.LastFetch(context.Background()))
	require.Equal(t, 1, e.surface.ClickSubscribers())

	require.NoError(t, e.session.Close())
	require.NoError(t, e.session.Close())
	assert.Equal(t, 0, e.surface.ClickSubscribers())
	assert.True(t, e.surface.Closed())

	_, err := e.session.SetInterval(context.Background(), domain.IntervalMinute)
	assert.ErrorIs(t, err, dashboard.ErrClosed)
	_, err = e.session.Snapshot(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrClosed)
}

func TestOpen_SurfaceError(t *testing.T) {
	loop := replay.NewLoop()
	_, err := dashboard.Open(context.Background(), loop, dashboard.Deps{
		Backend: fakes.NewBackend(),
		Opener:  &fakes.Opener{Err: errors.New("no display")},
	}, dashboard.Options{Symbol: "005930"})
	assert.Error(t, err)
}
