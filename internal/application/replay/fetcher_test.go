package replay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports/fakes"
)

var (
	samsungDaily  = domain.SeriesKey{Symbol: "005930", Interval: domain.IntervalDaily}
	samsungMinute = domain.SeriesKey{Symbol: "005930", Interval: domain.IntervalMinute}
	hynixDaily    = domain.SeriesKey{Symbol: "000660", Interval: domain.IntervalDaily}
)

func newFetcher(t *testing.T) (*replay.Loop, *replay.Store, *replay.Fetcher, *fakes.Backend) {
	t.Helper()
	loop := startLoop(t)
	backend := fakes.NewBackend()
	store := replay.NewStore()
	return loop, store, replay.NewFetcher(loop, store, backend), backend
}

func TestFetcher_LastIssuedWinsOverLastReceived(t *testing.T) {
	loop, store, f, backend := newFetcher(t)
	ctx := context.Background()

	var first, second *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { first = f.Fetch(ctx, samsungDaily) })
	callA := backend.NextCandleCall(t)
	on(t, loop, func() { second = f.Fetch(ctx, samsungDaily) })
	callB := backend.NextCandleCall(t)

	callB.Respond(dailyCandles(map[string]float64{"2024-01-02": 200}), nil)
	resB := wait(t, second)
	assert.True(t, resB.Applied)

	callA.Respond(dailyCandles(map[string]float64{"2024-01-01": 100}), nil)
	resA := wait(t, first)
	assert.True(t, resA.Stale)
	assert.False(t, resA.Applied)

	on(t, loop, func() {
		cur := store.Current()
		require.Len(t, cur.Candles, 1)
		assert.Equal(t, 200.0, cur.Candles[0].Close)
		assert.Equal(t, uint64(2), f.Token(samsungDaily))
	})
}

func TestFetcher_StaleEvenWhenOlderArrivesFirst(t *testing.T) {
	loop, store, f, backend := newFetcher(t)
	ctx := context.Background()

	var first, second *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { first = f.Fetch(ctx, samsungDaily) })
	callA := backend.NextCandleCall(t)
	on(t, loop, func() { second = f.Fetch(ctx, samsungDaily) })
	callB := backend.NextCandleCall(t)

	callA.Respond(dailyCandles(map[string]float64{"2024-01-01": 100}), nil)
	assert.True(t, wait(t, first).Stale)
	on(t, loop, func() { assert.Equal(t, 0, store.Current().Len()) })

	callB.Respond(dailyCandles(map[string]float64{"2024-01-02": 200}), nil)
	assert.True(t, wait(t, second).Applied)
}

func TestFetcher_AbandonedSelectionIsDiscarded(t *testing.T) {
	loop, store, f, backend := newFetcher(t)
	ctx := context.Background()

	var first *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { first = f.Fetch(ctx, samsungDaily) })
	callA := backend.NextCandleCall(t)
	on(t, loop, func() { f.Fetch(ctx, hynixDaily) })
	backend.NextCandleCall(t)

	callA.Respond(dailyCandles(map[string]float64{"2024-01-01": 100}), nil)
	assert.True(t, wait(t, first).Stale)

	on(t, loop, func() {
		assert.Equal(t, hynixDaily, store.Key())
		assert.Equal(t, 0, store.Current().Len())
	})
}

func TestFetcher_FailureKeepsPreviousSeries(t *testing.T) {
	loop, store, f, backend := newFetcher(t)
	ctx := context.Background()

	var tk *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { tk = f.Fetch(ctx, samsungDaily) })
	backend.NextCandleCall(t).Respond(dailyCandles(map[string]float64{"2024-01-01": 1, "2024-01-02": 2}), nil)
	require.True(t, wait(t, tk).Applied)

	var version uint64
	on(t, loop, func() {
		version = store.Version()
		tk = f.Fetch(ctx, samsungDaily)
	})
	boom := errors.New("backend down")
	backend.NextCandleCall(t).Respond(nil, boom)
	res := wait(t, tk)

	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.Applied)
	on(t, loop, func() {
		assert.Equal(t, version, store.Version())
		assert.Equal(t, 2, store.Current().Len())
	})
}

func TestFetcher_FirstLoadFailureLeavesEmpty(t *testing.T) {
	loop, store, f, backend := newFetcher(t)
	ctx := context.Background()

	var tk *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { tk = f.Fetch(ctx, samsungDaily) })
	backend.NextCandleCall(t).Respond(dailyCandles(map[string]float64{"2024-01-01": 1}), nil)
	wait(t, tk)

	on(t, loop, func() { tk = f.Fetch(ctx, samsungMinute) })
	backend.NextCandleCall(t).Respond(nil, errors.New("timeout"))
	res := wait(t, tk)

	require.Error(t, res.Err)
	on(t, loop, func() {
		assert.Equal(t, samsungMinute, store.Key())
		assert.Equal(t, 0, store.Current().Len(), "never shows another pair's data")
	})
}

func TestFetcher_NormalizesUnorderedResponse(t *testing.T) {
	loop, store, f, backend := newFetcher(t)

	var tk *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { tk = f.Fetch(context.Background(), samsungDaily) })
	backend.NextCandleCall(t).Respond([]domain.Candle{
		{Time: day("2024-01-03"), Close: 3},
		{Time: day("2024-01-01"), Close: 1},
		{Time: day("2024-01-03"), Close: 4},
	}, nil)
	assert.Equal(t, 2, wait(t, tk).Candles)

	on(t, loop, func() {
		cur := store.Current()
		assert.Equal(t, day("2024-01-01"), cur.Candles[0].Time)
		assert.Equal(t, 4.0, cur.Candles[1].Close)
	})
}

func TestFetcher_AdoptInvalidatesInFlight(t *testing.T) {
	loop, store, f, backend := newFetcher(t)

	var tk *replay.Ticket[replay.FetchResult]
	on(t, loop, func() { tk = f.Fetch(context.Background(), samsungDaily) })
	call := backend.NextCandleCall(t)

	on(t, loop, func() {
		f.Adopt(samsungDaily, dailyCandles(map[string]float64{"2024-03-01": 7}))
	})
	call.Respond(dailyCandles(map[string]float64{"2024-01-01": 1}), nil)
	assert.True(t, wait(t, tk).Stale)

	on(t, loop, func() {
		cur := store.Current()
		require.Len(t, cur.Candles, 1)
		assert.Equal(t, 7.0, cur.Candles[0].Close)
	})
}
