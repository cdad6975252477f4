package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// --- Interval ---

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("daily")
	require.NoError(t, err)
	assert.Equal(t, IntervalDaily, iv)

	iv, err = ParseInterval("MINUTE")
	require.NoError(t, err)
	assert.Equal(t, IntervalMinute, iv)

	_, err = ParseInterval("weekly")
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestInterval_Truncate(t *testing.T) {
	ts := time.Date(2024, 12, 13, 15, 30, 42, 0, time.UTC)
	assert.Equal(t, day("2024-12-13"), IntervalDaily.Truncate(ts))
	assert.Equal(t, time.Date(2024, 12, 13, 15, 30, 0, 0, time.UTC), IntervalMinute.Truncate(ts))
}

// --- Side ---

func TestSide_UnmarshalRejectsUnknown(t *testing.T) {
	var s Side
	require.NoError(t, json.Unmarshal([]byte(`"SELL"`), &s))
	assert.Equal(t, SideSell, s)

	err := json.Unmarshal([]byte(`"HOLD"`), &s)
	assert.ErrorIs(t, err, ErrUnknownSide)
}

func TestSide_MarshalZeroValueFails(t *testing.T) {
	_, err := Side(0).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownSide)
}

// --- Series ---

func TestNewSeries_SortsAndDedupesLastWins(t *testing.T) {
	key := SeriesKey{Symbol: "005930", Interval: IntervalDaily}
	in := []Candle{
		{Time: day("2024-01-03"), Close: 3},
		{Time: day("2024-01-01"), Close: 1},
		{Time: day("2024-01-03"), Close: 33},
	}
	s := NewSeries(key, in)

	require.Len(t, s.Candles, 2)
	assert.Equal(t, 1.0, s.Candles[0].Close)
	assert.Equal(t, 33.0, s.Candles[1].Close)
	assert.Equal(t, 3.0, in[0].Close, "input must not be modified")

	ext, ok := s.Extent()
	require.True(t, ok)
	assert.Equal(t, day("2024-01-01"), ext.From)
	assert.Equal(t, day("2024-01-03"), ext.To)

	i, ok := s.IndexOf(day("2024-01-03"))
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.IndexOf(day("2024-01-02"))
	assert.False(t, ok)
}

func TestSeries_EmptyExtent(t *testing.T) {
	_, ok := Series{}.Extent()
	assert.False(t, ok)
}

// --- Trades ---

func TestWinRate(t *testing.T) {
	trades := []TradeEvent{
		{Side: SideBuy},
		{Side: SideSell, PnLPercent: 2.5},
		{Side: SideBuy},
		{Side: SideSell, PnLPercent: -1},
		{Side: SideSell, PnLPercent: 0},
		{Side: SideSell, PnLPercent: 4},
	}
	assert.InDelta(t, 50.0, WinRate(trades), 1e-9)
}

func TestWinRate_NoSells(t *testing.T) {
	assert.Equal(t, 0.0, WinRate([]TradeEvent{{Side: SideBuy}}))
	assert.Equal(t, 0.0, WinRate(nil))
}

func TestMatchTrade_ExactThenBucket(t *testing.T) {
	trades := []TradeEvent{
		{Time: time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC), Side: SideBuy},
		{Time: time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC), Side: SideSell},
	}
	assert.Equal(t, 1, MatchTrade(trades, trades[1].Time, IntervalDaily))
	assert.Equal(t, 0, MatchTrade(trades, day("2024-01-02"), IntervalDaily))
	assert.Equal(t, -1, MatchTrade(trades, day("2024-01-03"), IntervalDaily))
	assert.Equal(t, -1, MatchTrade(trades, day("2024-01-02"), IntervalMinute))
}

func TestSummary_EffectiveWinRate(t *testing.T) {
	trades := []TradeEvent{{Side: SideSell, PnLPercent: 1}}
	assert.Equal(t, 100.0, Summary{}.EffectiveWinRate(trades))

	backend := 42.0
	assert.Equal(t, 42.0, Summary{WinRate: &backend}.EffectiveWinRate(trades))
	assert.Equal(t, 500.0, Summary{FinalBalance: 10_000_500}.NetProfit(10_000_000))
}

func TestBacktestRun_AccessorsReturnCopies(t *testing.T) {
	run := NewBacktestRun("005930", "S1", "{}", day("2024-01-01"), day("2024-02-01"),
		[]Candle{{Time: day("2024-01-02"), Close: 10}},
		[]TradeEvent{
			{Time: day("2024-01-05"), Side: SideSell},
			{Time: day("2024-01-02"), Side: SideBuy},
		},
		Summary{TotalTrades: 2})

	trades := run.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, SideBuy, trades[0].Side, "trades sorted ascending")

	trades[0].Price = 999
	assert.Zero(t, run.Trades()[0].Price)

	cs := run.Candles()
	cs[0].Close = 0
	assert.Equal(t, 10.0, run.Candles()[0].Close)
}

// --- RunRequest ---

func TestParseRunWindow_Normalization(t *testing.T) {
	from, to, err := ParseRunWindow("2024-12-13T09:00", "2024-12-13T15:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 13, 9, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 12, 13, 15, 30, 59, 0, time.UTC), to)

	from, to, err = ParseRunWindow("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), to)

	_, _, err = ParseRunWindow("yesterday", "2024-12-31")
	assert.Error(t, err)
}

func TestNewRunRequest(t *testing.T) {
	req, err := NewRunRequest("005930", "S1", "", "2024-01-01", "2024-06-30", IntervalDaily)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "{}", req.Params)

	_, err = NewRunRequest("005930", "S1", "{broken", "2024-01-01", "2024-06-30", IntervalDaily)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewRunRequest("005930", "S1", "{}", "2024-06-30", "2024-01-01", IntervalDaily)
	assert.Error(t, err)

	_, err = NewRunRequest(" ", "S1", "{}", "2024-01-01", "2024-06-30", IntervalDaily)
	assert.Error(t, err)
}

// --- Strategy ---

func TestFilterStrategies(t *testing.T) {
	all := []Strategy{{ID: "S1"}, {ID: "S5"}, {ID: "S2"}}

	daily := FilterStrategies(all, ModeDaily)
	require.Len(t, daily, 2)
	assert.Equal(t, "S1", daily[0].ID)
	assert.Equal(t, "S2", daily[1].ID)

	intraday := FilterStrategies(all, ModeIntraday)
	require.Len(t, intraday, 1)
	assert.Equal(t, IntervalMinute, intraday[0].Interval())

	s, ok := FindStrategy(all, "S2")
	assert.True(t, ok)
	assert.Equal(t, "S2", s.ID)
}

// --- Time parsing ---

func TestParseTime_BackendFormats(t *testing.T) {
	for in, want := range map[string]time.Time{
		"2024-12-13":           day("2024-12-13"),
		"2024-12-13 12:30":     time.Date(2024, 12, 13, 12, 30, 0, 0, time.UTC),
		"2024-12-13T15:30:00":  time.Date(2024, 12, 13, 15, 30, 0, 0, time.UTC),
		"2024-12-13T15:30":     time.Date(2024, 12, 13, 15, 30, 0, 0, time.UTC),
		"2024-12-13T15:30:00Z": time.Date(2024, 12, 13, 15, 30, 0, 0, time.UTC),
		"20241213":             day("2024-12-13"),
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, err := ParseTime("13/12/2024")
	assert.Error(t, err)
}

func TestMarkerStyle(t *testing.T) {
	c, p, s := MarkerStyle(SideBuy)
	assert.Equal(t, ColorBuy, c)
	assert.Equal(t, PlacementBelowBar, p)
	assert.Equal(t, ShapeArrowUp, s)

	c, p, s = MarkerStyle(SideSell)
	assert.Equal(t, ColorSell, c)
	assert.Equal(t, PlacementAboveBar, p)
	assert.Equal(t, ShapeArrowDown, s)
}
