package echart

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func tenDays() domain.Series {
	candles := make([]domain.Candle, 10)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = domain.Candle{Time: day(i + 1), Open: p, High: p + 2, Low: p - 2, Close: p + 1}
	}
	return domain.NewSeries(domain.SeriesKey{Symbol: "005930", Interval: domain.IntervalDaily}, candles)
}

func TestZoomWindow(t *testing.T) {
	s := tenDays()

	start, end := zoomWindow(s, domain.TimeRange{From: day(3), To: day(7)})
	assert.InDelta(t, 20, start, 1e-4)
	assert.InDelta(t, 70, end, 1e-4)

	start, end = zoomWindow(s, domain.TimeRange{})
	assert.Equal(t, float32(0), start)
	assert.Equal(t, float32(100), end)

	start, end = zoomWindow(s, domain.TimeRange{From: day(20), To: day(25)})
	assert.Equal(t, float32(0), start)
	assert.Equal(t, float32(100), end)
}

func TestOverlayData_AlignsWithAxis(t *testing.T) {
	s := tenDays()
	ov := domain.OverlaySeries{Window: 3, Points: []domain.MovingAveragePoint{
		{Time: day(3), Value: 102}, {Time: day(4), Value: 103},
	}}
	data := overlayData(s, ov)
	require.Len(t, data, 10)
	assert.Nil(t, data[0].Value)
	assert.Equal(t, 102.0, data[2].Value)
	assert.Equal(t, 103.0, data[3].Value)
}

func TestSurface_RenderContainsMarkersAndZoom(t *testing.T) {
	s := NewSurface("Backtest S1", "")
	s.SetCandles(tenDays())
	s.SetOverlays([]domain.OverlaySeries{{Window: 5, Color: "#4ade80"}})
	c, p, sh := domain.MarkerStyle(domain.SideSell)
	s.SetMarkers([]domain.Marker{{Time: day(4), Side: domain.SideSell, Price: 104, Color: c, Placement: p, Shape: sh, Text: "SELL"}})
	s.SetVisibleRange(domain.TimeRange{From: day(3), To: day(7)})

	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf))
	html := buf.String()

	assert.Contains(t, html, "Backtest S1")
	assert.Contains(t, html, "markPoint")
	assert.Contains(t, html, domain.ColorSell)
	assert.Contains(t, html, "MA5")
	assert.Contains(t, html, "dataZoom")
	assert.Contains(t, html, "2024-01-04")
}

func TestSurface_ClickAndUnsubscribe(t *testing.T) {
	s := NewSurface("x", "")
	var got []time.Time
	unsub := s.SubscribeClick(func(t time.Time) { got = append(got, t) })

	s.Click(day(2))
	unsub()
	unsub()
	s.Click(day(3))

	require.Len(t, got, 1)
	assert.Equal(t, day(2), got[0])
	assert.Zero(t, s.Subscribers())
}

func TestSurface_CloseWritesFileAndFreezes(t *testing.T) {
	dir := t.TempDir()
	surface, err := Opener{Dir: dir}.Open(context.Background(), "Samsung Daily")
	require.NoError(t, err)
	s := surface.(*Surface)

	s.SetCandles(tenDays())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s.SetCandles(domain.Series{})
	assert.Len(t, s.series.Candles, 10, "setters are no-ops after close")

	data, err := os.ReadFile(filepath.Join(dir, "samsung_daily.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "005930")
}
