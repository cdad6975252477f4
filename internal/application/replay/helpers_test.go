package replay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/chartsync/internal/application/replay"
	"github.com/alejandrodnm/chartsync/internal/domain"
)

func startLoop(t *testing.T) *replay.Loop {
	t.Helper()
	loop := replay.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop
}

// on ejecuta fn en el loop y espera.
func on(t *testing.T, loop *replay.Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.Do(ctx, fn))
}

func wait[R any](t *testing.T, ticket *replay.Ticket[R]) R {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := ticket.Wait(ctx)
	require.NoError(t, err)
	return r
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dailyCandles(closes map[string]float64) []domain.Candle {
	out := make([]domain.Candle, 0, len(closes))
	for d, c := range closes {
		out = append(out, domain.Candle{Time: day(d), Open: c, High: c, Low: c, Close: c})
	}
	return out
}

// rangeCandles genera n velas diarias consecutivas desde from con cierres 1..n.
func rangeCandles(from time.Time, n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		c := float64(i + 1)
		out[i] = domain.Candle{Time: from.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}
