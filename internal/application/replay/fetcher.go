package replay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// FetchResult es el desenlace de un Fetch.
type FetchResult struct {
	Key     domain.SeriesKey
	Token   uint64
	Applied bool // la respuesta reemplazó el store
	Stale   bool // llegó con un token viejo o para una selección abandonada
	Candles int
	Err     error
}

// Fetcher trae velas de forma asíncrona y es el único escritor del Store.
// Cada (símbolo, intervalo) tiene un token de fencing monotónico: una respuesta
// se aplica solo si su token sigue siendo el último emitido para ese par y el par
// sigue seleccionado. Gana la última petición emitida, no la última en llegar.
type Fetcher struct {
	loop     *Loop
	store    *Store
	provider ports.CandleProvider

	tokens map[domain.SeriesKey]uint64
	active domain.SeriesKey
}

// NewFetcher crea un fetcher que escribe en store.
func NewFetcher(loop *Loop, store *Store, provider ports.CandleProvider) *Fetcher {
	return &Fetcher{
		loop:     loop,
		store:    store,
		provider: provider,
		tokens:   make(map[domain.SeriesKey]uint64),
	}
}

// Fetch selecciona key y pide sus velas. Debe llamarse desde el loop.
// Si key no es la serie que muestra el store, el store pasa a vacío de inmediato.
// No reintenta: un fallo deja el store como estaba y se informa en el ticket.
func (f *Fetcher) Fetch(ctx context.Context, key domain.SeriesKey) *Ticket[FetchResult] {
	token := f.bump(key)
	f.active = key
	if f.store.Key() != key {
		f.store.replace(domain.NewSeries(key, nil))
	}

	ticket := NewTicket[FetchResult]()
	slog.Debug("fetcher: requesting candles", "symbol", key.Symbol, "interval", key.Interval.String(), "token", token)

	go func() {
		candles, err := f.provider.GetCandles(ctx, key.Symbol, key.Interval)
		posted := f.loop.Post(func() {
			ticket.Resolve(f.complete(key, token, candles, err))
		})
		if !posted {
			ticket.Resolve(FetchResult{Key: key, Token: token, Err: ErrLoopClosed})
		}
	}()
	return ticket
}

// Adopt aplica velas ya obtenidas (p. ej. las de un backtest) bajo el mismo
// fencing: invalida cualquier fetch en vuelo para key.
func (f *Fetcher) Adopt(key domain.SeriesKey, candles []domain.Candle) {
	token := f.bump(key)
	f.active = key
	f.store.replace(domain.NewSeries(key, candles))
	slog.Debug("fetcher: adopted candles", "symbol", key.Symbol, "interval", key.Interval.String(),
		"token", token, "candles", len(candles))
}

// Token devuelve el último token emitido para key.
func (f *Fetcher) Token(key domain.SeriesKey) uint64 {
	return f.tokens[key]
}

// Active devuelve la selección vigente.
func (f *Fetcher) Active() domain.SeriesKey {
	return f.active
}

func (f *Fetcher) bump(key domain.SeriesKey) uint64 {
	f.tokens[key]++
	return f.tokens[key]
}

func (f *Fetcher) complete(key domain.SeriesKey, token uint64, candles []domain.Candle, err error) FetchResult {
	res := FetchResult{Key: key, Token: token}

	if f.tokens[key] != token || f.active != key {
		slog.Debug("fetcher: discarding stale response",
			"symbol", key.Symbol, "interval", key.Interval.String(),
			"token", token, "current", f.tokens[key])
		res.Stale = true
		return res
	}

	if err != nil {
		slog.Warn("fetcher: candle fetch failed",
			"symbol", key.Symbol, "interval", key.Interval.String(), "err", err)
		res.Err = fmt.Errorf("replay.Fetcher.Fetch: %s: %w", key, err)
		return res
	}

	series := domain.NewSeries(key, candles)
	f.store.replace(series)
	res.Applied = true
	res.Candles = series.Len()
	slog.Info("fetcher: candles loaded", "symbol", key.Symbol, "interval", key.Interval.String(),
		"candles", series.Len(), "token", token)
	return res
}
