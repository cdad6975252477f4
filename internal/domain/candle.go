package domain

import (
	"fmt"
	"sort"
	"time"
)

// Candle es una barra OHLC de un bucket de tiempo fijo.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// SeriesKey identifica la serie seleccionada: instrumento + intervalo.
type SeriesKey struct {
	Symbol   string
	Interval Interval
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s", k.Symbol, k.Interval)
}

// TimeRange es un rango cerrado [From, To]. El valor cero es el rango vacío.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Empty indica si el rango no tiene extensión definida.
func (r TimeRange) Empty() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains indica si t cae dentro del rango (bordes incluidos).
func (r TimeRange) Contains(t time.Time) bool {
	if r.Empty() {
		return false
	}
	return !t.Before(r.From) && !t.After(r.To)
}

// Series es la serie ordenada de velas de un SeriesKey.
// Invariante: Candles estrictamente creciente y única por Time.
type Series struct {
	Key     SeriesKey
	Candles []Candle
}

// NewSeries ordena y deduplica las velas por Time. Ante duplicados gana la última.
// El slice de entrada no se modifica.
func NewSeries(key SeriesKey, candles []Candle) Series {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	deduped := out[:0]
	for _, c := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(c.Time) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}
	return Series{Key: key, Candles: deduped}
}

// Len devuelve la cantidad de velas.
func (s Series) Len() int { return len(s.Candles) }

// Extent devuelve el rango [primera, última] de la serie. ok=false si está vacía.
func (s Series) Extent() (TimeRange, bool) {
	if len(s.Candles) == 0 {
		return TimeRange{}, false
	}
	return TimeRange{From: s.Candles[0].Time, To: s.Candles[len(s.Candles)-1].Time}, true
}

// IndexOf busca la vela con Time exactamente igual a t (búsqueda binaria).
func (s Series) IndexOf(t time.Time) (int, bool) {
	i := sort.Search(len(s.Candles), func(i int) bool {
		return !s.Candles[i].Time.Before(t)
	})
	if i < len(s.Candles) && s.Candles[i].Time.Equal(t) {
		return i, true
	}
	return -1, false
}

// Clone devuelve una copia independiente de la serie.
func (s Series) Clone() Series {
	out := make([]Candle, len(s.Candles))
	copy(out, s.Candles)
	return Series{Key: s.Key, Candles: out}
}
