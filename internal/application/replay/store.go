package replay

import "github.com/alejandrodnm/chartsync/internal/domain"

// Store es la Candle Store: la serie de la selección actual. Se reemplaza
// entera, nunca se parchea. Su único escritor es el Fetcher.
type Store struct {
	series  domain.Series
	version uint64
	subs    listeners[domain.Series]
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{}
}

// Current devuelve una copia de la serie actual.
func (s *Store) Current() domain.Series {
	return s.series.Clone()
}

// Key devuelve la selección a la que pertenece la serie actual.
func (s *Store) Key() domain.SeriesKey {
	return s.series.Key
}

// Version se incrementa con cada reemplazo.
func (s *Store) Version() uint64 {
	return s.version
}

// Extent es el rango de la serie actual.
func (s *Store) Extent() (domain.TimeRange, bool) {
	return s.series.Extent()
}

// OnReplace registra fn para cada reemplazo del store.
func (s *Store) OnReplace(fn func(domain.Series)) *Subscription {
	return s.subs.add(fn)
}

func (s *Store) replace(series domain.Series) {
	s.series = series
	s.version++
	s.subs.emit(series.Clone())
}
