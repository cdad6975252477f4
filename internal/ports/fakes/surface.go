package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/alejandrodnm/chartsync/internal/ports"
)

// Surface es un ports.ChartSurface que guarda lo último recibido.
type Surface struct {
	mu       sync.Mutex
	series   domain.Series
	overlays []domain.OverlaySeries
	markers  []domain.Marker
	visible  domain.TimeRange
	nextID   int
	clicks   map[int]func(time.Time)
	closed   bool
}

// NewSurface crea una superficie vacía.
func NewSurface() *Surface {
	return &Surface{clicks: make(map[int]func(time.Time))}
}

func (s *Surface) SetCandles(series domain.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = series
}

func (s *Surface) SetOverlays(o []domain.OverlaySeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays = o
}

func (s *Surface) SetMarkers(m []domain.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = m
}

func (s *Surface) SetVisibleRange(r domain.TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = r
}

func (s *Surface) SubscribeClick(fn func(time.Time)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.clicks[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.clicks, id)
	}
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Click simula un click del usuario sobre la vela t.
func (s *Surface) Click(t time.Time) {
	s.mu.Lock()
	fns := make([]func(time.Time), 0, len(s.clicks))
	for _, fn := range s.clicks {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

func (s *Surface) Series() domain.Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series
}

func (s *Surface) Overlays() []domain.OverlaySeries {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays
}

func (s *Surface) Markers() []domain.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers
}

func (s *Surface) Visible() domain.TimeRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// ClickSubscribers cuenta las suscripciones vivas.
func (s *Surface) ClickSubscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks)
}

func (s *Surface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Opener devuelve siempre la misma Surface.
type Opener struct {
	Surface *Surface
	Err     error
}

func (o *Opener) Open(context.Context, string) (ports.ChartSurface, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Surface, nil
}
