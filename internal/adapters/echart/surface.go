// Package echart dibuja el gráfico de velas con go-echarts y lo vuelca a HTML.
package echart

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/alejandrodnm/chartsync/internal/domain"
)

const (
	colorBull       = "#ef4444"
	colorBear       = "#3b82f6"
	colorBackground = "#0f172a"
	colorText       = "#e2e8f0"
	markerSize      = 14
)

// Surface implementa ports.ChartSurface. Guarda el último estado recibido y lo
// renderiza bajo demanda; Close lo escribe en path si hay uno configurado.
type Surface struct {
	mu       sync.Mutex
	title    string
	path     string
	series   domain.Series
	overlays []domain.OverlaySeries
	markers  []domain.Marker
	visible  domain.TimeRange
	clicks   map[int]func(time.Time)
	nextID   int
	closed   bool
}

// NewSurface crea una superficie. path vacío desactiva la escritura al cerrar.
func NewSurface(title, path string) *Surface {
	return &Surface{
		title:  title,
		path:   path,
		clicks: make(map[int]func(time.Time)),
	}
}

func (s *Surface) SetCandles(series domain.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.series = series.Clone()
}

func (s *Surface) SetOverlays(overlays []domain.OverlaySeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.overlays = append([]domain.OverlaySeries(nil), overlays...)
}

func (s *Surface) SetMarkers(markers []domain.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.markers = append([]domain.Marker(nil), markers...)
}

func (s *Surface) SetVisibleRange(r domain.TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.visible = r
}

// SubscribeClick registra fn. La función devuelta es idempotente.
func (s *Surface) SubscribeClick(fn func(t time.Time)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.clicks[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.clicks, id)
	}
}

// Click notifica un click sobre la vela de t a los suscriptores.
func (s *Surface) Click(t time.Time) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(s.clicks))
	for id := range s.clicks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(time.Time), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.clicks[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}

// Subscribers devuelve el número de suscriptores de click activos.
func (s *Surface) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clicks)
}

// Render escribe el gráfico actual como página HTML.
func (s *Surface) Render(w io.Writer) error {
	s.mu.Lock()
	kline := s.build()
	s.mu.Unlock()

	if err := kline.Render(w); err != nil {
		return fmt.Errorf("echart.Render: %w", err)
	}
	return nil
}

// Close escribe el HTML final (si hay path) y desactiva los setters.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("echart.Close: %w", err)
	}
	defer f.Close()
	if err := s.Render(f); err != nil {
		return err
	}
	slog.Info("echart: chart written", "path", path)
	return nil
}

// build arma el gráfico. Requiere s.mu.
func (s *Surface) build() *charts.Kline {
	iv := s.series.Key.Interval
	labels := make([]string, len(s.series.Candles))
	data := make([]opts.KlineData, len(s.series.Candles))
	for i, c := range s.series.Candles {
		labels[i] = domain.FormatCandleTime(c.Time, iv)
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}

	start, end := zoomWindow(s.series, s.visible)

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           "1200px",
			Height:          "600px",
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      s.title,
			Subtitle:   s.series.Key.String(),
			TitleStyle: &opts.TextStyle{Color: colorText},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}, Start: start, End: end}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	kline.SetXAxis(labels)
	kline.AddSeries(s.series.Key.Symbol, data,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
		charts.WithMarkPointNameCoordItemOpts(markPoints(s.markers, iv)...),
	)

	for _, ov := range s.overlays {
		line := charts.NewLine()
		line.SetXAxis(labels)
		line.AddSeries(fmt.Sprintf("MA%d", ov.Window), overlayData(s.series, ov),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: ov.Color, Width: 1.5}),
		)
		kline.Overlap(line)
	}
	return kline
}

// overlayData alinea los puntos de la media con el eje X; las velas sin punto
// quedan vacías.
func overlayData(series domain.Series, ov domain.OverlaySeries) []opts.LineData {
	out := make([]opts.LineData, len(series.Candles))
	for _, p := range ov.Points {
		if i, ok := series.IndexOf(p.Time); ok {
			out[i] = opts.LineData{Value: p.Value}
		}
	}
	return out
}

func markPoints(markers []domain.Marker, iv domain.Interval) []opts.MarkPointNameCoordItem {
	out := make([]opts.MarkPointNameCoordItem, 0, len(markers))
	for _, m := range markers {
		item := opts.MarkPointNameCoordItem{
			Name:       m.Side.String(),
			Coordinate: []interface{}{domain.FormatCandleTime(m.Time, iv), m.Price},
			Value:      m.Text,
			Symbol:     "arrow",
			SymbolSize: markerSize,
			ItemStyle:  &opts.ItemStyle{Color: m.Color},
			Label:      &opts.Label{Show: opts.Bool(true), Color: m.Color, Position: labelPosition(m.Placement)},
		}
		if m.Shape == domain.ShapeArrowDown {
			item.SymbolRotate = 180
		}
		out = append(out, item)
	}
	return out
}

func labelPosition(p domain.MarkerPlacement) string {
	if p == domain.PlacementAboveBar {
		return "top"
	}
	return "bottom"
}

// zoomWindow traduce el rango visible a porcentajes del eje de categorías.
// Sin rango o sin velas dentro se muestra todo.
func zoomWindow(series domain.Series, visible domain.TimeRange) (float32, float32) {
	n := len(series.Candles)
	if n == 0 || visible.Empty() {
		return 0, 100
	}
	first := sort.Search(n, func(i int) bool {
		return !series.Candles[i].Time.Before(visible.From)
	})
	last := sort.Search(n, func(i int) bool {
		return series.Candles[i].Time.After(visible.To)
	}) - 1
	if first > last {
		return 0, 100
	}
	return float32(first) * 100 / float32(n), float32(last+1) * 100 / float32(n)
}
