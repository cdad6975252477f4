package notify

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// TradeList implementa ports.TradeView: imprime los trades del run activo y
// marca con ">" la fila del trade seleccionado.
type TradeList struct {
	mu       sync.Mutex
	out      io.Writer
	trades   []domain.TradeEvent
	interval domain.Interval
	selected int
	hovered  int
}

// NewTradeList crea la lista sobre stdout.
func NewTradeList() *TradeList {
	return NewTradeListWriter(os.Stdout)
}

// NewTradeListWriter crea la lista sobre w (tests).
func NewTradeListWriter(w io.Writer) *TradeList {
	return &TradeList{out: w, selected: -1, hovered: -1, interval: domain.IntervalDaily}
}

// ShowTrades reemplaza la lista. nil la vacía sin imprimir.
func (l *TradeList) ShowTrades(trades []domain.TradeEvent, iv domain.Interval) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append([]domain.TradeEvent(nil), trades...)
	l.interval = iv
	l.selected, l.hovered = -1, -1
	if len(l.trades) > 0 {
		l.print()
	}
}

// OnSelect marca el trade de la vela t y reimprime la lista.
func (l *TradeList) OnSelect(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = domain.MatchTrade(l.trades, t, l.interval)
	if l.selected >= 0 {
		l.print()
	}
}

func (l *TradeList) OnClear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected, l.hovered = -1, -1
}

func (l *TradeList) OnHover(t *time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t == nil {
		l.hovered = -1
		return
	}
	l.hovered = domain.MatchTrade(l.trades, *t, l.interval)
}

// Lookup busca el trade de la vela t.
func (l *TradeList) Lookup(t time.Time) (domain.TradeEvent, domain.Interval, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := domain.MatchTrade(l.trades, t, l.interval)
	if i < 0 {
		return domain.TradeEvent{}, l.interval, false
	}
	return l.trades[i], l.interval, true
}

// Selected devuelve el índice seleccionado (-1 si no hay).
func (l *TradeList) Selected() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// Hovered devuelve el índice bajo el cursor (-1 si no hay).
func (l *TradeList) Hovered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hovered
}

func (l *TradeList) print() {
	fmt.Fprintf(l.out, "\n[%s] %d trades (%s)\n", time.Now().Format("15:04:05"), len(l.trades), l.interval)

	table := tablewriter.NewWriter(l.out)
	table.Header("", "#", "Time", "Side", "Price", "Qty", "Amount", "PnL%", "Reason")
	for i, tr := range l.trades {
		mark := ""
		if i == l.selected {
			mark = ">"
		}
		table.Append(
			mark,
			fmt.Sprintf("%d", i+1),
			domain.FormatCandleTime(tr.Time, l.interval),
			tr.Side.String(),
			money(tr.Price),
			fmt.Sprintf("%.0f", tr.Quantity),
			money(tr.Amount()),
			pnlLabel(tr),
			truncate(tr.Reason, 30),
		)
	}
	table.Render()
}

// DetailLog es un listener del cursor que imprime el trade seleccionado con
// todos sus campos.
type DetailLog struct {
	mu   sync.Mutex
	out  io.Writer
	list *TradeList
}

// NewDetailLog crea el log de detalle; list resuelve la vela al trade.
func NewDetailLog(w io.Writer, list *TradeList) *DetailLog {
	return &DetailLog{out: w, list: list}
}

func (d *DetailLog) OnSelect(t time.Time) {
	tr, iv, ok := d.list.Lookup(t)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !ok {
		fmt.Fprintf(d.out, "  %s: no trade\n", domain.FormatCandleTime(t, iv))
		return
	}
	fmt.Fprintf(d.out, "  %s %s %s x %.0f = %s",
		domain.FormatCandleTime(tr.Time, iv), tr.Side, money(tr.Price), tr.Quantity, money(tr.Amount()))
	if tr.Side == domain.SideSell {
		fmt.Fprintf(d.out, " pnl %s", pnlLabel(tr))
	}
	if tr.Reason != "" {
		fmt.Fprintf(d.out, " | %s", tr.Reason)
	}
	fmt.Fprintln(d.out)
}

func (d *DetailLog) OnClear() {}

func (d *DetailLog) OnHover(*time.Time) {}

func pnlLabel(tr domain.TradeEvent) string {
	if tr.Side != domain.SideSell {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", tr.PnLPercent)
}

// money formatea con separador de miles y sin decimales.
func money(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
