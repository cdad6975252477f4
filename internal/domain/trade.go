package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownSide se devuelve cuando el backend envía un lado distinto de BUY/SELL.
var ErrUnknownSide = errors.New("unknown trade side")

// Side es el lado de un trade. Solo existen dos variantes; un valor desconocido
// es un error de decodificación, nunca se ignora.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

// ParseSide acepta "BUY" y "SELL" (sin distinguir mayúsculas).
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// MarshalText implementa encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	switch s {
	case SideBuy, SideSell:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownSide, uint8(s))
}

// UnmarshalText implementa encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(b []byte) error {
	parsed, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TradeEvent es una ejecución simulada dentro de un backtest.
type TradeEvent struct {
	Time       time.Time
	Side       Side
	Price      float64
	Quantity   float64
	Reason     string
	PnLPercent float64 // solo significativo en SELL
}

// Amount devuelve precio × cantidad.
func (t TradeEvent) Amount() float64 {
	return t.Price * t.Quantity
}

// WinRate calcula wins/sells*100. Sin ventas devuelve 0.
func WinRate(trades []TradeEvent) float64 {
	var sells, wins int
	for _, t := range trades {
		if t.Side != SideSell {
			continue
		}
		sells++
		if t.PnLPercent > 0 {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells) * 100
}

// MatchTrade devuelve el índice del trade que corresponde a t: primero por
// igualdad exacta, si no el primero en la misma vela del intervalo. -1 si no hay.
func MatchTrade(trades []TradeEvent, t time.Time, iv Interval) int {
	for i, tr := range trades {
		if tr.Time.Equal(t) {
			return i
		}
	}
	bucket := iv.Truncate(t)
	for i, tr := range trades {
		if iv.Truncate(tr.Time).Equal(bucket) {
			return i
		}
	}
	return -1
}
