package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownInterval se devuelve al parsear un intervalo que no es daily ni minute.
var ErrUnknownInterval = errors.New("unknown interval")

// Interval es el intervalo de muestreo del gráfico. Solo existen dos variantes.
type Interval uint8

const (
	IntervalDaily Interval = iota + 1
	IntervalMinute
)

// ParseInterval acepta "daily" y "minute" (sin distinguir mayúsculas).
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d":
		return IntervalDaily, nil
	case "minute", "min", "1m":
		return IntervalMinute, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// String devuelve el valor que espera el backend en el parámetro `type`.
func (iv Interval) String() string {
	switch iv {
	case IntervalDaily:
		return "daily"
	case IntervalMinute:
		return "minute"
	}
	return fmt.Sprintf("Interval(%d)", uint8(iv))
}

// Bucket devuelve la duración de una vela.
func (iv Interval) Bucket() time.Duration {
	switch iv {
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalMinute:
		return time.Minute
	}
	panic(fmt.Sprintf("domain: unhandled interval %d", uint8(iv)))
}

// Truncate lleva t al inicio de su vela. Los trades vienen con hora (ej. 15:30:00)
// y las velas diarias solo con fecha, así que sin truncar nunca coincidirían.
func (iv Interval) Truncate(t time.Time) time.Time {
	switch iv {
	case IntervalDaily:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case IntervalMinute:
		return t.Truncate(time.Minute)
	}
	panic(fmt.Sprintf("domain: unhandled interval %d", uint8(iv)))
}

// MarshalText implementa encoding.TextMarshaler (usado por yaml y json).
func (iv Interval) MarshalText() ([]byte, error) {
	return []byte(iv.String()), nil
}

// UnmarshalText implementa encoding.TextUnmarshaler.
func (iv *Interval) UnmarshalText(b []byte) error {
	parsed, err := ParseInterval(string(b))
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}
