package domain

import (
	"fmt"
	"strings"
	"time"
)

// Layouts que emite el backend: fechas para velas diarias (a veces yyyyMMdd
// crudo del broker), "yyyy-MM-dd HH:mm" para velas de minuto y LocalDateTime
// ISO para trades.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"20060102",
	time.RFC3339Nano,
}

// ParseTime interpreta los formatos de fecha del backend. Las horas sin zona se
// tratan como wall-clock UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("domain.ParseTime: unsupported time %q", s)
}

// FormatDateTime formatea como LocalDateTime ISO (sin zona), el formato que
// acepta el endpoint de backtest.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

// FormatCandleTime formatea según la granularidad del intervalo.
func FormatCandleTime(t time.Time, iv Interval) string {
	if iv == IntervalDaily {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01-02 15:04")
}
