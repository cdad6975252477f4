package domain

import "strings"

// StrategyMode separa estrategias diarias de intradía en el selector.
type StrategyMode string

const (
	ModeDaily    StrategyMode = "daily"
	ModeIntraday StrategyMode = "intraday"
)

// Strategy es una entrada del catálogo de estrategias del backend.
type Strategy struct {
	ID            string
	Name          string
	Description   string
	DefaultParams string
}

// Intraday indica si la estrategia opera sobre velas de minuto. En el catálogo
// actual solo S5 lo hace.
func (s Strategy) Intraday() bool {
	return strings.EqualFold(s.ID, "S5")
}

// Mode devuelve el modo de la estrategia.
func (s Strategy) Mode() StrategyMode {
	if s.Intraday() {
		return ModeIntraday
	}
	return ModeDaily
}

// Interval devuelve el intervalo de velas sobre el que corre.
func (s Strategy) Interval() Interval {
	if s.Intraday() {
		return IntervalMinute
	}
	return IntervalDaily
}

// FilterStrategies devuelve las estrategias del modo pedido, en el orden original.
func FilterStrategies(all []Strategy, mode StrategyMode) []Strategy {
	out := make([]Strategy, 0, len(all))
	for _, s := range all {
		if s.Mode() == mode {
			out = append(out, s)
		}
	}
	return out
}

// FindStrategy busca por ID.
func FindStrategy(all []Strategy, id string) (Strategy, bool) {
	for _, s := range all {
		if s.ID == id {
			return s, true
		}
	}
	return Strategy{}, false
}
