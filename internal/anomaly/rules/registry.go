// Package rules holds the built-in anomaly detection strategies. Each
// strategy evaluates one meter against one configured rule and reports a
// finding or nothing; it never writes cases itself.
package rules

import (
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
)

// Registry maps rule codes to their strategy implementations. Rules stored
// with a code the registry does not know are skipped by the sweep.
type Registry struct {
	strategies map[string]anomalydomain.Strategy
}

func NewRegistry(strategies ...anomalydomain.Strategy) *Registry {
	m := make(map[string]anomalydomain.Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Code()] = s
	}
	return &Registry{strategies: m}
}

// Default builds the registry with all built-in strategies.
func Default(meterRepo meterdomain.Repository) *Registry {
	return NewRegistry(
		NewZeroConsumption(meterRepo),
		NewConsumptionSpike(meterRepo),
		NewTampering(meterRepo),
	)
}

func (r *Registry) Get(code string) (anomalydomain.Strategy, bool) {
	s, ok := r.strategies[code]
	return s, ok
}
