package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func provideRegistry() (*prometheus.Registry, prometheus.Registerer) {
	reg := prometheus.NewRegistry()
	return reg, reg
}

// Module wires the prometheus registry and domain instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(provideRegistry),
	fx.Provide(New),
)
