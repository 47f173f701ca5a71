package anomaly

import (
	"github.com/openwaterops/revassure/internal/anomaly/repository"
	"github.com/openwaterops/revassure/internal/anomaly/rules"
	"github.com/openwaterops/revassure/internal/anomaly/service"
	"go.uber.org/fx"
)

var Module = fx.Module("anomaly.service",
	fx.Provide(repository.Provide),
	fx.Provide(rules.Default),
	fx.Provide(service.New),
)
