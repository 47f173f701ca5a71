package meterdata

import (
	"github.com/openwaterops/revassure/internal/meterdata/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("meterdata",
	fx.Provide(repository.Provide),
)
