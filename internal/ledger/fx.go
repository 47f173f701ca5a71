package ledger

import (
	"github.com/openwaterops/revassure/internal/ledger/repository"
	"github.com/openwaterops/revassure/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
