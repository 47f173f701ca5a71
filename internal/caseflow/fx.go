package caseflow

import (
	"github.com/openwaterops/revassure/internal/caseflow/repository"
	"github.com/openwaterops/revassure/internal/caseflow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("caseflow.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
