// Command revassure runs the nightly collections batch: the anomaly sweep,
// dunning notice generation, and the disconnection candidate report for the
// configured tenant.
package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openwaterops/revassure/internal/account"
	"github.com/openwaterops/revassure/internal/anomaly"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	"github.com/openwaterops/revassure/internal/caseflow"
	"github.com/openwaterops/revassure/internal/clock"
	"github.com/openwaterops/revassure/internal/config"
	"github.com/openwaterops/revassure/internal/dunning"
	dunningdomain "github.com/openwaterops/revassure/internal/dunning/domain"
	"github.com/openwaterops/revassure/internal/idgen"
	"github.com/openwaterops/revassure/internal/ledger"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	"github.com/openwaterops/revassure/internal/logger"
	"github.com/openwaterops/revassure/internal/meterdata"
	"github.com/openwaterops/revassure/internal/migration"
	"github.com/openwaterops/revassure/internal/observability/metrics"
	"github.com/openwaterops/revassure/internal/seed"
	pkgdb "github.com/openwaterops/revassure/pkg/db"
	"github.com/openwaterops/revassure/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		idgen.Module,
		pkgdb.Module,
		migration.Module,
		metrics.Module,
		account.Module,
		meterdata.Module,
		ledger.Module,
		dunning.Module,
		anomaly.Module,
		caseflow.Module,
		seed.Module,
		fx.Invoke(registerBatch),
	)
	app.Run()
}

type batchParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Log        *zap.Logger
	Config     config.Config
	Anomaly    anomalydomain.Service
	Dunning    dunningdomain.Service
}

func registerBatch(p batchParams) {
	log := p.Log.Named("batch")
	tenantID := snowflake.ID(p.Config.DefaultTenantID)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := runBatch(context.Background(), log, tenantID, p.Anomaly, p.Dunning); err != nil {
					log.Error("batch run failed", zap.Error(err))
				}
				_ = p.Shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func runBatch(ctx context.Context, log *zap.Logger, tenantID snowflake.ID, anomalySvc anomalydomain.Service, dunningSvc dunningdomain.Service) error {
	ctx = tenantctx.WithTenantID(ctx, tenantID)

	sweep, err := anomalySvc.RunSweep(ctx, tenantID)
	if err != nil {
		return err
	}
	log.Info("sweep complete",
		zap.Int("meters", sweep.MetersEvaluated),
		zap.Int("cases_opened", sweep.CasesOpened),
		zap.Int("errors", len(sweep.Errors)),
	)

	buckets := []ledgerdomain.AgingBucket{
		ledgerdomain.Bucket30Label,
		ledgerdomain.Bucket60Label,
		ledgerdomain.Bucket90Label,
		ledgerdomain.BucketOver90L,
	}
	for _, bucket := range buckets {
		notices, err := dunningSvc.GenerateNotices(ctx, tenantID, bucket)
		if err != nil {
			return err
		}
		log.Info("notices generated",
			zap.String("bucket", string(bucket)),
			zap.Int("count", len(notices)),
		)
	}

	candidates, err := dunningSvc.AccountsForDisconnection(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		log.Info("disconnection candidate",
			zap.String("account_no", c.AccountNo),
			zap.Int64("overdue", c.OverdueAmount),
			zap.Int("oldest_due_days", c.OldestDueDays),
		)
	}
	return nil
}
