// Package seed loads a small demo data set for local development. It runs
// only when SEED_DEMO_DATA is set and is idempotent across restarts.
package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	"github.com/openwaterops/revassure/internal/clock"
	"github.com/openwaterops/revassure/internal/config"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	RuleRepo anomalydomain.Repository
}

type seeder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	now   time.Time
	rules anomalydomain.Repository
}

// Run loads the demo tenant when seeding is enabled.
func Run(p Params) error {
	if !p.Config.SeedDemoData {
		return nil
	}

	s := &seeder{
		db:    p.DB,
		log:   p.Log.Named("seed"),
		genID: p.GenID,
		now:   p.Clock.Now(),
		rules: p.RuleRepo,
	}
	tenantID := snowflake.ID(p.Config.DefaultTenantID)

	ctx := context.Background()
	if err := s.seedRules(ctx, tenantID); err != nil {
		return err
	}
	if err := s.seedAccounts(ctx, tenantID); err != nil {
		return err
	}
	s.log.Info("demo data seeded", zap.Int64("tenant_id", int64(tenantID)))
	return nil
}

func (s *seeder) seedRules(ctx context.Context, tenantID snowflake.ID) error {
	rules := []anomalydomain.RaRule{
		{
			Code:     anomalydomain.RuleZeroConsumption,
			Severity: anomalydomain.SeverityMedium,
			Params:   datatypes.JSONMap{"months_threshold": 3},
		},
		{
			Code:     anomalydomain.RuleConsumptionSpike,
			Severity: anomalydomain.SeverityMedium,
			Params:   datatypes.JSONMap{"threshold_multiplier": 3.0},
		},
		{
			Code:     anomalydomain.RuleTampering,
			Severity: anomalydomain.SeverityHigh,
			Params:   datatypes.JSONMap{},
		},
	}
	for i := range rules {
		rule := &rules[i]
		rule.ID = s.genID.Generate()
		rule.TenantID = tenantID
		rule.Active = true
		rule.CreatedAt = s.now
		rule.UpdatedAt = s.now
		if err := s.rules.UpsertRule(ctx, s.db, rule); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedAccounts(ctx context.Context, tenantID snowflake.ID) error {
	type demoAccount struct {
		accountNo string
		name      string
		phone     string
		email     string
		invoices  []int64
	}
	demo := []demoAccount{
		{"ACC-1001", "Amina Okafor", "+254700000001", "amina@example.com", []int64{12000, 15500}},
		{"ACC-1002", "Joseph Mwangi", "+254700000002", "joseph@example.com", []int64{8000}},
		{"ACC-1003", "Grace Wanjiru", "+254700000003", "grace@example.com", []int64{22000, 18000, 9500}},
	}

	for i, d := range demo {
		var existing accountdomain.Account
		if err := s.db.WithContext(ctx).Raw(
			`SELECT id FROM accounts WHERE tenant_id = ? AND account_no = ?`,
			tenantID, d.accountNo,
		).Scan(&existing).Error; err != nil {
			return err
		}
		if existing.ID != 0 {
			continue
		}

		account := accountdomain.Account{
			ID:               s.genID.Generate(),
			TenantID:         tenantID,
			AccountNo:        d.accountNo,
			CustomerName:     d.name,
			CustomerPhone:    d.phone,
			CustomerEmail:    d.email,
			PremiseID:        s.genID.Generate(),
			ConnectionStatus: accountdomain.ConnectionStatusActive,
			CreatedAt:        s.now,
			UpdatedAt:        s.now,
		}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return err
		}

		// Monthly invoices walking back from last month.
		for j, amount := range d.invoices {
			periodEnd := s.now.AddDate(0, -j, 0)
			invoice := ledgerdomain.Invoice{
				ID:          s.genID.Generate(),
				TenantID:    tenantID,
				AccountID:   account.ID,
				PeriodStart: periodEnd.AddDate(0, -1, 0),
				PeriodEnd:   periodEnd,
				DueDate:     periodEnd.AddDate(0, 0, 14),
				TotalAmount: amount,
				Status:      ledgerdomain.InvoiceStatusOpen,
				CreatedAt:   s.now,
				UpdatedAt:   s.now,
			}
			if err := s.db.WithContext(ctx).Create(&invoice).Error; err != nil {
				return err
			}
		}

		if err := s.seedMeter(ctx, tenantID, account, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedMeter(ctx context.Context, tenantID snowflake.ID, account accountdomain.Account, ordinal int) error {
	meter := meterdomain.Meter{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		AccountID: account.ID,
		PremiseID: account.PremiseID,
		SerialNo:  "SER-" + account.AccountNo,
		Active:    true,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	if err := s.db.WithContext(ctx).Create(&meter).Error; err != nil {
		return err
	}

	// First demo meter reads flat so a sweep has something to find.
	start := 1000.0 * float64(ordinal+1)
	step := 25.0
	if ordinal == 0 {
		step = 0
	}
	for month := 4; month >= 0; month-- {
		read := meterdomain.MeterRead{
			ID:        s.genID.Generate(),
			MeterID:   meter.ID,
			Value:     start + step*float64(4-month),
			ReadAt:    s.now.AddDate(0, -month, 0),
			Quality:   meterdomain.ReadQualityGood,
			CreatedAt: s.now,
		}
		if err := s.db.WithContext(ctx).Create(&read).Error; err != nil {
			return err
		}
	}
	return nil
}
