package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	"github.com/openwaterops/revassure/internal/anomaly/rules"
	"github.com/openwaterops/revassure/internal/clock"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	obsmetrics "github.com/openwaterops/revassure/internal/observability/metrics"
	"github.com/openwaterops/revassure/pkg/db"
	"github.com/openwaterops/revassure/pkg/pagination"
	"github.com/openwaterops/revassure/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Registry  *rules.Registry
	Repo      anomalydomain.Repository
	MeterRepo meterdomain.Repository
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	registry  *rules.Registry
	repo      anomalydomain.Repository
	meterRepo meterdomain.Repository
	metrics   *obsmetrics.Metrics
}

func New(p Params) anomalydomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("anomaly.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		registry:  p.Registry,
		repo:      p.Repo,
		meterRepo: p.MeterRepo,
		metrics:   p.Metrics,
	}
}

// RunSweep evaluates every active rule against every active meter. Failures
// are collected per meter so one bad meter never blocks the rest of the run.
func (s *Service) RunSweep(ctx context.Context, tenantID snowflake.ID) (*anomalydomain.SweepResult, error) {
	tenantID = tenantctx.Resolve(ctx, tenantID)
	now := s.clock.Now()

	activeRules, err := s.repo.ListActiveRules(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	meters, err := s.meterRepo.ListActive(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	result := &anomalydomain.SweepResult{
		MetersEvaluated: len(meters),
		Errors:          []anomalydomain.MeterError{},
	}

	for _, rule := range activeRules {
		strategy, ok := s.registry.Get(rule.Code)
		if !ok {
			s.log.Warn("no strategy registered for rule", zap.String("code", rule.Code))
			continue
		}
		for _, meter := range meters {
			opened, err := s.evaluateMeter(ctx, strategy, meter, rule, now)
			if err != nil {
				s.metrics.RecordSweepError()
				result.Errors = append(result.Errors, anomalydomain.MeterError{
					MeterID:  meter.ID,
					RuleCode: rule.Code,
					Message:  err.Error(),
				})
				continue
			}
			if opened {
				result.CasesOpened++
				s.metrics.RecordCaseOpened(rule.Code)
			}
		}
	}

	s.log.Info("anomaly sweep finished",
		zap.Int("meters", result.MetersEvaluated),
		zap.Int("rules", len(activeRules)),
		zap.Int("cases_opened", result.CasesOpened),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Service) evaluateMeter(ctx context.Context, strategy anomalydomain.Strategy, meter meterdomain.Meter, rule anomalydomain.RaRule, now time.Time) (bool, error) {
	finding, err := strategy.Evaluate(ctx, s.db, meter, rule, now)
	if err != nil {
		return false, err
	}
	if finding == nil {
		return false, nil
	}
	return s.openCase(ctx, strategy, meter, rule, finding, now)
}

// openCase creates a case for the finding unless an open one already covers
// it. Concurrent sweeps are settled by the unique open-case index; a
// duplicate key error means the other sweep won and is not a failure.
func (s *Service) openCase(ctx context.Context, strategy anomalydomain.Strategy, meter meterdomain.Meter, rule anomalydomain.RaRule, finding *anomalydomain.Finding, now time.Time) (bool, error) {
	var since *time.Time
	if window := strategy.DedupWindow(); window > 0 {
		cutoff := now.Add(-window)
		since = &cutoff
	}
	existing, err := s.repo.FindOpenCase(ctx, s.db, meter.ID, rule.Code, since)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	c := &anomalydomain.RaCase{
		ID:         s.genID.Generate(),
		TenantID:   meter.TenantID,
		AccountID:  meter.AccountID,
		MeterID:    meter.ID,
		PremiseID:  meter.PremiseID,
		RuleCode:   rule.Code,
		DetectedAt: now,
		Severity:   finding.Severity,
		Status:     anomalydomain.CaseStatusNew,
		Score:      finding.Score,
		Evidence:   finding.Evidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertCase(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}

	s.log.Info("anomaly case opened",
		zap.Int64("case_id", int64(c.ID)),
		zap.Int64("meter_id", int64(meter.ID)),
		zap.String("rule", rule.Code),
		zap.String("severity", string(finding.Severity)),
		zap.Int64("score", finding.Score),
	)
	return true, nil
}

func (s *Service) GetCase(ctx context.Context, tenantID, caseID snowflake.ID) (*anomalydomain.RaCase, error) {
	c, err := s.repo.FindCaseByID(ctx, s.db, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, anomalydomain.ErrCaseNotFound
	}
	return c, nil
}

func (s *Service) ListCases(ctx context.Context, tenantID snowflake.ID, filter anomalydomain.CaseFilter) (*anomalydomain.CasePage, error) {
	cases, err := s.repo.ListCases(ctx, s.db, tenantID, filter)
	if err != nil {
		return nil, err
	}

	page := &anomalydomain.CasePage{Cases: cases}
	if filter.Page.PageSize > 0 && len(cases) > filter.Page.PageSize {
		page.Cases = cases[:filter.Page.PageSize]
		last := page.Cases[len(page.Cases)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:         last.ID.String(),
			DetectedAt: last.DetectedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		page.PageInfo = pagination.PageInfo{NextPageToken: token, HasMore: true}
	}
	return page, nil
}
