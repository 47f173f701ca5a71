package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	caseflowdomain "github.com/openwaterops/revassure/internal/caseflow/domain"
	"github.com/openwaterops/revassure/internal/clock"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        caseflowdomain.Repository
	CaseRepo    anomalydomain.Repository
	AccountRepo accountdomain.Repository
	Ledger      ledgerdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        caseflowdomain.Repository
	caseRepo    anomalydomain.Repository
	accountRepo accountdomain.Repository
	ledger      ledgerdomain.Service
}

func New(p Params) caseflowdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("caseflow.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		caseRepo:    p.CaseRepo,
		accountRepo: p.AccountRepo,
		ledger:      p.Ledger,
	}
}

func (s *Service) TriageCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error) {
	return s.transition(ctx, tenantID, caseID, actorID,
		[]anomalydomain.CaseStatus{anomalydomain.CaseStatusNew},
		anomalydomain.CaseStatusTriage,
		caseflowdomain.ActionTriage,
		notePayload(note),
	)
}

func (s *Service) DispatchToField(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error) {
	// Urgent cases may skip triage and go straight out.
	return s.transition(ctx, tenantID, caseID, actorID,
		[]anomalydomain.CaseStatus{anomalydomain.CaseStatusNew, anomalydomain.CaseStatusTriage},
		anomalydomain.CaseStatusField,
		caseflowdomain.ActionDispatch,
		notePayload(note),
	)
}

func (s *Service) CloseAsFalsePositive(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error) {
	return s.transition(ctx, tenantID, caseID, actorID,
		[]anomalydomain.CaseStatus{anomalydomain.CaseStatusNew, anomalydomain.CaseStatusTriage},
		anomalydomain.CaseStatusClosed,
		caseflowdomain.ActionFalsePositive,
		notePayload(note),
	)
}

// ResolveCase records the outcome of an investigation and its follow-up
// action. A billing adjustment with recovered money is handed to the ledger
// after the workflow transaction commits.
func (s *Service) ResolveCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, req caseflowdomain.ResolveCaseRequest) (*anomalydomain.RaCase, error) {
	action, ok := req.Outcome.ActionFor()
	if !ok {
		return nil, fmt.Errorf("%w: %q", caseflowdomain.ErrInvalidOutcome, req.Outcome)
	}
	if req.AmountRecovered < 0 {
		return nil, caseflowdomain.ErrInvalidAmount
	}

	payload := notePayload(req.Note)
	payload["outcome"] = string(req.Outcome)
	if req.AmountRecovered > 0 {
		payload["amount_recovered"] = req.AmountRecovered
	}

	c, err := s.transition(ctx, tenantID, caseID, actorID,
		[]anomalydomain.CaseStatus{anomalydomain.CaseStatusField},
		anomalydomain.CaseStatusResolved,
		action,
		payload,
	)
	if err != nil {
		return nil, err
	}

	if req.Outcome == caseflowdomain.OutcomeBillingAdjusted && req.AmountRecovered > 0 {
		s.recordRecovery(ctx, tenantID, c, req)
	}
	return c, nil
}

func (s *Service) CloseCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error) {
	return s.transition(ctx, tenantID, caseID, actorID,
		[]anomalydomain.CaseStatus{anomalydomain.CaseStatusResolved},
		anomalydomain.CaseStatusClosed,
		caseflowdomain.ActionClose,
		notePayload(note),
	)
}

func (s *Service) ListActions(ctx context.Context, tenantID, caseID snowflake.ID) ([]caseflowdomain.RaAction, error) {
	c, err := s.caseRepo.FindCaseByID(ctx, s.db, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, caseflowdomain.ErrCaseNotFound
	}
	return s.repo.ListActions(ctx, s.db, caseID)
}

// transition applies an optimistic status update and appends the audit
// action in one transaction. A missed update is re-read to tell a missing or
// foreign-tenant case apart from a status race.
func (s *Service) transition(ctx context.Context, tenantID, caseID, actorID snowflake.ID, expected []anomalydomain.CaseStatus, next anomalydomain.CaseStatus, action caseflowdomain.ActionKind, payload map[string]any) (*anomalydomain.RaCase, error) {
	now := s.clock.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.caseRepo.UpdateCaseStatusIf(ctx, tx, tenantID, caseID, expected, next, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.caseRepo.FindCaseByID(ctx, tx, tenantID, caseID)
			if err != nil {
				return err
			}
			if current == nil {
				return caseflowdomain.ErrCaseNotFound
			}
			return fmt.Errorf("%w: case is %s", caseflowdomain.ErrConflict, current.Status)
		}

		return s.repo.InsertAction(ctx, tx, &caseflowdomain.RaAction{
			ID:         s.genID.Generate(),
			RaCaseID:   caseID,
			Action:     action,
			Payload:    payload,
			ActorID:    actorID,
			OccurredAt: now,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("case transitioned",
		zap.Int64("case_id", int64(caseID)),
		zap.String("status", string(next)),
		zap.String("action", string(action)),
	)
	return s.caseRepo.FindCaseByID(ctx, s.db, tenantID, caseID)
}

// recordRecovery posts the recovered amount to the ledger as an adjustment
// payment. The case is already resolved; a ledger failure is logged, not
// rolled back.
func (s *Service) recordRecovery(ctx context.Context, tenantID snowflake.ID, c *anomalydomain.RaCase, req caseflowdomain.ResolveCaseRequest) {
	if s.ledger == nil {
		s.log.Warn("ledger unavailable, recovered amount not posted",
			zap.Int64("case_id", int64(c.ID)),
			zap.Int64("amount", req.AmountRecovered),
		)
		return
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, tenantID, c.AccountID)
	if err != nil || account == nil {
		s.log.Error("account lookup failed for recovery posting",
			zap.Int64("case_id", int64(c.ID)),
			zap.Int64("account_id", int64(c.AccountID)),
			zap.Error(err),
		)
		return
	}

	_, err = s.ledger.RecordPayment(ctx, tenantID, ledgerdomain.RecordPaymentRequest{
		AccountNo: account.AccountNo,
		Amount:    req.AmountRecovered,
		PaidAt:    s.clock.Now(),
		Channel:   ledgerdomain.ChannelAdjustment,
		Ref:       fmt.Sprintf("RA-CASE:%d", c.ID),
		Meta: map[string]any{
			"ra_case_id": c.ID.String(),
			"outcome":    string(req.Outcome),
		},
	})
	if err != nil {
		s.log.Error("recovered amount posting failed",
			zap.Int64("case_id", int64(c.ID)),
			zap.Int64("amount", req.AmountRecovered),
			zap.Error(err),
		)
		return
	}
	s.log.Info("recovered amount posted to ledger",
		zap.Int64("case_id", int64(c.ID)),
		zap.Int64("amount", req.AmountRecovered),
	)
}

func notePayload(note string) map[string]any {
	payload := map[string]any{}
	if note != "" {
		payload["note"] = note
	}
	return payload
}
