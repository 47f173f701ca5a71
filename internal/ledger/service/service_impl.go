package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	"github.com/openwaterops/revassure/internal/clock"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	obsmetrics "github.com/openwaterops/revassure/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        ledgerdomain.Repository
	AccountRepo accountdomain.Repository
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        ledgerdomain.Repository
	accountRepo accountdomain.Repository
	metrics     *obsmetrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		metrics:     p.Metrics,
	}
}

func (s *Service) RecordPayment(ctx context.Context, tenantID snowflake.ID, req ledgerdomain.RecordPaymentRequest) (*ledgerdomain.Payment, error) {
	if req.Amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if !req.Channel.Valid() {
		return nil, ledgerdomain.ErrInvalidChannel
	}
	if req.PaidAt.IsZero() {
		return nil, ledgerdomain.ErrInvalidPaidAt
	}

	accountNo := strings.TrimSpace(req.AccountNo)
	account, err := s.accountRepo.FindByAccountNo(ctx, s.db, tenantID, accountNo)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrAccountNotFound
	}

	ref := strings.TrimSpace(req.Ref)
	if ref == "" {
		ref = uuid.NewString()
	}

	meta := datatypes.JSONMap{}
	for k, v := range req.Meta {
		meta[k] = v
	}

	payment := &ledgerdomain.Payment{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		AccountID: account.ID,
		PaidAt:    req.PaidAt.UTC(),
		Amount:    req.Amount,
		Channel:   req.Channel,
		Ref:       ref,
		Meta:      meta,
		CreatedAt: s.clock.Now(),
	}

	if err := s.applyPayment(ctx, tenantID, account.ID, payment); err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(string(payment.Channel), payment.Amount)
	s.log.Info("payment recorded",
		zap.String("account_no", account.AccountNo),
		zap.Int64("amount", payment.Amount),
		zap.String("channel", string(payment.Channel)),
	)
	return payment, nil
}

func (s *Service) ReversePayment(ctx context.Context, tenantID, paymentID snowflake.ID, reason string) (*ledgerdomain.Payment, error) {
	original, err := s.repo.FindPaymentByID(ctx, s.db, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledgerdomain.ErrPaymentNotFound
	}

	reversal := &ledgerdomain.Payment{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		AccountID: original.AccountID,
		PaidAt:    s.clock.Now(),
		Amount:    -original.Amount,
		Channel:   original.Channel,
		Ref:       fmt.Sprintf("REVERSAL:%s", original.ID),
		Meta:      datatypes.JSONMap{"reason": reason, "reversed_payment_id": original.ID.String()},
		CreatedAt: s.clock.Now(),
	}

	if err := s.applyPayment(ctx, tenantID, original.AccountID, reversal); err != nil {
		return nil, err
	}

	s.log.Info("payment reversed",
		zap.String("payment_id", original.ID.String()),
		zap.String("reason", reason),
	)
	return reversal, nil
}

// applyPayment runs the atomic unit of work: insert the payment, waterfall
// it across open invoices, recompute the balance snapshot. The account row
// lock serializes concurrent payments against the same account; payments
// against different accounts do not contend.
func (s *Service) applyPayment(ctx context.Context, tenantID, accountID snowflake.ID, payment *ledgerdomain.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.accountRepo.LockByID(ctx, tx, tenantID, accountID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ledgerdomain.ErrAccountNotFound
		}

		if err := s.repo.InsertPayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := s.allocate(ctx, tx, accountID, payment); err != nil {
			return fmt.Errorf("allocate payment: %w", err)
		}
		if err := s.recomputeSnapshot(ctx, tx, tenantID, accountID); err != nil {
			return fmt.Errorf("recompute snapshot: %w", err)
		}
		return nil
	})
}

// allocate spreads the payment across the account's invoices in due-date
// order. An invoice's outstanding amount is derived by replaying all earlier
// payments over that same ordering, so allocation is a pure function of
// payment history and can be re-run idempotently. The replay must walk every
// invoice, including ones already marked paid: a paid invoice still absorbs
// the money that settled it, otherwise that money would be re-credited
// against later invoices. Statuses only ever advance toward paid; a negative
// (reversal) payment leaves statuses untouched. Any remainder beyond the
// open invoices is dropped, not carried forward as credit.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, payment *ledgerdomain.Payment) error {
	invoices, err := s.repo.ListInvoicesByDue(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		return nil
	}

	priorPaid, err := s.repo.SumPaymentsOnOrBefore(ctx, tx, accountID, payment.PaidAt, payment.ID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	remaining := payment.Amount
	for i := range invoices {
		inv := &invoices[i]

		covered := minInt64(priorPaid, inv.TotalAmount)
		if covered < 0 {
			covered = 0
		}
		priorPaid -= covered
		outstanding := inv.TotalAmount - covered

		if outstanding <= 0 {
			if inv.Status != ledgerdomain.InvoiceStatusPaid {
				if err := s.repo.UpdateInvoiceStatus(ctx, tx, inv.ID, ledgerdomain.InvoiceStatusPaid, now); err != nil {
					return err
				}
			}
			continue
		}

		if remaining <= 0 {
			break
		}

		applied := minInt64(remaining, outstanding)
		remaining -= applied

		if applied == outstanding {
			if inv.Status != ledgerdomain.InvoiceStatusPaid {
				if err := s.repo.UpdateInvoiceStatus(ctx, tx, inv.ID, ledgerdomain.InvoiceStatusPaid, now); err != nil {
					return err
				}
			}
			continue
		}

		if inv.Status != ledgerdomain.InvoiceStatusPaid {
			if err := s.repo.UpdateInvoiceStatus(ctx, tx, inv.ID, ledgerdomain.InvoiceStatusPartPaid, now); err != nil {
				return err
			}
		}
		break
	}

	return nil
}

// recomputeSnapshot rebuilds the account's balance and aging partition from
// the full invoice and payment history, then upserts today's snapshot row.
func (s *Service) recomputeSnapshot(ctx context.Context, tx *gorm.DB, tenantID, accountID snowflake.ID) error {
	now := s.clock.Now()

	totalInvoiced, err := s.repo.SumInvoiceTotals(ctx, tx, accountID)
	if err != nil {
		return err
	}
	totalPaid, err := s.repo.SumPayments(ctx, tx, accountID)
	if err != nil {
		return err
	}

	invoices, err := s.repo.ListInvoicesByDue(ctx, tx, accountID)
	if err != nil {
		return err
	}

	snapshot := &ledgerdomain.BalanceSnapshot{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		AccountID: accountID,
		AsOf:      now.Truncate(24 * time.Hour),
		Balance:   totalInvoiced - totalPaid,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Replay the payment total over the due-date ordering to find each
	// invoice's outstanding amount, then bucket it by days overdue.
	remainingPaid := totalPaid
	for i := range invoices {
		inv := &invoices[i]
		covered := minInt64(remainingPaid, inv.TotalAmount)
		if covered < 0 {
			covered = 0
		}
		remainingPaid -= covered
		outstanding := inv.TotalAmount - covered
		if outstanding <= 0 {
			continue
		}

		switch ledgerdomain.BucketForDays(ledgerdomain.DaysOverdue(inv.DueDate, now)) {
		case ledgerdomain.BucketCurrent:
			snapshot.BucketCurrent += outstanding
		case ledgerdomain.Bucket30Label:
			snapshot.Bucket30 += outstanding
		case ledgerdomain.Bucket60Label:
			snapshot.Bucket60 += outstanding
		case ledgerdomain.Bucket90Label:
			snapshot.Bucket90 += outstanding
		case ledgerdomain.BucketOver90L:
			snapshot.BucketOver90 += outstanding
		}
	}

	return s.repo.UpsertSnapshot(ctx, tx, snapshot)
}

func (s *Service) GetBalance(ctx context.Context, tenantID snowflake.ID, accountNo string) (*ledgerdomain.BalanceSnapshot, error) {
	account, err := s.accountRepo.FindByAccountNo(ctx, s.db, tenantID, strings.TrimSpace(accountNo))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrAccountNotFound
	}
	return s.repo.LatestSnapshot(ctx, s.db, account.ID)
}

func (s *Service) ListPayments(ctx context.Context, tenantID snowflake.ID, accountNo string) ([]ledgerdomain.Payment, error) {
	account, err := s.accountRepo.FindByAccountNo(ctx, s.db, tenantID, strings.TrimSpace(accountNo))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrAccountNotFound
	}
	return s.repo.ListPayments(ctx, s.db, account.ID)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
