package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	"github.com/openwaterops/revassure/internal/clock"
	"github.com/openwaterops/revassure/internal/config"
	dunningdomain "github.com/openwaterops/revassure/internal/dunning/domain"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	obsmetrics "github.com/openwaterops/revassure/internal/observability/metrics"
	"github.com/openwaterops/revassure/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	LedgerRepo  ledgerdomain.Repository
	AccountRepo accountdomain.Repository
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	threshold   int64
	ledgerRepo  ledgerdomain.Repository
	accountRepo accountdomain.Repository
	metrics     *obsmetrics.Metrics
}

func New(p Params) dunningdomain.Service {
	threshold := p.Config.DisconnectionThreshold
	if threshold <= 0 {
		threshold = 50000
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("dunning.service"),
		clock:       p.Clock,
		threshold:   threshold,
		ledgerRepo:  p.LedgerRepo,
		accountRepo: p.AccountRepo,
		metrics:     p.Metrics,
	}
}

// latestSnapshots returns the most recent balance snapshot per account for
// the tenant.
func (s *Service) latestSnapshots(ctx context.Context, tenantID snowflake.ID) ([]ledgerdomain.BalanceSnapshot, error) {
	var snapshots []ledgerdomain.BalanceSnapshot
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.id, s.tenant_id, s.account_id, s.as_of, s.balance,
		        s.bucket_current, s.bucket_30, s.bucket_60, s.bucket_90, s.bucket_over_90,
		        s.created_at, s.updated_at
		 FROM balance_snapshots s
		 JOIN (
			SELECT account_id, MAX(as_of) AS as_of
			FROM balance_snapshots
			WHERE tenant_id = ?
			GROUP BY account_id
		 ) latest ON latest.account_id = s.account_id AND latest.as_of = s.as_of
		 WHERE s.tenant_id = ?
		 ORDER BY s.account_id ASC`,
		tenantID,
		tenantID,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *Service) accountsByID(ctx context.Context, tenantID snowflake.ID) (map[snowflake.ID]accountdomain.Account, error) {
	accounts, err := s.accountRepo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]accountdomain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return byID, nil
}

func (s *Service) AgingReport(ctx context.Context, tenantID snowflake.ID) (*dunningdomain.AgingReport, error) {
	tenantID = tenantctx.Resolve(ctx, tenantID)
	snapshots, err := s.latestSnapshots(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountsByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &dunningdomain.AgingReport{Accounts: []dunningdomain.AgingReportRow{}}
	for _, snap := range snapshots {
		if snap.Overdue() <= 0 {
			continue
		}
		account := accounts[snap.AccountID]
		report.Summary.Current += snap.BucketCurrent
		report.Summary.B30 += snap.Bucket30
		report.Summary.B60 += snap.Bucket60
		report.Summary.B90 += snap.Bucket90
		report.Summary.Over90 += snap.BucketOver90
		report.Accounts = append(report.Accounts, dunningdomain.AgingReportRow{
			AccountNo:    account.AccountNo,
			CustomerName: account.CustomerName,
			Balance:      snap.Balance,
			Buckets: dunningdomain.BucketTotals{
				Current: snap.BucketCurrent,
				B30:     snap.Bucket30,
				B60:     snap.Bucket60,
				B90:     snap.Bucket90,
				Over90:  snap.BucketOver90,
			},
		})
	}
	return report, nil
}

func (s *Service) AccountsForDisconnection(ctx context.Context, tenantID snowflake.ID) ([]dunningdomain.DisconnectionCandidate, error) {
	tenantID = tenantctx.Resolve(ctx, tenantID)
	now := s.clock.Now()
	accounts, err := s.accountRepo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	candidates := []dunningdomain.DisconnectionCandidate{}
	for _, account := range accounts {
		if account.ConnectionStatus != accountdomain.ConnectionStatusActive {
			continue
		}

		invoices, err := s.ledgerRepo.ListInvoicesByDue(ctx, s.db, account.ID)
		if err != nil {
			return nil, err
		}
		totalPaid, err := s.ledgerRepo.SumPayments(ctx, s.db, account.ID)
		if err != nil {
			return nil, err
		}

		var overdue int64
		oldestDays := 0
		remainingPaid := totalPaid
		for i := range invoices {
			inv := &invoices[i]
			covered := inv.TotalAmount
			if remainingPaid < covered {
				covered = remainingPaid
			}
			if covered < 0 {
				covered = 0
			}
			remainingPaid -= covered
			outstanding := inv.TotalAmount - covered
			if outstanding <= 0 || inv.Status == ledgerdomain.InvoiceStatusPaid {
				continue
			}
			days := ledgerdomain.DaysOverdue(inv.DueDate, now)
			if days <= 90 {
				continue
			}
			overdue += outstanding
			if days > oldestDays {
				oldestDays = days
			}
		}

		if overdue > s.threshold {
			candidates = append(candidates, dunningdomain.DisconnectionCandidate{
				AccountID:     account.ID,
				AccountNo:     account.AccountNo,
				CustomerName:  account.CustomerName,
				OverdueAmount: overdue,
				OldestDueDays: oldestDays,
			})
		}
	}
	return candidates, nil
}

func (s *Service) GenerateNotices(ctx context.Context, tenantID snowflake.ID, bucket ledgerdomain.AgingBucket) ([]dunningdomain.Notice, error) {
	tenantID = tenantctx.Resolve(ctx, tenantID)
	if !bucket.ValidOverdueBucket() {
		return nil, dunningdomain.ErrInvalidBucket
	}

	snapshots, err := s.latestSnapshots(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountsByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	notices := []dunningdomain.Notice{}
	for _, snap := range snapshots {
		amount := bucketAmount(snap, bucket)
		if amount <= 0 {
			continue
		}
		account, ok := accounts[snap.AccountID]
		if !ok {
			continue
		}
		notices = append(notices, dunningdomain.Notice{
			AccountNo:     account.AccountNo,
			CustomerName:  account.CustomerName,
			CustomerPhone: account.CustomerPhone,
			CustomerEmail: account.CustomerEmail,
			AmountDue:     amount,
			TotalBalance:  snap.Balance,
			AgingBucket:   bucket,
			Template:      renderTemplate(bucket, account, amount),
		})
		s.metrics.RecordNotice(string(bucket))
	}
	return notices, nil
}

func bucketAmount(snap ledgerdomain.BalanceSnapshot, bucket ledgerdomain.AgingBucket) int64 {
	switch bucket {
	case ledgerdomain.Bucket30Label:
		return snap.Bucket30
	case ledgerdomain.Bucket60Label:
		return snap.Bucket60
	case ledgerdomain.Bucket90Label:
		return snap.Bucket90
	case ledgerdomain.BucketOver90L:
		return snap.BucketOver90
	default:
		return 0
	}
}

func (s *Service) MarkForDisconnection(ctx context.Context, tenantID snowflake.ID, accountNo string) error {
	account, err := s.findAccount(ctx, tenantID, accountNo)
	if err != nil {
		return err
	}

	switch account.ConnectionStatus {
	case accountdomain.ConnectionStatusPendingDisconnect, accountdomain.ConnectionStatusDisconnected:
		// Already at or past the target.
		return nil
	}

	ok, err := s.accountRepo.UpdateConnectionStatus(ctx, s.db, tenantID, account.ID,
		[]accountdomain.ConnectionStatus{accountdomain.ConnectionStatusActive},
		accountdomain.ConnectionStatusPendingDisconnect,
		s.clock.Now(),
	)
	if err != nil {
		return err
	}
	if !ok {
		return s.resolveRace(ctx, tenantID, account.ID,
			accountdomain.ConnectionStatusPendingDisconnect,
			accountdomain.ConnectionStatusDisconnected,
		)
	}
	s.log.Info("account marked for disconnection", zap.String("account_no", account.AccountNo))
	return nil
}

func (s *Service) DisconnectAccount(ctx context.Context, tenantID snowflake.ID, accountNo string) error {
	account, err := s.findAccount(ctx, tenantID, accountNo)
	if err != nil {
		return err
	}

	if account.ConnectionStatus == accountdomain.ConnectionStatusDisconnected {
		return nil
	}

	ok, err := s.accountRepo.UpdateConnectionStatus(ctx, s.db, tenantID, account.ID,
		[]accountdomain.ConnectionStatus{accountdomain.ConnectionStatusPendingDisconnect},
		accountdomain.ConnectionStatusDisconnected,
		s.clock.Now(),
	)
	if err != nil {
		return err
	}
	if !ok {
		return s.resolveRace(ctx, tenantID, account.ID,
			accountdomain.ConnectionStatusDisconnected,
		)
	}
	s.log.Info("account disconnected", zap.String("account_no", account.AccountNo))
	return nil
}

func (s *Service) ReconnectAccount(ctx context.Context, tenantID snowflake.ID, accountNo string) error {
	account, err := s.findAccount(ctx, tenantID, accountNo)
	if err != nil {
		return err
	}

	if account.ConnectionStatus == accountdomain.ConnectionStatusActive {
		return nil
	}

	// Reconnection before full settlement is prohibited.
	snapshot, err := s.ledgerRepo.LatestSnapshot(ctx, s.db, account.ID)
	if err != nil {
		return err
	}
	if snapshot != nil && snapshot.Balance > 0 {
		return fmt.Errorf("%w: account %s owes %d", dunningdomain.ErrOutstandingBalance, account.AccountNo, snapshot.Balance)
	}

	ok, err := s.accountRepo.UpdateConnectionStatus(ctx, s.db, tenantID, account.ID,
		[]accountdomain.ConnectionStatus{
			accountdomain.ConnectionStatusDisconnected,
			accountdomain.ConnectionStatusPendingDisconnect,
		},
		accountdomain.ConnectionStatusActive,
		s.clock.Now(),
	)
	if err != nil {
		return err
	}
	if !ok {
		return s.resolveRace(ctx, tenantID, account.ID, accountdomain.ConnectionStatusActive)
	}
	s.log.Info("account reconnected", zap.String("account_no", account.AccountNo))
	return nil
}

func (s *Service) findAccount(ctx context.Context, tenantID snowflake.ID, accountNo string) (*accountdomain.Account, error) {
	account, err := s.accountRepo.FindByAccountNo(ctx, s.db, tenantID, strings.TrimSpace(accountNo))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, dunningdomain.ErrAccountNotFound
	}
	return account, nil
}

// resolveRace re-reads the account after a failed optimistic update; the
// transition is idempotent when a concurrent actor already landed on an
// acceptable state.
func (s *Service) resolveRace(ctx context.Context, tenantID, accountID snowflake.ID, acceptable ...accountdomain.ConnectionStatus) error {
	account, err := s.accountRepo.FindByID(ctx, s.db, tenantID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return dunningdomain.ErrAccountNotFound
	}
	for _, status := range acceptable {
		if account.ConnectionStatus == status {
			return nil
		}
	}
	return fmt.Errorf("%w: account is %s", dunningdomain.ErrConflict, account.ConnectionStatus)
}
