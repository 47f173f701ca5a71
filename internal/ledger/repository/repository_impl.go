package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

const invoiceColumns = `id, tenant_id, account_id, period_start, period_end, due_date, total_amount, status, created_at, updated_at`

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *ledgerdomain.Payment) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindPaymentByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*ledgerdomain.Payment, error) {
	var payment ledgerdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, account_id, paid_at, amount, channel, ref, meta, created_at
		 FROM payments WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]ledgerdomain.Payment, error) {
	var payments []ledgerdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, account_id, paid_at, amount, channel, ref, meta, created_at
		 FROM payments WHERE account_id = ? ORDER BY paid_at ASC, id ASC`,
		accountID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// SumPaymentsOnOrBefore totals payments dated on/before the cutoff,
// excluding the in-flight payment row.
func (r *repo) SumPaymentsOnOrBefore(ctx context.Context, db *gorm.DB, accountID snowflake.ID, cutoff time.Time, excludeID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments WHERE account_id = ? AND paid_at <= ? AND id <> ?`,
		accountID,
		cutoff,
		excludeID,
	).Scan(&total).Error
	return total, err
}

func (r *repo) SumPayments(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE account_id = ?`,
		accountID,
	).Scan(&total).Error
	return total, err
}

func (r *repo) SumInvoiceTotals(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) FROM invoices WHERE account_id = ?`,
		accountID,
	).Scan(&total).Error
	return total, err
}

// ListInvoicesByDue returns all of the account's invoices ordered oldest
// obligation first. The ordering is the allocation contract.
func (r *repo) ListInvoicesByDue(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]ledgerdomain.Invoice, error) {
	var invoices []ledgerdomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices WHERE account_id = ?
		 ORDER BY due_date ASC, id ASC`,
		accountID,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, status ledgerdomain.InvoiceStatus, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		invoiceID,
	).Error
}

// UpsertSnapshot writes the account's snapshot for the as-of date, replacing
// any existing row for that date.
func (r *repo) UpsertSnapshot(ctx context.Context, db *gorm.DB, s *ledgerdomain.BalanceSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO balance_snapshots (
			id, tenant_id, account_id, as_of, balance,
			bucket_current, bucket_30, bucket_60, bucket_90, bucket_over_90,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, as_of) DO UPDATE SET
			balance = EXCLUDED.balance,
			bucket_current = EXCLUDED.bucket_current,
			bucket_30 = EXCLUDED.bucket_30,
			bucket_60 = EXCLUDED.bucket_60,
			bucket_90 = EXCLUDED.bucket_90,
			bucket_over_90 = EXCLUDED.bucket_over_90,
			updated_at = EXCLUDED.updated_at`,
		s.ID,
		s.TenantID,
		s.AccountID,
		s.AsOf,
		s.Balance,
		s.BucketCurrent,
		s.Bucket30,
		s.Bucket60,
		s.Bucket90,
		s.BucketOver90,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) LatestSnapshot(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*ledgerdomain.BalanceSnapshot, error) {
	var snapshot ledgerdomain.BalanceSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, account_id, as_of, balance,
		        bucket_current, bucket_30, bucket_60, bucket_90, bucket_over_90,
		        created_at, updated_at
		 FROM balance_snapshots
		 WHERE account_id = ?
		 ORDER BY as_of DESC
		 LIMIT 1`,
		accountID,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}
