package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, p *Payment) error
	FindPaymentByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Payment, error)
	ListPayments(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Payment, error)
	SumPaymentsOnOrBefore(ctx context.Context, db *gorm.DB, accountID snowflake.ID, cutoff time.Time, excludeID snowflake.ID) (int64, error)
	SumPayments(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
	SumInvoiceTotals(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
	ListInvoicesByDue(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, status InvoiceStatus, at time.Time) error
	UpsertSnapshot(ctx context.Context, db *gorm.DB, s *BalanceSnapshot) error
	LatestSnapshot(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*BalanceSnapshot, error)
}
