package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// RecordPayment records a customer payment, allocates it across the
	// account's open invoices oldest-due first, and recomputes the balance
	// snapshot. The three steps commit atomically.
	RecordPayment(ctx context.Context, tenantID snowflake.ID, req RecordPaymentRequest) (*Payment, error)
	// ReversePayment appends a negated copy of an existing payment and
	// re-runs allocation and aging.
	ReversePayment(ctx context.Context, tenantID, paymentID snowflake.ID, reason string) (*Payment, error)
	// GetBalance returns the most recent balance snapshot for the account.
	GetBalance(ctx context.Context, tenantID snowflake.ID, accountNo string) (*BalanceSnapshot, error)
	// ListPayments returns the account's full payment history, oldest first.
	ListPayments(ctx context.Context, tenantID snowflake.ID, accountNo string) ([]Payment, error)
}

type RecordPaymentRequest struct {
	AccountNo string
	Amount    int64
	PaidAt    time.Time
	Channel   PaymentChannel
	Ref       string
	Meta      map[string]any
}
