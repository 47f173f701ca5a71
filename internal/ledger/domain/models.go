// Package domain contains persistence models for the payment allocation and
// aging ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. An invoice is immutable
// once created except for its status, which only the allocation step mutates.
type InvoiceStatus string

const (
	InvoiceStatusOpen     InvoiceStatus = "open"
	InvoiceStatusPartPaid InvoiceStatus = "part_paid"
	InvoiceStatusPaid     InvoiceStatus = "paid"
)

// PaymentChannel is the closed enumeration of accepted payment channels.
type PaymentChannel string

const (
	ChannelCash         PaymentChannel = "cash"
	ChannelBankTransfer PaymentChannel = "bank_transfer"
	ChannelMobileMoney  PaymentChannel = "mobile_money"
	ChannelCard         PaymentChannel = "card"
	ChannelCheque       PaymentChannel = "cheque"
	// ChannelAdjustment carries case-resolution billing adjustments handed
	// back from the investigation workflow.
	ChannelAdjustment PaymentChannel = "adjustment"
)

// Valid returns true when the channel is part of the enumeration.
func (c PaymentChannel) Valid() bool {
	switch c {
	case ChannelCash, ChannelBankTransfer, ChannelMobileMoney, ChannelCard, ChannelCheque, ChannelAdjustment:
		return true
	default:
		return false
	}
}

// Invoice is an externally priced billing obligation. Amounts are minor
// currency units.
type Invoice struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	TenantID    snowflake.ID  `gorm:"not null;index"`
	AccountID   snowflake.ID  `gorm:"not null;index"`
	PeriodStart time.Time     `gorm:"not null"`
	PeriodEnd   time.Time     `gorm:"not null"`
	DueDate     time.Time     `gorm:"not null"`
	TotalAmount int64         `gorm:"not null"`
	Status      InvoiceStatus `gorm:"type:text;not null;default:'open'"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Payment is an append-only ledger entry. Reversals are new rows with a
// negated amount, never edits; the payment history is the audit trail.
type Payment struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	TenantID  snowflake.ID      `gorm:"not null;index"`
	AccountID snowflake.ID      `gorm:"not null;index"`
	PaidAt    time.Time         `gorm:"not null"`
	Amount    int64             `gorm:"not null"`
	Channel   PaymentChannel    `gorm:"type:text;not null"`
	Ref       string            `gorm:"type:text;not null;default:''"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// BalanceSnapshot is the rolling balance and aging partition for an account,
// one row per as-of date, recomputed from scratch on every payment.
type BalanceSnapshot struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	TenantID      snowflake.ID `gorm:"not null;index"`
	AccountID     snowflake.ID `gorm:"not null;index:ux_balance_snapshots_account_as_of,unique,priority:1"`
	AsOf          time.Time    `gorm:"type:date;not null;index:ux_balance_snapshots_account_as_of,unique,priority:2"`
	Balance       int64        `gorm:"not null;default:0"`
	BucketCurrent int64        `gorm:"column:bucket_current;not null;default:0"`
	Bucket30      int64        `gorm:"column:bucket_30;not null;default:0"`
	Bucket60      int64        `gorm:"column:bucket_60;not null;default:0"`
	Bucket90      int64        `gorm:"column:bucket_90;not null;default:0"`
	BucketOver90  int64        `gorm:"column:bucket_over_90;not null;default:0"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BalanceSnapshot) TableName() string { return "balance_snapshots" }

// Overdue is the summed amount sitting in collection buckets (everything
// past the 30-day grace boundary).
func (s BalanceSnapshot) Overdue() int64 {
	return s.Bucket30 + s.Bucket60 + s.Bucket90 + s.BucketOver90
}
