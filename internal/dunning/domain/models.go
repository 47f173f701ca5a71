// Package domain defines the dunning engine's report and notice payloads.
package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
)

var (
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrInvalidBucket      = errors.New("invalid_aging_bucket")
	ErrConflict           = errors.New("connection_status_conflict")
	ErrOutstandingBalance = errors.New("outstanding_balance")
)

// BucketTotals is the aging partition summed over a set of accounts.
type BucketTotals struct {
	Current int64 `json:"current"`
	B30     int64 `json:"30"`
	B60     int64 `json:"60"`
	B90     int64 `json:"90"`
	Over90  int64 `json:"over_90"`
}

// AgingReportRow is one delinquent account in the aging report.
type AgingReportRow struct {
	AccountNo    string       `json:"account_no"`
	CustomerName string       `json:"customer_name"`
	Balance      int64        `json:"balance"`
	Buckets      BucketTotals `json:"buckets"`
}

// AgingReport sums collection buckets across all accounts carrying overdue
// balance.
type AgingReport struct {
	Summary  BucketTotals     `json:"summary"`
	Accounts []AgingReportRow `json:"accounts"`
}

// DisconnectionCandidate is an active account eligible for supply cut-off.
type DisconnectionCandidate struct {
	AccountID     snowflake.ID `json:"-"`
	AccountNo     string       `json:"account_no"`
	CustomerName  string       `json:"customer_name"`
	OverdueAmount int64        `json:"overdue_amount"`
	OldestDueDays int          `json:"oldest_due_days"`
}

// NoticeTemplate is the severity-graded rendering for one aging bucket.
type NoticeTemplate struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Notice is a rendered dunning payload handed to the notification-delivery
// collaborator; this engine never sends anything itself.
type Notice struct {
	AccountNo     string                   `json:"account_no"`
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	CustomerEmail string                   `json:"customer_email"`
	AmountDue     int64                    `json:"amount_due"`
	TotalBalance  int64                    `json:"total_balance"`
	AgingBucket   ledgerdomain.AgingBucket `json:"aging_bucket"`
	Template      NoticeTemplate           `json:"template"`
}
