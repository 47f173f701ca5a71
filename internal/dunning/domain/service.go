package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
)

type Service interface {
	// AgingReport sums aging buckets across all accounts with overdue
	// balance. Read-only.
	AgingReport(ctx context.Context, tenantID snowflake.ID) (*AgingReport, error)
	// AccountsForDisconnection lists active accounts with invoices due more
	// than 90 days ago whose summed overdue amount exceeds the configured
	// threshold. Read-only.
	AccountsForDisconnection(ctx context.Context, tenantID snowflake.ID) ([]DisconnectionCandidate, error)
	// GenerateNotices renders escalation notices for every account with a
	// positive amount in the given bucket. Rendering only, nothing is sent.
	GenerateNotices(ctx context.Context, tenantID snowflake.ID, bucket ledgerdomain.AgingBucket) ([]Notice, error)

	// MarkForDisconnection moves an active account to pending_disconnect;
	// a no-op when the account is already pending or disconnected.
	MarkForDisconnection(ctx context.Context, tenantID snowflake.ID, accountNo string) error
	// DisconnectAccount moves a pending_disconnect account to disconnected;
	// a no-op when already disconnected.
	DisconnectAccount(ctx context.Context, tenantID snowflake.ID, accountNo string) error
	// ReconnectAccount restores supply to a disconnected account. Fails
	// when the latest balance snapshot still shows outstanding debt.
	ReconnectAccount(ctx context.Context, tenantID snowflake.ID, accountNo string) error
}
