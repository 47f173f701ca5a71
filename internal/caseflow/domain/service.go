package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
)

// ResolveCaseRequest closes out a field investigation.
type ResolveCaseRequest struct {
	Outcome Outcome
	Note    string
	// AmountRecovered is money recovered through a billing adjustment, in
	// minor units. When positive with a billing_adjusted outcome it is
	// handed to the ledger as an adjustment payment.
	AmountRecovered int64
}

type Service interface {
	// TriageCase moves a new case into triage.
	TriageCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error)
	// DispatchToField sends a triaged case out for physical inspection.
	DispatchToField(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error)
	// CloseAsFalsePositive closes a case straight from new or triage.
	CloseAsFalsePositive(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error)
	// ResolveCase records the investigation outcome and its follow-up action.
	ResolveCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, req ResolveCaseRequest) (*anomalydomain.RaCase, error)
	// CloseCase archives a resolved case.
	CloseCase(ctx context.Context, tenantID, caseID, actorID snowflake.ID, note string) (*anomalydomain.RaCase, error)
	// ListActions returns the case's audit trail, oldest first.
	ListActions(ctx context.Context, tenantID, caseID snowflake.ID) ([]RaAction, error)
}
