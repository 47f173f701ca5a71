// Package domain contains the investigation workflow's action log and
// transition vocabulary. Case rows themselves live with the detector; this
// package owns what happens to them afterwards.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrCaseNotFound   = errors.New("case_not_found")
	ErrConflict       = errors.New("case_status_conflict")
	ErrInvalidOutcome = errors.New("invalid_outcome")
	ErrInvalidAmount  = errors.New("invalid_amount_recovered")
)

// ActionKind names one entry in a case's audit trail. Every status
// transition writes exactly one action.
type ActionKind string

const (
	ActionTriage        ActionKind = "triage"
	ActionDispatch      ActionKind = "dispatch"
	ActionFalsePositive ActionKind = "false_positive"
	ActionClose         ActionKind = "close"
	ActionReplaceMeter  ActionKind = "replace_meter"
	ActionDisconnect    ActionKind = "disconnect"
	ActionBillAdjust    ActionKind = "bill_adjust"
	ActionWriteOff      ActionKind = "write_off"
)

// Outcome is the investigator's conclusion when resolving a case.
type Outcome string

const (
	OutcomeMeterReplaced      Outcome = "meter_replaced"
	OutcomeLeakFixed          Outcome = "leak_fixed"
	OutcomeTamperingConfirmed Outcome = "tampering_confirmed"
	OutcomeBillingAdjusted    Outcome = "billing_adjusted"
	OutcomeNoIssueFound       Outcome = "no_issue_found"
)

// outcomeActions maps every resolution outcome to the follow-up action
// recorded on the case. Leaks and clean findings both end in a write-off of
// the disputed usage.
var outcomeActions = map[Outcome]ActionKind{
	OutcomeMeterReplaced:      ActionReplaceMeter,
	OutcomeLeakFixed:          ActionWriteOff,
	OutcomeTamperingConfirmed: ActionDisconnect,
	OutcomeBillingAdjusted:    ActionBillAdjust,
	OutcomeNoIssueFound:       ActionWriteOff,
}

// ActionFor returns the follow-up action for the outcome.
func (o Outcome) ActionFor() (ActionKind, bool) {
	kind, ok := outcomeActions[o]
	return kind, ok
}

// Valid reports whether the outcome is one the workflow accepts.
func (o Outcome) Valid() bool {
	_, ok := outcomeActions[o]
	return ok
}

// RaAction is one audit-trail entry on a case.
type RaAction struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	RaCaseID   snowflake.ID      `gorm:"not null;index"`
	Action     ActionKind        `gorm:"type:text;not null"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	ActorID    snowflake.ID      `gorm:"not null;default:0"`
	OccurredAt time.Time         `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RaAction) TableName() string { return "ra_actions" }
