// Package domain contains the revenue-assurance rule and case models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Severity grades a rule or case.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// CaseStatus tracks a case through the investigation workflow.
type CaseStatus string

const (
	CaseStatusNew      CaseStatus = "new"
	CaseStatusTriage   CaseStatus = "triage"
	CaseStatusField    CaseStatus = "field"
	CaseStatusResolved CaseStatus = "resolved"
	CaseStatusClosed   CaseStatus = "closed"
)

// OpenStatuses are the statuses that count toward the one-open-case-per
// meter-and-rule invariant.
func OpenStatuses() []CaseStatus {
	return []CaseStatus{CaseStatusNew, CaseStatusTriage, CaseStatusField}
}

// Terminal reports whether the workflow engine drives no further transition
// from the status.
func (s CaseStatus) Terminal() bool {
	return s == CaseStatusResolved || s == CaseStatusClosed
}

// Rule codes for the built-in detection strategies.
const (
	RuleZeroConsumption  = "zero_consumption"
	RuleConsumptionSpike = "consumption_spike"
	RuleTampering        = "tampering"
)

// RaRule configures one detection strategy. Rules are data; the registry
// maps codes to strategies.
type RaRule struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	TenantID  snowflake.ID      `gorm:"not null;index:ux_ra_rules_tenant_code,unique,priority:1"`
	Code      string            `gorm:"type:text;not null;index:ux_ra_rules_tenant_code,unique,priority:2"`
	Active    bool              `gorm:"not null"`
	Severity  Severity          `gorm:"type:text;not null;default:'medium'"`
	Params    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RaRule) TableName() string { return "ra_rules" }

// ParamFloat reads a numeric rule parameter, falling back to def when the
// key is missing or not numeric.
func (r RaRule) ParamFloat(key string, def float64) float64 {
	raw, ok := r.Params[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// ParamInt reads an integer rule parameter.
func (r RaRule) ParamInt(key string, def int) int {
	return int(r.ParamFloat(key, float64(def)))
}

// RaCase is a flagged, scored suspicion of metering or billing irregularity.
type RaCase struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   snowflake.ID      `gorm:"not null;index"`
	AccountID  snowflake.ID      `gorm:"not null;index"`
	MeterID    snowflake.ID      `gorm:"not null;index"`
	PremiseID  snowflake.ID      `gorm:"not null;default:0"`
	RuleCode   string            `gorm:"type:text;not null"`
	DetectedAt time.Time         `gorm:"not null"`
	Severity   Severity          `gorm:"type:text;not null"`
	Status     CaseStatus        `gorm:"type:text;not null;default:'new'"`
	Score      int64             `gorm:"not null;default:0"`
	Evidence   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RaCase) TableName() string { return "ra_cases" }
