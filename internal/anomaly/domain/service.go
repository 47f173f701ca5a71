package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"github.com/openwaterops/revassure/pkg/pagination"
	"gorm.io/gorm"
)

var (
	ErrCaseNotFound = errors.New("case_not_found")
	ErrRuleNotFound = errors.New("rule_not_found")
)

// Finding is a positive detection result produced by a strategy.
type Finding struct {
	Severity Severity
	Score    int64
	Evidence map[string]any
}

// Strategy is one detection rule implementation. Strategies are read-only
// over meter history; the sweep owns case creation and deduplication.
type Strategy interface {
	Code() string
	// DedupWindow is the recency window applied to the existing-open-case
	// check before a new case may be created; zero means any open case
	// blocks regardless of age. Windows differ per rule and are part of
	// each rule's contract.
	DedupWindow() time.Duration
	Evaluate(ctx context.Context, db *gorm.DB, meter meterdomain.Meter, rule RaRule, now time.Time) (*Finding, error)
}

// MeterError is one meter's failure inside a sweep; sweeps never abort on a
// single meter.
type MeterError struct {
	MeterID  snowflake.ID `json:"meter_id"`
	RuleCode string       `json:"rule_code"`
	Message  string       `json:"message"`
}

// SweepResult reports one detection run.
type SweepResult struct {
	MetersEvaluated int          `json:"meters_evaluated"`
	CasesOpened     int          `json:"cases_opened"`
	Errors          []MeterError `json:"errors"`
}

type CaseFilter struct {
	Status   *CaseStatus
	Severity *Severity
	Page     pagination.Pagination
}

type CasePage struct {
	Cases    []RaCase
	PageInfo pagination.PageInfo
}

type Service interface {
	// RunSweep evaluates every active rule against every active meter in
	// the tenant, opening deduplicated cases for findings.
	RunSweep(ctx context.Context, tenantID snowflake.ID) (*SweepResult, error)
	GetCase(ctx context.Context, tenantID, caseID snowflake.ID) (*RaCase, error)
	ListCases(ctx context.Context, tenantID snowflake.ID, filter CaseFilter) (*CasePage, error)
}
