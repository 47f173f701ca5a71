package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListActiveRules(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]RaRule, error)
	UpsertRule(ctx context.Context, db *gorm.DB, rule *RaRule) error

	InsertCase(ctx context.Context, db *gorm.DB, c *RaCase) error
	// FindOpenCase returns an open case for the meter and rule, optionally
	// restricted to cases detected on/after since.
	FindOpenCase(ctx context.Context, db *gorm.DB, meterID snowflake.ID, ruleCode string, since *time.Time) (*RaCase, error)
	FindCaseByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*RaCase, error)
	ListCases(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter CaseFilter) ([]RaCase, error)
	// UpdateCaseStatusIf applies an optimistic status transition and reports
	// whether a row matched the expected current statuses.
	UpdateCaseStatusIf(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expected []CaseStatus, next CaseStatus, at time.Time) (bool, error)
}
