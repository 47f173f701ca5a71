package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	"github.com/openwaterops/revassure/pkg/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() anomalydomain.Repository {
	return &repo{}
}

const caseColumns = `id, tenant_id, account_id, meter_id, premise_id, rule_code, detected_at, severity, status, score, evidence, created_at, updated_at`

func (r *repo) ListActiveRules(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]anomalydomain.RaRule, error) {
	var rules []anomalydomain.RaRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, code, active, severity, params, created_at, updated_at
		 FROM ra_rules WHERE tenant_id = ? AND active = ?
		 ORDER BY code ASC`,
		tenantID,
		true,
	).Scan(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// UpsertRule inserts the rule, or updates its configuration when the tenant
// already carries the code.
func (r *repo) UpsertRule(ctx context.Context, db *gorm.DB, rule *anomalydomain.RaRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ra_rules (id, tenant_id, code, active, severity, params, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, code) DO UPDATE SET
			active = EXCLUDED.active,
			severity = EXCLUDED.severity,
			params = EXCLUDED.params,
			updated_at = EXCLUDED.updated_at`,
		rule.ID,
		rule.TenantID,
		rule.Code,
		rule.Active,
		rule.Severity,
		rule.Params,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) InsertCase(ctx context.Context, db *gorm.DB, c *anomalydomain.RaCase) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindOpenCase(ctx context.Context, db *gorm.DB, meterID snowflake.ID, ruleCode string, since *time.Time) (*anomalydomain.RaCase, error) {
	query := `SELECT ` + caseColumns + `
		 FROM ra_cases
		 WHERE meter_id = ? AND rule_code = ? AND status IN ?`
	args := []interface{}{meterID, ruleCode, anomalydomain.OpenStatuses()}
	if since != nil {
		query += ` AND detected_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY detected_at DESC LIMIT 1`

	var c anomalydomain.RaCase
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindCaseByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*anomalydomain.RaCase, error) {
	var c anomalydomain.RaCase
	err := db.WithContext(ctx).Raw(
		`SELECT `+caseColumns+` FROM ra_cases WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

// ListCases pages cases newest detection first. The caller asks for one row
// beyond the page size to learn whether more pages remain.
func (r *repo) ListCases(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter anomalydomain.CaseFilter) ([]anomalydomain.RaCase, error) {
	query := `SELECT ` + caseColumns + ` FROM ra_cases WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.Severity != nil {
		query += ` AND severity = ?`
		args = append(args, *filter.Severity)
	}
	if filter.Page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.Page.PageToken)
		if err != nil {
			return nil, err
		}
		detectedAt, err := time.Parse(time.RFC3339Nano, cursor.DetectedAt)
		if err != nil {
			return nil, err
		}
		afterID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		query += ` AND (detected_at < ? OR (detected_at = ? AND id < ?))`
		args = append(args, detectedAt, detectedAt, afterID)
	}

	query += ` ORDER BY detected_at DESC, id DESC`
	if filter.Page.PageSize > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Page.PageSize+1)
	}

	var cases []anomalydomain.RaCase
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *repo) UpdateCaseStatusIf(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expected []anomalydomain.CaseStatus, next anomalydomain.CaseStatus, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE ra_cases SET status = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status IN ?`,
		next,
		at,
		tenantID,
		id,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
