package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	anomalyrepo "github.com/openwaterops/revassure/internal/anomaly/repository"
	"github.com/openwaterops/revassure/internal/anomaly/rules"
	"github.com/openwaterops/revassure/internal/clock"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	meterrepo "github.com/openwaterops/revassure/internal/meterdata/repository"
	"github.com/openwaterops/revassure/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const tenantID = snowflake.ID(42)

var nextID int64 = 9000

func genID() snowflake.ID {
	nextID++
	return snowflake.ID(nextID)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&meterdomain.Meter{},
		&meterdomain.MeterRead{},
		&anomalydomain.RaRule{},
		&anomalydomain.RaCase{},
	))
	// The open-case uniqueness lives in a partial index the automigration
	// does not know about.
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_ra_cases_open_meter_rule
		 ON ra_cases (meter_id, rule_code)
		 WHERE status IN ('new', 'triage', 'field')`,
	).Error)
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) anomalydomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := meterrepo.Provide()
	return New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Registry:  rules.Default(repo),
		Repo:      anomalyrepo.Provide(),
		MeterRepo: repo,
	})
}

func createMeter(t *testing.T, db *gorm.DB, serial string) meterdomain.Meter {
	t.Helper()
	meter := meterdomain.Meter{
		ID:        genID(),
		TenantID:  tenantID,
		AccountID: genID(),
		PremiseID: genID(),
		SerialNo:  serial,
		Active:    true,
	}
	require.NoError(t, db.Create(&meter).Error)
	return meter
}

func createRule(t *testing.T, db *gorm.DB, code string, severity anomalydomain.Severity, params datatypes.JSONMap) {
	t.Helper()
	if params == nil {
		params = datatypes.JSONMap{}
	}
	rule := anomalydomain.RaRule{
		ID:       genID(),
		TenantID: tenantID,
		Code:     code,
		Active:   true,
		Severity: severity,
		Params:   params,
	}
	require.NoError(t, db.Create(&rule).Error)
}

func createRead(t *testing.T, db *gorm.DB, meterID snowflake.ID, value float64, at time.Time, quality meterdomain.ReadQuality) {
	t.Helper()
	read := meterdomain.MeterRead{
		ID:      genID(),
		MeterID: meterID,
		Value:   value,
		ReadAt:  at,
		Quality: quality,
	}
	require.NoError(t, db.Create(&read).Error)
}

func openCases(t *testing.T, db *gorm.DB, meterID snowflake.ID) []anomalydomain.RaCase {
	t.Helper()
	var cases []anomalydomain.RaCase
	require.NoError(t, db.Find(&cases, "meter_id = ?", meterID).Error)
	return cases
}

func TestRunSweep_ZeroConsumption(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleZeroConsumption, anomalydomain.SeverityMedium, nil)
	meter := createMeter(t, db, "SER-001")
	for month := 2; month >= 0; month-- {
		createRead(t, db, meter.ID, 100, now.AddDate(0, -month, -1), meterdomain.ReadQualityGood)
	}

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MetersEvaluated)
	assert.Equal(t, 1, result.CasesOpened)
	assert.Empty(t, result.Errors)

	cases := openCases(t, db, meter.ID)
	require.Len(t, cases, 1)
	c := cases[0]
	assert.Equal(t, anomalydomain.RuleZeroConsumption, c.RuleCode)
	assert.Equal(t, anomalydomain.CaseStatusNew, c.Status)
	assert.Equal(t, anomalydomain.SeverityMedium, c.Severity)
	assert.Equal(t, int64(75), c.Score)
	assert.Equal(t, meter.AccountID, c.AccountID)

	// A second sweep finds the open case and opens nothing new.
	result, err = svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CasesOpened)
	assert.Len(t, openCases(t, db, meter.ID), 1)
}

func TestRunSweep_ZeroConsumption_NeedsTwoReads(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleZeroConsumption, anomalydomain.SeverityMedium, nil)
	meter := createMeter(t, db, "SER-002")
	createRead(t, db, meter.ID, 100, now.AddDate(0, 0, -10), meterdomain.ReadQualityGood)
	// Estimated reads never feed detection.
	createRead(t, db, meter.ID, 100, now.AddDate(0, 0, -40), meterdomain.ReadQualityEstimated)

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CasesOpened)
	assert.Empty(t, openCases(t, db, meter.ID))
}

func TestRunSweep_Tampering(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleTampering, anomalydomain.SeverityMedium, nil)
	meter := createMeter(t, db, "SER-003")
	createRead(t, db, meter.ID, 500, now.AddDate(0, 0, -6), meterdomain.ReadQualityGood)
	createRead(t, db, meter.ID, 300, now.AddDate(0, 0, -2), meterdomain.ReadQualityGood)

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CasesOpened)

	cases := openCases(t, db, meter.ID)
	require.Len(t, cases, 1)
	// Register rollback is always graded high, whatever the rule says.
	assert.Equal(t, anomalydomain.SeverityHigh, cases[0].Severity)
	assert.Equal(t, int64(95), cases[0].Score)
	assert.Equal(t, anomalydomain.RuleTampering, cases[0].RuleCode)
}

func TestRunSweep_Tampering_BoundarySpansWindow(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleTampering, anomalydomain.SeverityHigh, nil)
	meter := createMeter(t, db, "SER-004")
	// The drop is between a read outside the 7-day window and one inside it.
	createRead(t, db, meter.ID, 800, now.AddDate(0, 0, -10), meterdomain.ReadQualityGood)
	createRead(t, db, meter.ID, 650, now.AddDate(0, 0, -3), meterdomain.ReadQualityGood)

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CasesOpened)
}

func TestRunSweep_ConsumptionSpike(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleConsumptionSpike, anomalydomain.SeverityMedium, datatypes.JSONMap{"threshold_multiplier": 3.0})
	meter := createMeter(t, db, "SER-005")
	// Five steady intervals of 100, then one of 1000.
	values := []float64{0, 100, 200, 300, 400, 1400}
	for i, v := range values {
		createRead(t, db, meter.ID, v, now.AddDate(0, i-len(values), 0), meterdomain.ReadQualityGood)
	}

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CasesOpened)

	cases := openCases(t, db, meter.ID)
	require.Len(t, cases, 1)
	// latest/avg = 10, capped score.
	assert.Equal(t, int64(100), cases[0].Score)
	assert.Equal(t, anomalydomain.SeverityMedium, cases[0].Severity)
}

func TestRunSweep_ConsumptionSpike_BelowMultiplier(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleConsumptionSpike, anomalydomain.SeverityMedium, nil)
	meter := createMeter(t, db, "SER-006")
	// Latest interval is exactly double the average; under the 3x default.
	values := []float64{0, 100, 200, 300, 400, 600}
	for i, v := range values {
		createRead(t, db, meter.ID, v, now.AddDate(0, i-len(values), 0), meterdomain.ReadQualityGood)
	}

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CasesOpened)
}

func TestRunSweep_InactiveRuleSkipped(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	rule := anomalydomain.RaRule{
		ID:       genID(),
		TenantID: tenantID,
		Code:     anomalydomain.RuleZeroConsumption,
		Active:   false,
		Severity: anomalydomain.SeverityMedium,
		Params:   datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&rule).Error)

	meter := createMeter(t, db, "SER-007")
	for month := 2; month >= 0; month-- {
		createRead(t, db, meter.ID, 100, now.AddDate(0, -month, -1), meterdomain.ReadQualityGood)
	}

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CasesOpened)
}

func TestRunSweep_CollectsMeterErrors(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	createRule(t, db, anomalydomain.RuleZeroConsumption, anomalydomain.SeverityMedium, nil)
	meter := createMeter(t, db, "SER-008")
	require.NoError(t, db.Exec(`DROP TABLE meter_reads`).Error)

	result, err := svc.RunSweep(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, meter.ID, result.Errors[0].MeterID)
	assert.Equal(t, anomalydomain.RuleZeroConsumption, result.Errors[0].RuleCode)
	assert.NotEmpty(t, result.Errors[0].Message)
}

func TestGetCase_TenantIsolation(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	c := anomalydomain.RaCase{
		ID:         genID(),
		TenantID:   tenantID,
		AccountID:  genID(),
		MeterID:    genID(),
		RuleCode:   anomalydomain.RuleTampering,
		DetectedAt: now,
		Severity:   anomalydomain.SeverityHigh,
		Status:     anomalydomain.CaseStatusNew,
		Evidence:   datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&c).Error)

	got, err := svc.GetCase(context.Background(), tenantID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.GetCase(context.Background(), snowflake.ID(7777), c.ID)
	assert.ErrorIs(t, err, anomalydomain.ErrCaseNotFound)
}

func TestListCases_FilterAndPaging(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	meterID := genID()
	for i := 0; i < 3; i++ {
		c := anomalydomain.RaCase{
			ID:         genID(),
			TenantID:   tenantID,
			AccountID:  genID(),
			MeterID:    meterID,
			RuleCode:   fmt.Sprintf("rule_%d", i),
			DetectedAt: now.AddDate(0, 0, -i),
			Severity:   anomalydomain.SeverityMedium,
			Status:     anomalydomain.CaseStatusNew,
			Evidence:   datatypes.JSONMap{},
		}
		if i == 2 {
			c.Status = anomalydomain.CaseStatusClosed
		}
		require.NoError(t, db.Create(&c).Error)
	}

	status := anomalydomain.CaseStatusNew
	page, err := svc.ListCases(context.Background(), tenantID, anomalydomain.CaseFilter{
		Status: &status,
		Page:   pagination.Pagination{PageSize: 1},
	})
	require.NoError(t, err)
	require.Len(t, page.Cases, 1)
	assert.True(t, page.PageInfo.HasMore)
	// Newest detection first.
	assert.True(t, page.Cases[0].DetectedAt.Equal(now))

	next, err := svc.ListCases(context.Background(), tenantID, anomalydomain.CaseFilter{
		Status: &status,
		Page:   pagination.Pagination{PageSize: 1, PageToken: page.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, next.Cases, 1)
	assert.False(t, next.PageInfo.HasMore)
	assert.True(t, next.Cases[0].DetectedAt.Before(page.Cases[0].DetectedAt))
}
