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
	accountrepo "github.com/openwaterops/revassure/internal/account/repository"
	"github.com/openwaterops/revassure/internal/clock"
	"github.com/openwaterops/revassure/internal/config"
	dunningdomain "github.com/openwaterops/revassure/internal/dunning/domain"
	ledgerdomain "github.com/openwaterops/revassure/internal/ledger/domain"
	ledgerrepo "github.com/openwaterops/revassure/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tenantID = snowflake.ID(42)

var nextID int64 = 5000

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
		&ledgerdomain.Invoice{},
		&ledgerdomain.Payment{},
		&ledgerdomain.BalanceSnapshot{},
	))
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) dunningdomain.Service {
	t.Helper()
	return New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clk,
		Config:      config.Config{DisconnectionThreshold: 50000},
		LedgerRepo:  ledgerrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
	})
}

func createAccount(t *testing.T, db *gorm.DB, accountNo, name string, status accountdomain.ConnectionStatus) accountdomain.Account {
	t.Helper()
	account := accountdomain.Account{
		ID:               genID(),
		TenantID:         tenantID,
		AccountNo:        accountNo,
		CustomerName:     name,
		CustomerPhone:    "+254700000000",
		CustomerEmail:    "customer@example.com",
		ConnectionStatus: status,
	}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func createSnapshot(t *testing.T, db *gorm.DB, accountID snowflake.ID, asOf time.Time, buckets dunningdomain.BucketTotals) {
	t.Helper()
	snapshot := ledgerdomain.BalanceSnapshot{
		ID:            genID(),
		TenantID:      tenantID,
		AccountID:     accountID,
		AsOf:          asOf,
		Balance:       buckets.Current + buckets.B30 + buckets.B60 + buckets.B90 + buckets.Over90,
		BucketCurrent: buckets.Current,
		Bucket30:      buckets.B30,
		Bucket60:      buckets.B60,
		Bucket90:      buckets.B90,
		BucketOver90:  buckets.Over90,
	}
	require.NoError(t, db.Create(&snapshot).Error)
}

func createInvoice(t *testing.T, db *gorm.DB, accountID snowflake.ID, amount int64, due time.Time) {
	t.Helper()
	invoice := ledgerdomain.Invoice{
		ID:          genID(),
		TenantID:    tenantID,
		AccountID:   accountID,
		PeriodStart: due.AddDate(0, -1, -14),
		PeriodEnd:   due.AddDate(0, 0, -14),
		DueDate:     due,
		TotalAmount: amount,
		Status:      ledgerdomain.InvoiceStatusOpen,
	}
	require.NoError(t, db.Create(&invoice).Error)
}

func TestAgingReport(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	delinquent := createAccount(t, db, "ACC-1", "Amina Okafor", accountdomain.ConnectionStatusActive)
	current := createAccount(t, db, "ACC-2", "Joseph Mwangi", accountdomain.ConnectionStatusActive)

	// The older snapshot must lose to the newer one for the same account.
	createSnapshot(t, db, delinquent.ID, now.AddDate(0, 0, -5), dunningdomain.BucketTotals{B30: 99999})
	createSnapshot(t, db, delinquent.ID, now, dunningdomain.BucketTotals{Current: 1000, B30: 2000, B90: 500})
	createSnapshot(t, db, current.ID, now, dunningdomain.BucketTotals{Current: 3000})

	report, err := svc.AgingReport(context.Background(), tenantID)
	require.NoError(t, err)

	require.Len(t, report.Accounts, 1)
	row := report.Accounts[0]
	assert.Equal(t, "ACC-1", row.AccountNo)
	assert.Equal(t, "Amina Okafor", row.CustomerName)
	assert.Equal(t, int64(3500), row.Balance)
	assert.Equal(t, int64(2000), row.Buckets.B30)
	assert.Equal(t, int64(500), row.Buckets.B90)

	assert.Equal(t, int64(1000), report.Summary.Current)
	assert.Equal(t, int64(2000), report.Summary.B30)
	assert.Equal(t, int64(500), report.Summary.B90)
	assert.Equal(t, int64(0), report.Summary.Over90)
}

func TestAccountsForDisconnection(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	eligible := createAccount(t, db, "ACC-10", "Grace Wanjiru", accountdomain.ConnectionStatusActive)
	createInvoice(t, db, eligible.ID, 60000, now.AddDate(0, 0, -95))

	// Overdue long enough but under the threshold.
	small := createAccount(t, db, "ACC-11", "Peter Otieno", accountdomain.ConnectionStatusActive)
	createInvoice(t, db, small.ID, 40000, now.AddDate(0, 0, -100))

	// Big debt but not yet past the 90-day line.
	recent := createAccount(t, db, "ACC-12", "Mary Njeri", accountdomain.ConnectionStatusActive)
	createInvoice(t, db, recent.ID, 70000, now.AddDate(0, 0, -50))

	// Already out of the active pool.
	pending := createAccount(t, db, "ACC-13", "Samuel Kip", accountdomain.ConnectionStatusPendingDisconnect)
	createInvoice(t, db, pending.ID, 80000, now.AddDate(0, 0, -120))

	candidates, err := svc.AccountsForDisconnection(context.Background(), tenantID)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "ACC-10", candidates[0].AccountNo)
	assert.Equal(t, int64(60000), candidates[0].OverdueAmount)
	assert.Equal(t, 95, candidates[0].OldestDueDays)
}

func TestAccountsForDisconnection_PaymentsReduceOverdue(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	account := createAccount(t, db, "ACC-20", "Grace Wanjiru", accountdomain.ConnectionStatusActive)
	createInvoice(t, db, account.ID, 70000, now.AddDate(0, 0, -95))
	payment := ledgerdomain.Payment{
		ID:        genID(),
		TenantID:  tenantID,
		AccountID: account.ID,
		PaidAt:    now.AddDate(0, 0, -10),
		Amount:    15000,
		Channel:   ledgerdomain.ChannelCash,
	}
	require.NoError(t, db.Create(&payment).Error)

	candidates, err := svc.AccountsForDisconnection(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(55000), candidates[0].OverdueAmount)

	// One more payment pushes the overdue amount under the threshold.
	payment2 := payment
	payment2.ID = genID()
	payment2.Amount = 15000
	require.NoError(t, db.Create(&payment2).Error)

	candidates, err = svc.AccountsForDisconnection(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGenerateNotices(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	account := createAccount(t, db, "ACC-30", "Amina Okafor", accountdomain.ConnectionStatusActive)
	createSnapshot(t, db, account.ID, now, dunningdomain.BucketTotals{B60: 12345, Current: 500})

	// Nothing in the bucket means nothing rendered.
	quiet := createAccount(t, db, "ACC-31", "Joseph Mwangi", accountdomain.ConnectionStatusActive)
	createSnapshot(t, db, quiet.ID, now, dunningdomain.BucketTotals{Current: 9000})

	notices, err := svc.GenerateNotices(context.Background(), tenantID, ledgerdomain.Bucket60Label)
	require.NoError(t, err)

	require.Len(t, notices, 1)
	notice := notices[0]
	assert.Equal(t, "ACC-30", notice.AccountNo)
	assert.Equal(t, int64(12345), notice.AmountDue)
	assert.Equal(t, int64(12845), notice.TotalBalance)
	assert.Equal(t, "warning", notice.Template.Severity)
	assert.Contains(t, notice.Template.Message, "Amina Okafor")
	assert.Contains(t, notice.Template.Message, "123.45")
	assert.Contains(t, notice.Template.Subject, "ACC-30")
}

func TestGenerateNotices_InvalidBucket(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	_, err := svc.GenerateNotices(context.Background(), tenantID, ledgerdomain.BucketCurrent)
	assert.ErrorIs(t, err, dunningdomain.ErrInvalidBucket)

	_, err = svc.GenerateNotices(context.Background(), tenantID, ledgerdomain.AgingBucket("45"))
	assert.ErrorIs(t, err, dunningdomain.ErrInvalidBucket)
}

func TestConnectionLifecycle(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	account := createAccount(t, db, "ACC-40", "Grace Wanjiru", accountdomain.ConnectionStatusActive)

	require.NoError(t, svc.MarkForDisconnection(context.Background(), tenantID, "ACC-40"))
	// Re-marking is a no-op, not an error.
	require.NoError(t, svc.MarkForDisconnection(context.Background(), tenantID, "ACC-40"))

	require.NoError(t, svc.DisconnectAccount(context.Background(), tenantID, "ACC-40"))
	require.NoError(t, svc.DisconnectAccount(context.Background(), tenantID, "ACC-40"))

	var reloaded accountdomain.Account
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	assert.Equal(t, accountdomain.ConnectionStatusDisconnected, reloaded.ConnectionStatus)
	assert.True(t, reloaded.UpdatedAt.Equal(now))

	require.NoError(t, svc.ReconnectAccount(context.Background(), tenantID, "ACC-40"))
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	assert.Equal(t, accountdomain.ConnectionStatusActive, reloaded.ConnectionStatus)
}

func TestDisconnectAccount_RequiresPending(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))
	createAccount(t, db, "ACC-50", "Peter Otieno", accountdomain.ConnectionStatusActive)

	err := svc.DisconnectAccount(context.Background(), tenantID, "ACC-50")
	assert.ErrorIs(t, err, dunningdomain.ErrConflict)
}

func TestReconnectAccount_OutstandingBalance(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now))

	account := createAccount(t, db, "ACC-60", "Mary Njeri", accountdomain.ConnectionStatusDisconnected)
	createSnapshot(t, db, account.ID, now, dunningdomain.BucketTotals{B90: 15000})

	err := svc.ReconnectAccount(context.Background(), tenantID, "ACC-60")
	require.ErrorIs(t, err, dunningdomain.ErrOutstandingBalance)
	assert.Contains(t, err.Error(), "15000")
	assert.Contains(t, err.Error(), "ACC-60")

	var reloaded accountdomain.Account
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	assert.Equal(t, accountdomain.ConnectionStatusDisconnected, reloaded.ConnectionStatus)
}

func TestLifecycle_UnknownAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	assert.ErrorIs(t, svc.MarkForDisconnection(context.Background(), tenantID, "ACC-NONE"), dunningdomain.ErrAccountNotFound)
	assert.ErrorIs(t, svc.DisconnectAccount(context.Background(), tenantID, "ACC-NONE"), dunningdomain.ErrAccountNotFound)
	assert.ErrorIs(t, svc.ReconnectAccount(context.Background(), tenantID, "ACC-NONE"), dunningdomain.ErrAccountNotFound)
}
