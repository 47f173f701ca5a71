package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/openwaterops/revassure/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

const accountColumns = `id, tenant_id, account_no, customer_name, customer_phone, customer_email,
	premise_id, connection_status, created_at, updated_at`

func (r *repo) FindByAccountNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, accountNo string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT `+accountColumns+`
		 FROM accounts WHERE tenant_id = ? AND account_no = ?`,
		tenantID,
		accountNo,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT `+accountColumns+`
		 FROM accounts WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*accountdomain.Account, error) {
	query := `SELECT ` + accountColumns + `
	 FROM accounts WHERE tenant_id = ? AND id = ?`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var account accountdomain.Account
	err := db.WithContext(ctx).Raw(query, tenantID, id).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) UpdateConnectionStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expected []accountdomain.ConnectionStatus, next accountdomain.ConnectionStatus, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET connection_status = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND connection_status IN ?`,
		next,
		at,
		tenantID,
		id,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT `+accountColumns+`
		 FROM accounts WHERE tenant_id = ? ORDER BY account_no ASC`,
		tenantID,
	).Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
