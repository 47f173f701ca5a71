package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("account_not_found")
)

type Repository interface {
	FindByAccountNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, accountNo string) (*Account, error)
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Account, error)
	// LockByID acquires a row lock on the account inside the current
	// transaction, serializing concurrent ledger work per account.
	LockByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Account, error)
	// UpdateConnectionStatus applies an optimistic transition and reports
	// whether a row matched the expected current statuses.
	UpdateConnectionStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expected []ConnectionStatus, next ConnectionStatus, at time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Account, error)
}
