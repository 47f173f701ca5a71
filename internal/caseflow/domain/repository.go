package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAction(ctx context.Context, db *gorm.DB, a *RaAction) error
	ListActions(ctx context.Context, db *gorm.DB, caseID snowflake.ID) ([]RaAction, error)
}
