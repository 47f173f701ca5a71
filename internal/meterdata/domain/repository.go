package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Meter, error)
	ListActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Meter, error)
	// GoodReadsSince returns good-quality reads taken on/after since, oldest first.
	GoodReadsSince(ctx context.Context, db *gorm.DB, meterID snowflake.ID, since time.Time) ([]MeterRead, error)
	// RecentGoodReads returns up to limit good-quality reads, newest first.
	RecentGoodReads(ctx context.Context, db *gorm.DB, meterID snowflake.ID, limit int) ([]MeterRead, error)
	// LastGoodReadBefore returns the most recent good-quality read strictly
	// before the given instant, or nil.
	LastGoodReadBefore(ctx context.Context, db *gorm.DB, meterID snowflake.ID, before time.Time) (*MeterRead, error)
}
