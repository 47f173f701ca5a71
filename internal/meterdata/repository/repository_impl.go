package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() meterdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*meterdomain.Meter, error) {
	var meter meterdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, account_id, premise_id, serial_no, active, created_at, updated_at
		 FROM meters WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&meter).Error
	if err != nil {
		return nil, err
	}
	if meter.ID == 0 {
		return nil, nil
	}
	return &meter, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]meterdomain.Meter, error) {
	var meters []meterdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, account_id, premise_id, serial_no, active, created_at, updated_at
		 FROM meters WHERE tenant_id = ? AND active = ? ORDER BY id ASC`,
		tenantID,
		true,
	).Scan(&meters).Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *repo) GoodReadsSince(ctx context.Context, db *gorm.DB, meterID snowflake.ID, since time.Time) ([]meterdomain.MeterRead, error) {
	var reads []meterdomain.MeterRead
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, value, read_at, quality, created_at
		 FROM meter_reads
		 WHERE meter_id = ? AND quality = ? AND read_at >= ?
		 ORDER BY read_at ASC`,
		meterID,
		meterdomain.ReadQualityGood,
		since,
	).Scan(&reads).Error
	if err != nil {
		return nil, err
	}
	return reads, nil
}

func (r *repo) RecentGoodReads(ctx context.Context, db *gorm.DB, meterID snowflake.ID, limit int) ([]meterdomain.MeterRead, error) {
	var reads []meterdomain.MeterRead
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, value, read_at, quality, created_at
		 FROM meter_reads
		 WHERE meter_id = ? AND quality = ?
		 ORDER BY read_at DESC
		 LIMIT ?`,
		meterID,
		meterdomain.ReadQualityGood,
		limit,
	).Scan(&reads).Error
	if err != nil {
		return nil, err
	}
	return reads, nil
}

func (r *repo) LastGoodReadBefore(ctx context.Context, db *gorm.DB, meterID snowflake.ID, before time.Time) (*meterdomain.MeterRead, error) {
	var read meterdomain.MeterRead
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, value, read_at, quality, created_at
		 FROM meter_reads
		 WHERE meter_id = ? AND quality = ? AND read_at < ?
		 ORDER BY read_at DESC
		 LIMIT 1`,
		meterID,
		meterdomain.ReadQualityGood,
		before,
	).Scan(&read).Error
	if err != nil {
		return nil, err
	}
	if read.ID == 0 {
		return nil, nil
	}
	return &read, nil
}
