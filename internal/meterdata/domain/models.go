// Package domain contains persistence models for meters and their read history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReadQuality marks a meter read's eligibility for analysis. Only good reads
// feed anomaly evaluation.
type ReadQuality string

const (
	ReadQualityGood      ReadQuality = "good"
	ReadQualityEstimated ReadQuality = "estimated"
	ReadQualityBad       ReadQuality = "bad"
)

// Meter identifies a physical water meter attached to an account's premise.
type Meter struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;index"`
	AccountID snowflake.ID `gorm:"not null;index"`
	PremiseID snowflake.ID `gorm:"not null;default:0"`
	SerialNo  string       `gorm:"type:text;not null"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }

// MeterRead is one point in a meter's cumulative read series. Values are
// expected to be monotonic non-decreasing; a decrease signals tampering.
type MeterRead struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	MeterID   snowflake.ID `gorm:"not null;index"`
	Value     float64      `gorm:"not null"`
	ReadAt    time.Time    `gorm:"not null"`
	Quality   ReadQuality  `gorm:"type:text;not null;default:'good'"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MeterRead) TableName() string { return "meter_reads" }
