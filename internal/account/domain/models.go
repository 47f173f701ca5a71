// Package domain contains persistence models for the account registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ConnectionStatus represents the water service connection lifecycle.
type ConnectionStatus string

const (
	ConnectionStatusActive            ConnectionStatus = "active"
	ConnectionStatusPendingDisconnect ConnectionStatus = "pending_disconnect"
	ConnectionStatusDisconnected      ConnectionStatus = "disconnected"
)

// Account is the billing unit. Ownership of account registry mutations lives
// outside this core; the engines only resolve and read accounts, except for
// connection-status transitions driven by the dunning engine.
type Account struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	TenantID         snowflake.ID     `gorm:"not null;index"`
	AccountNo        string           `gorm:"type:text;not null"`
	CustomerName     string           `gorm:"type:text;not null"`
	CustomerPhone    string           `gorm:"type:text;not null;default:''"`
	CustomerEmail    string           `gorm:"type:text;not null;default:''"`
	PremiseID        snowflake.ID     `gorm:"not null;default:0"`
	ConnectionStatus ConnectionStatus `gorm:"type:text;not null;default:'active'"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
