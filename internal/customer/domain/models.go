// Package domain holds the customer read contracts consumed by the invoice
// generator: the receivable-account mapping and negotiated service prices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a client of the firm.
type Customer struct {
	ID                  snowflake.ID `gorm:"primaryKey"`
	OrgID               snowflake.ID `gorm:"not null;index"`
	Name                string       `gorm:"type:text;not null"`
	Email               string       `gorm:"type:text"`
	ReceivableAccountID snowflake.ID `gorm:"index"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// ServicePrice is a customer-specific negotiated price for one service,
// overriding the service's default price but not a work-level override.
type ServicePrice struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	CustomerID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_customer_service_prices,priority:1"`
	ServiceID  snowflake.ID `gorm:"not null;uniqueIndex:ux_customer_service_prices,priority:2"`
	Price      int64        `gorm:"not null"` // minor units
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServicePrice) TableName() string { return "customer_service_prices" }
