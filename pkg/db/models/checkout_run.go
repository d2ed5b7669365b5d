package models

import (
	"time"

	"github.com/google/uuid"
)

// Run outcomes recorded on the audit row.
const (
	RunOutcomePending     = "pending"
	RunOutcomeSucceeded   = "succeeded"
	RunOutcomeFailed      = "failed"
	RunOutcomeInterrupted = "interrupted"
)

// CheckoutRun is the audit trail for one automation run initiated through the
// relay. It records no card data.
type CheckoutRun struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SessionID   string    `gorm:"column:session_id;uniqueIndex;not null"`
	Merchant    string    `gorm:"column:merchant;not null"`
	ProductLink string    `gorm:"column:product_link"`
	StoredPrice string    `gorm:"column:stored_price"`
	Outcome     string    `gorm:"column:outcome;not null;default:pending"`
	ErrorCode   string    `gorm:"column:error_code"`
	OrderNumber string    `gorm:"column:order_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
