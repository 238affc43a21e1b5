package models

import "time"

// User represents a learner whose XP and credit balances are mutated by the
// reward pipeline. The balance columns are denormalized snapshots; the ledger
// tables remain the audit-grade source of truth.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	XPBalance     int64     `gorm:"not null;default:0" json:"xp_balance"`
	CreditBalance int64     `gorm:"not null;default:0" json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
