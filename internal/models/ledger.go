package models

import (
	"fmt"
	"time"
)

// Ledger transaction type tags.
const (
	XPTransactionTypeTournamentBonus = "tournament_bonus"
	XPTransactionTypeSkillConversion = "skill_conversion"
	CreditTransactionTypeTournament  = "tournament_reward"
)

// LedgerKey derives the natural idempotency key shared by both ledgers. XP
// transactions additionally enforce it via a composite unique index; credit
// transactions store it as the opaque key column. One generator, two schemas.
func LedgerKey(sourceType string, sourceID, userID uint, kind string) string {
	return fmt.Sprintf("%s:%d:user:%d:%s", sourceType, sourceID, userID, kind)
}

// XPTransaction is an append-only record of one XP balance mutation. The
// BalanceAfter snapshot is taken from the same statement that performed the
// mutation, never from a separately fetched balance.
type XPTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:ux_xp_tx_source,priority:1" json:"user_id"`
	SourceType   string    `gorm:"size:32;not null;uniqueIndex:ux_xp_tx_source,priority:2" json:"source_type"`
	SourceID     uint      `gorm:"not null;uniqueIndex:ux_xp_tx_source,priority:3" json:"source_id"`
	Type         string    `gorm:"size:32;not null;uniqueIndex:ux_xp_tx_source,priority:4" json:"type"`
	Amount       int64     `gorm:"not null" json:"amount"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Description  string    `gorm:"size:255" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreditTransaction mirrors XPTransaction for the credit balance, deduplicated
// by an explicit opaque idempotency key instead of a composite index.
type CreditTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Type           string    `gorm:"size:32;not null" json:"type"`
	Amount         int64     `gorm:"not null" json:"amount"`
	BalanceAfter   int64     `gorm:"not null" json:"balance_after"`
	Description    string    `gorm:"size:255" json:"description"`
	IdempotencyKey string    `gorm:"size:128;not null;uniqueIndex" json:"idempotency_key"`
	SourceType     string    `gorm:"size:32" json:"source_type"`
	SourceID       uint      `json:"source_id"`
	CreatedAt      time.Time `json:"created_at"`
}
