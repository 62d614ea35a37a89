package models

import "time"

// CardDueState is the durable per-card record of the last-known due date and
// the instant it last changed. Rows are never deleted; cards removed from the
// board stay here for audit.
type CardDueState struct {
	CardID       string     `gorm:"primaryKey" json:"card_id"`
	CardName     string     `json:"card_name"`
	DueDate      *time.Time `json:"due_date"`
	DueChangedAt *time.Time `json:"due_changed_at"`
	Description  string     `json:"description"`
	URL          string     `json:"url"`
	ListName     string     `json:"list_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CommentRecord is one ingested card comment. SuppressedNotification is
// computed once at ingestion against the card's due_changed_at at that moment
// and is never recomputed, even if the due date changes again later.
type CommentRecord struct {
	CommentID              string    `gorm:"primaryKey" json:"comment_id"`
	CardID                 string    `gorm:"index" json:"card_id"`
	Text                   string    `json:"text"`
	CreatedAt              time.Time `json:"created_at"`
	SuppressedNotification bool      `json:"suppressed_notification"`
}

// ReminderEvent is one row in the append-only reminder ledger. IsRead=true at
// creation time means the reminder was suppressed; IsRead only ever moves
// false -> true.
type ReminderEvent struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID    string     `json:"card_id"`
	CardName  string     `json:"card_name"`
	OldDue    *time.Time `json:"old_due"`
	NewDue    *time.Time `json:"new_due"`
	CreatedAt time.Time  `json:"created_at"`
	IsRead    bool       `gorm:"index" json:"is_read"`
}
