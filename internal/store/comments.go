package store

import (
	"fmt"
	"time"

	"duewatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentStore is the durable comment activity tracker. Ingestion is
// idempotent on comment_id, and the suppression flag is frozen at first
// ingestion: it reflects the due-date epoch active when the comment arrived.
type CommentStore struct {
	db *gorm.DB
}

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Ingest records a comment. dueChangedAt is the card's current change
// instant; the comment suppresses notifications for that epoch iff it was
// posted strictly after it. Re-ingesting a known comment_id is a no-op so the
// frozen flag is never recomputed.
func (s *CommentStore) Ingest(cardID, commentID, text string, createdAt time.Time, dueChangedAt *time.Time) error {
	record := models.CommentRecord{
		CommentID:              commentID,
		CardID:                 cardID,
		Text:                   text,
		CreatedAt:              createdAt.UTC(),
		SuppressedNotification: dueChangedAt != nil && createdAt.UTC().After(dueChangedAt.UTC()),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comment_id"}},
		DoNothing: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to ingest comment %s: %w", commentID, err)
	}
	return nil
}

// ForCard returns a card's comments, newest first.
func (s *CommentStore) ForCard(cardID string) ([]models.CommentRecord, error) {
	var records []models.CommentRecord
	err := s.db.Where("card_id = ?", cardID).Order("created_at DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for card %s: %w", cardID, err)
	}
	return records, nil
}
