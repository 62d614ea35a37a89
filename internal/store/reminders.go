package store

import (
	"errors"
	"fmt"

	"duewatch/internal/models"

	"gorm.io/gorm"
)

// ReminderStore is the append-only reminder ledger. The only mutation beyond
// insertion is the one-way read-flag flip, which must stay safe under
// concurrent invocation from the dashboard.
type ReminderStore struct {
	db *gorm.DB
}

func NewReminderStore(db *gorm.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// Append inserts a reminder event and returns its assigned id.
func (s *ReminderStore) Append(event *models.ReminderEvent) (uint, error) {
	if err := s.db.Create(event).Error; err != nil {
		return 0, fmt.Errorf("failed to append reminder for card %s: %w", event.CardID, err)
	}
	return event.ID, nil
}

// MarkRead flips a reminder to read. Idempotent: marking an already-read
// reminder succeeds without effect. ErrNotFound only if the id never existed.
func (s *ReminderStore) MarkRead(id uint) error {
	result := s.db.Model(&models.ReminderEvent{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder %d read: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.Model(&models.ReminderEvent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up reminder %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns reminders newest first. unreadOnly nil means no filter.
func (s *ReminderStore) List(unreadOnly *bool, limit, offset int) ([]models.ReminderEvent, error) {
	query := s.db.Order("created_at DESC, id DESC").Limit(limit).Offset(offset)
	if unreadOnly != nil && *unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var events []models.ReminderEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return events, nil
}

// Count returns the total number of reminders matching the filter, for
// pagination.
func (s *ReminderStore) Count(unreadOnly *bool) (int64, error) {
	query := s.db.Model(&models.ReminderEvent{})
	if unreadOnly != nil && *unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reminders: %w", err)
	}
	return count, nil
}

// IsNotFound reports whether err is the ledger's never-existed-id error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
