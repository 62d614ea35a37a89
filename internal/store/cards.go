package store

import (
	"errors"
	"fmt"

	"duewatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned for lookups of ids that have never existed.
var ErrNotFound = errors.New("not found")

// CardStore persists the per-card due-date state. Rows are only ever
// inserted or overwritten, never deleted.
type CardStore struct {
	db *gorm.DB
}

func NewCardStore(db *gorm.DB) *CardStore {
	return &CardStore{db: db}
}

// Get returns the stored state for a card, or nil for a never-seen card.
func (s *CardStore) Get(cardID string) (*models.CardDueState, error) {
	var state models.CardDueState
	err := s.db.First(&state, "card_id = ?", cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card state %s: %w", cardID, err)
	}
	return &state, nil
}

// Upsert inserts or overwrites the state keyed by card_id. All columns are
// written unconditionally; callers pass the previous due/changed-at values
// back in when only the name and details should refresh.
func (s *CardStore) Upsert(state *models.CardDueState) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"card_name", "due_date", "due_changed_at",
			"description", "url", "list_name", "updated_at",
		}),
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("failed to upsert card state %s: %w", state.CardID, err)
	}
	return nil
}

// All returns every tracked card ordered by due date, soonest first, with
// undated cards last.
func (s *CardStore) All() ([]models.CardDueState, error) {
	var states []models.CardDueState
	if err := s.db.Order("due_date IS NULL, due_date ASC").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("failed to list card states: %w", err)
	}
	return states, nil
}
