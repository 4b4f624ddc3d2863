// Package status persists the live status snapshot consumed by the operator
// dashboard. Exactly one row exists; every write replaces it wholesale.
package status

import (
	"errors"
	"fmt"
	"time"

	"btc-trading-bot-go/internal/models"
	"gorm.io/gorm"
)

// Store reads and writes the single status row.
type Store struct {
	db *gorm.DB
}

// NewStore creates a status store over the shared database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Write overwrites the snapshot. The timestamp is stamped here so callers
// never have to remember it.
func (s *Store) Write(snapshot models.Status) error {
	snapshot.LastUpdated = time.Now().UTC().Format("2006-01-02 15:04:05")

	var existing models.Status
	err := s.db.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to create status row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read status row: %w", err)
	}

	snapshot.ID = existing.ID
	snapshot.CreatedAt = existing.CreatedAt
	if err := s.db.Save(&snapshot).Error; err != nil {
		return fmt.Errorf("failed to update status row: %w", err)
	}
	return nil
}

// Read returns the current snapshot, or an empty one if none was written yet.
func (s *Store) Read() (models.Status, error) {
	var snapshot models.Status
	err := s.db.First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Status{}, nil
	}
	if err != nil {
		return models.Status{}, fmt.Errorf("failed to read status: %w", err)
	}
	return snapshot, nil
}
