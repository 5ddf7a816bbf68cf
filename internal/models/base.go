package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is gorm.Model with a string UUID key, assigned on first insert.
type Model struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
