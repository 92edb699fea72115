// Package domain contains the document numbering models. Every billing
// document carries a human-readable number (INV-2025-00001) distinct from its
// internal id; the counter behind it lives here.
package domain

import "time"

// DocumentSequence is a per-(kind, year) monotonic counter. It is only ever
// touched through a single atomic increment, never read-modify-write.
type DocumentSequence struct {
	Kind      string    `gorm:"primaryKey;type:text"`
	Year      int       `gorm:"primaryKey"`
	Counter   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DocumentSequence) TableName() string { return "document_sequences" }
