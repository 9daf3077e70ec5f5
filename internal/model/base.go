package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Versioned is embedded by rows that take concurrent status transitions.
// Every update bumps Version; writers pass the version they read.
type Versioned struct {
	Version int `json:"version" db:"version"`
}
