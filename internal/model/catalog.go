package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Service is a bookable catalog entry.
type Service struct {
	Base
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	Category    string  `json:"category" db:"category"`
	Price       float64 `json:"price" db:"price"`
	Duration    int     `json:"duration" db:"duration"`
	IsAvailable bool    `json:"is_available" db:"is_available"`
}

type ServicePackage struct {
	Base
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	ServiceIDs  IDList  `json:"service_ids" db:"service_ids"`
	Price       float64 `json:"price" db:"price"`
	ValidDays   int     `json:"valid_days" db:"valid_days"`
	IsAvailable bool    `json:"is_available" db:"is_available"`
}

type CreateServiceRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description"`
	Category    string  `json:"category" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Duration    int     `json:"duration" validate:"gt=0"`
	IsAvailable *bool   `json:"is_available"`
}

type CreateServicePackageRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Description *string     `json:"description"`
	ServiceIDs  []uuid.UUID `json:"service_ids" validate:"required,min=1"`
	Price       float64     `json:"price" validate:"gte=0"`
	ValidDays   int         `json:"valid_days" validate:"gt=0"`
	IsAvailable *bool       `json:"is_available"`
}

// IDList is stored as a JSONB array.
type IDList []uuid.UUID

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = IDList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported id list type %T", value)
	}
	return json.Unmarshal(raw, l)
}
