package model

import (
	"time"

	"github.com/google/uuid"
)

// HealthMetric is a single vital sign reading.
type HealthMetric struct {
	Base
	PatientID  uuid.UUID `json:"patient_id" db:"patient_id"`
	MetricType string    `json:"metric_type" db:"metric_type"`
	Value      float64   `json:"value" db:"value"`
	Unit       *string   `json:"unit,omitempty" db:"unit"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
}

// RecordHealthMetricRequest.PatientID is required for doctors and staff and
// ignored for patients.
type RecordHealthMetricRequest struct {
	PatientID  *uuid.UUID `json:"patient_id"`
	MetricType string     `json:"metric_type" validate:"required,oneof=blood_pressure heart_rate temperature weight height glucose oxygen_saturation"`
	Value      float64    `json:"value"`
	Unit       *string    `json:"unit" validate:"omitempty,max=20"`
	RecordedAt *time.Time `json:"recorded_at"`
	Notes      *string    `json:"notes"`
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is a user-visible event. Only Read ever changes after insert.
type Notification struct {
	Base
	UserID        uuid.UUID            `json:"user_id" db:"user_id"`
	Title         string               `json:"title" db:"title"`
	Message       string               `json:"message" db:"message"`
	Type          string               `json:"type" db:"type"`
	Priority      NotificationPriority `json:"priority" db:"priority"`
	Read          bool                 `json:"read" db:"read"`
	AppointmentID *uuid.UUID           `json:"appointment_id,omitempty" db:"appointment_id"`
	LabTestID     *uuid.UUID           `json:"lab_test_id,omitempty" db:"lab_test_id"`
}

type NotifyRequest struct {
	UserID        uuid.UUID            `json:"user_id" validate:"required"`
	Title         string               `json:"title" validate:"required,max=200"`
	Message       string               `json:"message" validate:"required"`
	Type          string               `json:"type" validate:"required,max=50"`
	Priority      NotificationPriority `json:"priority" validate:"omitempty,oneof=low normal high"`
	AppointmentID *uuid.UUID           `json:"appointment_id"`
	LabTestID     *uuid.UUID           `json:"lab_test_id"`
}
