package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Domain event types written to the outbox.
const (
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventMedicalRecordCreated     = "medical_record.created"
	EventLabTestOrdered           = "lab_test.ordered"
	EventLabTestCompleted         = "lab_test.completed"
	EventPaymentCreated           = "payment.created"
	EventPaymentStatusChanged     = "payment.status_changed"
	EventVideoCallCreated         = "video_call.created"
	EventVideoCallStarted         = "video_call.started"
	EventVideoCallEnded           = "video_call.ended"
	EventVideoCallCancelled       = "video_call.cancelled"
	EventPatientUpdated           = "patient.updated"
	EventDoctorUpdated            = "doctor.updated"
	EventStaffUpdated             = "staff.updated"
	EventTaskCompleted            = "task.completed"
	EventEquipmentStatusChanged   = "equipment.status_changed"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
