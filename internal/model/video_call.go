package model

import (
	"time"

	"github.com/google/uuid"
)

type VideoCallStatus string

const (
	VideoCallScheduled VideoCallStatus = "scheduled"
	VideoCallOngoing   VideoCallStatus = "ongoing"
	VideoCallCompleted VideoCallStatus = "completed"
	VideoCallCancelled VideoCallStatus = "cancelled"
)

// Joinable calls accept participants.
func (s VideoCallStatus) Joinable() bool {
	return s == VideoCallScheduled || s == VideoCallOngoing
}

// VideoCall is the durable record of a consultation room. There is at most
// one per appointment.
type VideoCall struct {
	Base
	Versioned
	AppointmentID uuid.UUID       `json:"appointment_id" db:"appointment_id"`
	DoctorID      uuid.UUID       `json:"doctor_id" db:"doctor_id"`
	PatientID     uuid.UUID       `json:"patient_id" db:"patient_id"`
	CallLink      string          `json:"call_link" db:"call_link"`
	RoomID        string          `json:"room_id" db:"room_id"`
	Status        VideoCallStatus `json:"status" db:"status"`
	StartedAt     *time.Time      `json:"started_at,omitempty" db:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty" db:"ended_at"`
	Duration      *int            `json:"duration,omitempty" db:"duration"`
	RecordingURL  *string         `json:"recording_url,omitempty" db:"recording_url"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
}

type EndVideoCallRequest struct {
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	Notes           *string `json:"notes"`
}

// JoinInfo is what a participant needs to enter the room.
type JoinInfo struct {
	CallLink string          `json:"call_link"`
	RoomID   string          `json:"room_id"`
	Status   VideoCallStatus `json:"status"`
}
