package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled},
}

// CanTransitionTo reports whether next is a legal successor. Completed and
// cancelled are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

type ConsultationType string

const (
	ConsultationInPerson ConsultationType = "in-person"
	ConsultationVideo    ConsultationType = "video"
	ConsultationPhone    ConsultationType = "phone"
)

// Appointment is a booked slot between a patient and a doctor.
type Appointment struct {
	Base
	Versioned
	PatientID        uuid.UUID         `json:"patient_id" db:"patient_id"`
	DoctorID         uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	ServiceType      string            `json:"service_type" db:"service_type"`
	Reason           *string           `json:"reason,omitempty" db:"reason"`
	AppointmentDate  time.Time         `json:"appointment_date" db:"appointment_date"`
	AppointmentTime  string            `json:"appointment_time" db:"appointment_time"`
	ConsultationType ConsultationType  `json:"consultation_type" db:"consultation_type"`
	Status           AppointmentStatus `json:"status" db:"status"`
	Fee              float64           `json:"fee" db:"fee"`
	Duration         int               `json:"duration" db:"duration"`
}

// CreateAppointmentRequest is the booking payload. PatientID is ignored for
// patients, who always book for themselves. Status is only honoured for staff.
type CreateAppointmentRequest struct {
	PatientID        *uuid.UUID         `json:"patient_id"`
	DoctorID         uuid.UUID          `json:"doctor_id" validate:"required"`
	ServiceType      string             `json:"service_type" validate:"required,max=200"`
	Reason           *string            `json:"reason" validate:"omitempty,max=1000"`
	AppointmentDate  time.Time          `json:"appointment_date" validate:"required"`
	AppointmentTime  string             `json:"appointment_time" validate:"required,datetime=15:04"`
	ConsultationType ConsultationType   `json:"consultation_type" validate:"required,oneof=in-person video phone"`
	Status           *AppointmentStatus `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Fee              float64            `json:"fee" validate:"gte=0"`
	Duration         int                `json:"duration" validate:"omitempty,gt=0"`
}

type UpdateAppointmentStatusRequest struct {
	Status  AppointmentStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	Version int               `json:"version"`
}
