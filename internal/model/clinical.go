package model

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is written once by the treating doctor.
type MedicalRecord struct {
	Base
	PatientID     uuid.UUID  `json:"patient_id" db:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id" db:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty" db:"appointment_id"`
	Diagnosis     *string    `json:"diagnosis,omitempty" db:"diagnosis"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
}

type PrescriptionStatus string

const (
	PrescriptionActive  PrescriptionStatus = "active"
	PrescriptionExpired PrescriptionStatus = "expired"
)

type Prescription struct {
	Base
	MedicalRecordID uuid.UUID          `json:"medical_record_id" db:"medical_record_id"`
	Medication      string             `json:"medication" db:"medication"`
	Dosage          *string            `json:"dosage,omitempty" db:"dosage"`
	Frequency       *string            `json:"frequency,omitempty" db:"frequency"`
	Duration        *string            `json:"duration,omitempty" db:"duration"`
	Instructions    *string            `json:"instructions,omitempty" db:"instructions"`
	Quantity        *int               `json:"quantity,omitempty" db:"quantity"`
	Refills         *int               `json:"refills,omitempty" db:"refills"`
	Status          PrescriptionStatus `json:"status" db:"status"`
}

type LabTestStatus string

const (
	LabTestOrdered   LabTestStatus = "ordered"
	LabTestCompleted LabTestStatus = "completed"
)

type LabTest struct {
	Base
	Versioned
	PatientID     uuid.UUID     `json:"patient_id" db:"patient_id"`
	DoctorID      uuid.UUID     `json:"doctor_id" db:"doctor_id"`
	AppointmentID *uuid.UUID    `json:"appointment_id,omitempty" db:"appointment_id"`
	TestType      string        `json:"test_type" db:"test_type"`
	Result        *string       `json:"result,omitempty" db:"result"`
	Status        LabTestStatus `json:"status" db:"status"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

type CreateMedicalRecordRequest struct {
	PatientID     uuid.UUID  `json:"patient_id" validate:"required"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	Diagnosis     *string    `json:"diagnosis" validate:"omitempty,max=2000"`
	Notes         *string    `json:"notes"`
}

type CreatePrescriptionRequest struct {
	Medication   string  `json:"medication" validate:"required,max=200"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Duration     *string `json:"duration"`
	Instructions *string `json:"instructions"`
	Quantity     *int    `json:"quantity" validate:"omitempty,gt=0"`
	Refills      *int    `json:"refills" validate:"omitempty,gte=0"`
}

type OrderLabTestRequest struct {
	PatientID     uuid.UUID  `json:"patient_id" validate:"required"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	TestType      string     `json:"test_type" validate:"required,max=200"`
}

type RecordLabResultRequest struct {
	Result  string `json:"result" validate:"required"`
	Version int    `json:"version"`
}
