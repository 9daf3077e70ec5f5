package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the single role a user holds.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Privileged roles see every row.
func (r Role) Privileged() bool {
	return r == RoleStaff || r == RoleAdmin
}

// User represents a system user
type User struct {
	Base
	Name   string  `json:"name" db:"name"`
	Email  string  `json:"email" db:"email"`
	Phone  *string `json:"phone,omitempty" db:"phone"`
	Role   Role    `json:"role" db:"role"`
	Active bool    `json:"active" db:"active"`
}

type PatientProfile struct {
	Base
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender         *string    `json:"gender,omitempty" db:"gender"`
	Address        *string    `json:"address,omitempty" db:"address"`
	BloodType      *string    `json:"blood_type,omitempty" db:"blood_type"`
	Allergies      *string    `json:"allergies,omitempty" db:"allergies"`
	MedicalHistory *string    `json:"medical_history,omitempty" db:"medical_history"`
}

type DoctorAvailability string

const (
	DoctorAvailable DoctorAvailability = "available"
	DoctorBusy      DoctorAvailability = "busy"
	DoctorOnBreak   DoctorAvailability = "break"
)

type DoctorProfile struct {
	Base
	UserID            uuid.UUID          `json:"user_id" db:"user_id"`
	Specialty         string             `json:"specialty" db:"specialty"`
	LicenseNumber     string             `json:"license_number" db:"license_number"`
	YearsOfExperience *int               `json:"years_of_experience,omitempty" db:"years_of_experience"`
	ConsultationFee   float64            `json:"consultation_fee" db:"consultation_fee"`
	Room              *string            `json:"room,omitempty" db:"room"`
	Bio               *string            `json:"bio,omitempty" db:"bio"`
	Availability      DoctorAvailability `json:"availability" db:"availability"`
	Rating            float64            `json:"rating" db:"rating"`
	SupportsVideo     bool               `json:"supports_video" db:"supports_video"`
}

type StaffProfile struct {
	Base
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Position string    `json:"position" db:"position"`
}

// UpdatePatientRequest is applied by the patient themself or by staff.
type UpdatePatientRequest struct {
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         *string    `json:"gender" validate:"omitempty,oneof=male female other"`
	Address        *string    `json:"address" validate:"omitempty,max=500"`
	BloodType      *string    `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies      *string    `json:"allergies"`
	MedicalHistory *string    `json:"medical_history"`
}

// UpdateDoctorRequest carries every mutable doctor field; doctors editing
// their own profile may only send Availability and Bio.
type UpdateDoctorRequest struct {
	Specialty         *string             `json:"specialty"`
	LicenseNumber     *string             `json:"license_number"`
	YearsOfExperience *int                `json:"years_of_experience" validate:"omitempty,gte=0"`
	ConsultationFee   *float64            `json:"consultation_fee" validate:"omitempty,gte=0"`
	Room              *string             `json:"room"`
	Bio               *string             `json:"bio" validate:"omitempty,max=2000"`
	Availability      *DoctorAvailability `json:"availability" validate:"omitempty,oneof=available busy break"`
	SupportsVideo     *bool               `json:"supports_video"`
}

type UpdateStaffRequest struct {
	Position *string `json:"position" validate:"omitempty,max=200"`
}
