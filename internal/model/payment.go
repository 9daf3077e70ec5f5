package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed, PaymentCancelled},
	PaymentFailed:  {PaymentPending},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment belongs to an appointment; PatientID is denormalized from it.
type Payment struct {
	Base
	Versioned
	AppointmentID  uuid.UUID     `json:"appointment_id" db:"appointment_id"`
	PatientID      uuid.UUID     `json:"patient_id" db:"patient_id"`
	Amount         float64       `json:"amount" db:"amount"`
	Status         PaymentStatus `json:"status" db:"status"`
	Method         string        `json:"method" db:"method"`
	Provider       *string       `json:"provider,omitempty" db:"provider"`
	TransactionRef *string       `json:"transaction_ref,omitempty" db:"transaction_ref"`
	PaidAt         *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
}

type CreatePaymentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	Amount        float64   `json:"amount" validate:"gt=0"`
	Method        string    `json:"method" validate:"required,oneof=cash card insurance transfer"`
	Provider      *string   `json:"provider"`
}

type UpdatePaymentStatusRequest struct {
	Status         PaymentStatus `json:"status" validate:"required,oneof=pending paid failed cancelled"`
	TransactionRef *string       `json:"transaction_ref"`
	Version        int           `json:"version"`
}
