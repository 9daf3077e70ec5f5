package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	notifier  notification.Notifier
	validator validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	tables *repository.Tables,
	tx repository.Transactor,
	notifier notification.Notifier,
	validator validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		tables:    tables,
		tx:        tx,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment opens a pending payment against an appointment.
func (s *Service) CreatePayment(ctx context.Context, ac *access.Context, req model.CreatePaymentRequest) (*model.Payment, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	appt, err := s.tables.Appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status == model.AppointmentCancelled {
		return nil, apperrors.InvalidState("cannot bill a cancelled appointment")
	}

	payment := &model.Payment{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		Amount:        req.Amount,
		Status:        model.PaymentPending,
		Method:        req.Method,
		Provider:      req.Provider,
	}
	model.Stamp(payment, s.now())

	evt, err := event.New(model.EventPaymentCreated, payment.ID, payment)
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Insert(model.KindPayment, payment),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("payment created",
		"payment_id", payment.ID.String(),
		"appointment_id", appt.ID.String(),
		"amount", payment.Amount)
	return payment, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdatePaymentStatusRequest) (*model.Payment, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	payment, err := s.tables.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.InvalidState("cannot move payment from %s to %s", payment.Status, req.Status)
	}

	set := map[string]interface{}{"status": req.Status}
	if req.TransactionRef != nil {
		set["transaction_ref"] = *req.TransactionRef
	}
	if req.Status == model.PaymentPaid {
		set["paid_at"] = s.now()
	}

	version := payment.Version
	if req.Version > 0 {
		version = req.Version
	}
	evt, err := event.New(model.EventPaymentStatusChanged, payment.ID, event.StatusChange{
		From:    string(payment.Status),
		To:      string(req.Status),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{
			Kind:    model.KindPayment,
			ID:      payment.ID,
			Version: version,
			Set:     set,
		}),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	updated, err := s.tables.Payments.Get(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.PaymentPaid:
		s.notifier.NotifyPatient(ctx, payment.PatientID, model.NotifyRequest{
			Title:         "Payment received",
			Message:       fmt.Sprintf("We received your payment of %.2f", payment.Amount),
			Type:          "payment",
			AppointmentID: &payment.AppointmentID,
		})
	case model.PaymentFailed:
		s.notifier.NotifyPatient(ctx, payment.PatientID, model.NotifyRequest{
			Title:         "Payment failed",
			Message:       fmt.Sprintf("Your payment of %.2f could not be processed", payment.Amount),
			Type:          "payment",
			Priority:      model.PriorityHigh,
			AppointmentID: &payment.AppointmentID,
		})
	}
	return updated, nil
}
