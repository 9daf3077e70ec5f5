package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const listLimit = 100

// Notifier is the side channel business operations use after they commit.
// Delivery failures are logged and never surface to the caller.
type Notifier interface {
	NotifyPatient(ctx context.Context, patientID uuid.UUID, req model.NotifyRequest)
	NotifyDoctor(ctx context.Context, doctorID uuid.UUID, req model.NotifyRequest)
}

type Service interface {
	Notifier
	// Notify is the caller-facing send. Staff and admin may target anyone,
	// everyone else only themselves.
	Notify(ctx context.Context, ac *access.Context, req model.NotifyRequest) (*model.Notification, error)
	// Dispatch stores a notification on behalf of the system.
	Dispatch(ctx context.Context, req model.NotifyRequest) (*model.Notification, error)
	MarkRead(ctx context.Context, ac *access.Context, id uuid.UUID) (*model.Notification, error)
	List(ctx context.Context, ac *access.Context, unreadOnly bool) ([]*model.Notification, error)
}

type service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(tables *repository.Tables, tx repository.Transactor, validator validator.Validator, logger *logger.Logger) Service {
	return &service{
		tables:    tables,
		tx:        tx,
		validator: validator,
		logger:    logger,
	}
}

func (s *service) Notify(ctx context.Context, ac *access.Context, req model.NotifyRequest) (*model.Notification, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !ac.Privileged() && req.UserID != ac.UserID {
		return nil, apperrors.AccessDenied("cannot notify other users")
	}
	return s.Dispatch(ctx, req)
}

func (s *service) Dispatch(ctx context.Context, req model.NotifyRequest) (*model.Notification, error) {
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.tables.Users.Get(ctx, req.UserID); err != nil {
		return nil, err
	}

	n := &model.Notification{
		UserID:        req.UserID,
		Title:         req.Title,
		Message:       req.Message,
		Type:          req.Type,
		Priority:      req.Priority,
		AppointmentID: req.AppointmentID,
		LabTestID:     req.LabTestID,
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindNotification, n)); err != nil {
		metrics.NotificationsTotal.WithLabelValues(req.Type, "failed").Inc()
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(req.Type, "sent").Inc()
	return n, nil
}

func (s *service) NotifyPatient(ctx context.Context, patientID uuid.UUID, req model.NotifyRequest) {
	profile, err := s.tables.Patients.Get(ctx, patientID)
	if err != nil {
		s.logger.Ctx(ctx).Error(err, "failed to resolve notification recipient", "patient_id", patientID.String(), "type", req.Type)
		return
	}
	req.UserID = profile.UserID
	s.send(ctx, req)
}

func (s *service) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, req model.NotifyRequest) {
	profile, err := s.tables.Doctors.Get(ctx, doctorID)
	if err != nil {
		s.logger.Ctx(ctx).Error(err, "failed to resolve notification recipient", "doctor_id", doctorID.String(), "type", req.Type)
		return
	}
	req.UserID = profile.UserID
	s.send(ctx, req)
}

func (s *service) send(ctx context.Context, req model.NotifyRequest) {
	if _, err := s.Dispatch(ctx, req); err != nil {
		s.logger.Ctx(ctx).Error(err, "failed to dispatch notification", "user_id", req.UserID.String(), "type", req.Type)
	}
}

func (s *service) MarkRead(ctx context.Context, ac *access.Context, id uuid.UUID) (*model.Notification, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	n, err := s.tables.Notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != ac.UserID {
		return nil, apperrors.AccessDenied("")
	}
	if n.Read {
		return n, nil
	}

	err = repository.Apply(ctx, s.tx, repository.Change(repository.Update{
		Kind: model.KindNotification,
		ID:   id,
		Set:  map[string]interface{}{"read": true},
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return s.tables.Notifications.Get(ctx, id)
}

// List returns the caller's own notifications, newest first, whatever their role.
func (s *service) List(ctx context.Context, ac *access.Context, unreadOnly bool) ([]*model.Notification, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	filters := []repository.Filter{repository.Eq("user_id", ac.UserID)}
	if unreadOnly {
		filters = append(filters, repository.Eq("read", false))
	}
	return s.tables.Notifications.List(ctx, access.Unscoped, repository.ListOptions{
		Filters: filters,
		Limit:   listLimit,
	})
}
