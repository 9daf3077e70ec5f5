package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/entity"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// Booking rules
const (
	DefaultDuration   = 30
	MaxAdvanceBooking = 90 * 24 * time.Hour
)

type Service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	readers   *entity.Readers
	notifier  notification.Notifier
	validator validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	tables *repository.Tables,
	tx repository.Transactor,
	readers *entity.Readers,
	notifier notification.Notifier,
	validator validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		tables:    tables,
		tx:        tx,
		readers:   readers,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create books an appointment. Patients always book for themselves and
// always start pending; staff may book for any patient and pre-confirm.
func (s *Service) Create(ctx context.Context, ac *access.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var patientID uuid.UUID
	status := model.AppointmentPending
	if ac.Is(model.RolePatient) {
		if ac.PatientID == nil {
			return nil, apperrors.AccessDenied("patient profile required")
		}
		patientID = *ac.PatientID
	} else {
		if req.PatientID == nil {
			return nil, apperrors.BadRequest("patient_id is required", nil)
		}
		if _, err := s.tables.Patients.Get(ctx, *req.PatientID); err != nil {
			return nil, err
		}
		patientID = *req.PatientID
		if req.Status != nil {
			status = *req.Status
		}
	}

	doctor, err := s.tables.Doctors.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if req.ConsultationType == model.ConsultationVideo && !doctor.SupportsVideo {
		return nil, apperrors.BadRequest("doctor does not offer video consultations", nil)
	}

	date := req.AppointmentDate.UTC().Truncate(24 * time.Hour)
	if err := s.validateDate(date); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, req.DoctorID, date, req.AppointmentTime); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		PatientID:        patientID,
		DoctorID:         req.DoctorID,
		ServiceType:      req.ServiceType,
		Reason:           req.Reason,
		AppointmentDate:  date,
		AppointmentTime:  req.AppointmentTime,
		ConsultationType: req.ConsultationType,
		Status:           status,
		Fee:              req.Fee,
		Duration:         req.Duration,
	}
	model.Stamp(appt, s.now())
	if appt.Fee == 0 {
		appt.Fee = doctor.ConsultationFee
	}
	if appt.Duration == 0 {
		appt.Duration = DefaultDuration
	}

	evt, err := event.New(model.EventAppointmentBooked, appt.ID, appt)
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Insert(model.KindAppointment, appt),
		repository.Emit(evt),
	); err != nil {
		// A concurrent booking that slipped past checkSlot trips the slot index.
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			return nil, apperrors.InvalidState("doctor already has an appointment at %s %s", date.Format("2006-01-02"), appt.AppointmentTime)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID.String(),
		"patient_id", patientID.String(),
		"doctor_id", req.DoctorID.String(),
		"booked_by", ac.UserID.String())

	s.notifier.NotifyDoctor(ctx, appt.DoctorID, model.NotifyRequest{
		Title:         "New appointment",
		Message:       fmt.Sprintf("New %s appointment on %s at %s", appt.ConsultationType, date.Format("2006-01-02"), appt.AppointmentTime),
		Type:          "appointment",
		AppointmentID: &appt.ID,
	})
	return appt, nil
}

func (s *Service) validateDate(date time.Time) error {
	today := s.now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return apperrors.BadRequest("appointment cannot be scheduled in the past", nil)
	}
	if date.After(today.Add(MaxAdvanceBooking)) {
		return apperrors.BadRequest("appointment is too far in the future", nil)
	}
	return nil
}

// checkSlot rejects a booking that collides with a live appointment of the
// same doctor.
func (s *Service) checkSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) error {
	existing, err := s.tables.Appointments.List(ctx, access.Unscoped, repository.ListOptions{
		Filters: []repository.Filter{
			repository.Eq("doctor_id", doctorID),
			repository.Eq("appointment_date", date),
			repository.Eq("appointment_time", slot),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to check doctor schedule: %w", err)
	}
	for _, a := range existing {
		if a.Status != model.AppointmentCancelled {
			return apperrors.InvalidState("doctor already has an appointment at %s %s", date.Format("2006-01-02"), slot)
		}
	}
	return nil
}

// UpdateStatus moves an appointment along pending -> confirmed -> completed,
// or to cancelled from either live state. Only the treating doctor, staff
// and admin may do so.
func (s *Service) UpdateStatus(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	if err := access.Require(ac, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	appt, err := s.readers.Appointments.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.InvalidState("cannot move appointment from %s to %s", appt.Status, req.Status)
	}

	version := appt.Version
	if req.Version > 0 {
		version = req.Version
	}
	evt, err := event.New(model.EventAppointmentStatusChanged, appt.ID, event.StatusChange{
		From:    string(appt.Status),
		To:      string(req.Status),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	effects := []repository.Effect{
		repository.Change(repository.Update{
			Kind:       model.KindAppointment,
			ID:         appt.ID,
			Version:    version,
			FromStatus: string(appt.Status),
			Set:        map[string]interface{}{"status": req.Status},
		}),
		repository.Emit(evt),
	}

	call, err := s.videoCall(ctx, appt)
	if err != nil {
		return nil, err
	}
	if call != nil {
		callEffects, err := s.videoCallEffects(ac, call, req.Status)
		if err != nil {
			return nil, err
		}
		effects = append(effects, callEffects...)
	}

	if err := repository.Apply(ctx, s.tx, effects...); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	if call != nil && req.Status == model.AppointmentCancelled {
		metrics.VideoCallTransitions.WithLabelValues(string(model.VideoCallCancelled)).Inc()
	}

	updated, err := s.tables.Appointments.Get(ctx, appt.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		"appointment_id", appt.ID.String(),
		"from", string(appt.Status),
		"to", string(req.Status),
		"actor_id", ac.UserID.String())

	s.notifier.NotifyPatient(ctx, appt.PatientID, model.NotifyRequest{
		Title:         "Appointment " + string(req.Status),
		Message:       fmt.Sprintf("Your appointment on %s at %s is now %s", appt.AppointmentDate.Format("2006-01-02"), appt.AppointmentTime, req.Status),
		Type:          "appointment",
		Priority:      priorityFor(req.Status),
		AppointmentID: &appt.ID,
	})
	return updated, nil
}

// videoCall returns the call linked to a video appointment, or nil.
func (s *Service) videoCall(ctx context.Context, appt *model.Appointment) (*model.VideoCall, error) {
	if appt.ConsultationType != model.ConsultationVideo {
		return nil, nil
	}
	call, err := s.tables.VideoCalls.FindOne(ctx, repository.Eq("appointment_id", appt.ID))
	if apperrors.IsCode(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return call, err
}

// videoCallEffects keeps a linked call consistent with its appointment. An
// ongoing call must be ended first; cancelling the appointment cancels a
// call nobody has joined.
func (s *Service) videoCallEffects(ac *access.Context, call *model.VideoCall, to model.AppointmentStatus) ([]repository.Effect, error) {
	switch call.Status {
	case model.VideoCallOngoing:
		return nil, apperrors.InvalidState("video call is ongoing, end it before changing the appointment")
	case model.VideoCallScheduled:
		if to != model.AppointmentCancelled {
			return nil, nil
		}
	default:
		return nil, nil
	}

	evt, err := event.New(model.EventVideoCallCancelled, call.ID, event.StatusChange{
		From:    string(model.VideoCallScheduled),
		To:      string(model.VideoCallCancelled),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	return []repository.Effect{
		repository.Change(repository.Update{
			Kind:       model.KindVideoCall,
			ID:         call.ID,
			Version:    call.Version,
			FromStatus: string(model.VideoCallScheduled),
			Set:        map[string]interface{}{"status": model.VideoCallCancelled},
		}),
		repository.Emit(evt),
	}, nil
}

func priorityFor(status model.AppointmentStatus) model.NotificationPriority {
	if status == model.AppointmentCancelled {
		return model.PriorityHigh
	}
	return model.PriorityNormal
}
