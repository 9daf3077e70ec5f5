// Package videocall runs the lifecycle of a video consultation. The
// VideoCall row is the only record of a call; nothing is held in memory.
package videocall

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
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
	"github.com/jwalitptl/clinic-api/pkg/videoroom"
)

type Service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	rooms     videoroom.Provider
	notifier  notification.Notifier
	validator validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	tables *repository.Tables,
	tx repository.Transactor,
	rooms videoroom.Provider,
	notifier notification.Notifier,
	validator validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		tables:    tables,
		tx:        tx,
		rooms:     rooms,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create provisions a room for a confirmed video appointment.
func (s *Service) Create(ctx context.Context, ac *access.Context, appointmentID uuid.UUID) (*model.VideoCall, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}

	appt, err := s.tables.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.ConsultationType != model.ConsultationVideo {
		return nil, apperrors.InvalidState("appointment is not a video consultation")
	}
	if appt.Status != model.AppointmentConfirmed {
		return nil, apperrors.InvalidState("appointment must be confirmed, is %s", appt.Status)
	}

	switch _, err := s.callFor(ctx, appointmentID); {
	case err == nil:
		return nil, apperrors.InvalidState("video call already exists for this appointment")
	case !apperrors.IsCode(err, apperrors.ErrNotFound):
		return nil, err
	}

	room, err := s.rooms.CreateRoom(ctx, "consult-"+appointmentID.String())
	if err != nil {
		return nil, apperrors.Upstream("create video room", err)
	}

	call := &model.VideoCall{
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		CallLink:      room.JoinURL,
		RoomID:        room.ID,
		Status:        model.VideoCallScheduled,
	}
	model.Stamp(call, s.now())

	evt, err := event.New(model.EventVideoCallCreated, call.ID, call)
	if err != nil {
		return nil, err
	}
	err = repository.Apply(ctx, s.tx,
		repository.Insert(model.KindVideoCall, call),
		repository.Emit(evt),
	)
	if apperrors.IsCode(err, apperrors.ErrConflict) {
		return nil, apperrors.InvalidState("video call already exists for this appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create video call: %w", err)
	}
	metrics.VideoCallTransitions.WithLabelValues(string(model.VideoCallScheduled)).Inc()

	s.logger.Info("video call created",
		"call_id", call.ID.String(),
		"appointment_id", appt.ID.String(),
		"room_id", room.ID)

	msg := model.NotifyRequest{
		Title:         "Video consultation scheduled",
		Message:       fmt.Sprintf("Your video consultation on %s at %s is ready to join", appt.AppointmentDate.Format("2006-01-02"), appt.AppointmentTime),
		Type:          "video_call",
		AppointmentID: &appt.ID,
	}
	s.notifier.NotifyPatient(ctx, appt.PatientID, msg)
	s.notifier.NotifyDoctor(ctx, appt.DoctorID, msg)
	return call, nil
}

// Join admits a participant. The first joiner moves the call to ongoing and
// stamps started_at; later joins change nothing.
func (s *Service) Join(ctx context.Context, ac *access.Context, appointmentID uuid.UUID) (*model.JoinInfo, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor); err != nil {
		return nil, err
	}
	appt, err := s.tables.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !participant(ac, appt) {
		return nil, apperrors.AccessDenied("not a participant of this appointment")
	}
	if err := requireConfirmed(appt); err != nil {
		return nil, err
	}

	call, err := s.callFor(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !call.Status.Joinable() {
		return nil, apperrors.InvalidState("video call is %s", call.Status)
	}

	if call.Status == model.VideoCallScheduled {
		if err := s.start(ctx, ac, call); err != nil {
			return nil, err
		}
		if call, err = s.tables.VideoCalls.Get(ctx, call.ID); err != nil {
			return nil, err
		}
		if !call.Status.Joinable() {
			return nil, apperrors.InvalidState("video call is %s", call.Status)
		}
	}

	return &model.JoinInfo{
		CallLink: call.CallLink,
		RoomID:   call.RoomID,
		Status:   call.Status,
	}, nil
}

func (s *Service) start(ctx context.Context, ac *access.Context, call *model.VideoCall) error {
	evt, err := event.New(model.EventVideoCallStarted, call.ID, event.StatusChange{
		From:    string(model.VideoCallScheduled),
		To:      string(model.VideoCallOngoing),
		ActorID: ac.UserID,
	})
	if err != nil {
		return err
	}

	started := false
	err = repository.Apply(ctx, s.tx, func(ctx context.Context, tx repository.Tx) error {
		applied, err := tx.Update(ctx, repository.Update{
			Kind:       model.KindVideoCall,
			ID:         call.ID,
			FromStatus: string(model.VideoCallScheduled),
			Set: map[string]interface{}{
				"status":     model.VideoCallOngoing,
				"started_at": s.now(),
			},
		})
		if err != nil || !applied {
			return err
		}
		started = true
		return tx.Insert(ctx, model.KindOutboxEvent, evt)
	})
	if err != nil {
		return fmt.Errorf("failed to start video call: %w", err)
	}
	if started {
		metrics.VideoCallTransitions.WithLabelValues(string(model.VideoCallOngoing)).Inc()
		s.logger.Info("video call started", "call_id", call.ID.String(), "by", ac.UserID.String())
	}
	return nil
}

// End completes an ongoing call and its appointment in one transaction.
func (s *Service) End(ctx context.Context, ac *access.Context, appointmentID uuid.UUID, req model.EndVideoCallRequest) (*model.VideoCall, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	appt, err := s.tables.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !ac.Privileged() && !participant(ac, appt) {
		return nil, apperrors.AccessDenied("not a participant of this appointment")
	}
	if err := requireConfirmed(appt); err != nil {
		return nil, err
	}

	call, err := s.callFor(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if call.Status != model.VideoCallOngoing {
		return nil, apperrors.InvalidState("video call is %s, not ongoing", call.Status)
	}

	now := s.now()
	duration := 0
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	} else if call.StartedAt != nil {
		duration = int(now.Sub(*call.StartedAt).Minutes())
	}

	set := map[string]interface{}{
		"status":   model.VideoCallCompleted,
		"ended_at": now,
		"duration": duration,
	}
	if req.Notes != nil {
		set["notes"] = *req.Notes
	}

	evt, err := event.New(model.EventVideoCallEnded, call.ID, map[string]interface{}{
		"appointment_id":   appt.ID,
		"duration_minutes": duration,
		"ended_by":         ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{
			Kind:       model.KindVideoCall,
			ID:         call.ID,
			Version:    call.Version,
			FromStatus: string(model.VideoCallOngoing),
			Set:        set,
		}),
		repository.Change(repository.Update{
			Kind:       model.KindAppointment,
			ID:         appt.ID,
			Version:    appt.Version,
			FromStatus: string(model.AppointmentConfirmed),
			Set:        map[string]interface{}{"status": model.AppointmentCompleted},
		}),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to end video call: %w", err)
	}
	metrics.VideoCallTransitions.WithLabelValues(string(model.VideoCallCompleted)).Inc()

	s.logger.Info("video call ended",
		"call_id", call.ID.String(),
		"appointment_id", appt.ID.String(),
		"duration_minutes", duration)
	return s.tables.VideoCalls.Get(ctx, call.ID)
}

// Cancel withdraws a call nobody has joined yet.
func (s *Service) Cancel(ctx context.Context, ac *access.Context, appointmentID uuid.UUID) (*model.VideoCall, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	call, err := s.callFor(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if call.Status != model.VideoCallScheduled {
		return nil, apperrors.InvalidState("only scheduled calls can be cancelled, call is %s", call.Status)
	}

	evt, err := event.New(model.EventVideoCallCancelled, call.ID, event.StatusChange{
		From:    string(model.VideoCallScheduled),
		To:      string(model.VideoCallCancelled),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{
			Kind:       model.KindVideoCall,
			ID:         call.ID,
			Version:    call.Version,
			FromStatus: string(model.VideoCallScheduled),
			Set:        map[string]interface{}{"status": model.VideoCallCancelled},
		}),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to cancel video call: %w", err)
	}
	metrics.VideoCallTransitions.WithLabelValues(string(model.VideoCallCancelled)).Inc()

	msg := model.NotifyRequest{
		Title:         "Video consultation cancelled",
		Message:       "Your video consultation has been cancelled",
		Type:          "video_call",
		Priority:      model.PriorityHigh,
		AppointmentID: &call.AppointmentID,
	}
	s.notifier.NotifyPatient(ctx, call.PatientID, msg)
	s.notifier.NotifyDoctor(ctx, call.DoctorID, msg)
	return s.tables.VideoCalls.Get(ctx, call.ID)
}

func (s *Service) callFor(ctx context.Context, appointmentID uuid.UUID) (*model.VideoCall, error) {
	return s.tables.VideoCalls.FindOne(ctx, repository.Eq("appointment_id", appointmentID))
}

// requireConfirmed keeps calls tied to a live appointment; a cancelled or
// completed appointment is terminal.
func requireConfirmed(appt *model.Appointment) error {
	if appt.Status != model.AppointmentConfirmed {
		return apperrors.InvalidState("appointment is %s, not confirmed", appt.Status)
	}
	return nil
}

func participant(ac *access.Context, appt *model.Appointment) bool {
	switch ac.Role {
	case model.RolePatient:
		return access.Matches(ac, access.SubjectPatient, appt.PatientID)
	case model.RoleDoctor:
		return access.Matches(ac, access.SubjectDoctor, appt.DoctorID)
	}
	return false
}
