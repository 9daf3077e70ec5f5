package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func appointment(patientID, doctorID uuid.UUID, day int) *model.Appointment {
	return &model.Appointment{
		PatientID:        patientID,
		DoctorID:         doctorID,
		ServiceType:      "consultation",
		AppointmentDate:  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		AppointmentTime:  "10:00",
		ConsultationType: model.ConsultationInPerson,
		Status:           model.AppointmentPending,
	}
}

func TestStore_ListAppliesOwnScope(t *testing.T) {
	s := NewStore()
	p1, p2, d1 := uuid.New(), uuid.New(), uuid.New()
	s.Seed(model.KindAppointment,
		appointment(p1, d1, 1),
		appointment(p1, d1, 3),
		appointment(p2, d1, 2),
	)

	rows, err := s.Tables().Appointments.List(context.Background(),
		access.Scope{Rule: access.Own("patient_id", access.SubjectPatient), Value: p1},
		repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].AppointmentDate.Day(), "most recent first")
	assert.Equal(t, 1, rows[1].AppointmentDate.Day())
}

func TestStore_ListOrderOverride(t *testing.T) {
	s := NewStore()
	p, d := uuid.New(), uuid.New()
	s.Seed(model.KindAppointment, appointment(p, d, 5), appointment(p, d, 2), appointment(p, d, 9))

	rows, err := s.Tables().Appointments.List(context.Background(), access.Unscoped, repository.ListOptions{
		Filters: []repository.Filter{repository.Gte("appointment_date", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))},
		Order:   &repository.Order{Columns: []string{"appointment_date", "appointment_time"}, Direction: repository.Asc},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].AppointmentDate.Day())
	assert.Equal(t, 9, rows[1].AppointmentDate.Day())
}

func TestStore_ViaScope(t *testing.T) {
	s := NewStore()
	p1, p2, d := uuid.New(), uuid.New(), uuid.New()
	a1, a2 := appointment(p1, d, 1), appointment(p2, d, 1)
	s.Seed(model.KindAppointment, a1, a2)
	s.Seed(model.KindPayment,
		&model.Payment{AppointmentID: a1.ID, PatientID: p1, Amount: 50, Status: model.PaymentPending, Method: "card"},
		&model.Payment{AppointmentID: a2.ID, PatientID: p2, Amount: 70, Status: model.PaymentPending, Method: "card"},
	)

	scope := access.Scope{
		Rule:  access.Via("appointment_id", model.KindAppointment, "id", "patient_id", access.SubjectPatient),
		Value: p1,
	}
	rows, err := s.Tables().Payments.List(context.Background(), scope, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a1.ID, rows[0].AppointmentID)
}

func TestStore_EmptyScopeMatchesNothing(t *testing.T) {
	s := NewStore()
	a := appointment(uuid.New(), uuid.New(), 1)
	s.Seed(model.KindAppointment, a)

	empty := access.Scope{Rule: access.Own("doctor_id", access.SubjectDoctor), Empty: true}
	rows, err := s.Tables().Appointments.List(context.Background(), empty, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	visible, err := s.Tables().Appointments.Visible(context.Background(), empty, a.ID)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestStore_Distinct(t *testing.T) {
	s := NewStore()
	p1, p2, d1, d2 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	s.Seed(model.KindAppointment, appointment(p1, d1, 1), appointment(p1, d1, 2), appointment(p2, d1, 3), appointment(p2, d2, 3))

	ids, err := s.Tables().Appointments.Distinct(context.Background(), "patient_id", repository.Eq("doctor_id", d1))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, ids)

	ids, err = s.Tables().Appointments.Distinct(context.Background(), "patient_id", repository.Eq("doctor_id", d2))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p2}, ids)
}

func TestStore_UpdateVersionConflict(t *testing.T) {
	s := NewStore()
	a := appointment(uuid.New(), uuid.New(), 1)
	s.Seed(model.KindAppointment, a)
	require.Equal(t, 1, a.Version)

	err := repository.Apply(context.Background(), s, repository.Change(repository.Update{
		Kind: model.KindAppointment, ID: a.ID, Version: 1,
		Set: map[string]interface{}{"status": model.AppointmentConfirmed},
	}))
	require.NoError(t, err)

	err = repository.Apply(context.Background(), s, repository.Change(repository.Update{
		Kind: model.KindAppointment, ID: a.ID, Version: 1,
		Set: map[string]interface{}{"status": model.AppointmentCancelled},
	}))
	assert.ErrorIs(t, err, apperrors.ConflictErr)

	got, err := s.Tables().Appointments.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentConfirmed, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestStore_UpdateStatusGuard(t *testing.T) {
	s := NewStore()
	call := &model.VideoCall{AppointmentID: uuid.New(), Status: model.VideoCallOngoing, CallLink: "l", RoomID: "r"}
	s.Seed(model.KindVideoCall, call)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		applied, err := tx.Update(ctx, repository.Update{
			Kind: model.KindVideoCall, ID: call.ID, FromStatus: string(model.VideoCallScheduled),
			Set: map[string]interface{}{"status": model.VideoCallOngoing, "started_at": time.Now()},
		})
		assert.False(t, applied)
		return err
	})
	require.NoError(t, err)

	got, err := s.Tables().VideoCalls.Get(context.Background(), call.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StartedAt)
}

func TestStore_RollbackOnError(t *testing.T) {
	s := NewStore()
	a := appointment(uuid.New(), uuid.New(), 1)
	s.Seed(model.KindAppointment, a)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Update(ctx, repository.Update{
			Kind: model.KindAppointment, ID: a.ID,
			Set: map[string]interface{}{"status": model.AppointmentCancelled},
		}); err != nil {
			return err
		}
		if err := tx.Insert(ctx, model.KindNotification, &model.Notification{UserID: uuid.New(), Title: "t"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Tables().Appointments.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentPending, got.Status)

	count, err := s.Tables().Notifications.Count(context.Background(), access.Unscoped)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_UniqueConstraint(t *testing.T) {
	s := NewStore()
	appointmentID := uuid.New()
	s.Seed(model.KindVideoCall, &model.VideoCall{AppointmentID: appointmentID, Status: model.VideoCallScheduled})

	err := repository.Apply(context.Background(), s,
		repository.Insert(model.KindVideoCall, &model.VideoCall{AppointmentID: appointmentID, Status: model.VideoCallScheduled}))
	assert.ErrorIs(t, err, apperrors.ConflictErr)
}

func TestStore_GetMissing(t *testing.T) {
	_, err := NewStore().Tables().Doctors.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestOutbox_Lifecycle(t *testing.T) {
	s := NewStore()
	event := &model.OutboxEvent{EventType: model.EventAppointmentBooked, AggregateID: uuid.New(), Payload: []byte(`{}`), Status: model.OutboxStatusPending}
	s.Seed(model.KindOutboxEvent, event)

	pending, err := s.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.Outbox().UpdateStatus(context.Background(), event.ID, model.OutboxStatusProcessed, nil))
	pending, err = s.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := s.Outbox().DeleteProcessedBefore(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
