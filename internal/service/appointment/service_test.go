package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/entity"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func newService(f *memory.Fixture) *Service {
	tables := f.Store.Tables()
	v := validator.New()
	notifier := notification.NewService(tables, f.Store, v, logger.Nop())
	return NewService(tables, f.Store, entity.NewReaders(tables, access.Default, logger.Nop()), notifier, v, logger.Nop())
}

func booking(doctor *access.Context) model.CreateAppointmentRequest {
	return model.CreateAppointmentRequest{
		DoctorID:         *doctor.DoctorID,
		ServiceType:      "consultation",
		AppointmentDate:  time.Now().UTC().Add(48 * time.Hour),
		AppointmentTime:  "09:30",
		ConsultationType: model.ConsultationInPerson,
	}
}

func countOutbox(t *testing.T, f *memory.Fixture, eventType string) int {
	events, err := f.Store.Outbox().GetPendingEvents(context.Background(), 100)
	require.NoError(t, err)
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestCreate_PatientBooksForSelf(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	patient := f.Patient("ana")
	other := f.Patient("ben")
	doctor := f.Doctor("cy")

	req := booking(doctor)
	req.PatientID = other.PatientID
	confirmed := model.AppointmentConfirmed
	req.Status = &confirmed

	appt, err := svc.Create(context.Background(), patient, req)
	require.NoError(t, err)
	assert.Equal(t, *patient.PatientID, appt.PatientID, "patients cannot book for others")
	assert.Equal(t, model.AppointmentPending, appt.Status, "patients cannot pre-confirm")
	assert.Equal(t, 100.0, appt.Fee, "fee defaults to the doctor's")
	assert.Equal(t, DefaultDuration, appt.Duration)
	assert.Equal(t, 1, appt.Version)
	assert.Equal(t, 1, countOutbox(t, f, model.EventAppointmentBooked))

	notes, err := f.Store.Tables().Notifications.List(context.Background(), access.Unscoped, repository.ListOptions{
		Filters: []repository.Filter{repository.Eq("user_id", doctor.UserID)},
	})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestCreate_StaffBooksForPatient(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	patient := f.Patient("ana")
	doctor := f.Doctor("cy")
	staff := f.Staff("dee")

	req := booking(doctor)
	confirmed := model.AppointmentConfirmed
	req.Status = &confirmed

	_, err := svc.Create(context.Background(), staff, req)
	assert.ErrorIs(t, err, apperrors.ValidationErr, "patient_id is required for staff")

	req.PatientID = patient.PatientID
	appt, err := svc.Create(context.Background(), staff, req)
	require.NoError(t, err)
	assert.Equal(t, *patient.PatientID, appt.PatientID)
	assert.Equal(t, model.AppointmentConfirmed, appt.Status)
}

func TestCreate_Rejections(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	patient := f.Patient("ana")
	doctor := f.Doctor("cy")
	ctx := context.Background()

	_, err := svc.Create(ctx, doctor, booking(doctor))
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr, "doctors do not book")

	past := booking(doctor)
	past.AppointmentDate = time.Now().UTC().Add(-72 * time.Hour)
	_, err = svc.Create(ctx, patient, past)
	assert.ErrorIs(t, err, apperrors.ValidationErr)

	missing := booking(doctor)
	missing.DoctorID = uuid.New()
	_, err = svc.Create(ctx, patient, missing)
	assert.ErrorIs(t, err, apperrors.NotFoundErr)

	_, err = svc.Create(ctx, patient, booking(doctor))
	require.NoError(t, err)
	_, err = svc.Create(ctx, patient, booking(doctor))
	assert.ErrorIs(t, err, apperrors.InvalidStateErr, "slot already taken")
}

func TestCreate_SlotIndexConflict(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	patient := f.Patient("ana")
	doctor := f.Doctor("cy")

	// A concurrent booking of the same slot surfaces as a unique violation on insert.
	f.Store.FailOn(func(op string, kind model.Kind) error {
		if op == "insert" && kind == model.KindAppointment {
			return apperrors.Conflict(kind.Resource())
		}
		return nil
	})

	_, err := svc.Create(context.Background(), patient, booking(doctor))
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
	assert.NotErrorIs(t, err, apperrors.ConflictErr)
	assert.Equal(t, 0, countOutbox(t, f, model.EventAppointmentBooked))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	patient := f.Patient("ana")
	doctor := f.Doctor("cy")
	stranger := f.Doctor("dee")
	appt := f.Appointment(patient, doctor, model.AppointmentPending, model.ConsultationInPerson)

	_, err := svc.UpdateStatus(ctx, patient, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	_, err = svc.UpdateStatus(ctx, stranger, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	_, err = svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr, "pending cannot jump to completed")

	got, err := svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentConfirmed, got.Status)
	assert.Equal(t, 2, got.Version)

	_, err = svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled, Version: 1})
	assert.ErrorIs(t, err, apperrors.ConflictErr, "stale version")

	got, err = svc.UpdateStatus(ctx, f.Staff("eve"), appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled, Version: 2})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, got.Status)

	_, err = svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr, "cancelled is terminal")

	stored, err := f.Store.Tables().Appointments.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, stored.Status)
	assert.Equal(t, 3, stored.Version, "rejected transitions leave the row untouched")

	assert.Equal(t, 2, countOutbox(t, f, model.EventAppointmentStatusChanged))
}

func TestUpdateStatus_CompletedIsTerminal(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	appt := f.Appointment(f.Patient("ana"), doctor, model.AppointmentConfirmed, model.ConsultationInPerson)

	got, err := svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, got.Status)
	assert.Equal(t, 2, got.Version)

	for _, to := range []model.AppointmentStatus{model.AppointmentConfirmed, model.AppointmentPending, model.AppointmentCancelled} {
		_, err = svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: to})
		assert.ErrorIs(t, err, apperrors.InvalidStateErr, "completed -> %s", to)
	}

	stored, err := f.Store.Tables().Appointments.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, 1, countOutbox(t, f, model.EventAppointmentStatusChanged))
}

func seedCall(f *memory.Fixture, appt *model.Appointment, status model.VideoCallStatus) *model.VideoCall {
	call := &model.VideoCall{
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		CallLink:      "https://meet.test/consult",
		RoomID:        "room-1",
		Status:        status,
	}
	f.Store.Seed(model.KindVideoCall, call)
	return call
}

func TestUpdateStatus_CancelCancelsScheduledCall(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	appt := f.Appointment(f.Patient("ana"), doctor, model.AppointmentConfirmed, model.ConsultationVideo)
	call := seedCall(f, appt, model.VideoCallScheduled)

	got, err := svc.UpdateStatus(ctx, f.Staff("eve"), appt.ID, model.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, got.Status)

	storedCall, err := f.Store.Tables().VideoCalls.Get(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoCallCancelled, storedCall.Status)
	assert.Equal(t, 2, storedCall.Version)
	assert.Equal(t, 1, countOutbox(t, f, model.EventVideoCallCancelled))
	assert.Equal(t, 1, countOutbox(t, f, model.EventAppointmentStatusChanged))
}

func TestUpdateStatus_OngoingCallBlocksChange(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	appt := f.Appointment(f.Patient("ana"), doctor, model.AppointmentConfirmed, model.ConsultationVideo)
	call := seedCall(f, appt, model.VideoCallOngoing)

	for _, to := range []model.AppointmentStatus{model.AppointmentCancelled, model.AppointmentCompleted} {
		_, err := svc.UpdateStatus(ctx, doctor, appt.ID, model.UpdateAppointmentStatusRequest{Status: to})
		assert.ErrorIs(t, err, apperrors.InvalidStateErr, "-> %s while the call is ongoing", to)
	}

	stored, err := f.Store.Tables().Appointments.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentConfirmed, stored.Status)
	assert.Equal(t, 1, stored.Version)

	storedCall, err := f.Store.Tables().VideoCalls.Get(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoCallOngoing, storedCall.Status)
	assert.Equal(t, 0, countOutbox(t, f, model.EventAppointmentStatusChanged))
	assert.Equal(t, 0, countOutbox(t, f, model.EventVideoCallCancelled))
}
