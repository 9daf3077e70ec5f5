package clinical

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// MockNotifier records side-channel notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyPatient(ctx context.Context, patientID uuid.UUID, req model.NotifyRequest) {
	m.Called(patientID, req.Type)
}

func (m *MockNotifier) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, req model.NotifyRequest) {
	m.Called(doctorID, req.Type)
}

func setup(t *testing.T) (*memory.Fixture, *Service, *MockNotifier) {
	f := memory.NewFixture()
	n := &MockNotifier{}
	t.Cleanup(func() { n.AssertExpectations(t) })
	return f, NewService(f.Store.Tables(), f.Store, n, validator.New(), logger.Nop()), n
}

func TestCreateMedicalRecord_RequiresLink(t *testing.T) {
	f, svc, _ := setup(t)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	linked := f.Patient("ana")
	unlinked := f.Patient("ben")
	appt := f.Appointment(linked, doctor, model.AppointmentCompleted, model.ConsultationInPerson)

	_, err := svc.CreateMedicalRecord(ctx, doctor, model.CreateMedicalRecordRequest{PatientID: *unlinked.PatientID})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	diagnosis := "seasonal allergy"
	record, err := svc.CreateMedicalRecord(ctx, doctor, model.CreateMedicalRecordRequest{
		PatientID:     *linked.PatientID,
		AppointmentID: &appt.ID,
		Diagnosis:     &diagnosis,
	})
	require.NoError(t, err)
	assert.Equal(t, *doctor.DoctorID, record.DoctorID)
	assert.Equal(t, *linked.PatientID, record.PatientID)

	_, err = svc.CreateMedicalRecord(ctx, f.Staff("eve"), model.CreateMedicalRecordRequest{PatientID: *linked.PatientID})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr, "only doctors write records")

	_, err = svc.CreateMedicalRecord(ctx, &access.Context{UserID: uuid.New(), Role: model.RoleDoctor}, model.CreateMedicalRecordRequest{PatientID: *linked.PatientID})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr, "doctor without profile")
}

func TestCreateMedicalRecord_ForeignAppointment(t *testing.T) {
	f, svc, _ := setup(t)
	doctor := f.Doctor("cy")
	other := f.Doctor("dee")
	patient := f.Patient("ana")
	f.Appointment(patient, doctor, model.AppointmentCompleted, model.ConsultationInPerson)
	foreign := f.Appointment(patient, other, model.AppointmentCompleted, model.ConsultationInPerson)

	_, err := svc.CreateMedicalRecord(context.Background(), doctor, model.CreateMedicalRecordRequest{
		PatientID:     *patient.PatientID,
		AppointmentID: &foreign.ID,
	})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
}

func TestAddPrescription_OwnRecordOnly(t *testing.T) {
	f, svc, n := setup(t)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	other := f.Doctor("dee")
	patient := f.Patient("ana")
	f.Appointment(patient, doctor, model.AppointmentCompleted, model.ConsultationInPerson)

	record, err := svc.CreateMedicalRecord(ctx, doctor, model.CreateMedicalRecordRequest{PatientID: *patient.PatientID})
	require.NoError(t, err)

	_, err = svc.AddPrescription(ctx, other, record.ID, model.CreatePrescriptionRequest{Medication: "ibuprofen"})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	_, err = svc.AddPrescription(ctx, doctor, uuid.New(), model.CreatePrescriptionRequest{Medication: "ibuprofen"})
	assert.ErrorIs(t, err, apperrors.NotFoundErr)

	n.On("NotifyPatient", *patient.PatientID, "prescription").Once()
	rx, err := svc.AddPrescription(ctx, doctor, record.ID, model.CreatePrescriptionRequest{Medication: "ibuprofen"})
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionActive, rx.Status)
	assert.Equal(t, record.ID, rx.MedicalRecordID)
}

func TestLabTest_OrderAndResult(t *testing.T) {
	f, svc, n := setup(t)
	ctx := context.Background()
	doctor := f.Doctor("cy")
	patient := f.Patient("ana")
	staff := f.Staff("eve")
	f.Appointment(patient, doctor, model.AppointmentConfirmed, model.ConsultationInPerson)

	n.On("NotifyPatient", *patient.PatientID, "lab_test").Twice()
	n.On("NotifyDoctor", *doctor.DoctorID, "lab_test").Once()

	test, err := svc.OrderLabTest(ctx, doctor, model.OrderLabTestRequest{PatientID: *patient.PatientID, TestType: "CBC"})
	require.NoError(t, err)
	assert.Equal(t, model.LabTestOrdered, test.Status)

	_, err = svc.RecordLabResult(ctx, doctor, test.ID, model.RecordLabResultRequest{Result: "normal"})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr, "doctors do not enter results")

	done, err := svc.RecordLabResult(ctx, staff, test.ID, model.RecordLabResultRequest{Result: "normal"})
	require.NoError(t, err)
	assert.Equal(t, model.LabTestCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "normal", *done.Result)
	assert.NotNil(t, done.CompletedAt)

	_, err = svc.RecordLabResult(ctx, staff, test.ID, model.RecordLabResultRequest{Result: "again"})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestLinkedPatients(t *testing.T) {
	f, _, _ := setup(t)
	doctor := f.Doctor("cy")
	a, b := f.Patient("ana"), f.Patient("ben")
	f.Appointment(a, doctor, model.AppointmentPending, model.ConsultationInPerson)
	f.Appointment(a, doctor, model.AppointmentCompleted, model.ConsultationInPerson)
	f.Appointment(b, f.Doctor("dee"), model.AppointmentPending, model.ConsultationInPerson)

	ids, err := LinkedPatients(context.Background(), f.Store.Tables().Appointments, *doctor.DoctorID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{*a.PatientID}, ids)
}
