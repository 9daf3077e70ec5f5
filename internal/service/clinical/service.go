// Package clinical covers the doctor-authored parts of care: medical
// records, prescriptions and lab tests.
package clinical

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

// LinkedPatients returns the patients that share at least one appointment
// with the doctor.
func LinkedPatients(ctx context.Context, appointments repository.Table[model.Appointment], doctorID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := appointments.Distinct(ctx, "patient_id", repository.Eq("doctor_id", doctorID))
	if err != nil {
		return nil, fmt.Errorf("failed to load linked patients: %w", err)
	}
	return ids, nil
}

// RequireLinked fails with AccessDenied unless the doctor has seen the patient.
func RequireLinked(ctx context.Context, appointments repository.Table[model.Appointment], doctorID, patientID uuid.UUID) error {
	ids, err := LinkedPatients(ctx, appointments, doctorID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == patientID {
			return nil
		}
	}
	return apperrors.AccessDenied("patient is not linked to this doctor")
}

// doctorFor checks the caller is a doctor with a profile and returns its id.
func doctorFor(ac *access.Context) (uuid.UUID, error) {
	if err := access.Require(ac, model.RoleDoctor); err != nil {
		return uuid.Nil, err
	}
	if ac.DoctorID == nil {
		return uuid.Nil, apperrors.AccessDenied("doctor profile required")
	}
	return *ac.DoctorID, nil
}

// checkAppointment verifies an optional appointment reference belongs to
// this doctor and patient.
func (s *Service) checkAppointment(ctx context.Context, appointmentID *uuid.UUID, doctorID, patientID uuid.UUID) error {
	if appointmentID == nil {
		return nil
	}
	appt, err := s.tables.Appointments.Get(ctx, *appointmentID)
	if err != nil {
		return err
	}
	if appt.DoctorID != doctorID {
		return apperrors.AccessDenied("appointment belongs to another doctor")
	}
	if appt.PatientID != patientID {
		return apperrors.BadRequest("appointment belongs to another patient", nil)
	}
	return nil
}

func (s *Service) CreateMedicalRecord(ctx context.Context, ac *access.Context, req model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	doctorID, err := doctorFor(ac)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := RequireLinked(ctx, s.tables.Appointments, doctorID, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.checkAppointment(ctx, req.AppointmentID, doctorID, req.PatientID); err != nil {
		return nil, err
	}

	record := &model.MedicalRecord{
		PatientID:     req.PatientID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
	}
	model.Stamp(record, s.now())

	evt, err := event.New(model.EventMedicalRecordCreated, record.ID, map[string]interface{}{
		"patient_id": record.PatientID,
		"doctor_id":  record.DoctorID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Insert(model.KindMedicalRecord, record),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to create medical record: %w", err)
	}

	s.logger.Info("medical record created",
		"record_id", record.ID.String(),
		"patient_id", record.PatientID.String(),
		"doctor_id", doctorID.String())
	return record, nil
}

// AddPrescription attaches a prescription to one of the caller's own records.
func (s *Service) AddPrescription(ctx context.Context, ac *access.Context, recordID uuid.UUID, req model.CreatePrescriptionRequest) (*model.Prescription, error) {
	doctorID, err := doctorFor(ac)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	record, err := s.tables.MedicalRecords.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.DoctorID != doctorID {
		return nil, apperrors.AccessDenied("medical record belongs to another doctor")
	}

	rx := &model.Prescription{
		MedicalRecordID: record.ID,
		Medication:      req.Medication,
		Dosage:          req.Dosage,
		Frequency:       req.Frequency,
		Duration:        req.Duration,
		Instructions:    req.Instructions,
		Quantity:        req.Quantity,
		Refills:         req.Refills,
		Status:          model.PrescriptionActive,
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindPrescription, rx)); err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}

	s.notifier.NotifyPatient(ctx, record.PatientID, model.NotifyRequest{
		Title:   "New prescription",
		Message: fmt.Sprintf("%s has been prescribed", rx.Medication),
		Type:    "prescription",
	})
	return rx, nil
}

func (s *Service) OrderLabTest(ctx context.Context, ac *access.Context, req model.OrderLabTestRequest) (*model.LabTest, error) {
	doctorID, err := doctorFor(ac)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := RequireLinked(ctx, s.tables.Appointments, doctorID, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.checkAppointment(ctx, req.AppointmentID, doctorID, req.PatientID); err != nil {
		return nil, err
	}

	test := &model.LabTest{
		PatientID:     req.PatientID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		TestType:      req.TestType,
		Status:        model.LabTestOrdered,
	}
	model.Stamp(test, s.now())

	evt, err := event.New(model.EventLabTestOrdered, test.ID, test)
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Insert(model.KindLabTest, test),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to order lab test: %w", err)
	}

	s.notifier.NotifyPatient(ctx, test.PatientID, model.NotifyRequest{
		Title:     "Lab test ordered",
		Message:   fmt.Sprintf("Your doctor ordered a %s test", test.TestType),
		Type:      "lab_test",
		LabTestID: &test.ID,
	})
	return test, nil
}

// RecordLabResult completes an ordered test. Results are entered by staff.
func (s *Service) RecordLabResult(ctx context.Context, ac *access.Context, id uuid.UUID, req model.RecordLabResultRequest) (*model.LabTest, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.tables.LabTests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if test.Status != model.LabTestOrdered {
		return nil, apperrors.InvalidState("lab test is already %s", test.Status)
	}

	version := test.Version
	if req.Version > 0 {
		version = req.Version
	}
	evt, err := event.New(model.EventLabTestCompleted, test.ID, event.StatusChange{
		From:    string(model.LabTestOrdered),
		To:      string(model.LabTestCompleted),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{
			Kind:       model.KindLabTest,
			ID:         test.ID,
			Version:    version,
			FromStatus: string(model.LabTestOrdered),
			Set: map[string]interface{}{
				"result":       req.Result,
				"status":       model.LabTestCompleted,
				"completed_at": s.now(),
			},
		}),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to record lab result: %w", err)
	}

	updated, err := s.tables.LabTests.Get(ctx, test.ID)
	if err != nil {
		return nil, err
	}

	msg := model.NotifyRequest{
		Title:     "Lab results available",
		Message:   fmt.Sprintf("Results for the %s test are ready", test.TestType),
		Type:      "lab_test",
		Priority:  model.PriorityHigh,
		LabTestID: &test.ID,
	}
	s.notifier.NotifyPatient(ctx, test.PatientID, msg)
	s.notifier.NotifyDoctor(ctx, test.DoctorID, msg)
	return updated, nil
}
