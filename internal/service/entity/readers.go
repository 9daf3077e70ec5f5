package entity

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// Readers holds one reader per entity kind.
type Readers struct {
	Users           *Reader[model.User]
	Patients        *Reader[model.PatientProfile]
	Doctors         *Reader[model.DoctorProfile]
	Staff           *Reader[model.StaffProfile]
	Appointments    *Reader[model.Appointment]
	MedicalRecords  *Reader[model.MedicalRecord]
	Prescriptions   *Reader[model.Prescription]
	LabTests        *Reader[model.LabTest]
	Payments        *Reader[model.Payment]
	Services        *Reader[model.Service]
	ServicePackages *Reader[model.ServicePackage]
	HealthMetrics   *Reader[model.HealthMetric]
	Notifications   *Reader[model.Notification]
	Tasks           *Reader[model.Task]
	Equipment       *Reader[model.Equipment]
	VideoCalls      *Reader[model.VideoCall]
}

func NewReaders(t *repository.Tables, policy access.Policy, logger *logger.Logger) *Readers {
	return &Readers{
		Users:           NewReader(t.Users, policy, logger),
		Patients:        NewReader(t.Patients, policy, logger),
		Doctors:         NewReader(t.Doctors, policy, logger),
		Staff:           NewReader(t.Staff, policy, logger),
		Appointments:    NewReader(t.Appointments, policy, logger),
		MedicalRecords:  NewReader(t.MedicalRecords, policy, logger),
		Prescriptions:   NewReader(t.Prescriptions, policy, logger),
		LabTests:        NewReader(t.LabTests, policy, logger),
		Payments:        NewReader(t.Payments, policy, logger),
		Services:        NewReader(t.Services, policy, logger),
		ServicePackages: NewReader(t.ServicePackages, policy, logger),
		HealthMetrics:   NewReader(t.HealthMetrics, policy, logger),
		Notifications:   NewReader(t.Notifications, policy, logger),
		Tasks:           NewReader(t.Tasks, policy, logger),
		Equipment:       NewReader(t.Equipment, policy, logger),
		VideoCalls:      NewReader(t.VideoCalls, policy, logger),
	}
}

// AnyReader erases the row type so one HTTP handler can serve every kind.
type AnyReader interface {
	Kind() model.Kind
	ListAny(ctx context.Context, ac *access.Context, opts repository.ListOptions) (interface{}, error)
	GetAny(ctx context.Context, ac *access.Context, id uuid.UUID) (interface{}, error)
}

func (r *Reader[T]) ListAny(ctx context.Context, ac *access.Context, opts repository.ListOptions) (interface{}, error) {
	return r.List(ctx, ac, opts)
}

func (r *Reader[T]) GetAny(ctx context.Context, ac *access.Context, id uuid.UUID) (interface{}, error) {
	return r.Get(ctx, ac, id)
}

// Registry indexes the readers by kind.
func (r *Readers) Registry() map[model.Kind]AnyReader {
	readers := []AnyReader{
		r.Users, r.Patients, r.Doctors, r.Staff, r.Appointments, r.MedicalRecords,
		r.Prescriptions, r.LabTests, r.Payments, r.Services, r.ServicePackages,
		r.HealthMetrics, r.Notifications, r.Tasks, r.Equipment, r.VideoCalls,
	}
	registry := make(map[model.Kind]AnyReader, len(readers))
	for _, reader := range readers {
		registry[reader.Kind()] = reader
	}
	return registry
}
