package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Fixture seeds users with matching profiles and returns their resolved
// access contexts.
type Fixture struct {
	Store *Store
}

func NewFixture() *Fixture {
	return &Fixture{Store: NewStore()}
}

func (f *Fixture) user(role model.Role, name string) *model.User {
	u := &model.User{
		Name:   name,
		Email:  fmt.Sprintf("%s.%s@clinic.test", name, uuid.NewString()[:8]),
		Role:   role,
		Active: true,
	}
	f.Store.Seed(model.KindUser, u)
	return u
}

func (f *Fixture) Patient(name string) *access.Context {
	u := f.user(model.RolePatient, name)
	p := &model.PatientProfile{UserID: u.ID}
	f.Store.Seed(model.KindPatient, p)
	return &access.Context{UserID: u.ID, Role: u.Role, PatientID: &p.ID}
}

func (f *Fixture) Doctor(name string) *access.Context {
	u := f.user(model.RoleDoctor, name)
	d := &model.DoctorProfile{
		UserID:          u.ID,
		Specialty:       "general",
		LicenseNumber:   "LIC-" + uuid.NewString()[:8],
		ConsultationFee: 100,
		Availability:    model.DoctorAvailable,
		SupportsVideo:   true,
	}
	f.Store.Seed(model.KindDoctor, d)
	return &access.Context{UserID: u.ID, Role: u.Role, DoctorID: &d.ID}
}

func (f *Fixture) Staff(name string) *access.Context {
	return f.staff(model.RoleStaff, name)
}

func (f *Fixture) Admin(name string) *access.Context {
	return f.staff(model.RoleAdmin, name)
}

func (f *Fixture) staff(role model.Role, name string) *access.Context {
	u := f.user(role, name)
	s := &model.StaffProfile{UserID: u.ID, Position: string(role)}
	f.Store.Seed(model.KindStaff, s)
	return &access.Context{UserID: u.ID, Role: u.Role, StaffID: &s.ID}
}

// Appointment seeds an appointment between patient and doctor, dated today.
func (f *Fixture) Appointment(patient, doctor *access.Context, status model.AppointmentStatus, consultation model.ConsultationType) *model.Appointment {
	now := f.Store.now()
	a := &model.Appointment{
		PatientID:        *patient.PatientID,
		DoctorID:         *doctor.DoctorID,
		ServiceType:      "consultation",
		AppointmentDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		AppointmentTime:  "10:00",
		ConsultationType: consultation,
		Status:           status,
		Fee:              100,
		Duration:         30,
	}
	f.Store.Seed(model.KindAppointment, a)
	return a
}
