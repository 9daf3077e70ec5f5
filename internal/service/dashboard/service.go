// Package dashboard assembles the role-specific landing bundles. Every
// sub-query runs through the same scoped readers as the list endpoints.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/entity"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const recentLimit = 10

type PatientDashboard struct {
	Profile              *model.PatientProfile  `json:"profile"`
	UpcomingAppointments []*model.Appointment   `json:"upcoming_appointments"`
	MedicalRecords       []*model.MedicalRecord `json:"medical_records"`
	Prescriptions        []*model.Prescription  `json:"prescriptions"`
	LabTests             []*model.LabTest       `json:"lab_tests"`
	Payments             []*model.Payment       `json:"payments"`
	HealthMetrics        []*model.HealthMetric  `json:"health_metrics"`
	VideoCalls           []*model.VideoCall     `json:"video_calls"`
	Notifications        []*model.Notification  `json:"notifications"`
}

type DoctorDashboard struct {
	Profile              *model.DoctorProfile    `json:"profile"`
	TodayAppointments    []*model.Appointment    `json:"today_appointments"`
	UpcomingAppointments []*model.Appointment    `json:"upcoming_appointments"`
	Patients             []*model.PatientProfile `json:"patients"`
	PendingLabTests      []*model.LabTest        `json:"pending_lab_tests"`
	MedicalRecords       []*model.MedicalRecord  `json:"medical_records"`
	VideoCalls           []*model.VideoCall      `json:"video_calls"`
	Tasks                []*model.Task           `json:"tasks"`
	Notifications        []*model.Notification   `json:"notifications"`
}

type StaffStats struct {
	Patients          int `json:"patients"`
	Doctors           int `json:"doctors"`
	AppointmentsToday int `json:"appointments_today"`
	PendingPayments   int `json:"pending_payments"`
}

type StaffDashboard struct {
	Stats               StaffStats             `json:"stats"`
	TodayAppointments   []*model.Appointment   `json:"today_appointments"`
	PendingAppointments []*model.Appointment   `json:"pending_appointments"`
	PendingLabTests     []*model.LabTest       `json:"pending_lab_tests"`
	PendingPayments     []*model.Payment       `json:"pending_payments"`
	Tasks               []*model.Task          `json:"tasks"`
	Equipment           []*model.Equipment     `json:"equipment"`
	Doctors             []*model.DoctorProfile `json:"doctors"`
	Notifications       []*model.Notification  `json:"notifications"`
}

type Service struct {
	readers *entity.Readers
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(readers *entity.Readers, logger *logger.Logger) *Service {
	return &Service{
		readers: readers,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// For returns the bundle matching the caller's role.
func (s *Service) For(ctx context.Context, ac *access.Context) (interface{}, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	switch ac.Role {
	case model.RolePatient:
		return s.Patient(ctx, ac)
	case model.RoleDoctor:
		return s.Doctor(ctx, ac)
	default:
		return s.Staff(ctx, ac)
	}
}

func (s *Service) today() time.Time {
	return s.now().Truncate(24 * time.Hour)
}

func (s *Service) upcoming() repository.ListOptions {
	return repository.ListOptions{
		Filters: []repository.Filter{repository.Gte("appointment_date", s.today())},
		Order:   &repository.Order{Columns: []string{"appointment_date", "appointment_time"}, Direction: repository.Asc},
		Limit:   recentLimit,
	}
}

func (s *Service) todays() repository.ListOptions {
	return repository.ListOptions{
		Filters: []repository.Filter{repository.Eq("appointment_date", s.today())},
		Order:   &repository.Order{Columns: []string{"appointment_time"}, Direction: repository.Asc},
	}
}

func recent(filters ...repository.Filter) repository.ListOptions {
	return repository.ListOptions{Filters: filters, Limit: recentLimit}
}

// list runs one sub-query on g and stores its rows in dst.
func list[T any](ctx context.Context, g *errgroup.Group, dst *[]*T, r *entity.Reader[T], ac *access.Context, opts repository.ListOptions) {
	g.Go(func() error {
		rows, err := r.List(ctx, ac, opts)
		if err != nil {
			return err
		}
		*dst = rows
		return nil
	})
}

func count[T any](ctx context.Context, g *errgroup.Group, dst *int, r *entity.Reader[T], ac *access.Context, filters ...repository.Filter) {
	g.Go(func() error {
		n, err := r.Count(ctx, ac, filters...)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	})
}

func (s *Service) observe(role model.Role, start time.Time) {
	metrics.DashboardDuration.WithLabelValues(string(role)).Observe(time.Since(start).Seconds())
}

// A user whose profile row does not exist yet owns nothing.
func emptyPatientDashboard() *PatientDashboard {
	return &PatientDashboard{
		UpcomingAppointments: []*model.Appointment{},
		MedicalRecords:       []*model.MedicalRecord{},
		Prescriptions:        []*model.Prescription{},
		LabTests:             []*model.LabTest{},
		Payments:             []*model.Payment{},
		HealthMetrics:        []*model.HealthMetric{},
		VideoCalls:           []*model.VideoCall{},
		Notifications:        []*model.Notification{},
	}
}

func emptyDoctorDashboard() *DoctorDashboard {
	return &DoctorDashboard{
		TodayAppointments:    []*model.Appointment{},
		UpcomingAppointments: []*model.Appointment{},
		Patients:             []*model.PatientProfile{},
		PendingLabTests:      []*model.LabTest{},
		MedicalRecords:       []*model.MedicalRecord{},
		VideoCalls:           []*model.VideoCall{},
		Tasks:                []*model.Task{},
		Notifications:        []*model.Notification{},
	}
}

// Patient fails as a whole if any sub-query fails.
func (s *Service) Patient(ctx context.Context, ac *access.Context) (*PatientDashboard, error) {
	if err := access.Require(ac, model.RolePatient); err != nil {
		return nil, err
	}
	if ac.PatientID == nil {
		return emptyPatientDashboard(), nil
	}
	defer s.observe(ac.Role, time.Now())

	d := &PatientDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.readers.Patients.Get(gctx, ac, *ac.PatientID)
		if err != nil {
			return err
		}
		d.Profile = p
		return nil
	})
	list(gctx, g, &d.UpcomingAppointments, s.readers.Appointments, ac, s.upcoming())
	list(gctx, g, &d.MedicalRecords, s.readers.MedicalRecords, ac, recent())
	list(gctx, g, &d.Prescriptions, s.readers.Prescriptions, ac, recent(repository.Eq("status", model.PrescriptionActive)))
	list(gctx, g, &d.LabTests, s.readers.LabTests, ac, recent())
	list(gctx, g, &d.Payments, s.readers.Payments, ac, recent())
	list(gctx, g, &d.HealthMetrics, s.readers.HealthMetrics, ac, recent())
	list(gctx, g, &d.VideoCalls, s.readers.VideoCalls, ac, recent())
	list(gctx, g, &d.Notifications, s.readers.Notifications, ac, recent(repository.Eq("read", false)))

	if err := g.Wait(); err != nil {
		s.logger.Error(err, "failed to build patient dashboard", "user_id", ac.UserID.String())
		return nil, err
	}
	return d, nil
}

func (s *Service) Doctor(ctx context.Context, ac *access.Context) (*DoctorDashboard, error) {
	if err := access.Require(ac, model.RoleDoctor); err != nil {
		return nil, err
	}
	if ac.DoctorID == nil {
		return emptyDoctorDashboard(), nil
	}
	defer s.observe(ac.Role, time.Now())

	d := &DoctorDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.readers.Doctors.Get(gctx, ac, *ac.DoctorID)
		if err != nil {
			return err
		}
		d.Profile = p
		return nil
	})
	list(gctx, g, &d.TodayAppointments, s.readers.Appointments, ac, s.todays())
	list(gctx, g, &d.UpcomingAppointments, s.readers.Appointments, ac, s.upcoming())
	list(gctx, g, &d.Patients, s.readers.Patients, ac, repository.ListOptions{})
	list(gctx, g, &d.PendingLabTests, s.readers.LabTests, ac, recent(repository.Eq("status", model.LabTestOrdered)))
	list(gctx, g, &d.MedicalRecords, s.readers.MedicalRecords, ac, recent())
	list(gctx, g, &d.VideoCalls, s.readers.VideoCalls, ac, recent())
	list(gctx, g, &d.Tasks, s.readers.Tasks, ac, recent(repository.Eq("status", model.TaskPending)))
	list(gctx, g, &d.Notifications, s.readers.Notifications, ac, recent(repository.Eq("read", false)))

	if err := g.Wait(); err != nil {
		s.logger.Error(err, "failed to build doctor dashboard", "user_id", ac.UserID.String())
		return nil, err
	}
	return d, nil
}

func (s *Service) Staff(ctx context.Context, ac *access.Context) (*StaffDashboard, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	defer s.observe(ac.Role, time.Now())

	d := &StaffDashboard{}
	pending := repository.Eq("status", model.AppointmentPending)
	g, gctx := errgroup.WithContext(ctx)

	count(gctx, g, &d.Stats.Patients, s.readers.Patients, ac)
	count(gctx, g, &d.Stats.Doctors, s.readers.Doctors, ac)
	count(gctx, g, &d.Stats.AppointmentsToday, s.readers.Appointments, ac, repository.Eq("appointment_date", s.today()))
	count(gctx, g, &d.Stats.PendingPayments, s.readers.Payments, ac, repository.Eq("status", model.PaymentPending))

	list(gctx, g, &d.TodayAppointments, s.readers.Appointments, ac, s.todays())
	list(gctx, g, &d.PendingAppointments, s.readers.Appointments, ac, recent(pending))
	list(gctx, g, &d.PendingLabTests, s.readers.LabTests, ac, recent(repository.Eq("status", model.LabTestOrdered)))
	list(gctx, g, &d.PendingPayments, s.readers.Payments, ac, recent(repository.Eq("status", model.PaymentPending)))
	list(gctx, g, &d.Tasks, s.readers.Tasks, ac, recent(repository.Eq("status", model.TaskPending)))
	list(gctx, g, &d.Equipment, s.readers.Equipment, ac, repository.ListOptions{})
	list(gctx, g, &d.Doctors, s.readers.Doctors, ac, repository.ListOptions{})
	list(gctx, g, &d.Notifications, s.readers.Notifications, ac, recent(repository.Eq("user_id", ac.UserID), repository.Eq("read", false)))

	if err := g.Wait(); err != nil {
		s.logger.Error(err, "failed to build staff dashboard", "user_id", ac.UserID.String())
		return nil, err
	}
	return d, nil
}
