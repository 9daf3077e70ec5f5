// Package profile edits the role-specific profile rows attached to users.
package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(tables *repository.Tables, tx repository.Transactor, validator validator.Validator, logger *logger.Logger) *Service {
	return &Service{
		tables:    tables,
		tx:        tx,
		validator: validator,
		logger:    logger,
	}
}

// fields collects the columns an update request actually sets.
type fields map[string]interface{}

// UpdatePatient is open to the patient themself and to staff and admin.
func (s *Service) UpdatePatient(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdatePatientRequest) (*model.PatientProfile, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if ac.Is(model.RolePatient) && !access.Matches(ac, access.SubjectPatient, id) {
		return nil, apperrors.AccessDenied("patients may only update their own profile")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	before, err := s.tables.Patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := fields{}
	after := *before
	if req.DateOfBirth != nil {
		after.DateOfBirth = req.DateOfBirth
		set["date_of_birth"] = *req.DateOfBirth
	}
	if req.Gender != nil {
		after.Gender = req.Gender
		set["gender"] = *req.Gender
	}
	if req.Address != nil {
		after.Address = req.Address
		set["address"] = *req.Address
	}
	if req.BloodType != nil {
		after.BloodType = req.BloodType
		set["blood_type"] = *req.BloodType
	}
	if req.Allergies != nil {
		after.Allergies = req.Allergies
		set["allergies"] = *req.Allergies
	}
	if req.MedicalHistory != nil {
		after.MedicalHistory = req.MedicalHistory
		set["medical_history"] = *req.MedicalHistory
	}

	if err := s.apply(ctx, ac, model.KindPatient, model.EventPatientUpdated, id, set, before, &after); err != nil {
		return nil, err
	}
	return s.tables.Patients.Get(ctx, id)
}

// UpdateDoctor gives staff and admin every field. A doctor editing their own
// profile may only change availability and bio.
func (s *Service) UpdateDoctor(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdateDoctorRequest) (*model.DoctorProfile, error) {
	if err := access.Require(ac, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if ac.Is(model.RoleDoctor) {
		if !access.Matches(ac, access.SubjectDoctor, id) {
			return nil, apperrors.AccessDenied("doctors may only update their own profile")
		}
		if req.Specialty != nil || req.LicenseNumber != nil || req.YearsOfExperience != nil ||
			req.ConsultationFee != nil || req.Room != nil || req.SupportsVideo != nil {
			return nil, apperrors.AccessDenied("doctors may only update availability and bio")
		}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	before, err := s.tables.Doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := fields{}
	after := *before
	if req.Specialty != nil {
		after.Specialty = *req.Specialty
		set["specialty"] = *req.Specialty
	}
	if req.LicenseNumber != nil {
		after.LicenseNumber = *req.LicenseNumber
		set["license_number"] = *req.LicenseNumber
	}
	if req.YearsOfExperience != nil {
		after.YearsOfExperience = req.YearsOfExperience
		set["years_of_experience"] = *req.YearsOfExperience
	}
	if req.ConsultationFee != nil {
		after.ConsultationFee = *req.ConsultationFee
		set["consultation_fee"] = *req.ConsultationFee
	}
	if req.Room != nil {
		after.Room = req.Room
		set["room"] = *req.Room
	}
	if req.Bio != nil {
		after.Bio = req.Bio
		set["bio"] = *req.Bio
	}
	if req.Availability != nil {
		after.Availability = *req.Availability
		set["availability"] = *req.Availability
	}
	if req.SupportsVideo != nil {
		after.SupportsVideo = *req.SupportsVideo
		set["supports_video"] = *req.SupportsVideo
	}

	if err := s.apply(ctx, ac, model.KindDoctor, model.EventDoctorUpdated, id, set, before, &after); err != nil {
		return nil, err
	}
	return s.tables.Doctors.Get(ctx, id)
}

// UpdateStaff is admin only.
func (s *Service) UpdateStaff(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdateStaffRequest) (*model.StaffProfile, error) {
	if err := access.Require(ac, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	before, err := s.tables.Staff.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	set := fields{}
	after := *before
	if req.Position != nil {
		after.Position = *req.Position
		set["position"] = *req.Position
	}

	if err := s.apply(ctx, ac, model.KindStaff, model.EventStaffUpdated, id, set, before, &after); err != nil {
		return nil, err
	}
	return s.tables.Staff.Get(ctx, id)
}

func (s *Service) apply(ctx context.Context, ac *access.Context, kind model.Kind, eventType string, id uuid.UUID, set fields, before, after interface{}) error {
	if len(set) == 0 {
		return apperrors.BadRequest("no fields to update", nil)
	}

	changes := event.Changes(before, after)
	evt, err := event.New(eventType, id, map[string]interface{}{
		"actor_id": ac.UserID,
		"changes":  changes,
	})
	if err != nil {
		return err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{Kind: kind, ID: id, Set: set}),
		repository.Emit(evt),
	); err != nil {
		return fmt.Errorf("failed to update %s: %w", kind.Resource(), err)
	}

	s.logger.Info("profile updated",
		"kind", kind.String(),
		"profile_id", id.String(),
		"actor_id", ac.UserID.String(),
		"fields", len(changes))
	return nil
}
