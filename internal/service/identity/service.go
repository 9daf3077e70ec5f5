// Package identity turns an authenticated principal into the access context
// that every data operation is parameterized by.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service struct {
	tables *repository.Tables
	logger *logger.Logger
}

func NewService(tables *repository.Tables, logger *logger.Logger) *Service {
	return &Service{
		tables: tables,
		logger: logger,
	}
}

// Resolve loads the principal's user row and the profile matching its role.
// A missing profile leaves the corresponding id nil rather than failing.
func (s *Service) Resolve(ctx context.Context, principalID uuid.UUID) (*access.Context, error) {
	user, err := s.tables.Users.Get(ctx, principalID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			s.logger.Debug("principal has no user record", "principal_id", principalID.String())
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.AccessDenied("account is inactive")
	}
	if !user.Role.Valid() {
		return nil, apperrors.AccessDenied("unrecognized role")
	}

	ac := &access.Context{
		UserID: user.ID,
		Role:   user.Role,
	}

	byUser := repository.Eq("user_id", user.ID)
	switch user.Role {
	case model.RolePatient:
		profile, err := s.tables.Patients.FindOne(ctx, byUser)
		if err = s.missing(err, user); err != nil {
			return nil, err
		}
		if profile != nil {
			ac.PatientID = &profile.ID
		}
	case model.RoleDoctor:
		profile, err := s.tables.Doctors.FindOne(ctx, byUser)
		if err = s.missing(err, user); err != nil {
			return nil, err
		}
		if profile != nil {
			ac.DoctorID = &profile.ID
		}
	case model.RoleStaff, model.RoleAdmin:
		profile, err := s.tables.Staff.FindOne(ctx, byUser)
		if err = s.missing(err, user); err != nil {
			return nil, err
		}
		if profile != nil {
			ac.StaffID = &profile.ID
		}
	}

	return ac, nil
}

// missing swallows NotFound for profile lookups.
func (s *Service) missing(err error, user *model.User) error {
	if err == nil {
		return nil
	}
	if apperrors.IsCode(err, apperrors.ErrNotFound) {
		s.logger.Warn("user has no profile for role",
			"user_id", user.ID.String(),
			"role", string(user.Role))
		return nil
	}
	return fmt.Errorf("failed to load %s profile: %w", user.Role, err)
}
