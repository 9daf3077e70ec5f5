// Package care records patient vital signs.
package care

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/clinical"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Service struct {
	tables    *repository.Tables
	tx        repository.Transactor
	validator validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(tables *repository.Tables, tx repository.Transactor, validator validator.Validator, logger *logger.Logger) *Service {
	return &Service{
		tables:    tables,
		tx:        tx,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordMetric stores a reading. Patients record their own, doctors record
// for linked patients, staff for anyone.
func (s *Service) RecordMetric(ctx context.Context, ac *access.Context, req model.RecordHealthMetricRequest) (*model.HealthMetric, error) {
	if err := access.Require(ac, model.RolePatient, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patientID, err := s.subject(ctx, ac, req.PatientID)
	if err != nil {
		return nil, err
	}

	recordedAt := s.now()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	if recordedAt.After(s.now().Add(time.Minute)) {
		return nil, apperrors.BadRequest("recorded_at cannot be in the future", nil)
	}

	metric := &model.HealthMetric{
		PatientID:  patientID,
		MetricType: req.MetricType,
		Value:      req.Value,
		Unit:       req.Unit,
		RecordedAt: recordedAt,
		Notes:      req.Notes,
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindHealthMetric, metric)); err != nil {
		return nil, fmt.Errorf("failed to record health metric: %w", err)
	}

	s.logger.Debug("health metric recorded",
		"metric_id", metric.ID.String(),
		"patient_id", patientID.String(),
		"type", metric.MetricType)
	return metric, nil
}

func (s *Service) subject(ctx context.Context, ac *access.Context, requested *uuid.UUID) (uuid.UUID, error) {
	switch ac.Role {
	case model.RolePatient:
		if ac.PatientID == nil {
			return uuid.Nil, apperrors.AccessDenied("patient profile required")
		}
		return *ac.PatientID, nil
	case model.RoleDoctor:
		if ac.DoctorID == nil {
			return uuid.Nil, apperrors.AccessDenied("doctor profile required")
		}
		if requested == nil {
			return uuid.Nil, apperrors.BadRequest("patient_id is required", nil)
		}
		if err := clinical.RequireLinked(ctx, s.tables.Appointments, *ac.DoctorID, *requested); err != nil {
			return uuid.Nil, err
		}
		return *requested, nil
	default:
		if requested == nil {
			return uuid.Nil, apperrors.BadRequest("patient_id is required", nil)
		}
		if _, err := s.tables.Patients.Get(ctx, *requested); err != nil {
			return uuid.Nil, err
		}
		return *requested, nil
	}
}
