package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
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

func (s *Service) CreateService(ctx context.Context, ac *access.Context, req model.CreateServiceRequest) (*model.Service, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	svc := &model.Service{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Duration:    req.Duration,
		IsAvailable: available(req.IsAvailable),
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindService, svc)); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	s.logger.Info("service created", "service_id", svc.ID.String(), "name", svc.Name)
	return svc, nil
}

// CreatePackage bundles existing services. Every referenced service must exist.
func (s *Service) CreatePackage(ctx context.Context, ac *access.Context, req model.CreateServicePackageRequest) (*model.ServicePackage, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	ids := dedupe(req.ServiceIDs)
	found, err := s.tables.Services.Count(ctx, access.Unscoped, repository.In("id", ids...))
	if err != nil {
		return nil, fmt.Errorf("failed to check package services: %w", err)
	}
	if found != len(ids) {
		return nil, apperrors.BadRequest("package references unknown services", nil)
	}

	pkg := &model.ServicePackage{
		Name:        req.Name,
		Description: req.Description,
		ServiceIDs:  model.IDList(ids),
		Price:       req.Price,
		ValidDays:   req.ValidDays,
		IsAvailable: available(req.IsAvailable),
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindServicePackage, pkg)); err != nil {
		return nil, fmt.Errorf("failed to create service package: %w", err)
	}
	s.logger.Info("service package created", "package_id", pkg.ID.String(), "services", len(ids))
	return pkg, nil
}

func available(flag *bool) bool {
	return flag == nil || *flag
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
