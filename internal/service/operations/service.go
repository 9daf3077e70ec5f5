// Package operations manages staff tasks and clinic equipment.
package operations

import (
	"context"
	"fmt"
	"time"

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

func (s *Service) CreateTask(ctx context.Context, ac *access.Context, req model.CreateTaskRequest) (*model.Task, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignee, err := s.tables.Users.Get(ctx, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if assignee.Role == model.RolePatient {
		return nil, apperrors.BadRequest("tasks cannot be assigned to patients", nil)
	}
	if req.PatientID != nil {
		if _, err := s.tables.Patients.Get(ctx, *req.PatientID); err != nil {
			return nil, err
		}
	}
	if req.EquipmentID != nil {
		if _, err := s.tables.Equipment.Get(ctx, *req.EquipmentID); err != nil {
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	task := &model.Task{
		AssignedTo:  req.AssignedTo,
		CreatedBy:   ac.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      model.TaskPending,
		DueDate:     req.DueDate,
		PatientID:   req.PatientID,
		EquipmentID: req.EquipmentID,
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindTask, task)); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// UpdateTaskStatus may be called by the assignee or by staff and admin.
func (s *Service) UpdateTaskStatus(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdateTaskStatusRequest) (*model.Task, error) {
	if err := access.Require(ac, model.RoleDoctor, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	task, err := s.tables.Tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ac.Privileged() && task.AssignedTo != ac.UserID {
		return nil, apperrors.AccessDenied("task is assigned to someone else")
	}
	if task.Status == req.Status {
		return nil, apperrors.InvalidState("task is already %s", task.Status)
	}

	version := task.Version
	if req.Version > 0 {
		version = req.Version
	}
	effects := []repository.Effect{
		repository.Change(repository.Update{
			Kind:    model.KindTask,
			ID:      task.ID,
			Version: version,
			Set:     map[string]interface{}{"status": req.Status},
		}),
	}
	if req.Status == model.TaskCompleted {
		evt, err := event.New(model.EventTaskCompleted, task.ID, event.StatusChange{
			From:    string(task.Status),
			To:      string(req.Status),
			ActorID: ac.UserID,
		})
		if err != nil {
			return nil, err
		}
		effects = append(effects, repository.Emit(evt))
	}
	if err := repository.Apply(ctx, s.tx, effects...); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return s.tables.Tasks.Get(ctx, task.ID)
}

func (s *Service) CreateEquipment(ctx context.Context, ac *access.Context, req model.CreateEquipmentRequest) (*model.Equipment, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	eq := &model.Equipment{
		Name:                req.Name,
		Type:                req.Type,
		Status:              model.EquipmentAvailable,
		NextMaintenanceDate: req.NextMaintenanceDate,
	}
	if err := repository.Apply(ctx, s.tx, repository.Insert(model.KindEquipment, eq)); err != nil {
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}
	return eq, nil
}

// UpdateEquipmentStatus records maintenance when equipment returns to service.
func (s *Service) UpdateEquipmentStatus(ctx context.Context, ac *access.Context, id uuid.UUID, req model.UpdateEquipmentStatusRequest) (*model.Equipment, error) {
	if err := access.Require(ac, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	eq, err := s.tables.Equipment.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eq.Status == req.Status {
		return nil, apperrors.InvalidState("equipment is already %s", eq.Status)
	}

	set := map[string]interface{}{"status": req.Status}
	if eq.Status == model.EquipmentMaintenance && req.Status == model.EquipmentAvailable {
		set["last_maintenance_date"] = s.now()
	}
	version := eq.Version
	if req.Version > 0 {
		version = req.Version
	}
	evt, err := event.New(model.EventEquipmentStatusChanged, eq.ID, event.StatusChange{
		From:    string(eq.Status),
		To:      string(req.Status),
		ActorID: ac.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := repository.Apply(ctx, s.tx,
		repository.Change(repository.Update{Kind: model.KindEquipment, ID: eq.ID, Version: version, Set: set}),
		repository.Emit(evt),
	); err != nil {
		return nil, fmt.Errorf("failed to update equipment status: %w", err)
	}
	return s.tables.Equipment.Get(ctx, eq.ID)
}
