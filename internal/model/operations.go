package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

type Task struct {
	Base
	Versioned
	AssignedTo  uuid.UUID  `json:"assigned_to" db:"assigned_to"`
	CreatedBy   uuid.UUID  `json:"created_by" db:"created_by"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Priority    string     `json:"priority" db:"priority"`
	Status      TaskStatus `json:"status" db:"status"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	EquipmentID *uuid.UUID `json:"equipment_id,omitempty" db:"equipment_id"`
}

type CreateTaskRequest struct {
	AssignedTo  uuid.UUID  `json:"assigned_to" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
	PatientID   *uuid.UUID `json:"patient_id"`
	EquipmentID *uuid.UUID `json:"equipment_id"`
}

type UpdateTaskStatusRequest struct {
	Status  TaskStatus `json:"status" validate:"required,oneof=pending completed"`
	Version int        `json:"version"`
}

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentInUse       EquipmentStatus = "in-use"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentOutOfOrder  EquipmentStatus = "out-of-order"
)

type Equipment struct {
	Base
	Versioned
	Name                string          `json:"name" db:"name"`
	Type                string          `json:"type" db:"type"`
	Status              EquipmentStatus `json:"status" db:"status"`
	LastMaintenanceDate *time.Time      `json:"last_maintenance_date,omitempty" db:"last_maintenance_date"`
	NextMaintenanceDate *time.Time      `json:"next_maintenance_date,omitempty" db:"next_maintenance_date"`
}

type CreateEquipmentRequest struct {
	Name                string     `json:"name" validate:"required,max=200"`
	Type                string     `json:"type" validate:"required,max=100"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
}

type UpdateEquipmentStatusRequest struct {
	Status  EquipmentStatus `json:"status" validate:"required,oneof=available in-use maintenance out-of-order"`
	Version int             `json:"version"`
}
