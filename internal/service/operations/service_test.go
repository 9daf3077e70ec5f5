package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func TestTasks(t *testing.T) {
	f := memory.NewFixture()
	svc := NewService(f.Store.Tables(), f.Store, validator.New(), logger.Nop())
	ctx := context.Background()
	staff := f.Staff("eve")
	doctor := f.Doctor("cy")
	colleague := f.Doctor("dee")
	patient := f.Patient("ana")

	_, err := svc.CreateTask(ctx, doctor, model.CreateTaskRequest{AssignedTo: doctor.UserID, Title: "x"})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	_, err = svc.CreateTask(ctx, staff, model.CreateTaskRequest{AssignedTo: patient.UserID, Title: "x"})
	assert.ErrorIs(t, err, apperrors.ValidationErr)

	task, err := svc.CreateTask(ctx, staff, model.CreateTaskRequest{AssignedTo: doctor.UserID, Title: "Review labs", PatientID: patient.PatientID})
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, task.Status)
	assert.Equal(t, "medium", task.Priority)
	assert.Equal(t, staff.UserID, task.CreatedBy)

	_, err = svc.UpdateTaskStatus(ctx, colleague, task.ID, model.UpdateTaskStatusRequest{Status: model.TaskCompleted})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	done, err := svc.UpdateTaskStatus(ctx, doctor, task.ID, model.UpdateTaskStatusRequest{Status: model.TaskCompleted})
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, done.Status)

	_, err = svc.UpdateTaskStatus(ctx, staff, task.ID, model.UpdateTaskStatusRequest{Status: model.TaskCompleted})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestEquipment(t *testing.T) {
	f := memory.NewFixture()
	svc := NewService(f.Store.Tables(), f.Store, validator.New(), logger.Nop())
	ctx := context.Background()
	staff := f.Staff("eve")

	_, err := svc.CreateEquipment(ctx, f.Doctor("cy"), model.CreateEquipmentRequest{Name: "ECG", Type: "monitor"})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	eq, err := svc.CreateEquipment(ctx, staff, model.CreateEquipmentRequest{Name: "ECG", Type: "monitor"})
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentAvailable, eq.Status)

	eq, err = svc.UpdateEquipmentStatus(ctx, staff, eq.ID, model.UpdateEquipmentStatusRequest{Status: model.EquipmentMaintenance})
	require.NoError(t, err)
	assert.Nil(t, eq.LastMaintenanceDate)

	eq, err = svc.UpdateEquipmentStatus(ctx, staff, eq.ID, model.UpdateEquipmentStatusRequest{Status: model.EquipmentAvailable})
	require.NoError(t, err)
	assert.NotNil(t, eq.LastMaintenanceDate)
	assert.Equal(t, 3, eq.Version)

	_, err = svc.UpdateEquipmentStatus(ctx, staff, eq.ID, model.UpdateEquipmentStatusRequest{Status: model.EquipmentAvailable})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}
