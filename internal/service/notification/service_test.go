package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func newService(f *memory.Fixture) Service {
	return NewService(f.Store.Tables(), f.Store, validator.New(), logger.Nop())
}

func request(userID uuid.UUID) model.NotifyRequest {
	return model.NotifyRequest{
		UserID:  userID,
		Title:   "Reminder",
		Message: "See you tomorrow",
		Type:    "reminder",
	}
}

func TestNotify_TargetRules(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()

	patient := f.Patient("ana")
	other := f.Patient("ben")
	doctor := f.Doctor("cy")
	staff := f.Staff("dee")

	tests := []struct {
		name    string
		ac      *access.Context
		target  uuid.UUID
		wantErr error
	}{
		{"self", patient, patient.UserID, nil},
		{"patient to other", patient, other.UserID, apperrors.AccessDeniedErr},
		{"doctor to patient", doctor, patient.UserID, apperrors.AccessDeniedErr},
		{"staff to anyone", staff, other.UserID, nil},
		{"unknown target", staff, uuid.New(), apperrors.NotFoundErr},
		{"no context", nil, patient.UserID, apperrors.AccessDeniedErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := svc.Notify(ctx, tt.ac, request(tt.target))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, n.UserID)
			assert.Equal(t, model.PriorityNormal, n.Priority)
			assert.False(t, n.Read)
		})
	}
}

func TestNotify_Validation(t *testing.T) {
	f := memory.NewFixture()
	patient := f.Patient("ana")
	req := request(patient.UserID)
	req.Title = ""

	_, err := newService(f).Notify(context.Background(), patient, req)
	assert.ErrorIs(t, err, apperrors.ValidationErr)
}

func TestMarkRead_OwnerOnly(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	patient := f.Patient("ana")
	staff := f.Staff("dee")

	n, err := svc.Dispatch(ctx, request(patient.UserID))
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, staff, n.ID)
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	read, err := svc.MarkRead(ctx, patient, n.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	unread, err := svc.List(ctx, patient, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := svc.List(ctx, patient, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestList_OnlyOwn(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	ctx := context.Background()
	patient := f.Patient("ana")
	staff := f.Staff("dee")

	_, err := svc.Dispatch(ctx, request(patient.UserID))
	require.NoError(t, err)

	rows, err := svc.List(ctx, staff, false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNotifyPatient_FailureIsSwallowed(t *testing.T) {
	f := memory.NewFixture()
	svc := newService(f)
	patient := f.Patient("ana")
	f.Store.FailOn(func(op string, kind model.Kind) error {
		if op == "insert" && kind == model.KindNotification {
			return errors.New("disk full")
		}
		return nil
	})

	assert.NotPanics(t, func() {
		svc.NotifyPatient(context.Background(), *patient.PatientID, request(uuid.Nil))
	})

	f.Store.FailOn(nil)
	svc.NotifyPatient(context.Background(), *patient.PatientID, request(uuid.Nil))
	rows, err := svc.List(context.Background(), patient, false)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
