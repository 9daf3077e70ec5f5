package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func patientContext() *Context {
	id := uuid.New()
	return &Context{UserID: uuid.New(), Role: model.RolePatient, PatientID: &id}
}

func TestPolicyScope_NilContextDenied(t *testing.T) {
	_, err := Default.Scope(nil, model.KindAppointment)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
}

func TestPolicyScope_UnknownRoleDenied(t *testing.T) {
	ac := &Context{UserID: uuid.New(), Role: model.Role("nurse")}
	_, err := Default.Scope(ac, model.KindAppointment)
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
}

func TestPolicyScope_OwnBindsProfileID(t *testing.T) {
	ac := patientContext()
	scope, err := Default.Scope(ac, model.KindAppointment)
	require.NoError(t, err)
	assert.Equal(t, RuleOwn, scope.Rule.Type)
	assert.Equal(t, "patient_id", scope.Rule.Column)
	assert.Equal(t, *ac.PatientID, scope.Value)
	assert.False(t, scope.Empty)
}

func TestPolicyScope_MissingProfileIsEmpty(t *testing.T) {
	ac := &Context{UserID: uuid.New(), Role: model.RoleDoctor}
	for _, kind := range []model.Kind{model.KindAppointment, model.KindPayment, model.KindPatient} {
		scope, err := Default.Scope(ac, kind)
		require.NoError(t, err, kind)
		assert.True(t, scope.Empty, kind)
	}
}

func TestPolicyScope_SelfUsesUserID(t *testing.T) {
	ac := patientContext()
	scope, err := Default.Scope(ac, model.KindNotification)
	require.NoError(t, err)
	assert.Equal(t, ac.UserID, scope.Value)
	assert.Equal(t, "user_id", scope.Rule.Column)
}

func TestPolicyScope_PaymentJoinsThroughAppointment(t *testing.T) {
	doctorID := uuid.New()
	ac := &Context{UserID: uuid.New(), Role: model.RoleDoctor, DoctorID: &doctorID}
	scope, err := Default.Scope(ac, model.KindPayment)
	require.NoError(t, err)
	assert.Equal(t, RuleVia, scope.Rule.Type)
	assert.Equal(t, model.KindAppointment, scope.Rule.Parent)
	assert.Equal(t, "doctor_id", scope.Rule.ParentColumn)
	assert.Equal(t, doctorID, scope.Value)
}

func TestPolicyScope_PrivilegedRolesUnrestricted(t *testing.T) {
	for _, role := range []model.Role{model.RoleStaff, model.RoleAdmin} {
		ac := &Context{UserID: uuid.New(), Role: role}
		for kind := range Default {
			scope, err := Default.Scope(ac, kind)
			require.NoError(t, err)
			assert.True(t, scope.Unrestricted(), "%s on %s", role, kind)
		}
	}
}

func TestPolicyScope_DeniedKinds(t *testing.T) {
	tests := []struct {
		role model.Role
		kind model.Kind
	}{
		{model.RolePatient, model.KindEquipment},
		{model.RolePatient, model.KindTask},
		{model.RolePatient, model.KindStaff},
		{model.RoleDoctor, model.KindEquipment},
		{model.RoleDoctor, model.KindStaff},
		{model.RolePatient, model.KindOutboxEvent},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.kind), func(t *testing.T) {
			_, err := Default.Scope(&Context{UserID: uuid.New(), Role: tt.role}, tt.kind)
			assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
		})
	}
}

func TestRequire(t *testing.T) {
	ac := patientContext()
	assert.NoError(t, Require(ac, model.RolePatient, model.RoleStaff))
	assert.ErrorIs(t, Require(ac, model.RoleDoctor), apperrors.AccessDeniedErr)
	assert.ErrorIs(t, Require(nil, model.RolePatient), apperrors.AccessDeniedErr)
}

func TestMatches(t *testing.T) {
	ac := patientContext()
	assert.True(t, Matches(ac, SubjectPatient, *ac.PatientID))
	assert.False(t, Matches(ac, SubjectDoctor, *ac.PatientID))
	assert.True(t, Matches(ac, SubjectUser, ac.UserID))
}
