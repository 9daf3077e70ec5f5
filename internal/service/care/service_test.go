package care

import (
	"context"
	"testing"
	"time"

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

func TestRecordMetric(t *testing.T) {
	f := memory.NewFixture()
	svc := NewService(f.Store.Tables(), f.Store, validator.New(), logger.Nop())
	ctx := context.Background()

	patient := f.Patient("ana")
	other := f.Patient("ben")
	doctor := f.Doctor("cy")
	staff := f.Staff("eve")
	f.Appointment(patient, doctor, model.AppointmentConfirmed, model.ConsultationInPerson)

	reading := func(patientID *uuid.UUID) model.RecordHealthMetricRequest {
		return model.RecordHealthMetricRequest{PatientID: patientID, MetricType: "heart_rate", Value: 72}
	}

	tests := []struct {
		name    string
		ac      *access.Context
		req     model.RecordHealthMetricRequest
		want    uuid.UUID
		wantErr error
	}{
		{"patient self ignores patient_id", patient, reading(other.PatientID), *patient.PatientID, nil},
		{"doctor for linked patient", doctor, reading(patient.PatientID), *patient.PatientID, nil},
		{"doctor for unlinked patient", doctor, reading(other.PatientID), uuid.Nil, apperrors.AccessDeniedErr},
		{"doctor without patient_id", doctor, reading(nil), uuid.Nil, apperrors.ValidationErr},
		{"staff for anyone", staff, reading(other.PatientID), *other.PatientID, nil},
		{"staff unknown patient", staff, reading(&uuid.UUID{1}), uuid.Nil, apperrors.NotFoundErr},
		{"bad metric type", staff, model.RecordHealthMetricRequest{PatientID: other.PatientID, MetricType: "mood"}, uuid.Nil, apperrors.ValidationErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := svc.RecordMetric(ctx, tt.ac, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.PatientID)
			assert.WithinDuration(t, time.Now(), m.RecordedAt, time.Minute)
		})
	}
}
