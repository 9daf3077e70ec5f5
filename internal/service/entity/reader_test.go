package entity

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func newReaders(f *memory.Fixture) *Readers {
	return NewReaders(f.Store.Tables(), access.Default, logger.Nop())
}

func TestReader_Get(t *testing.T) {
	f := memory.NewFixture()
	r := newReaders(f)
	ctx := context.Background()

	patient := f.Patient("ana")
	other := f.Patient("ben")
	doctor := f.Doctor("cy")
	stranger := f.Doctor("dee")
	staff := f.Staff("eve")
	appt := f.Appointment(patient, doctor, model.AppointmentPending, model.ConsultationInPerson)

	tests := []struct {
		name    string
		ac      *access.Context
		id      uuid.UUID
		wantErr error
	}{
		{"owner patient", patient, appt.ID, nil},
		{"treating doctor", doctor, appt.ID, nil},
		{"staff", staff, appt.ID, nil},
		{"other patient", other, appt.ID, apperrors.AccessDeniedErr},
		{"unlinked doctor", stranger, appt.ID, apperrors.AccessDeniedErr},
		{"missing row", staff, uuid.New(), apperrors.NotFoundErr},
		{"nil context", nil, appt.ID, apperrors.AccessDeniedErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Appointments.Get(ctx, tt.ac, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, appt.ID, got.ID)
		})
	}
}

func TestReader_ProfileLessCallerSeesNothing(t *testing.T) {
	f := memory.NewFixture()
	r := newReaders(f)
	f.Appointment(f.Patient("ana"), f.Doctor("bo"), model.AppointmentPending, model.ConsultationInPerson)

	ac := &access.Context{UserID: uuid.New(), Role: model.RoleDoctor}
	rows, err := r.Appointments.List(context.Background(), ac, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReader_DeniedKinds(t *testing.T) {
	f := memory.NewFixture()
	r := newReaders(f)

	_, err := r.Equipment.List(context.Background(), f.Doctor("bo"), repository.ListOptions{})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)

	_, err = r.Staff.List(context.Background(), f.Patient("ana"), repository.ListOptions{})
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
}

// Every row a patient or doctor lists must carry their own id, and every row
// carrying their id must be listed.
func TestReader_ListMatchesOwnership(t *testing.T) {
	f := memory.NewFixture()
	r := newReaders(f)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	patients := []*access.Context{f.Patient("p1"), f.Patient("p2"), f.Patient("p3")}
	doctors := []*access.Context{f.Doctor("d1"), f.Doctor("d2")}
	statuses := []model.AppointmentStatus{model.AppointmentPending, model.AppointmentConfirmed, model.AppointmentCompleted}

	owned := map[uuid.UUID]int{}
	for i := 0; i < 60; i++ {
		p := patients[rng.Intn(len(patients))]
		d := doctors[rng.Intn(len(doctors))]
		f.Appointment(p, d, statuses[rng.Intn(len(statuses))], model.ConsultationInPerson)
		owned[*p.PatientID]++
		owned[*d.DoctorID]++
	}

	for _, p := range patients {
		rows, err := r.Appointments.List(ctx, p, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, rows, owned[*p.PatientID])
		for _, row := range rows {
			assert.Equal(t, *p.PatientID, row.PatientID)
		}
	}
	for _, d := range doctors {
		rows, err := r.Appointments.List(ctx, d, repository.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, rows, owned[*d.DoctorID])
		for _, row := range rows {
			assert.Equal(t, *d.DoctorID, row.DoctorID)
		}
	}

	all, err := r.Appointments.List(ctx, f.Admin("root"), repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 60)
}

func TestReader_DoctorSeesLinkedPatientsOnly(t *testing.T) {
	f := memory.NewFixture()
	r := newReaders(f)
	ctx := context.Background()

	doctor := f.Doctor("bo")
	linked := f.Patient("ana")
	unlinked := f.Patient("ben")
	f.Appointment(linked, doctor, model.AppointmentCompleted, model.ConsultationInPerson)

	rows, err := r.Patients.List(ctx, doctor, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, *linked.PatientID, rows[0].ID)

	_, err = r.Patients.Get(ctx, doctor, *unlinked.PatientID)
	assert.ErrorIs(t, err, apperrors.AccessDeniedErr)
}

func TestRegistry(t *testing.T) {
	registry := newReaders(memory.NewFixture()).Registry()
	assert.Len(t, registry, 16)
	assert.Equal(t, model.KindVideoCall, registry[model.KindVideoCall].Kind())
	_, ok := registry[model.KindOutboxEvent]
	assert.False(t, ok)
}
