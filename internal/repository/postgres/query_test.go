package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func TestQueryScope(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name  string
		scope access.Scope
		want  string
		args  int
	}{
		{
			name:  "all",
			scope: access.Scope{Rule: access.All()},
			want:  "",
		},
		{
			name:  "own",
			scope: access.Scope{Rule: access.Own("patient_id", access.SubjectPatient), Value: id},
			want:  " WHERE patient_id = $1",
			args:  1,
		},
		{
			name:  "via",
			scope: access.Scope{Rule: access.Via("appointment_id", model.KindAppointment, "id", "doctor_id", access.SubjectDoctor), Value: id},
			want:  " WHERE appointment_id IN (SELECT id FROM appointments WHERE doctor_id = $1)",
			args:  1,
		},
		{
			name:  "where",
			scope: access.Scope{Rule: access.Where("is_available")},
			want:  " WHERE is_available = TRUE",
		},
		{
			name:  "deny",
			scope: access.Scope{Rule: access.Deny()},
			want:  " WHERE FALSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &query{}
			q.scope(tt.scope)
			assert.Equal(t, tt.want, q.clause())
			assert.Len(t, q.args, tt.args)
		})
	}
}

func TestQueryFilters(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	q := &query{}
	q.scope(access.Scope{Rule: access.Own("doctor_id", access.SubjectDoctor), Value: a})
	q.filters([]repository.Filter{
		repository.Eq("status", model.AppointmentConfirmed),
		repository.Gte("appointment_date", "2025-03-01"),
		repository.In("patient_id", a, b),
	})

	assert.Equal(t,
		" WHERE doctor_id = $1 AND status = $2 AND appointment_date >= $3 AND patient_id = ANY($4::uuid[])",
		q.clause())
	require.Len(t, q.args, 4)
	assert.Equal(t, pq.StringArray{a.String(), b.String()}, q.args[3])
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "appointment_date DESC, appointment_time DESC", orderBy(model.KindAppointment, nil))
	assert.Equal(t, "appointment_date ASC, appointment_time ASC", orderBy(model.KindAppointment, &repository.Order{
		Columns:   []string{"appointment_date", "appointment_time"},
		Direction: repository.Asc,
	}))
}

func TestSelectList(t *testing.T) {
	assert.Equal(t,
		"id, created_at, updated_at, user_id, position",
		selectList(&model.StaffProfile{}))
}

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_clinical.sql": {Data: []byte("CREATE TABLE b (id INT);")},
		"001_core.sql":     {Data: []byte("CREATE TABLE a (id INT);")},
		"README.md":        {Data: []byte("ignored")},
		"notes.sql":        {Data: []byte("ignored")},
	}

	migrations, err := NewMigrator(nil, files).LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_core.sql", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := NewMigrator(nil, Migrations()).LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS video_calls")
}
