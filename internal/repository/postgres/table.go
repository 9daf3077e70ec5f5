package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// table is the scoped read surface for one kind, shared by every entity.
type table[T any] struct {
	db      *sqlx.DB
	kind    model.Kind
	columns string
}

func newTable[T any](db *sqlx.DB, kind model.Kind) repository.Table[T] {
	return &table[T]{
		db:      db,
		kind:    kind,
		columns: selectList(new(T)),
	}
}

func (r *table[T]) Kind() model.Kind {
	return r.kind
}

func (r *table[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.columns, r.kind.Table())

	var row T
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, wrapErr(r.kind, "get", err)
	}
	return &row, nil
}

func (r *table[T]) FindOne(ctx context.Context, filters ...repository.Filter) (*T, error) {
	q := &query{}
	q.filters(filters)
	stmt := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s LIMIT 1`,
		r.columns, r.kind.Table(), q.clause(), r.kind.OrderBy())

	var row T
	if err := r.db.GetContext(ctx, &row, stmt, q.args...); err != nil {
		return nil, wrapErr(r.kind, "find", err)
	}
	return &row, nil
}

func (r *table[T]) List(ctx context.Context, scope access.Scope, opts repository.ListOptions) ([]*T, error) {
	if scope.Empty {
		return []*T{}, nil
	}

	q := &query{}
	q.scope(scope)
	q.filters(opts.Filters)
	stmt := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s`,
		r.columns, r.kind.Table(), q.clause(), orderBy(r.kind, opts.Order))
	if opts.Limit > 0 {
		stmt += " LIMIT " + q.arg(opts.Limit)
	}

	rows := []*T{}
	if err := r.db.SelectContext(ctx, &rows, stmt, q.args...); err != nil {
		return nil, wrapErr(r.kind, "list", err)
	}
	return rows, nil
}

func (r *table[T]) Count(ctx context.Context, scope access.Scope, filters ...repository.Filter) (int, error) {
	if scope.Empty {
		return 0, nil
	}

	q := &query{}
	q.scope(scope)
	q.filters(filters)
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.kind.Table(), q.clause())

	var count int
	if err := r.db.GetContext(ctx, &count, stmt, q.args...); err != nil {
		return 0, wrapErr(r.kind, "count", err)
	}
	return count, nil
}

func (r *table[T]) Visible(ctx context.Context, scope access.Scope, id uuid.UUID) (bool, error) {
	if scope.Empty {
		return false, nil
	}

	q := &query{}
	q.where("id = " + q.arg(id))
	q.scope(scope)
	stmt := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s%s)`, r.kind.Table(), q.clause())

	var visible bool
	if err := r.db.GetContext(ctx, &visible, stmt, q.args...); err != nil {
		return false, wrapErr(r.kind, "check visibility of", err)
	}
	return visible, nil
}

func (r *table[T]) Distinct(ctx context.Context, column string, filters ...repository.Filter) ([]uuid.UUID, error) {
	q := &query{}
	q.filters(filters)
	stmt := fmt.Sprintf(`SELECT DISTINCT %s FROM %s%s`, column, r.kind.Table(), q.clause())

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, stmt, q.args...); err != nil {
		return nil, wrapErr(r.kind, "list distinct", err)
	}
	return ids, nil
}

// NewTables builds the typed tables over db.
func NewTables(db *sqlx.DB) *repository.Tables {
	return &repository.Tables{
		Users:           newTable[model.User](db, model.KindUser),
		Patients:        newTable[model.PatientProfile](db, model.KindPatient),
		Doctors:         newTable[model.DoctorProfile](db, model.KindDoctor),
		Staff:           newTable[model.StaffProfile](db, model.KindStaff),
		Appointments:    newTable[model.Appointment](db, model.KindAppointment),
		MedicalRecords:  newTable[model.MedicalRecord](db, model.KindMedicalRecord),
		Prescriptions:   newTable[model.Prescription](db, model.KindPrescription),
		LabTests:        newTable[model.LabTest](db, model.KindLabTest),
		Payments:        newTable[model.Payment](db, model.KindPayment),
		Services:        newTable[model.Service](db, model.KindService),
		ServicePackages: newTable[model.ServicePackage](db, model.KindServicePackage),
		HealthMetrics:   newTable[model.HealthMetric](db, model.KindHealthMetric),
		Notifications:   newTable[model.Notification](db, model.KindNotification),
		Tasks:           newTable[model.Task](db, model.KindTask),
		Equipment:       newTable[model.Equipment](db, model.KindEquipment),
		VideoCalls:      newTable[model.VideoCall](db, model.KindVideoCall),
	}
}
