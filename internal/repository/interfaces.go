package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	OpIn
)

// Filter is an extra predicate on top of a scope. Column names are supplied
// by services, never by request input.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Gte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

func Lte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

func In(column string, ids ...uuid.UUID) Filter {
	return Filter{Column: column, Op: OpIn, Value: ids}
}

type Direction int

const (
	Desc Direction = iota
	Asc
)

// Order overrides a kind's natural ordering.
type Order struct {
	Columns   []string
	Direction Direction
}

type ListOptions struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// All repository interfaces in one file
type (
	// Table is the scoped read surface shared by every entity kind.
	Table[T any] interface {
		Kind() model.Kind
		// Get loads a row without any visibility predicate.
		Get(ctx context.Context, id uuid.UUID) (*T, error)
		FindOne(ctx context.Context, filters ...Filter) (*T, error)
		List(ctx context.Context, scope access.Scope, opts ListOptions) ([]*T, error)
		Count(ctx context.Context, scope access.Scope, filters ...Filter) (int, error)
		// Visible reports whether the row with id satisfies scope.
		Visible(ctx context.Context, scope access.Scope, id uuid.UUID) (bool, error)
		Distinct(ctx context.Context, column string, filters ...Filter) ([]uuid.UUID, error)
	}

	// Transactor runs fn inside one database transaction. Any error returned
	// by fn rolls back every write made through tx.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	}

	Tx interface {
		Insert(ctx context.Context, kind model.Kind, row interface{}) error
		// Update reports applied=false when the FromStatus guard did not hold.
		Update(ctx context.Context, u Update) (applied bool, err error)
	}

	OutboxRepository interface {
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Update changes columns of one row. A non-zero Version must match the
// stored version or the update fails with Conflict. A non-empty FromStatus
// restricts the update to rows still in that status.
type Update struct {
	Kind       model.Kind
	ID         uuid.UUID
	Version    int
	FromStatus string
	Set        map[string]interface{}
}

// Tables bundles the typed tables of one store.
type Tables struct {
	Users           Table[model.User]
	Patients        Table[model.PatientProfile]
	Doctors         Table[model.DoctorProfile]
	Staff           Table[model.StaffProfile]
	Appointments    Table[model.Appointment]
	MedicalRecords  Table[model.MedicalRecord]
	Prescriptions   Table[model.Prescription]
	LabTests        Table[model.LabTest]
	Payments        Table[model.Payment]
	Services        Table[model.Service]
	ServicePackages Table[model.ServicePackage]
	HealthMetrics   Table[model.HealthMetric]
	Notifications   Table[model.Notification]
	Tasks           Table[model.Task]
	Equipment       Table[model.Equipment]
	VideoCalls      Table[model.VideoCall]
}
