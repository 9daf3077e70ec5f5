// Package memory is an in-process store with the same semantics as the
// postgres repositories. It backs unit tests and local demos.
package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// unique mirrors the UNIQUE constraints of the schema.
var unique = map[model.Kind][]string{
	model.KindUser:      {"email"},
	model.KindPatient:   {"user_id"},
	model.KindDoctor:    {"user_id"},
	model.KindStaff:     {"user_id"},
	model.KindVideoCall: {"appointment_id"},
}

// FailFunc lets tests inject errors. op is one of get, list, count,
// visible, distinct, insert, update.
type FailFunc func(op string, kind model.Kind) error

type Store struct {
	mu     sync.RWMutex
	rows   map[model.Kind]map[uuid.UUID]interface{}
	failOn FailFunc
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		rows: make(map[model.Kind]map[uuid.UUID]interface{}),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// FailOn installs fn; pass nil to clear.
func (s *Store) FailOn(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *Store) fail(op string, kind model.Kind) error {
	if s.failOn == nil {
		return nil
	}
	return s.failOn(op, kind)
}

// Seed inserts rows outside any business operation. It panics on error and
// is meant for test fixtures.
func (s *Store) Seed(kind model.Kind, rows ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if err := s.insert(kind, row); err != nil {
			panic(err)
		}
	}
}

// Tables returns typed views over the store.
func (s *Store) Tables() *repository.Tables {
	return &repository.Tables{
		Users:           newTable[model.User](s, model.KindUser),
		Patients:        newTable[model.PatientProfile](s, model.KindPatient),
		Doctors:         newTable[model.DoctorProfile](s, model.KindDoctor),
		Staff:           newTable[model.StaffProfile](s, model.KindStaff),
		Appointments:    newTable[model.Appointment](s, model.KindAppointment),
		MedicalRecords:  newTable[model.MedicalRecord](s, model.KindMedicalRecord),
		Prescriptions:   newTable[model.Prescription](s, model.KindPrescription),
		LabTests:        newTable[model.LabTest](s, model.KindLabTest),
		Payments:        newTable[model.Payment](s, model.KindPayment),
		Services:        newTable[model.Service](s, model.KindService),
		ServicePackages: newTable[model.ServicePackage](s, model.KindServicePackage),
		HealthMetrics:   newTable[model.HealthMetric](s, model.KindHealthMetric),
		Notifications:   newTable[model.Notification](s, model.KindNotification),
		Tasks:           newTable[model.Task](s, model.KindTask),
		Equipment:       newTable[model.Equipment](s, model.KindEquipment),
		VideoCalls:      newTable[model.VideoCall](s, model.KindVideoCall),
	}
}

// insert stores a copy of *row. Caller holds the write lock.
func (s *Store) insert(kind model.Kind, row interface{}) error {
	if err := s.fail("insert", kind); err != nil {
		return err
	}
	model.Stamp(row, s.now())
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	id, _ := column(v, "id")
	key, _ := id.(uuid.UUID)

	table := s.rows[kind]
	if table == nil {
		table = make(map[uuid.UUID]interface{})
		s.rows[kind] = table
	}
	if _, exists := table[key]; exists {
		return apperrors.Conflict(kind.Resource())
	}
	for _, col := range unique[kind] {
		want, ok := column(v, col)
		if !ok {
			continue
		}
		for _, other := range table {
			if got, ok := column(reflect.ValueOf(other), col); ok && equal(got, want) {
				return apperrors.Conflict(kind.Resource())
			}
		}
	}
	table[key] = v.Interface()
	return nil
}

// update applies u. Caller holds the write lock.
func (s *Store) update(u repository.Update) (bool, error) {
	if err := s.fail("update", u.Kind); err != nil {
		return false, err
	}
	current, ok := s.rows[u.Kind][u.ID]
	if !ok {
		return false, apperrors.NotFound(u.Kind.Resource(), nil)
	}

	row := reflect.New(reflect.TypeOf(current)).Elem()
	row.Set(reflect.ValueOf(current))

	if u.Version > 0 {
		if version, _ := column(row, "version"); version != int64(u.Version) {
			return false, apperrors.Conflict(u.Kind.Resource())
		}
	}
	if u.FromStatus != "" {
		if status, _ := column(row, "status"); status != u.FromStatus {
			return false, nil
		}
	}

	for col, val := range u.Set {
		field := model.FieldByColumn(row, col)
		if !field.IsValid() {
			return false, apperrors.Internal(errUnknownColumn(u.Kind, col))
		}
		if err := assign(field, val); err != nil {
			return false, apperrors.Internal(err)
		}
	}
	if f := model.FieldByColumn(row, "updated_at"); f.IsValid() {
		f.Set(reflect.ValueOf(s.now()))
	}
	if u.Kind.Versioned() {
		if f := model.FieldByColumn(row, "version"); f.IsValid() {
			f.SetInt(f.Int() + 1)
		}
	}

	s.rows[u.Kind][u.ID] = row.Interface()
	return true, nil
}

// matches evaluates a scope against a stored row. Caller holds a lock.
func (s *Store) matches(scope access.Scope, row reflect.Value) bool {
	if scope.Empty {
		return false
	}
	rule := scope.Rule
	switch rule.Type {
	case access.RuleAll:
		return true
	case access.RuleOwn:
		got, ok := column(row, rule.Column)
		return ok && equal(got, scope.Value)
	case access.RuleWhere:
		got, _ := column(row, rule.Column)
		return got == true
	case access.RuleVia:
		got, ok := column(row, rule.Column)
		if !ok {
			return false
		}
		for _, parent := range s.rows[rule.Parent] {
			pv := reflect.ValueOf(parent)
			owner, ok := column(pv, rule.ParentColumn)
			if !ok || !equal(owner, scope.Value) {
				continue
			}
			if key, ok := column(pv, rule.ParentKey); ok && equal(key, got) {
				return true
			}
		}
		return false
	}
	return false
}

func filtersMatch(filters []repository.Filter, row reflect.Value) bool {
	for _, f := range filters {
		got, ok := column(row, f.Column)
		switch f.Op {
		case repository.OpIn:
			ids, _ := f.Value.([]uuid.UUID)
			found := false
			for _, id := range ids {
				if ok && equal(got, id) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			want, wantOK := normalize(reflect.ValueOf(f.Value))
			if !ok || !wantOK {
				return false
			}
			c := compare(got, want)
			switch f.Op {
			case repository.OpGte:
				if c < 0 {
					return false
				}
			case repository.OpLte:
				if c > 0 {
					return false
				}
			default:
				if !equal(got, want) {
					return false
				}
			}
		}
	}
	return true
}

func sortRows(rows []reflect.Value, terms []orderTerm) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, term := range terms {
			a, aok := column(rows[i], term.column)
			b, bok := column(rows[j], term.column)
			if !aok || !bok {
				if aok == bok {
					continue
				}
				// NULLs sort last ascending, first descending, as in postgres.
				return aok != term.desc
			}
			c := compare(a, b)
			if c == 0 {
				continue
			}
			if term.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// WithinTx serializes transactions and restores a snapshot on error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[model.Kind]map[uuid.UUID]interface{}, len(s.rows))
	for kind, table := range s.rows {
		cp := make(map[uuid.UUID]interface{}, len(table))
		for id, row := range table {
			cp[id] = row
		}
		snapshot[kind] = cp
	}

	if err := fn(ctx, &txWriter{s: s}); err != nil {
		s.rows = snapshot
		return err
	}
	return nil
}

type txWriter struct {
	s *Store
}

func (w *txWriter) Insert(ctx context.Context, kind model.Kind, row interface{}) error {
	return w.s.insert(kind, row)
}

func (w *txWriter) Update(ctx context.Context, u repository.Update) (bool, error) {
	return w.s.update(u)
}
