package memory

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func errUnknownColumn(kind model.Kind, col string) error {
	return fmt.Errorf("%s has no column %q", kind, col)
}

type table[T any] struct {
	s    *Store
	kind model.Kind
}

func newTable[T any](s *Store, kind model.Kind) repository.Table[T] {
	return &table[T]{s: s, kind: kind}
}

func (t *table[T]) Kind() model.Kind {
	return t.kind
}

// scan returns every row matching pred in natural order. Caller holds a lock.
func (t *table[T]) scan(pred func(reflect.Value) bool, order string) []reflect.Value {
	var rows []reflect.Value
	for _, row := range t.s.rows[t.kind] {
		v := reflect.ValueOf(row)
		if pred(v) {
			rows = append(rows, v)
		}
	}
	sortRows(rows, parseOrder(order))
	return rows
}

func (t *table[T]) out(v reflect.Value) *T {
	row := v.Interface().(T)
	return &row
}

func (t *table[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("get", t.kind); err != nil {
		return nil, err
	}
	row, ok := t.s.rows[t.kind][id]
	if !ok {
		return nil, apperrors.NotFound(t.kind.Resource(), nil)
	}
	return t.out(reflect.ValueOf(row)), nil
}

func (t *table[T]) FindOne(ctx context.Context, filters ...repository.Filter) (*T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("get", t.kind); err != nil {
		return nil, err
	}
	rows := t.scan(func(v reflect.Value) bool { return filtersMatch(filters, v) }, t.kind.OrderBy())
	if len(rows) == 0 {
		return nil, apperrors.NotFound(t.kind.Resource(), nil)
	}
	return t.out(rows[0]), nil
}

func (t *table[T]) List(ctx context.Context, scope access.Scope, opts repository.ListOptions) ([]*T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("list", t.kind); err != nil {
		return nil, err
	}
	order := t.kind.OrderBy()
	if opts.Order != nil && len(opts.Order.Columns) > 0 {
		order = ""
		for i, col := range opts.Order.Columns {
			if i > 0 {
				order += ", "
			}
			order += col
			if opts.Order.Direction == repository.Desc {
				order += " DESC"
			}
		}
	}

	rows := t.scan(func(v reflect.Value) bool {
		return t.s.matches(scope, v) && filtersMatch(opts.Filters, v)
	}, order)
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	out := make([]*T, 0, len(rows))
	for _, v := range rows {
		out = append(out, t.out(v))
	}
	return out, nil
}

func (t *table[T]) Count(ctx context.Context, scope access.Scope, filters ...repository.Filter) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("count", t.kind); err != nil {
		return 0, err
	}
	count := 0
	for _, row := range t.s.rows[t.kind] {
		v := reflect.ValueOf(row)
		if t.s.matches(scope, v) && filtersMatch(filters, v) {
			count++
		}
	}
	return count, nil
}

func (t *table[T]) Visible(ctx context.Context, scope access.Scope, id uuid.UUID) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("visible", t.kind); err != nil {
		return false, err
	}
	row, ok := t.s.rows[t.kind][id]
	if !ok {
		return false, nil
	}
	return t.s.matches(scope, reflect.ValueOf(row)), nil
}

func (t *table[T]) Distinct(ctx context.Context, col string, filters ...repository.Filter) ([]uuid.UUID, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if err := t.s.fail("distinct", t.kind); err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	ids := []uuid.UUID{}
	for _, row := range t.s.rows[t.kind] {
		v := reflect.ValueOf(row)
		if !filtersMatch(filters, v) {
			continue
		}
		got, ok := column(v, col)
		id, isID := got.(uuid.UUID)
		if !ok || !isID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Outbox returns the store's view of pending domain events.
func (s *Store) Outbox() repository.OutboxRepository {
	return &outbox{s: s}
}

type outbox struct {
	s *Store
}

func (o *outbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	t := &table[model.OutboxEvent]{s: o.s, kind: model.KindOutboxEvent}
	return t.List(ctx, access.Unscoped, repository.ListOptions{
		Filters: []repository.Filter{repository.Eq("status", model.OutboxStatusPending)},
		Limit:   limit,
	})
}

func (o *outbox) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	set := map[string]interface{}{"status": status, "error_message": errMsg}
	row, ok := o.s.rows[model.KindOutboxEvent][id]
	if !ok {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	event := row.(model.OutboxEvent)
	switch status {
	case model.OutboxStatusFailed:
		set["retry_count"] = event.RetryCount + 1
	case model.OutboxStatusProcessed:
		set["processed_at"] = o.s.now()
	}
	_, err := o.s.update(repository.Update{Kind: model.KindOutboxEvent, ID: id, Set: set})
	return err
}

func (o *outbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	var deleted int64
	for id, row := range o.s.rows[model.KindOutboxEvent] {
		event := row.(model.OutboxEvent)
		if event.Status == model.OutboxStatusProcessed && event.ProcessedAt != nil && event.ProcessedAt.Before(before) {
			delete(o.s.rows[model.KindOutboxEvent], id)
			deleted++
		}
	}
	return deleted, nil
}
