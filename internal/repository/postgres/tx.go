package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) repository.Transactor {
	return &transactor{db: db}
}

// WithinTx executes a function within a transaction
func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Upstream("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Upstream("commit transaction", err)
	}
	return nil
}

type txWriter struct {
	tx *sqlx.Tx
}

func (w *txWriter) Insert(ctx context.Context, kind model.Kind, row interface{}) error {
	model.Stamp(row, time.Now().UTC())
	cols := model.Columns(row)
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:%s)`,
		kind.Table(), strings.Join(cols, ", "), strings.Join(cols, ", :"))

	if _, err := w.tx.NamedExecContext(ctx, query, row); err != nil {
		return wrapErr(kind, "create", err)
	}
	return nil
}

func (w *txWriter) Update(ctx context.Context, u repository.Update) (bool, error) {
	q := &query{}

	cols := make([]string, 0, len(u.Set))
	for col := range u.Set {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", col, q.arg(u.Set[col])))
	}
	sets = append(sets, "updated_at = "+q.arg(time.Now().UTC()))
	if u.Kind.Versioned() {
		sets = append(sets, "version = version + 1")
	}

	q.where("id = " + q.arg(u.ID))
	if u.Version > 0 {
		q.where("version = " + q.arg(u.Version))
	}
	if u.FromStatus != "" {
		q.where("status = " + q.arg(u.FromStatus))
	}

	stmt := fmt.Sprintf(`UPDATE %s SET %s%s`, u.Kind.Table(), strings.Join(sets, ", "), q.clause())
	result, err := w.tx.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return false, wrapErr(u.Kind, "update", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(u.Kind, "update", err)
	}
	if rows > 0 {
		return true, nil
	}
	return false, w.diagnose(ctx, u)
}

// diagnose explains a zero-row update: missing row, stale version, or a
// status guard that no longer holds (nil error).
func (w *txWriter) diagnose(ctx context.Context, u repository.Update) error {
	if !u.Kind.Versioned() {
		var exists bool
		stmt := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, u.Kind.Table())
		if err := w.tx.GetContext(ctx, &exists, stmt, u.ID); err != nil {
			return wrapErr(u.Kind, "update", err)
		}
		if !exists {
			return apperrors.NotFound(u.Kind.Resource(), nil)
		}
		return nil
	}

	var version int
	stmt := fmt.Sprintf(`SELECT version FROM %s WHERE id = $1`, u.Kind.Table())
	if err := w.tx.GetContext(ctx, &version, stmt, u.ID); err != nil {
		return wrapErr(u.Kind, "update", err)
	}
	if u.Version > 0 && version != u.Version {
		return apperrors.Conflict(u.Kind.Resource())
	}
	return nil
}
