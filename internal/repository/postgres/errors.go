package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const uniqueViolation = "23505"

// wrapErr maps driver errors onto the application taxonomy.
func wrapErr(kind model.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(kind.Resource(), err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.Conflict(kind.Resource())
	}
	return apperrors.Upstream(op+" "+kind.Resource(), err)
}
