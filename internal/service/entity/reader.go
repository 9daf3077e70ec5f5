package entity

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// Reader is the role-filtered read surface of one entity kind.
type Reader[T any] struct {
	table  repository.Table[T]
	policy access.Policy
	logger *logger.Logger
}

func NewReader[T any](table repository.Table[T], policy access.Policy, logger *logger.Logger) *Reader[T] {
	return &Reader[T]{
		table:  table,
		policy: policy,
		logger: logger,
	}
}

func (r *Reader[T]) Kind() model.Kind {
	return r.table.Kind()
}

// Scope resolves the caller's visibility on this kind.
func (r *Reader[T]) Scope(ac *access.Context) (access.Scope, error) {
	scope, err := r.policy.Scope(ac, r.table.Kind())
	if err != nil {
		r.logger.Warn("access denied to entity list",
			"kind", r.table.Kind().String(),
			"user_id", userID(ac),
			"role", role(ac))
		return access.Scope{}, err
	}
	return scope, nil
}

// List returns every row the caller may see. A caller whose role needs a
// profile it does not have gets an empty list.
func (r *Reader[T]) List(ctx context.Context, ac *access.Context, opts repository.ListOptions) ([]*T, error) {
	scope, err := r.Scope(ac)
	if err != nil {
		return nil, err
	}
	return r.table.List(ctx, scope, opts)
}

func (r *Reader[T]) Count(ctx context.Context, ac *access.Context, filters ...repository.Filter) (int, error) {
	scope, err := r.Scope(ac)
	if err != nil {
		return 0, err
	}
	return r.table.Count(ctx, scope, filters...)
}

// Get loads one row and re-checks it against the caller's scope. A row that
// exists but is out of scope yields AccessDenied, never the row.
func (r *Reader[T]) Get(ctx context.Context, ac *access.Context, id uuid.UUID) (*T, error) {
	scope, err := r.policy.Scope(ac, r.table.Kind())
	if err != nil {
		r.logger.Ctx(ctx).Warn("access denied to entity",
			"kind", r.table.Kind().String(),
			"entity_id", id.String(),
			"user_id", userID(ac),
			"role", role(ac))
		return nil, err
	}

	row, err := r.table.Get(ctx, id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			r.logger.Ctx(ctx).Debug("entity not found",
				"kind", r.table.Kind().String(),
				"entity_id", id.String(),
				"user_id", userID(ac))
		}
		return nil, err
	}

	if scope.Unrestricted() {
		return row, nil
	}

	visible, err := r.table.Visible(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !visible {
		r.logger.Ctx(ctx).Warn("access denied to entity",
			"kind", r.table.Kind().String(),
			"entity_id", id.String(),
			"user_id", userID(ac),
			"role", role(ac),
			"rule", scope.Rule.String())
		return nil, apperrors.AccessDenied("")
	}
	return row, nil
}

func userID(ac *access.Context) string {
	if ac == nil {
		return ""
	}
	return ac.UserID.String()
}

func role(ac *access.Context) string {
	if ac == nil {
		return ""
	}
	return string(ac.Role)
}
