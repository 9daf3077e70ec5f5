package repository

import (
	"context"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Effect is one write of a business operation. An operation's effects run
// in order inside a single transaction.
type Effect func(ctx context.Context, tx Tx) error

func Insert(kind model.Kind, row interface{}) Effect {
	return func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, kind, row)
	}
}

// Change applies u and fails with InvalidState when its status guard misses.
func Change(u Update) Effect {
	return func(ctx context.Context, tx Tx) error {
		applied, err := tx.Update(ctx, u)
		if err != nil {
			return err
		}
		if !applied {
			return apperrors.InvalidState("%s %s is no longer %s", u.Kind, u.ID, u.FromStatus)
		}
		return nil
	}
}

// Emit records a domain event in the outbox.
func Emit(event *model.OutboxEvent) Effect {
	return Insert(model.KindOutboxEvent, event)
}

// Apply runs effects atomically.
func Apply(ctx context.Context, t Transactor, effects ...Effect) error {
	return t.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, effect := range effects {
			if err := effect(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}
