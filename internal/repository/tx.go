package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"litrevu/internal/model"
)

type txManager struct {
	db *sqlx.DB
}

// NewTransactor returns a Transactor backed by database transactions.
func NewTransactor(db *sqlx.DB) Transactor {
	return &txManager{db: db}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// constraintError translates integrity violations into domain errors so that
// a race lost against a unique or check constraint surfaces the same way as
// the corresponding pre-check. It returns nil for anything else.
func constraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Constraint {
	case "users_username_key":
		return model.ErrUsernameExists
	case "users_email_key":
		return model.ErrEmailExists
	case "follows_pkey":
		return model.ErrAlreadyFollowing
	case "follows_not_self":
		return model.ErrCannotFollowSelf
	case "follows_not_blocked":
		return model.ErrFollowBlocked
	case "blocks_pkey":
		return model.ErrAlreadyBlocking
	case "blocks_not_self":
		return model.ErrCannotBlockSelf
	case "reviews_one_per_user_per_ticket":
		return model.ErrAlreadyReviewed
	case "reviews_rating_range":
		return model.ErrInvalidRating
	case "reviews_ticket_id_fkey":
		return model.ErrTicketNotFound
	case "follows_follower_id_fkey", "follows_followee_id_fkey",
		"blocks_blocker_id_fkey", "blocks_blocked_id_fkey",
		"tickets_user_id_fkey", "reviews_user_id_fkey":
		return model.ErrUserNotFound
	}

	switch pqErr.Code {
	case "23505":
		return model.ErrAlreadyExists
	case "23503":
		return model.ErrNotFound
	case "23514":
		return model.ErrInvalidInput
	}
	return nil
}

// wrapWrite maps constraint violations and wraps everything else with op.
func wrapWrite(op string, err error) error {
	if mapped := constraintError(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
