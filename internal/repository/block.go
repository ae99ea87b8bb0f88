package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
)

type blockRepository struct {
	db *sqlx.DB
}

func NewBlockRepository(db *sqlx.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Create(ctx context.Context, q sqlx.ExtContext, blockerID, blockedID int64) error {
	query := `INSERT INTO blocks (blocker_id, blocked_id) VALUES ($1, $2)`
	if _, err := q.ExecContext(ctx, query, blockerID, blockedID); err != nil {
		return wrapWrite("create block", err)
	}
	return nil
}

func (r *blockRepository) Delete(ctx context.Context, q sqlx.ExtContext, blockerID, blockedID int64) error {
	query := `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`
	result, err := q.ExecContext(ctx, query, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotBlocking
	}
	return nil
}

func (r *blockRepository) Direction(ctx context.Context, a, b int64) (bool, bool, error) {
	query := `
		SELECT
			EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2),
			EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $2 AND blocked_id = $1)
	`
	var aBlocksB, bBlocksA bool
	if err := r.db.QueryRowxContext(ctx, query, a, b).Scan(&aBlocksB, &bBlocksA); err != nil {
		return false, false, fmt.Errorf("failed to check blocks: %w", err)
	}
	return aBlocksB, bBlocksA, nil
}

func (r *blockRepository) ListBlocked(ctx context.Context, userID int64) ([]model.Relation, error) {
	query := `
		SELECT u.id, u.username, u.photo_url, b.created_at
		FROM blocks b
		JOIN users u ON u.id = b.blocked_id
		WHERE b.blocker_id = $1
		ORDER BY b.created_at DESC, u.id DESC
	`
	return selectRelations(ctx, r.db, "blocked users", query, userID)
}

func (r *blockRepository) ListBlockedBy(ctx context.Context, userID int64) ([]model.Relation, error) {
	query := `
		SELECT u.id, u.username, u.photo_url, b.created_at
		FROM blocks b
		JOIN users u ON u.id = b.blocker_id
		WHERE b.blocked_id = $1
		ORDER BY b.created_at DESC, u.id DESC
	`
	return selectRelations(ctx, r.db, "blockers", query, userID)
}
