package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the edge. There is no ON CONFLICT clause: duplicates, self
// edges and edges across a block are rejected by the schema and mapped to
// their domain errors.
func (r *followRepository) Create(ctx context.Context, q sqlx.ExtContext, followerID, followeeID int64) error {
	query := `INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)`
	if _, err := q.ExecContext(ctx, query, followerID, followeeID); err != nil {
		return wrapWrite("create follow", err)
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, q sqlx.ExtContext, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := q.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}
	return nil
}

func (r *followRepository) DeleteBetween(ctx context.Context, q sqlx.ExtContext, a, b int64) (int64, error) {
	query := `
		DELETE FROM follows
		WHERE (follower_id = $1 AND followee_id = $2)
		   OR (follower_id = $2 AND followee_id = $1)
	`
	result, err := q.ExecContext(ctx, query, a, b)
	if err != nil {
		return 0, fmt.Errorf("failed to sever follows: %w", err)
	}
	return result.RowsAffected()
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT followee_id FROM follows WHERE follower_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT follower_id FROM follows WHERE followee_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, userID int64) ([]model.Relation, error) {
	query := `
		SELECT u.id, u.username, u.photo_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC, u.id DESC
	`
	return selectRelations(ctx, r.db, "following", query, userID)
}

func (r *followRepository) ListFollowers(ctx context.Context, userID int64) ([]model.Relation, error) {
	query := `
		SELECT u.id, u.username, u.photo_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY f.created_at DESC, u.id DESC
	`
	return selectRelations(ctx, r.db, "followers", query, userID)
}

type relationRow struct {
	model.UserSummary
	CreatedAt time.Time `db:"created_at"`
}

// selectRelations runs a query yielding (id, username, photo_url, created_at)
// rows and converts them into relation entries.
func selectRelations(ctx context.Context, db *sqlx.DB, what, query string, args ...interface{}) ([]model.Relation, error) {
	var rows []relationRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}

	relations := make([]model.Relation, 0, len(rows))
	for _, row := range rows {
		relations = append(relations, model.Relation{User: row.UserSummary, Since: row.CreatedAt})
	}
	return relations, nil
}
