package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"litrevu/internal/model"
)

const reviewSelect = `
	SELECT r.id, r.ticket_id, r.user_id, r.rating, r.headline, r.body, r.created_at,
	       ru.username AS author_username, ru.photo_url AS author_photo_url,
	       t.user_id AS ticket_user_id, t.title AS ticket_title, t.description AS ticket_description,
	       t.image_url AS ticket_image_url, t.created_at AS ticket_created_at,
	       tu.username AS ticket_owner_username, tu.photo_url AS ticket_owner_photo_url
	FROM reviews r
	JOIN users ru ON ru.id = r.user_id
	JOIN tickets t ON t.id = r.ticket_id
	JOIN users tu ON tu.id = t.user_id
`

type reviewRow struct {
	model.Review
	AuthorUsername      string    `db:"author_username"`
	AuthorPhotoURL      *string   `db:"author_photo_url"`
	TicketUserID        int64     `db:"ticket_user_id"`
	TicketTitle         string    `db:"ticket_title"`
	TicketDescription   string    `db:"ticket_description"`
	TicketImageURL      *string   `db:"ticket_image_url"`
	TicketCreatedAt     time.Time `db:"ticket_created_at"`
	TicketOwnerUsername string    `db:"ticket_owner_username"`
	TicketOwnerPhotoURL *string   `db:"ticket_owner_photo_url"`
}

func (row reviewRow) toModel() model.Review {
	rv := row.Review
	rv.Author = &model.UserSummary{ID: rv.UserID, Username: row.AuthorUsername, PhotoURL: row.AuthorPhotoURL}
	rv.Ticket = &model.Ticket{
		ID:          rv.TicketID,
		UserID:      row.TicketUserID,
		Title:       row.TicketTitle,
		Description: row.TicketDescription,
		ImageURL:    row.TicketImageURL,
		CreatedAt:   row.TicketCreatedAt,
		Author: &model.UserSummary{
			ID:       row.TicketUserID,
			Username: row.TicketOwnerUsername,
			PhotoURL: row.TicketOwnerPhotoURL,
		},
	}
	return rv
}

type reviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, q sqlx.ExtContext, rv *model.Review) error {
	query := `
		INSERT INTO reviews (ticket_id, user_id, rating, headline, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := q.QueryRowxContext(ctx, query, rv.TicketID, rv.UserID, rv.Rating, rv.Headline, rv.Body).
		Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		return wrapWrite("create review", err)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	var row reviewRow
	if err := r.db.GetContext(ctx, &row, reviewSelect+`WHERE r.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	rv := row.toModel()
	return &rv, nil
}

func (r *reviewRepository) Update(ctx context.Context, q sqlx.ExtContext, rv *model.Review) error {
	query := `UPDATE reviews SET rating = $2, headline = $3, body = $4 WHERE id = $1`
	result, err := q.ExecContext(ctx, query, rv.ID, rv.Rating, rv.Headline, rv.Body)
	if err != nil {
		return wrapWrite("update review", err)
	}
	return expectOneRow(result, model.ErrReviewNotFound)
}

func (r *reviewRepository) Delete(ctx context.Context, q sqlx.ExtContext, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return expectOneRow(result, model.ErrReviewNotFound)
}

func (r *reviewRepository) Find(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	if filter.IsEmpty() {
		return []model.Review{}, nil
	}

	query := reviewSelect + `
		WHERE r.user_id = ANY($1) OR t.user_id = ANY($2)
		ORDER BY r.created_at DESC, r.id DESC
	`
	var rows []reviewRow
	err := r.db.SelectContext(ctx, &rows, query,
		pq.Array(nonNil(filter.AuthorIDs)),
		pq.Array(nonNil(filter.TicketOwnerIDs)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}

	reviews := make([]model.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toModel())
	}
	return reviews, nil
}

func (r *reviewRepository) ExistsForTicket(ctx context.Context, ticketID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE ticket_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ticketID, userID); err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

func (r *reviewRepository) ReviewedTicketIDs(ctx context.Context, userID int64, ticketIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}

	query := `SELECT ticket_id FROM reviews WHERE user_id = $1 AND ticket_id = ANY($2)`
	var reviewed []int64
	if err := r.db.SelectContext(ctx, &reviewed, query, userID, pq.Array(ticketIDs)); err != nil {
		return nil, fmt.Errorf("failed to check reviewed tickets: %w", err)
	}

	for _, id := range ticketIDs {
		result[id] = false
	}
	for _, id := range reviewed {
		result[id] = true
	}
	return result, nil
}

func (r *reviewRepository) AuthorIDsForTicket(ctx context.Context, ticketID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT user_id FROM reviews WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review authors: %w", err)
	}
	return ids, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
