package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"litrevu/internal/model"
)

const ticketSelect = `
	SELECT t.id, t.user_id, t.title, t.description, t.image_url, t.image_key, t.created_at,
	       u.username AS author_username, u.photo_url AS author_photo_url
	FROM tickets t
	JOIN users u ON u.id = t.user_id
`

type ticketRow struct {
	model.Ticket
	AuthorUsername string  `db:"author_username"`
	AuthorPhotoURL *string `db:"author_photo_url"`
}

func (row ticketRow) toModel() model.Ticket {
	t := row.Ticket
	t.Author = &model.UserSummary{ID: t.UserID, Username: row.AuthorUsername, PhotoURL: row.AuthorPhotoURL}
	return t
}

type ticketRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, q sqlx.ExtContext, t *model.Ticket) error {
	query := `
		INSERT INTO tickets (user_id, title, description, image_url, image_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := q.QueryRowxContext(ctx, query, t.UserID, t.Title, t.Description, t.ImageURL, t.ImageKey).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return wrapWrite("create ticket", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	var row ticketRow
	if err := r.db.GetContext(ctx, &row, ticketSelect+`WHERE t.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	t := row.toModel()
	return &t, nil
}

func (r *ticketRepository) Update(ctx context.Context, q sqlx.ExtContext, t *model.Ticket) error {
	query := `
		UPDATE tickets
		SET title = $2, description = $3, image_url = $4, image_key = $5
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query, t.ID, t.Title, t.Description, t.ImageURL, t.ImageKey)
	if err != nil {
		return wrapWrite("update ticket", err)
	}
	return expectOneRow(result, model.ErrTicketNotFound)
}

func (r *ticketRepository) Delete(ctx context.Context, q sqlx.ExtContext, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return expectOneRow(result, model.ErrTicketNotFound)
}

func (r *ticketRepository) FindByOwners(ctx context.Context, ownerIDs []int64) ([]model.Ticket, error) {
	if len(ownerIDs) == 0 {
		return []model.Ticket{}, nil
	}

	var rows []ticketRow
	query := ticketSelect + `WHERE t.user_id = ANY($1) ORDER BY t.created_at DESC, t.id DESC`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ownerIDs)); err != nil {
		return nil, fmt.Errorf("failed to find tickets by owners: %w", err)
	}

	tickets := make([]model.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.toModel())
	}
	return tickets, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
