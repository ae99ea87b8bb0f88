package model

import "time"

// Ticket is a request for a review of a book.
type Ticket struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url"`
	ImageKey    *string   `db:"image_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// Joined / derived fields
	Author          *UserSummary `db:"-" json:"author,omitempty"`
	HasUserReviewed bool         `db:"-" json:"has_user_reviewed"`
}

// OwnerID returns the account that owns the ticket.
func (t Ticket) OwnerID() int64 { return t.UserID }

// TicketRequest is the create/edit form for a ticket.
type TicketRequest struct {
	Title       string `json:"title" conform:"trim" validate:"required,max=128"`
	Description string `json:"description" conform:"trim" validate:"max=2048"`
	RemoveImage bool   `json:"remove_image"`
}

const (
	MaxTicketTitleLength       = 128
	MaxTicketDescriptionLength = 2048
)

var (
	ErrTicketNotFound = kind(ErrNotFound, "ticket not found")

	ErrTicketEditForbidden   = kind(ErrForbidden, "not allowed to edit this ticket")
	ErrTicketDeleteForbidden = kind(ErrForbidden, "not allowed to delete this ticket")
)
