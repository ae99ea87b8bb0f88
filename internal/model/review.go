package model

import "time"

// Review is a rated critique attached to exactly one ticket.
type Review struct {
	ID        int64     `db:"id" json:"id"`
	TicketID  int64     `db:"ticket_id" json:"ticket_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Headline  string    `db:"headline" json:"headline"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined fields
	Author *UserSummary `db:"-" json:"author,omitempty"`
	Ticket *Ticket      `db:"-" json:"ticket,omitempty"`
}

// OwnerID returns the reviewer.
func (r Review) OwnerID() int64 { return r.UserID }

// ReviewRequest is the create/edit form for a review. Rating is a pointer
// so that an explicit 0 is distinguishable from a missing value.
type ReviewRequest struct {
	Rating   *int   `json:"rating" validate:"required,min=0,max=5"`
	Headline string `json:"headline" conform:"trim" validate:"required,max=128"`
	Body     string `json:"body" conform:"trim" validate:"max=8192"`
}

// TicketReviewRequest creates a ticket and its first review together.
type TicketReviewRequest struct {
	Ticket TicketRequest `json:"ticket"`
	Review ReviewRequest `json:"review"`
}

const (
	MinRating = 0
	MaxRating = 5

	MaxReviewHeadlineLength = 128
	MaxReviewBodyLength     = 8192
)

var (
	ErrReviewNotFound  = kind(ErrNotFound, "review not found")
	ErrAlreadyReviewed = kind(ErrAlreadyExists, "ticket already reviewed by this user")
	ErrInvalidRating   = kind(ErrInvalidInput, "rating must be between 0 and 5")

	ErrReviewEditForbidden   = kind(ErrForbidden, "not allowed to edit this review")
	ErrReviewDeleteForbidden = kind(ErrForbidden, "not allowed to delete this review")
)
