package model

import "time"

// FeedItemType tags a feed entry.
type FeedItemType string

const (
	FeedItemTicket FeedItemType = "TICKET"
	FeedItemReview FeedItemType = "REVIEW"
)

// FeedItem is one entry of a feed: exactly one of Ticket or Review is set,
// matching Type.
type FeedItem struct {
	Type   FeedItemType `json:"type"`
	Ticket *Ticket      `json:"ticket,omitempty"`
	Review *Review      `json:"review,omitempty"`
}

// CreatedAt returns the creation time of the wrapped entity.
func (i FeedItem) CreatedAt() time.Time {
	if i.Type == FeedItemReview && i.Review != nil {
		return i.Review.CreatedAt
	}
	if i.Ticket != nil {
		return i.Ticket.CreatedAt
	}
	return time.Time{}
}

// ID returns the id of the wrapped entity.
func (i FeedItem) ID() int64 {
	if i.Type == FeedItemReview && i.Review != nil {
		return i.Review.ID
	}
	if i.Ticket != nil {
		return i.Ticket.ID
	}
	return 0
}

// AuthorID returns the owner of the wrapped entity.
func (i FeedItem) AuthorID() int64 {
	if i.Type == FeedItemReview && i.Review != nil {
		return i.Review.UserID
	}
	if i.Ticket != nil {
		return i.Ticket.UserID
	}
	return 0
}
