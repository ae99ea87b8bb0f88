// Package feed merges tickets and reviews into one chronological stream.
package feed

import (
	"sort"

	"litrevu/internal/model"
)

// Merge wraps tickets and reviews as feed items and orders them newest first.
// Equal timestamps fall back to the higher id, then REVIEW before TICKET, so
// the order never depends on input order. The result is never nil.
func Merge(tickets []model.Ticket, reviews []model.Review) []model.FeedItem {
	items := make([]model.FeedItem, 0, len(tickets)+len(reviews))
	for i := range tickets {
		t := tickets[i]
		items = append(items, model.FeedItem{Type: model.FeedItemTicket, Ticket: &t})
	}
	for i := range reviews {
		r := reviews[i]
		items = append(items, model.FeedItem{Type: model.FeedItemReview, Review: &r})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return Before(items[i], items[j])
	})
	return items
}

// Before reports whether a sorts ahead of b.
func Before(a, b model.FeedItem) bool {
	at, bt := a.CreatedAt(), b.CreatedAt()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	if a.ID() != b.ID() {
		return a.ID() > b.ID()
	}
	return a.Type == model.FeedItemReview && b.Type == model.FeedItemTicket
}
