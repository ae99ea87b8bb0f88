package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
	"litrevu/internal/repository"
)

type tickets struct{ s *Store }

func (r tickets) Create(_ context.Context, _ sqlx.ExtContext, t *model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.userExists(t.UserID) {
		return model.ErrUserNotFound
	}

	r.s.data.ticketSeq++
	t.ID = r.s.data.ticketSeq
	t.CreatedAt = r.s.tick()

	stored := *t
	stored.Author = nil
	stored.HasUserReviewed = false
	r.s.data.tickets[t.ID] = stored
	return nil
}

func (r tickets) GetByID(_ context.Context, id int64) (*model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.data.tickets[id]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	joined := r.s.joinedTicket(t)
	return &joined, nil
}

func (r tickets) Update(_ context.Context, _ sqlx.ExtContext, t *model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.tickets[t.ID]
	if !ok {
		return model.ErrTicketNotFound
	}
	stored.Title = t.Title
	stored.Description = t.Description
	stored.ImageURL = t.ImageURL
	stored.ImageKey = t.ImageKey
	r.s.data.tickets[t.ID] = stored
	return nil
}

func (r tickets) Delete(_ context.Context, _ sqlx.ExtContext, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.tickets[id]; !ok {
		return model.ErrTicketNotFound
	}
	delete(r.s.data.tickets, id)
	for rid, rv := range r.s.data.reviews {
		if rv.TicketID == id {
			delete(r.s.data.reviews, rid)
		}
	}
	return nil
}

func (r tickets) FindByOwners(_ context.Context, ownerIDs []int64) ([]model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	owners := idSet(ownerIDs)
	out := []model.Ticket{}
	for _, t := range r.s.data.tickets {
		if _, ok := owners[t.UserID]; ok {
			out = append(out, r.s.joinedTicket(t))
		}
	}
	sort.Slice(out, newestFirst(func(i int) (time.Time, int64) {
		return out[i].CreatedAt, out[i].ID
	}))
	return out, nil
}

type reviews struct{ s *Store }

func validRating(rating int) bool {
	return rating >= model.MinRating && rating <= model.MaxRating
}

func (r reviews) Create(_ context.Context, _ sqlx.ExtContext, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !validRating(rv.Rating) {
		return model.ErrInvalidRating
	}
	if _, ok := r.s.data.tickets[rv.TicketID]; !ok {
		return model.ErrTicketNotFound
	}
	if !r.s.userExists(rv.UserID) {
		return model.ErrUserNotFound
	}
	for _, existing := range r.s.data.reviews {
		if existing.TicketID == rv.TicketID && existing.UserID == rv.UserID {
			return model.ErrAlreadyReviewed
		}
	}

	r.s.data.reviewSeq++
	rv.ID = r.s.data.reviewSeq
	rv.CreatedAt = r.s.tick()

	stored := *rv
	stored.Author = nil
	stored.Ticket = nil
	r.s.data.reviews[rv.ID] = stored
	return nil
}

func (r reviews) GetByID(_ context.Context, id int64) (*model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.data.reviews[id]
	if !ok {
		return nil, model.ErrReviewNotFound
	}
	joined := r.s.joinedReview(rv)
	return &joined, nil
}

func (r reviews) Update(_ context.Context, _ sqlx.ExtContext, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !validRating(rv.Rating) {
		return model.ErrInvalidRating
	}
	stored, ok := r.s.data.reviews[rv.ID]
	if !ok {
		return model.ErrReviewNotFound
	}
	stored.Rating = rv.Rating
	stored.Headline = rv.Headline
	stored.Body = rv.Body
	r.s.data.reviews[rv.ID] = stored
	return nil
}

func (r reviews) Delete(_ context.Context, _ sqlx.ExtContext, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.reviews[id]; !ok {
		return model.ErrReviewNotFound
	}
	delete(r.s.data.reviews, id)
	return nil
}

func (r reviews) Find(_ context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Review{}
	if filter.IsEmpty() {
		return out, nil
	}

	authors := idSet(filter.AuthorIDs)
	owners := idSet(filter.TicketOwnerIDs)
	for _, rv := range r.s.data.reviews {
		_, byAuthor := authors[rv.UserID]
		_, onOwned := owners[r.s.data.tickets[rv.TicketID].UserID]
		if byAuthor || onOwned {
			out = append(out, r.s.joinedReview(rv))
		}
	}
	sort.Slice(out, newestFirst(func(i int) (time.Time, int64) {
		return out[i].CreatedAt, out[i].ID
	}))
	return out, nil
}

func (r reviews) ExistsForTicket(_ context.Context, ticketID, userID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rv := range r.s.data.reviews {
		if rv.TicketID == ticketID && rv.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r reviews) ReviewedTicketIDs(_ context.Context, userID int64, ticketIDs []int64) (map[int64]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make(map[int64]bool, len(ticketIDs))
	for _, id := range ticketIDs {
		result[id] = false
	}
	for _, rv := range r.s.data.reviews {
		if _, asked := result[rv.TicketID]; asked && rv.UserID == userID {
			result[rv.TicketID] = true
		}
	}
	return result, nil
}

func (r reviews) AuthorIDsForTicket(_ context.Context, ticketID int64) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	set := map[int64]struct{}{}
	for _, rv := range r.s.data.reviews {
		if rv.TicketID == ticketID {
			set[rv.UserID] = struct{}{}
		}
	}
	return sortedIDs(set), nil
}
