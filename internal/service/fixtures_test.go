package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"litrevu/internal/model"
	"litrevu/internal/repository"
	"litrevu/internal/repository/memstore"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeImageStore hands out sequential keys and records deletions.
type fakeImageStore struct {
	mu       sync.Mutex
	seq      int
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeImageStore) upload(folder string) (*model.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	key := fmt.Sprintf("%s/%d.jpg", folder, f.seq)
	f.uploaded = append(f.uploaded, key)
	return &model.UploadResult{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (f *fakeImageStore) UploadTicketImage(ctx context.Context, img ImageInput) (*model.UploadResult, error) {
	return f.upload(model.TicketImageFolder)
}

func (f *fakeImageStore) UploadProfilePhoto(ctx context.Context, img ImageInput) (*model.UploadResult, error) {
	return f.upload(model.ProfilePhotoFolder)
}

func (f *fakeImageStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

var errReviewInsert = errors.New("review insert failed")

// failingReviews makes every review insert fail after the decorated store
// has accepted it, so the surrounding unit of work must roll back.
type failingReviews struct {
	repository.ReviewRepository
}

func (f failingReviews) Create(ctx context.Context, q sqlx.ExtContext, review *model.Review) error {
	if err := f.ReviewRepository.Create(ctx, q, review); err != nil {
		return err
	}
	return errReviewInsert
}

// =============================================================================
// FIXTURE
// =============================================================================

type fixture struct {
	store  *memstore.Store
	media  *fakeImageStore
	users  *UserService
	rel    *RelationshipService
	ticket *TicketService
	review *ReviewService
	feed   *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith wires the services over a fresh memory store. wrap, when
// set, decorates the store's review repository.
func newFixtureWith(t *testing.T, wrap func(repository.ReviewRepository) repository.ReviewRepository) *fixture {
	t.Helper()
	store := memstore.New()
	reviews := store.Reviews()
	if wrap != nil {
		reviews = wrap(reviews)
	}
	media := &fakeImageStore{}

	tickets := NewTicketService(store, store.Tickets(), reviews, media, nil)
	return &fixture{
		store:  store,
		media:  media,
		users:  NewUserService(store.Users(), media),
		rel:    NewRelationshipService(store, store.Users(), store.Follows(), store.Blocks(), nil),
		ticket: tickets,
		review: NewReviewService(store, store.Tickets(), reviews, tickets, nil),
		feed:   NewFeedService(store.Follows(), store.Tickets(), reviews, nil),
	}
}

func (f *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHashed: "x"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) follow(t *testing.T, follower *model.User, followee *model.User) {
	t.Helper()
	_, err := f.rel.CreateFollow(context.Background(), follower.ID, followee.Username)
	require.NoError(t, err)
}

func (f *fixture) newTicket(t *testing.T, owner *model.User, title string) *model.Ticket {
	t.Helper()
	tk, err := f.ticket.Create(context.Background(), owner.ID, &model.TicketRequest{Title: title}, nil)
	require.NoError(t, err)
	return tk
}

func (f *fixture) newReview(t *testing.T, author *model.User, ticket *model.Ticket, rating int) *model.Review {
	t.Helper()
	rv, err := f.review.CreateForTicket(context.Background(), author.ID, ticket.ID, reviewReq(rating, "Avis"))
	require.NoError(t, err)
	return rv
}

func reviewReq(rating int, headline string) *model.ReviewRequest {
	return &model.ReviewRequest{Rating: &rating, Headline: headline}
}

// feedKeys renders items as "TICKET:3" / "REVIEW:1" for compact assertions.
func feedKeys(items []model.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = fmt.Sprintf("%s:%d", it.Type, it.ID())
	}
	return out
}
