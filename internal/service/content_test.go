package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/model"
	"litrevu/internal/repository"
)

// =============================================================================
// OWNERSHIP
// =============================================================================

func TestAssertOwner(t *testing.T) {
	ticket := &model.Ticket{ID: 1, UserID: 7}

	assert.NoError(t, AssertOwner(ticket, 7))
	assert.ErrorIs(t, AssertOwner(ticket, 8), model.ErrForbidden)
	assert.ErrorIs(t, AssertOwner(model.Review{UserID: 3}, 4), model.ErrForbidden)
	assert.ErrorIs(t, AssertOwner(nil, 7), model.ErrForbidden)
}

// =============================================================================
// TICKETS
// =============================================================================

func TestTicket_CreateWithImage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	ticket, err := f.ticket.Create(context.Background(), alice.ID,
		&model.TicketRequest{Title: "  Les Misérables ", Description: "Hugo"}, &ImageInput{})
	require.NoError(t, err)

	assert.Equal(t, "Les Misérables", ticket.Title)
	require.NotNil(t, ticket.ImageURL)
	assert.Contains(t, *ticket.ImageURL, model.TicketImageFolder)
	require.NotNil(t, ticket.Author)
	assert.Equal(t, "alice", ticket.Author.Username)
}

func TestTicket_CreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.ticket.Create(context.Background(), alice.ID, &model.TicketRequest{Title: "   "}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	tickets, err := f.store.Tickets().FindByOwners(context.Background(), []int64{alice.ID})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestTicket_OnlyOwnerMayEditOrDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ticket := f.newTicket(t, alice, "Germinal")

	_, err := f.ticket.Update(ctx, bob.ID, ticket.ID, &model.TicketRequest{Title: "Piraté"}, nil)
	assert.ErrorIs(t, err, model.ErrTicketEditForbidden)
	assert.ErrorIs(t, err, model.ErrForbidden)

	err = f.ticket.Delete(ctx, bob.ID, ticket.ID)
	assert.ErrorIs(t, err, model.ErrTicketDeleteForbidden)

	stored, err := f.ticket.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Germinal", stored.Title)

	_, err = f.ticket.Update(ctx, alice.ID, 999, &model.TicketRequest{Title: "x"}, nil)
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
}

func TestTicket_UpdateReplacesAndRemovesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	ticket, err := f.ticket.Create(ctx, alice.ID, &model.TicketRequest{Title: "Nana"}, &ImageInput{})
	require.NoError(t, err)
	first := f.media.uploaded[0]

	// A new image wins over RemoveImage.
	updated, err := f.ticket.Update(ctx, alice.ID, ticket.ID,
		&model.TicketRequest{Title: "Nana", RemoveImage: true}, &ImageInput{})
	require.NoError(t, err)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, []string{first}, f.media.deleted)

	updated, err = f.ticket.Update(ctx, alice.ID, ticket.ID,
		&model.TicketRequest{Title: "Nana (édition poche)", RemoveImage: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.ImageURL)
	assert.Equal(t, "Nana (édition poche)", updated.Title)
	assert.Equal(t, f.media.uploaded, f.media.deleted)
}

func TestTicket_DeleteCascadesReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ticket := f.newTicket(t, alice, "Candide")
	review := f.newReview(t, bob, ticket, 4)

	require.NoError(t, f.ticket.Delete(ctx, alice.ID, ticket.ID))

	_, err := f.ticket.Get(ctx, ticket.ID)
	assert.ErrorIs(t, err, model.ErrTicketNotFound)
	_, err = f.review.Get(ctx, review.ID)
	assert.ErrorIs(t, err, model.ErrReviewNotFound)
}

func TestTicket_ImageWithoutStorage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	tickets := NewTicketService(f.store, f.store.Tickets(), f.store.Reviews(), nil, nil)

	_, err := tickets.Create(context.Background(), alice.ID, &model.TicketRequest{Title: "Zadig"}, &ImageInput{})
	assert.ErrorIs(t, err, model.ErrUploadsDisabled)
}

// =============================================================================
// REVIEWS
// =============================================================================

func TestReview_RatingBounds(t *testing.T) {
	tests := []struct {
		rating  int
		wantErr bool
	}{
		{0, false},
		{3, false},
		{5, false},
		{6, true},
		{-1, true},
	}

	for _, tt := range tests {
		f := newFixture(t)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		ticket := f.newTicket(t, alice, "Le Rouge et le Noir")

		review, err := f.review.CreateForTicket(context.Background(), bob.ID, ticket.ID, reviewReq(tt.rating, "Avis"))
		if tt.wantErr {
			assert.ErrorIs(t, err, model.ErrInvalidInput, "rating %d", tt.rating)
			continue
		}
		require.NoError(t, err, "rating %d", tt.rating)
		assert.Equal(t, tt.rating, review.Rating)
	}
}

func TestReview_CreateForTicket_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ticket := f.newTicket(t, alice, "Madame Bovary")

	review := f.newReview(t, bob, ticket, 3)
	require.NotNil(t, review.Ticket)
	assert.Equal(t, ticket.ID, review.Ticket.ID)
	require.NotNil(t, review.Author)
	assert.Equal(t, "bob", review.Author.Username)

	_, err := f.review.CreateForTicket(ctx, bob.ID, ticket.ID, reviewReq(5, "Encore"))
	assert.ErrorIs(t, err, model.ErrAlreadyReviewed)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	_, err = f.review.CreateForTicket(ctx, bob.ID, 999, reviewReq(5, "Fantôme"))
	assert.ErrorIs(t, err, model.ErrTicketNotFound)

	// The owner may review their own ticket.
	_, err = f.review.CreateForTicket(ctx, alice.ID, ticket.ID, reviewReq(2, "Mon avis"))
	assert.NoError(t, err)

	// A missing rating is not the same as zero.
	_, err = f.review.CreateForTicket(ctx, f.user(t, "carol").ID, ticket.ID, &model.ReviewRequest{Headline: "Sans note"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestReview_OnlyAuthorMayEditOrDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	ticket := f.newTicket(t, alice, "Bel-Ami")
	review := f.newReview(t, bob, ticket, 3)

	// Owning the ticket does not grant rights over its reviews.
	_, err := f.review.Update(ctx, alice.ID, review.ID, reviewReq(0, "Censuré"))
	assert.ErrorIs(t, err, model.ErrReviewEditForbidden)
	assert.ErrorIs(t, f.review.Delete(ctx, alice.ID, review.ID), model.ErrReviewDeleteForbidden)

	updated, err := f.review.Update(ctx, bob.ID, review.ID, reviewReq(5, "Finalement excellent"))
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Finalement excellent", updated.Headline)

	require.NoError(t, f.review.Delete(ctx, bob.ID, review.ID))
	_, err = f.review.Get(ctx, review.ID)
	assert.ErrorIs(t, err, model.ErrReviewNotFound)
}

// =============================================================================
// TICKET + REVIEW IN ONE UNIT
// =============================================================================

func TestReview_CreateReviewForNewTicket(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	rating := 4

	review, err := f.review.CreateReviewForNewTicket(context.Background(), alice.ID, &model.TicketReviewRequest{
		Ticket: model.TicketRequest{Title: "Le Petit Prince"},
		Review: model.ReviewRequest{Rating: &rating, Headline: "Poétique"},
	}, &ImageInput{})
	require.NoError(t, err)

	require.NotNil(t, review.Ticket)
	assert.Equal(t, "Le Petit Prince", review.Ticket.Title)
	assert.Equal(t, alice.ID, review.Ticket.UserID)
	assert.NotNil(t, review.Ticket.ImageURL)
	assert.Equal(t, alice.ID, review.UserID)
}

func TestReview_CreateReviewForNewTicket_IsAtomic(t *testing.T) {
	f := newFixtureWith(t, func(r repository.ReviewRepository) repository.ReviewRepository {
		return failingReviews{r}
	})
	ctx := context.Background()
	alice := f.user(t, "alice")
	rating := 4

	_, err := f.review.CreateReviewForNewTicket(ctx, alice.ID, &model.TicketReviewRequest{
		Ticket: model.TicketRequest{Title: "Le Horla"},
		Review: model.ReviewRequest{Rating: &rating, Headline: "Inquiétant"},
	}, &ImageInput{})
	assert.ErrorIs(t, err, errReviewInsert)

	tickets, err := f.store.Tickets().FindByOwners(ctx, []int64{alice.ID})
	require.NoError(t, err)
	assert.Empty(t, tickets, "the ticket must not survive a failed review insert")

	reviews, err := f.store.Reviews().Find(ctx, repository.ReviewFilter{AuthorIDs: []int64{alice.ID}})
	require.NoError(t, err)
	assert.Empty(t, reviews)

	assert.Equal(t, f.media.uploaded, f.media.deleted, "the uploaded cover must be discarded")
}

func TestReview_CreateReviewForNewTicket_InvalidReviewCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	rating := 6

	_, err := f.review.CreateReviewForNewTicket(ctx, alice.ID, &model.TicketReviewRequest{
		Ticket: model.TicketRequest{Title: "Le Horla"},
		Review: model.ReviewRequest{Rating: &rating, Headline: "Trop"},
	}, &ImageInput{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	tickets, err := f.store.Tickets().FindByOwners(ctx, []int64{alice.ID})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, f.media.uploaded, "validation runs before the upload")
}
