package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/cache"
	"litrevu/internal/feed"
	"litrevu/internal/model"
	"litrevu/internal/repository"
)

// feedScenario builds:
//
//	alice follows bob; carol is a stranger to both.
//	T1 alice, T2 bob, T3 carol
//	R1 carol on T1, R2 bob on T3, R3 carol on T2, R4 alice on T2
type feedScenario struct {
	alice, bob, carol *model.User
	t1, t2, t3        *model.Ticket
	r1, r2, r3, r4    *model.Review
}

func buildFeedScenario(t *testing.T, f *fixture) feedScenario {
	t.Helper()
	var s feedScenario
	s.alice, s.bob, s.carol = f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	f.follow(t, s.alice, s.bob)

	s.t1 = f.newTicket(t, s.alice, "Notre-Dame de Paris")
	s.t2 = f.newTicket(t, s.bob, "Les Fleurs du mal")
	s.t3 = f.newTicket(t, s.carol, "Le Comte de Monte-Cristo")

	s.r1 = f.newReview(t, s.carol, s.t1, 4)
	s.r2 = f.newReview(t, s.bob, s.t3, 5)
	s.r3 = f.newReview(t, s.carol, s.t2, 1)
	s.r4 = f.newReview(t, s.alice, s.t2, 3)
	return s
}

// =============================================================================
// COMPOSITION
// =============================================================================

func TestFeed_ComposeFeed_Visibility(t *testing.T) {
	f := newFixture(t)
	s := buildFeedScenario(t, f)

	items, err := f.feed.ComposeFeed(context.Background(), s.alice.ID)
	require.NoError(t, err)

	// R3 (stranger on a followee's ticket) and T3 (stranger's ticket) stay out.
	assert.Equal(t, []string{"REVIEW:4", "REVIEW:2", "REVIEW:1", "TICKET:2", "TICKET:1"}, feedKeys(items))
}

func TestFeed_ComposeFeed_SortedAndFlagged(t *testing.T) {
	f := newFixture(t)
	s := buildFeedScenario(t, f)

	items, err := f.feed.ComposeFeed(context.Background(), s.alice.ID)
	require.NoError(t, err)

	for i := 1; i < len(items); i++ {
		assert.False(t, feed.Before(items[i], items[i-1]), "item %d is out of order", i)
	}

	reviewed := map[int64]bool{}
	for _, it := range items {
		if it.Type == model.FeedItemTicket {
			reviewed[it.Ticket.ID] = it.Ticket.HasUserReviewed
		}
	}
	assert.True(t, reviewed[s.t2.ID], "alice reviewed T2")
	assert.False(t, reviewed[s.t1.ID])
}

func TestFeed_ComposeFeed_NoFollows(t *testing.T) {
	f := newFixture(t)
	s := buildFeedScenario(t, f)

	items, err := f.feed.ComposeFeed(context.Background(), s.carol.ID)
	require.NoError(t, err)

	// carol follows nobody: her ticket, her reviews, and reviews on her ticket.
	assert.Equal(t, []string{"REVIEW:3", "REVIEW:2", "REVIEW:1", "TICKET:3"}, feedKeys(items))
}

func TestFeed_ComposeFeed_Empty(t *testing.T) {
	f := newFixture(t)
	dave := f.user(t, "dave")

	items, err := f.feed.ComposeFeed(context.Background(), dave.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFeed_ComposeFeed_BlockDropsFolloweeContent(t *testing.T) {
	f := newFixture(t)
	s := buildFeedScenario(t, f)

	_, err := f.rel.CreateBlock(context.Background(), s.bob.ID, s.alice.ID)
	require.NoError(t, err)

	items, err := f.feed.ComposeFeed(context.Background(), s.alice.ID)
	require.NoError(t, err)
	for _, it := range items {
		if it.Type == model.FeedItemTicket {
			assert.NotEqual(t, s.bob.ID, it.AuthorID(), "bob's tickets left with the follow")
		}
	}
}

func TestFeed_ComposePersonalPosts(t *testing.T) {
	f := newFixture(t)
	s := buildFeedScenario(t, f)

	items, err := f.feed.ComposePersonalPosts(context.Background(), s.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"REVIEW:4", "TICKET:1"}, feedKeys(items))

	for _, it := range items {
		assert.Equal(t, s.alice.ID, it.AuthorID())
	}
}

// =============================================================================
// CACHING
// =============================================================================

func newTestCache(t *testing.T) cache.FeedCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewFeedCache(client, time.Minute)
}

func TestFeed_CachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	feedCache := newTestCache(t)
	notifier := NewFeedNotifier(feedCache, nil)
	feeds := NewFeedService(f.store.Follows(), f.store.Tickets(), f.store.Reviews(), feedCache)
	tickets := NewTicketService(f.store, f.store.Tickets(), f.store.Reviews(), nil, notifier)
	ctx := context.Background()

	alice := f.user(t, "alice")
	_, err := tickets.Create(ctx, alice.ID, &model.TicketRequest{Title: "Phèdre"}, nil)
	require.NoError(t, err)

	first, err := feeds.ComposeFeed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Written behind the services' back: the cached snapshot is served.
	require.NoError(t, f.store.Tickets().Create(ctx, nil, &model.Ticket{UserID: alice.ID, Title: "Andromaque"}))
	stale, err := feeds.ComposeFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	// A write through the service drops the actor's snapshot immediately.
	_, err = tickets.Create(ctx, alice.ID, &model.TicketRequest{Title: "Britannicus"}, nil)
	require.NoError(t, err)
	fresh, err := feeds.ComposeFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestFeed_CacheFailureFallsBackToComposition(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	feeds := NewFeedService(f.store.Follows(), f.store.Tickets(), f.store.Reviews(), cache.NewFeedCache(client, time.Minute))

	alice := f.user(t, "alice")
	f.newTicket(t, alice, "Cyrano de Bergerac")
	mr.Close()

	items, err := feeds.ComposePersonalPosts(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

// interleavedTickets runs during once, right after the first ticket read, to
// land a write while a compose is in flight.
type interleavedTickets struct {
	repository.TicketRepository
	during func()
}

func (r *interleavedTickets) FindByOwners(ctx context.Context, ownerIDs []int64) ([]model.Ticket, error) {
	tickets, err := r.TicketRepository.FindByOwners(ctx, ownerIDs)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return tickets, err
}

func TestFeed_WriteDuringComposeIsNotCachedOver(t *testing.T) {
	f := newFixture(t)
	feedCache := newTestCache(t)
	notifier := NewFeedNotifier(feedCache, nil)
	tickets := NewTicketService(f.store, f.store.Tickets(), f.store.Reviews(), nil, notifier)
	ctx := context.Background()

	alice := f.user(t, "alice")
	_, err := tickets.Create(ctx, alice.ID, &model.TicketRequest{Title: "Phèdre"}, nil)
	require.NoError(t, err)

	reads := &interleavedTickets{TicketRepository: f.store.Tickets()}
	reads.during = func() {
		_, err := tickets.Create(ctx, alice.ID, &model.TicketRequest{Title: "Bérénice"}, nil)
		require.NoError(t, err)
	}
	feeds := NewFeedService(f.store.Follows(), reads, f.store.Reviews(), feedCache)

	inFlight, err := feeds.ComposeFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, inFlight, 1)

	next, err := feeds.ComposeFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, next, 2)

	_, ok, err := feedCache.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok, "a compose with no concurrent write is cached")
}
