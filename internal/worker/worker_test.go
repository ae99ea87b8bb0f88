package worker_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/cache"
	"litrevu/internal/model"
	"litrevu/internal/queue"
	"litrevu/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockFollowerProvider simulates the follow repository.
type MockFollowerProvider struct {
	// followers maps userID -> list of follower IDs
	followers map[int64][]int64
	err       error
}

func NewMockFollowerProvider() *MockFollowerProvider {
	return &MockFollowerProvider{followers: make(map[int64][]int64)}
}

func (m *MockFollowerProvider) AddFollower(userID, followerID int64) {
	m.followers[userID] = append(m.followers[userID], followerID)
}

func (m *MockFollowerProvider) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.followers[userID], nil
}

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func warm(t *testing.T, c cache.FeedCache, userIDs ...int64) {
	t.Helper()
	items := []model.FeedItem{{Type: model.FeedItemTicket, Ticket: &model.Ticket{ID: 1, Title: "Dune"}}}
	for _, id := range userIDs {
		gen, err := c.Generation(context.Background(), id)
		require.NoError(t, err)
		require.NoError(t, c.SetFeed(context.Background(), id, gen, items))
		require.NoError(t, c.SetPosts(context.Background(), id, gen, items))
	}
}

func cached(t *testing.T, c cache.FeedCache, userID int64) bool {
	t.Helper()
	_, ok, err := c.GetFeed(context.Background(), userID)
	require.NoError(t, err)
	return ok
}

func sorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// Audience
// =============================================================================

func TestAudience_TicketChanged(t *testing.T) {
	followers := NewMockFollowerProvider()
	followers.AddFollower(1, 2)
	followers.AddFollower(1, 3)
	followers.AddFollower(5, 6)
	followers.AddFollower(5, 2)
	h := worker.NewHandler(nil, followers)

	event := queue.NewTicketChangedEvent(10, 1, []int64{5})
	audience, err := h.Audience(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 5, 6}, sorted(audience))
}

func TestAudience_ReviewChangedIncludesTicketOwner(t *testing.T) {
	followers := NewMockFollowerProvider()
	followers.AddFollower(4, 7)
	h := worker.NewHandler(nil, followers)

	audience, err := h.Audience(context.Background(), queue.NewReviewChangedEvent(10, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 7}, sorted(audience))
}

func TestAudience_RelationChanged(t *testing.T) {
	h := worker.NewHandler(nil, NewMockFollowerProvider())

	audience, err := h.Audience(context.Background(), queue.NewRelationChangedEvent(3, 8))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 8}, sorted(audience))
}

func TestAudience_UnknownEvent(t *testing.T) {
	h := worker.NewHandler(nil, NewMockFollowerProvider())
	_, err := h.Audience(context.Background(), queue.FeedEvent{Type: "post_liked"})
	assert.Error(t, err)
}

func TestAudience_FollowerLookupFails(t *testing.T) {
	followers := NewMockFollowerProvider()
	followers.err = errors.New("db down")
	h := worker.NewHandler(nil, followers)

	_, err := h.Audience(context.Background(), queue.NewReviewChangedEvent(1, 2, 3))
	assert.ErrorIs(t, err, followers.err)
}

// =============================================================================
// Handler against Redis
// =============================================================================

func TestHandleEvent_InvalidatesOnlyTheAudience(t *testing.T) {
	_, client := setupTestRedis(t)
	feedCache := cache.NewFeedCache(client, time.Minute)
	followers := NewMockFollowerProvider()
	followers.AddFollower(1, 2)
	h := worker.NewHandler(feedCache, followers)

	warm(t, feedCache, 1, 2, 3)

	require.NoError(t, h.HandleEvent(context.Background(), queue.NewTicketChangedEvent(10, 1, nil)))

	assert.False(t, cached(t, feedCache, 1))
	assert.False(t, cached(t, feedCache, 2))
	assert.True(t, cached(t, feedCache, 3), "user 3 does not follow 1")
}

// =============================================================================
// Stream round trip
// =============================================================================

func TestEventRoundTrip(t *testing.T) {
	event := queue.NewTicketChangedEvent(10, 1, []int64{4, 5})
	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, queue.EventTicketChanged, values["type"])

	parsed, err := queue.ParseFeedEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)

	_, err = queue.ParseFeedEvent(map[string]interface{}{"type": "x"})
	assert.Error(t, err)
}

func TestManager_ConsumesPublishedEvents(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	feedCache := cache.NewFeedCache(client, time.Minute)
	followers := NewMockFollowerProvider()
	followers.AddFollower(1, 2)
	handler := worker.NewHandler(feedCache, followers)

	consumer := queue.NewConsumer(client)
	manager := worker.NewManager(consumer, handler, worker.ManagerConfig{
		WorkerCount:  1,
		BatchSize:    5,
		BlockTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	warm(t, feedCache, 1, 2, 3)

	publisher := queue.NewPublisher(client)
	_, err := publisher.Publish(ctx, queue.StreamFeed, queue.NewReviewChangedEvent(10, 1, 3))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, id := range []int64{1, 2, 3} {
			if _, ok, err := feedCache.GetFeed(ctx, id); err != nil || ok {
				return false
			}
		}
		return true
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		pending, err := consumer.Pending(ctx, queue.StreamFeed, queue.ConsumerGroupFeed)
		return err == nil && pending == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestEnsureGroup_Idempotent(t *testing.T) {
	_, client := setupTestRedis(t)
	consumer := queue.NewConsumer(client)
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamFeed, queue.ConsumerGroupFeed))
	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamFeed, queue.ConsumerGroupFeed))
}
