package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"litrevu/internal/cache"
	"litrevu/internal/logger"
	"litrevu/internal/queue"
)

// FollowerProvider defines the interface for fetching followers.
// This abstracts the repository layer so workers don't depend on DB directly.
type FollowerProvider interface {
	// GetFollowerIDs returns all follower IDs for a given user.
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Handler turns feed events into cache invalidations.
type Handler struct {
	feedCache        cache.FeedCache
	followerProvider FollowerProvider
	log              *zap.Logger
}

// NewHandler creates a new event handler.
func NewHandler(feedCache cache.FeedCache, followerProvider FollowerProvider) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		log:              logger.Named("worker"),
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.FeedEvent) error {
	startTime := time.Now()

	audience, err := h.Audience(ctx, event)
	if err != nil {
		h.log.Warn("resolve audience failed", zap.String("type", event.Type), zap.Error(err))
		return err
	}

	if err := h.feedCache.Invalidate(ctx, audience...); err != nil {
		return err
	}

	h.log.Debug("event handled",
		zap.String("type", event.Type),
		zap.Int("invalidated", len(audience)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Audience lists the users whose cached feed or posts page can contain what
// the event touched. The result has no duplicates.
func (h *Handler) Audience(ctx context.Context, event queue.FeedEvent) ([]int64, error) {
	set := newIDSet()

	switch event.Type {
	case queue.EventTicketChanged:
		// The ticket shows up for the owner and the owner's followers; reviews
		// of it embed the ticket for their authors and those authors' followers.
		if err := h.addWithFollowers(ctx, set, event.ActorID); err != nil {
			return nil, err
		}
		for _, authorID := range event.ReviewAuthorIDs {
			if err := h.addWithFollowers(ctx, set, authorID); err != nil {
				return nil, err
			}
		}

	case queue.EventReviewChanged:
		if err := h.addWithFollowers(ctx, set, event.ActorID); err != nil {
			return nil, err
		}
		// Reviews on your own tickets appear in your feed regardless of follows.
		set.add(event.TicketOwnerID)

	case queue.EventRelationChanged:
		set.add(event.ActorID)
		set.add(event.TargetID)

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}

	return set.ids, nil
}

func (h *Handler) addWithFollowers(ctx context.Context, set *idSet, userID int64) error {
	set.add(userID)
	followers, err := h.followerProvider.GetFollowerIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("get followers of %d: %w", userID, err)
	}
	for _, id := range followers {
		set.add(id)
	}
	return nil
}

type idSet struct {
	seen map[int64]struct{}
	ids  []int64
}

func newIDSet() *idSet {
	return &idSet{seen: map[int64]struct{}{}, ids: []int64{}}
}

func (s *idSet) add(id int64) {
	if id == 0 {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}
