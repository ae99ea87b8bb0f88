package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"litrevu/internal/cache"
	"litrevu/internal/feed"
	"litrevu/internal/logger"
	"litrevu/internal/model"
	"litrevu/internal/repository"
)

// FeedService composes the home feed and the personal posts page. Results
// are served from the cache when one is configured; any cache failure falls
// back to composing from the store.
type FeedService struct {
	followRepo repository.FollowRepository
	ticketRepo repository.TicketRepository
	reviewRepo repository.ReviewRepository
	feedCache  cache.FeedCache // nil disables caching
	log        *zap.Logger
}

func NewFeedService(
	followRepo repository.FollowRepository,
	ticketRepo repository.TicketRepository,
	reviewRepo repository.ReviewRepository,
	feedCache cache.FeedCache,
) *FeedService {
	return &FeedService{
		followRepo: followRepo,
		ticketRepo: ticketRepo,
		reviewRepo: reviewRepo,
		feedCache:  feedCache,
		log:        logger.Named("feed_service"),
	}
}

// ComposeFeed returns tickets by the viewer and everyone they follow,
// reviews by the same people, and every review on the viewer's own tickets,
// newest first.
func (s *FeedService) ComposeFeed(ctx context.Context, viewerID int64) ([]model.FeedItem, error) {
	items, gen, ok := s.cached(ctx, viewerID, s.getFeed)
	if ok {
		return items, nil
	}

	followed, err := s.followRepo.GetFolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	people := append([]int64{viewerID}, followed...)

	tickets, err := s.ticketRepo.FindByOwners(ctx, people)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.Find(ctx, repository.ReviewFilter{
		AuthorIDs:      people,
		TicketOwnerIDs: []int64{viewerID},
	})
	if err != nil {
		return nil, err
	}

	items, err = s.merge(ctx, viewerID, tickets, reviews)
	if err != nil {
		return nil, err
	}
	s.store(ctx, viewerID, gen, items, s.setFeed)
	return items, nil
}

// ComposePersonalPosts returns the viewer's own tickets and reviews, newest
// first.
func (s *FeedService) ComposePersonalPosts(ctx context.Context, viewerID int64) ([]model.FeedItem, error) {
	items, gen, ok := s.cached(ctx, viewerID, s.getPosts)
	if ok {
		return items, nil
	}

	tickets, err := s.ticketRepo.FindByOwners(ctx, []int64{viewerID})
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.Find(ctx, repository.ReviewFilter{AuthorIDs: []int64{viewerID}})
	if err != nil {
		return nil, err
	}

	items, err = s.merge(ctx, viewerID, tickets, reviews)
	if err != nil {
		return nil, err
	}
	s.store(ctx, viewerID, gen, items, s.setPosts)
	return items, nil
}

// merge flags the tickets the viewer already reviewed and sorts.
func (s *FeedService) merge(ctx context.Context, viewerID int64, tickets []model.Ticket, reviews []model.Review) ([]model.FeedItem, error) {
	ids := make([]int64, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	reviewed, err := s.reviewRepo.ReviewedTicketIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].HasUserReviewed = reviewed[tickets[i].ID]
	}
	return feed.Merge(tickets, reviews), nil
}

type cacheGet func(ctx context.Context, userID int64) ([]model.FeedItem, bool, error)
type cacheSet func(ctx context.Context, userID int64, gen int64, items []model.FeedItem) error

// noGeneration marks a compose whose generation could not be read; its
// result is not cached.
const noGeneration int64 = -1

func (s *FeedService) getFeed(ctx context.Context, id int64) ([]model.FeedItem, bool, error) {
	return s.feedCache.GetFeed(ctx, id)
}

func (s *FeedService) setFeed(ctx context.Context, id int64, gen int64, items []model.FeedItem) error {
	return s.feedCache.SetFeed(ctx, id, gen, items)
}

func (s *FeedService) getPosts(ctx context.Context, id int64) ([]model.FeedItem, bool, error) {
	return s.feedCache.GetPosts(ctx, id)
}

func (s *FeedService) setPosts(ctx context.Context, id int64, gen int64, items []model.FeedItem) error {
	return s.feedCache.SetPosts(ctx, id, gen, items)
}

// cached reads the viewer's generation before the snapshot, so a compose
// that follows a miss can only be stored if nothing was invalidated since.
func (s *FeedService) cached(ctx context.Context, viewerID int64, get cacheGet) ([]model.FeedItem, int64, bool) {
	if s.feedCache == nil {
		return nil, noGeneration, false
	}
	gen, err := s.feedCache.Generation(ctx, viewerID)
	if err != nil {
		s.log.Warn("cache read failed, composing", zap.Int64("user_id", viewerID), zap.Error(err))
		return nil, noGeneration, false
	}
	items, ok, err := get(ctx, viewerID)
	if err != nil {
		s.log.Warn("cache read failed, composing", zap.Int64("user_id", viewerID), zap.Error(err))
		return nil, noGeneration, false
	}
	return items, gen, ok
}

func (s *FeedService) store(ctx context.Context, viewerID int64, gen int64, items []model.FeedItem, set cacheSet) {
	if s.feedCache == nil || gen == noGeneration {
		return
	}
	err := set(ctx, viewerID, gen, items)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleSnapshot):
		s.log.Debug("skipping stale snapshot", zap.Int64("user_id", viewerID))
	default:
		s.log.Warn("cache write failed", zap.Int64("user_id", viewerID), zap.Error(err))
	}
}
