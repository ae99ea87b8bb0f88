package service

import (
	"context"

	"go.uber.org/zap"

	"litrevu/internal/cache"
	"litrevu/internal/logger"
	"litrevu/internal/queue"
)

// FeedNotifier keeps cached feeds honest after a write. The actor's own
// snapshots are dropped synchronously so they see their change immediately;
// everyone else is handled by the workers through the event stream.
//
// A nil *FeedNotifier, or one built with nil dependencies, does nothing.
// Failures are logged and never fail the write that triggered them.
type FeedNotifier struct {
	cache     cache.FeedCache
	publisher queue.Publisher
	log       *zap.Logger
}

func NewFeedNotifier(feedCache cache.FeedCache, publisher queue.Publisher) *FeedNotifier {
	return &FeedNotifier{cache: feedCache, publisher: publisher, log: logger.Named("feed_notifier")}
}

// Notify invalidates the direct audience and publishes event.
func (n *FeedNotifier) Notify(ctx context.Context, event queue.FeedEvent, direct ...int64) {
	if n == nil {
		return
	}

	if n.cache != nil && len(direct) > 0 {
		if err := n.cache.Invalidate(ctx, direct...); err != nil {
			n.log.Warn("direct invalidation failed", zap.Int64s("users", direct), zap.Error(err))
		}
	}

	if n.publisher != nil {
		if _, err := n.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
			n.log.Warn("publish failed", zap.String("type", event.Type), zap.Error(err))
		}
	}
}
