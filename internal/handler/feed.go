package handler

import (
	"context"
	"net/http"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns the full merged feed of the authenticated user, newest first.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.feedService.ComposeFeed)
}

// GetPosts handles GET /posts
// Returns the caller's own tickets and reviews, newest first.
func (h *FeedHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.feedService.ComposePersonalPosts)
}

func (h *FeedHandler) serve(w http.ResponseWriter, r *http.Request, compose func(context.Context, int64) ([]model.FeedItem, error)) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	items, err := compose(r.Context(), userID)
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
	})
}
