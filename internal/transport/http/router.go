package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"litrevu/internal/handler"
	"litrevu/internal/httputil"
	authmw "litrevu/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	RelationshipHandler *handler.RelationshipHandler
	TicketHandler       *handler.TicketHandler
	ReviewHandler       *handler.ReviewHandler
	FeedHandler         *handler.FeedHandler
	JWTSecret           string
	LoginLimiter        *authmw.IPRateLimiter
	Logger              *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// No RealIP: the login limiter keys on the peer address.
	r.Use(middleware.RequestID)
	if cfg.Logger != nil {
		r.Use(authmw.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		if cfg.LoginLimiter != nil {
			r.With(cfg.LoginLimiter.Middleware).Post("/login", cfg.AuthHandler.Login)
		} else {
			r.Post("/login", cfg.AuthHandler.Login)
		}
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		r.Get("/me", cfg.UserHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateMe)
		r.Get("/users/search", cfg.UserHandler.Search)

		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/posts", cfg.FeedHandler.GetPosts)

		r.Get("/follows", cfg.RelationshipHandler.Overview)
		r.Post("/follows", cfg.RelationshipHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.RelationshipHandler.Unfollow)
		r.Post("/users/{id}/block", cfg.RelationshipHandler.Block)
		r.Delete("/users/{id}/block", cfg.RelationshipHandler.Unblock)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", cfg.TicketHandler.Create)
			r.Get("/{id}", cfg.TicketHandler.Get)
			r.Put("/{id}", cfg.TicketHandler.Update)
			r.Delete("/{id}", cfg.TicketHandler.Delete)
			r.Post("/{id}/reviews", cfg.ReviewHandler.CreateForTicket)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", cfg.ReviewHandler.CreateWithTicket)
			r.Get("/{id}", cfg.ReviewHandler.Get)
			r.Put("/{id}", cfg.ReviewHandler.Update)
			r.Delete("/{id}", cfg.ReviewHandler.Delete)
		})
	})

	return r
}
