package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
	"litrevu/internal/validation"
)

type RelationshipHandler struct {
	relationships *service.RelationshipService
}

func NewRelationshipHandler(relationships *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

// Overview lists who the caller follows, their followers, and both block
// lists.
// GET /follows
func (h *RelationshipHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	overview, err := h.relationships.Overview(r.Context(), userID)
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, overview)
}

// Follow subscribes the caller to the user named in the body.
// POST /follows
func (h *RelationshipHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	var req model.FollowRequest
	_, err := readForm(w, r, &req, "", func(form url.Values) error {
		req.Username = form.Get("username")
		return nil
	})
	defer closeForm(r, nil)
	if err != nil {
		httputil.WriteBadRequest(w, msgInvalidBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.WriteBadRequest(w, "Veuillez indiquer un nom d'utilisateur.")
		return
	}

	followed, err := h.relationships.CreateFollow(r.Context(), followerID, req.Username)
	if err != nil {
		failure{subject: req.Username}.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, fmt.Sprintf("Vous suivez maintenant %s.", followed.Username), map[string]interface{}{
		"user": followed.Summary(),
	})
}

// Unfollow handles DELETE /users/{id}/follow
func (h *RelationshipHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.edge(w, r, h.relationships.RemoveFollow, "Vous ne suivez plus %s.")
}

// Block handles POST /users/{id}/block
func (h *RelationshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.edge(w, r, h.relationships.CreateBlock, "Vous avez bloqué %s.")
}

// Unblock handles DELETE /users/{id}/block
func (h *RelationshipHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.edge(w, r, h.relationships.RemoveBlock, "Vous avez débloqué %s.")
}

type edgeOp func(ctx context.Context, actorID, targetID int64) (*model.User, error)

// edge runs an operation on the relation between the caller and {id}.
func (h *RelationshipHandler) edge(w http.ResponseWriter, r *http.Request, op edgeOp, success string) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}
	targetID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	target, err := op(r.Context(), actorID, targetID)
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf(success, target.Username), map[string]interface{}{
		"user": target.Summary(),
	})
}
