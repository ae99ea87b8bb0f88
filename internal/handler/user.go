package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Me returns the currently authenticated user
// GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe changes the caller's bio and profile photo.
// PATCH /me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	var req model.UpdateProfileRequest
	photo, err := readForm(w, r, &req, "photo", func(form url.Values) error {
		if _, set := form["bio"]; set {
			bio := form.Get("bio")
			req.Bio = &bio
		}
		req.RemovePhoto = formBool(form, "remove_photo")
		return nil
	})
	defer closeForm(r, photo)
	fail := failure{invalid: msgInvalidProfile}
	if err != nil {
		fail.write(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req, photo)
	if err != nil {
		fail.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Votre profil a été mis à jour.", map[string]interface{}{
		"user": user,
	})
}

// Search finds users by username prefix.
// GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := service.DefaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > service.MaxSearchLimit {
			httputil.WriteBadRequest(w, "Le paramètre limit doit être compris entre 1 et 50.")
			return
		}
		limit = parsed
	}

	users, err := h.userService.Search(r.Context(), query, limit)
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}
