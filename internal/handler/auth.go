package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"litrevu/internal/config"
	"litrevu/internal/httputil"
	"litrevu/internal/logger"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
	"litrevu/internal/validation"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
	config      *config.Config
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		config:      cfg,
	}
}

// Register handles sign-up with an optional profile photo and logs the new
// user in.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	photo, err := readForm(w, r, &req, "photo", func(form url.Values) error {
		req.Username = form.Get("username")
		req.Email = form.Get("email")
		req.Password = form.Get("password")
		req.PasswordConfirm = form.Get("password_confirm")
		req.Bio = form.Get("bio")
		return nil
	})
	defer closeForm(r, photo)
	fail := failure{invalid: msgInvalidProfile}
	if err != nil {
		fail.write(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req, photo)
	if err != nil {
		var fieldErr *validation.FieldError
		if errors.As(err, &fieldErr) && fieldErr.Field == "password_confirm" {
			httputil.WriteBadRequest(w, "Les mots de passe ne correspondent pas.")
			return
		}
		fail.write(w, r, err)
		return
	}

	h.startSession(w, r, http.StatusCreated, user, "Votre compte a été créé avec succès!")
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	_, err := readForm(w, r, &req, "", func(form url.Values) error {
		req.Username = form.Get("username")
		req.Password = form.Get("password")
		return nil
	})
	defer closeForm(r, nil)
	if err != nil {
		httputil.WriteBadRequest(w, msgInvalidBody)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Identifiants invalides. Veuillez réessayer.")
			return
		}
		failure{}.write(w, r, err)
		return
	}

	h.startSession(w, r, http.StatusOK, user, "Connexion réussie!")
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *model.User, message string) {
	pair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		failure{}.write(w, r, err)
		return
	}

	h.setAccessCookie(w, pair)
	httputil.WriteJSON(w, status, model.SessionResponse{
		Message:   message,
		User:      user,
		TokenPair: *pair,
	})
}

// Refresh handles token refresh
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, msgInvalidBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.WriteBadRequest(w, "Le jeton de rafraîchissement est requis.")
		return
	}

	pair, _, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Jeton de rafraîchissement invalide.")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Votre session a expiré. Veuillez vous reconnecter.")
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Réutilisation du jeton détectée. Veuillez vous reconnecter.")
		default:
			failure{}.write(w, r, err)
		}
		return
	}

	h.setAccessCookie(w, pair)
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// Logout revokes the presented refresh token, if any, and clears the cookie.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteBadRequest(w, msgInvalidBody)
			return
		}
	}

	if req.RefreshToken != "" {
		err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken)
		if err != nil && !errors.Is(err, model.ErrRefreshTokenNotFound) {
			failure{}.write(w, r, err)
			return
		}
	}

	h.clearAccessCookie(w)
	httputil.WriteMessage(w, http.StatusOK, "Vous avez été déconnecté.", nil)
}

// LogoutAll revokes every refresh token of the caller.
// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		logger.Error("failed to revoke sessions", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteInternalError(w, msgUnexpected)
		return
	}

	h.clearAccessCookie(w)
	httputil.WriteMessage(w, http.StatusOK, "Vous avez été déconnecté de tous vos appareils.", nil)
}

func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, pair *model.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   pair.ExpiresIn,
		Expires:  time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
