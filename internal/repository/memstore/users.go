package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"litrevu/internal/model"
)

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *model.User) error {
	defer r.s.standalone()()

	for _, existing := range r.s.data.users {
		if existing.Username == u.Username {
			return model.ErrUsernameExists
		}
		if sameEmail(existing.Email, u.Email) {
			return model.ErrEmailExists
		}
	}

	r.s.data.userSeq++
	u.ID = r.s.data.userSeq
	u.CreatedAt = r.s.tick()
	u.UpdatedAt = u.CreatedAt
	r.s.data.users[u.ID] = *u
	return nil
}

func (r users) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (r users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r users) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.data.users {
		if sameEmail(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r users) UpdateProfile(_ context.Context, u *model.User) error {
	defer r.s.standalone()()

	stored, ok := r.s.data.users[u.ID]
	if !ok {
		return model.ErrUserNotFound
	}
	stored.Bio = u.Bio
	stored.PhotoURL = u.PhotoURL
	stored.PhotoKey = u.PhotoKey
	stored.UpdatedAt = r.s.tick()
	r.s.data.users[u.ID] = stored

	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r users) Search(_ context.Context, query string, limit int) ([]model.UserSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix := strings.ToLower(query)
	out := []model.UserSummary{}
	for _, u := range r.s.data.users {
		if strings.HasPrefix(strings.ToLower(u.Username), prefix) {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type refreshTokens struct{ s *Store }

func (r refreshTokens) Create(_ context.Context, token *model.RefreshToken) error {
	defer r.s.standalone()()

	if _, ok := r.s.data.users[token.UserID]; !ok {
		return model.ErrUserNotFound
	}
	for _, existing := range r.s.data.tokens {
		if existing.TokenHash == token.TokenHash {
			return model.ErrAlreadyExists
		}
	}

	token.ID = uuid.NewString()
	token.CreatedAt = r.s.tick()
	r.s.data.tokens[token.ID] = *token
	return nil
}

func (r refreshTokens) FindByTokenHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.data.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (r refreshTokens) Revoke(_ context.Context, id string, replacedBy *string) error {
	defer r.s.standalone()()

	t, ok := r.s.data.tokens[id]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := r.s.now().UTC()
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
	r.s.data.tokens[id] = t
	return nil
}

func (r refreshTokens) RevokeAllForUser(_ context.Context, userID int64) error {
	defer r.s.standalone()()

	now := r.s.now().UTC()
	for id, t := range r.s.data.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.data.tokens[id] = t
		}
	}
	return nil
}

func (r refreshTokens) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	defer r.s.standalone()()

	cutoff := r.s.now().Add(-olderThan)
	var n int64
	for id, t := range r.s.data.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.s.data.tokens, id)
			n++
		}
	}
	return n, nil
}
