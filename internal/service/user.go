package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"litrevu/internal/logger"
	"litrevu/internal/model"
	"litrevu/internal/repository"
	"litrevu/internal/validation"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// UserService handles business logic for user operations
type UserService struct {
	repo  repository.UserRepository
	media ImageStore // nil when uploads are not configured
	log   *zap.Logger
}

func NewUserService(repo repository.UserRepository, media ImageStore) *UserService {
	return &UserService{repo: repo, media: media, log: logger.Named("user_service")}
}

// Register creates a new account. The optional profile photo is uploaded
// before the insert and deleted again if the insert fails.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest, photo *ImageInput) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
		Bio:            req.Bio,
	}

	if photo != nil {
		uploaded, err := s.uploadPhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		user.PhotoURL = &uploaded.URL
		user.PhotoKey = &uploaded.Key
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.discard(ctx, user.PhotoKey)
		if errors.Is(err, model.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the bio and the profile photo. A new photo wins over
// RemovePhoto; the replaced object is deleted after the update.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest, photo *ImageInput) (*model.User, error) {
	if req.Bio != nil {
		trimmed := strings.TrimSpace(*req.Bio)
		req.Bio = &trimmed
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldKey := user.PhotoKey
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	switch {
	case photo != nil:
		uploaded, err := s.uploadPhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		user.PhotoURL = &uploaded.URL
		user.PhotoKey = &uploaded.Key
	case req.RemovePhoto:
		user.PhotoURL = nil
		user.PhotoKey = nil
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		if user.PhotoKey != oldKey {
			s.discard(ctx, user.PhotoKey)
		}
		return nil, err
	}

	if oldKey != nil && (user.PhotoKey == nil || *user.PhotoKey != *oldKey) {
		s.discard(ctx, oldKey)
	}
	return user, nil
}

// Search finds users whose username starts with query.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.UserSummary{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.repo.Search(ctx, query, limit)
}

func (s *UserService) uploadPhoto(ctx context.Context, photo *ImageInput) (*model.UploadResult, error) {
	if s.media == nil {
		return nil, model.ErrUploadsDisabled
	}
	uploaded, err := s.media.UploadProfilePhoto(ctx, *photo)
	if err != nil {
		return nil, fmt.Errorf("profile photo: %w", err)
	}
	return uploaded, nil
}

func (s *UserService) discard(ctx context.Context, key *string) {
	if key == nil || s.media == nil {
		return
	}
	if err := s.media.DeleteObject(ctx, *key); err != nil {
		s.log.Warn("failed to delete photo", zap.String("key", *key), zap.Error(err))
	}
}
