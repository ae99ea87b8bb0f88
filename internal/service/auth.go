package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"litrevu/internal/config"
	"litrevu/internal/logger"
	"litrevu/internal/model"
	"litrevu/internal/repository"
)

// AuthService issues access tokens and rotates refresh tokens with reuse
// detection: presenting a revoked refresh token revokes every session of
// its owner.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	now              func() time.Time
	log              *zap.Logger
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		now:              time.Now,
		log:              logger.Named("auth"),
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, userAgent, ipAddress string) (*model.TokenPair, error) {
	pair, _, err := s.issue(ctx, userID, userAgent, ipAddress)
	return pair, err
}

func (s *AuthService) issue(ctx context.Context, userID int64, userAgent, ipAddress string) (*model.TokenPair, *model.RefreshToken, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.New().String()
	refreshToken := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: s.now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if userAgent != "" {
		refreshToken.UserAgent = &userAgent
	}
	if ipAddress != "" {
		refreshToken.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, refreshToken, nil
}

// RefreshTokens validates the refresh token and rotates a new pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, userAgent, ipAddress string) (*model.TokenPair, int64, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, 0, model.ErrRefreshTokenNotFound
		}
		return nil, 0, err
	}

	if token.IsRevoked() {
		s.log.Warn("refresh token reuse detected, revoking all sessions",
			zap.Int64("user_id", token.UserID),
			zap.String("token_id", token.ID),
		)
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
			s.log.Error("failed to revoke token family", zap.Int64("user_id", token.UserID), zap.Error(err))
		}
		return nil, 0, model.ErrRefreshTokenReused
	}

	if token.IsExpired(s.now()) {
		return nil, 0, model.ErrRefreshTokenExpired
	}

	newPair, newToken, err := s.issue(ctx, token.UserID, userAgent, ipAddress)
	if err != nil {
		return nil, 0, err
	}

	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, &newToken.ID); err != nil {
		s.log.Error("failed to revoke rotated refresh token", zap.String("token_id", token.ID), zap.Error(err))
	}

	return newPair, token.UserID, nil
}

// RevokeRefreshToken ends one session (logout).
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpired deletes refresh tokens that expired more than grace ago.
func (s *AuthService) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, grace)
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
