package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"postify/internal/config"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/repository"
)

var (
	ErrAccessTokenExpired = errors.New("access token expired")
	ErrAccessTokenInvalid = errors.New("access token invalid")
)

// AccessClaims is the payload of an access JWT.
type AccessClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService issues access tokens and rotates refresh tokens with reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	log              *slog.Logger
	now              func() time.Time
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config, log *slog.Logger) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		log:              log.With(slog.String("component", "auth_service")),
		now:              time.Now,
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	pair, _, err := s.issue(ctx, userID, deviceInfo, ipAddress)
	return pair, err
}

func (s *AuthService) issue(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, *model.RefreshToken, error) {
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
	if deviceInfo != "" {
		refreshToken.DeviceInfo = &deviceInfo
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

// RefreshTokens exchanges a valid refresh token for a new pair.
// Presenting an already rotated token revokes every session of its user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, 0, model.ErrRefreshTokenNotFound
		}
		return nil, 0, err
	}

	if token.IsRevoked() {
		s.revokeTokenFamily(ctx, token.UserID)
		return nil, 0, model.ErrRefreshTokenReused
	}

	if token.IsExpired(s.now()) {
		return nil, 0, model.ErrRefreshTokenExpired
	}

	pair, newToken, err := s.issue(ctx, token.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, 0, err
	}

	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, &newToken.ID); err != nil {
		if errors.Is(err, model.ErrRefreshTokenReused) {
			// Lost a race with another rotation of the same token.
			s.revokeTokenFamily(ctx, token.UserID)
			return nil, 0, model.ErrRefreshTokenReused
		}
		return nil, 0, fmt.Errorf("failed to revoke rotated token: %w", err)
	}

	return pair, token.UserID, nil
}

// RevokeRefreshToken ends one session. Unknown or already revoked tokens are not an error.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	err = s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
	if errors.Is(err, model.ErrRefreshTokenReused) {
		return nil
	}
	return err
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpired deletes refresh tokens that expired more than grace ago.
func (s *AuthService) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, grace)
}

// ParseAccessToken validates an access JWT and returns its user id.
func (s *AuthService) ParseAccessToken(tokenString string) (int64, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrAccessTokenExpired
		}
		return 0, ErrAccessTokenInvalid
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, ErrAccessTokenInvalid
	}
	return claims.UserID, nil
}

func (s *AuthService) revokeTokenFamily(ctx context.Context, userID int64) {
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Error("failed to revoke token family", slog.Int64("user_id", userID), sl.Err(err))
		return
	}
	s.log.Warn("refresh token reuse detected, all sessions revoked", slog.Int64("user_id", userID))
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	now := s.now()
	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
