package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"telescreen-backend/internal/middleware"
	"telescreen-backend/internal/models"
	"telescreen-backend/internal/repository"
)

const refreshTokenTTL = 30 * 24 * time.Hour

type AuthService struct {
	accounts *repository.AccountRepo
	redis    *redis.Client
	jwt      *middleware.JWTAuth
}

func NewAuthService(accounts *repository.AccountRepo, redisClient *redis.Client, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{
		accounts: accounts,
		redis:    redisClient,
		jwt:      jwt,
	}
}

// Login verifies credentials and issues tokens. Agents send their machine
// name so admin views can show which workstation an identity reports from.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, *models.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	if !account.IsActive {
		return nil, nil, &ForbiddenError{Message: "Account is deactivated"}
	}

	now := time.Now()
	s.accounts.SetLastLogin(ctx, account.ID, now)
	if account.Role == models.RoleEmployee {
		s.accounts.SetPCName(ctx, account.ID, req.PCName)
	}

	return s.issueTokens(ctx, account, req.PCName)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, *models.Account, error) {
	accountIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid or expired refresh token"}
	}

	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid account ID in refresh token: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, &UnauthorizedError{Message: "Account no longer exists", ShouldLogout: true}
	}
	if !account.IsActive {
		return nil, nil, &ForbiddenError{Message: "Account is deactivated"}
	}

	// Rotate: old token is single-use.
	s.redis.Del(ctx, "refresh:"+refreshToken)

	pcName := ""
	if account.PCName != nil {
		pcName = *account.PCName
	}
	return s.issueTokens(ctx, account, pcName)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken != "" {
		s.redis.Del(ctx, "refresh:"+refreshToken)
	}
}

func (s *AuthService) issueTokens(ctx context.Context, account *models.Account, pcName string) (*models.AuthTokens, *models.Account, error) {
	access, err := s.jwt.GenerateAccessToken(account.ID, account.Role, pcName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := generateToken(32)
	if err != nil {
		return nil, nil, err
	}
	if err := s.redis.Set(ctx, "refresh:"+refresh, account.ID.String(), refreshTokenTTL).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int((12 * time.Hour).Seconds()),
	}, account, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
