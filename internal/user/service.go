package user

import (
	"context"
	"errors"

	"github.com/Believetim-cloud/SkyRiff/internal/auth"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	repo      Store
	ledger    wallet.Ledger
	jwtSecret string
}

func NewService(repo Store, ledger wallet.Ledger, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		jwtSecret: jwtSecret,
	}
}

// Register creates the user and bootstraps the three wallets. Wallet
// creation is idempotent, so a retry after a partial failure is safe.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	u, err := s.repo.Create(ctx, req.Nickname, req.Email, passwordHash, RoleMember)
	if err != nil {
		return nil, "", "", err
	}

	if err := s.ledger.CreateWallets(ctx, u.UserID); err != nil {
		return nil, "", "", err
	}

	accessToken, refreshToken, err := auth.GenerateTokens(u.UserID, u.Role, s.jwtSecret, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	logger.Infof("User %d registered", u.UserID)
	return u, accessToken, refreshToken, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	u, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.GenerateTokens(u.UserID, u.Role, s.jwtSecret, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return u, accessToken, refreshToken, nil
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	_, claims, err := auth.RefreshAccessToken(refreshToken, s.jwtSecret, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, ErrNotFound
	}

	newAccessToken, err := auth.GenerateAccessToken(u.UserID, u.Role, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return newAccessToken, u, nil
}
