package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/auth"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
)

var ErrInvalidCreds = fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)

type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=150,excludesall= @"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	Role        string `json:"role" validate:"omitempty,oneof=creator backer"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	revoked  *repository.RevokedTokenRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, revoked *repository.RevokedTokenRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, revoked: revoked}
}

func (s *AuthService) issue(u *models.User) (*Tokens, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &Tokens{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *Tokens, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		verr := domain.NewValidationError()
		addValidatorErrors(verr, err)
		return nil, nil, verr
	}
	exists, err := s.userRepo.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: username or email already registered", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleBacker
	}
	u := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		DisplayName:  in.DisplayName,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return u, nil, err
	}
	return u, tokens, nil
}

// Login accepts either the username or the email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*models.User, *Tokens, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, nil, domain.ErrMissingParameters
	}
	u, err := s.userRepo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCreds
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCreds
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	rt, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	revoked, err := s.revoked.IsRevoked(ctx, rt.ID)
	if err != nil {
		return nil, fmt.Errorf("check refresh token: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token has been revoked", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return s.issue(u)
}

// Logout blacklists the caller's refresh token. A token that does not parse, or that belongs
// to another user, is a validation error.
func (s *AuthService) Logout(ctx context.Context, userID uint, refreshToken string) error {
	if refreshToken == "" {
		verr := domain.NewValidationError()
		verr.Add("refresh", "This field is required.")
		return verr
	}
	rt, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil || rt.UserID != userID {
		verr := domain.NewValidationError()
		verr.Add("refresh", "Token is invalid or expired.")
		return verr
	}
	err = s.revoked.Revoke(ctx, &models.RevokedToken{TokenID: rt.ID, UserID: rt.UserID, ExpiresAt: rt.ExpiresAt})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// PurgeRevoked forgets blacklisted tokens that have expired on their own.
func (s *AuthService) PurgeRevoked(ctx context.Context) error {
	n, err := s.revoked.PurgeExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	logger.Debugf("[auth] purged %d expired revoked tokens", n)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
