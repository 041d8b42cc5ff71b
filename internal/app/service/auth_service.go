package service

import (
	"context"
	"errors"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/common/security"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
)

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, common.Errorf("username, email and password are required: %w", common.ErrBadRequest)
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.Errorf("User already exists with this email: %w", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Errorf("failed to check existing user: %w", err)
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, common.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: &hashed,
		Role:           model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Errorf("User already exists with this email: %w", common.ErrConflict)
		}
		return nil, common.Errorf("failed to create user: %w", err)
	}

	return s.respondWithToken(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.Errorf("Email and password are required: %w", common.ErrBadRequest)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Invalid email or password: %w", common.ErrUnauthorized)
		}
		return nil, common.Errorf("failed to find user: %w", err)
	}

	if user.HashedPassword == nil || !security.CheckPasswordHash(req.Password, *user.HashedPassword) {
		return nil, common.Errorf("Invalid email or password: %w", common.ErrUnauthorized)
	}

	return s.respondWithToken(user)
}

// GoogleSignIn verifies the ID token and finds or creates the matching
// account. Accounts created this way have no password and log in via Google only.
func (s *AuthService) GoogleSignIn(ctx context.Context, req GoogleSignInRequest) (*AuthResponse, error) {
	if req.IDToken == "" {
		return nil, common.Errorf("idToken required: %w", common.ErrBadRequest)
	}

	profile, err := security.VerifyGoogleIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, common.Errorf("invalid Google token: %w", common.ErrUnauthorized)
	}

	user, err := s.userRepo.FindByEmail(ctx, profile.Email)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("failed to find user: %w", err)
		}
		user = &model.User{
			ID:       uuid.NewString(),
			Username: profile.Name,
			Email:    profile.Email,
			Role:     model.RoleUser,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, common.Errorf("failed to create user: %w", err)
		}
	}

	return s.respondWithToken(user)
}

func (s *AuthService) respondWithToken(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, common.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = nil
	return &AuthResponse{User: user, Token: token}, nil
}
