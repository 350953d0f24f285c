package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.JWTConfig
	Now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.JWTConfig) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

// Register 注册普通用户，角色只能由管理员调整
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:     req.Name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.RoleUser,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.Secret, s.Cfg.ExpireTime)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userID", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return &LoginResponse{Token: token, User: user}, nil
}
