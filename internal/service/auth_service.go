package service

import (
	"errors"

	"social_chat_backend/internal/config"
	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Config   *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Config:   cfg,
	}
}

// Register 注册新用户，用户名与邮箱均要求唯一
func (s *AuthService) Register(username, displayName, email, password string) (*model.User, string, error) {
	if _, err := s.UserRepo.FindByEmail(email); err == nil {
		return nil, "", util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	if _, err := s.UserRepo.FindByUsername(username); err == nil {
		return nil, "", util.ErrUsernameRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	if displayName == "" {
		displayName = username
	}
	user := &model.User{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		Password:    string(hashed),
		Status:      model.StatusOffline,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, "", err
	}

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}
	user.Password = ""
	return user, token, nil
}

// Login 邮箱 + 密码登录
// 凭证错误统一返回一种错误，不暴露邮箱是否存在
func (s *AuthService) Login(email, password string) (*model.User, string, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", util.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if user.Disabled || user.IsBot {
		return nil, "", util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}
	user.Password = ""
	return user, token, nil
}
