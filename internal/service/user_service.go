package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
	}
}

func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// UpdateProfile 更新昵称/头像链接，空字段保持原值
func (s *UserService) UpdateProfile(userID uint, displayName, avatarURL string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	if displayName != "" {
		user.DisplayName = displayName
	}
	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// UploadAvatar 上传头像并更新用户资料
// 仅接受图片扩展名，文件名用 UUID 重写避免覆盖与路径注入
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, originalName string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	allowed := false
	for _, e := range util.AllowedAvatarExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", util.NewError(util.KindValidation, "不支持的图片格式")
	}
	if contentType == "" || contentType == util.MimeOctetStream {
		contentType = util.MimeImage + strings.TrimPrefix(ext, ".")
	}

	filename := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.New().String(), ext)
	url, err := s.Storage.Upload(ctx, filename, reader, size, contentType)
	if err != nil {
		return "", err
	}

	if _, err := s.UpdateProfile(userID, "", url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *UserService) UpdateStatus(userID uint, status model.UserStatus) error {
	switch status {
	case model.StatusOnline, model.StatusOffline, model.StatusAway:
		return s.UserRepo.UpdateStatus(userID, status)
	default:
		return util.NewError(util.KindValidation, "无效的状态值")
	}
}
