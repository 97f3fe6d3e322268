package repository

import (
	"social_chat_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// UpdateStatus 更新在线状态（online/offline/away）
func (r *UserRepository) UpdateStatus(userID uint, status model.UserStatus) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).Error
}

// Search 按用户名/昵称模糊搜索，排除自己和 bot 账号
func (r *UserRepository) Search(selfID uint, query string, limit int) ([]model.User, error) {
	var users []model.User
	searchTerm := "%" + query + "%"
	err := r.DB.Select("id, username, display_name, avatar_url, status").
		Where("disabled = ? AND is_bot = ?", false, false).
		Where("id <> ?", selfID).
		Where("username LIKE ? OR display_name LIKE ?", searchTerm, searchTerm).
		Limit(limit).
		Find(&users).Error
	return users, err
}
