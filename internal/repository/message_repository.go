package repository

import (
	"social_chat_backend/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) Create(msg *model.Message) error {
	return r.DB.Create(msg).Error
}

// withHydration 消息列表的统一预加载：发送者、接收者，
// 以及投票消息的嵌套投票/选项/响应（一次联合读取，避免 N+1）
func (r *MessageRepository) withHydration(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sender").
		Preload("Receiver").
		Preload("Poll").
		Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("poll_options.option_order ASC")
		}).
		Preload("Poll.Responses").
		Preload("Poll.Responses.User").
		Preload("Poll.Responses.Option")
}

// ListGroupMessages 按创建时间倒序取一页群消息
func (r *MessageRepository) ListGroupMessages(groupID string, limit, offset int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.withHydration(r.DB).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

// ListDirectMessages 取双方之间的私聊消息页（两个方向）
func (r *MessageRepository) ListDirectMessages(userID, otherID uint, limit, offset int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.withHydration(r.DB).
		Where("group_id IS NULL").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

func (r *MessageRepository) GetByID(id string) (*model.Message, error) {
	var msg model.Message
	err := r.withHydration(r.DB).First(&msg, "id = ?", id).Error
	return &msg, err
}
