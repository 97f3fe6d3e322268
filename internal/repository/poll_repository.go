package repository

import (
	"time"

	"social_chat_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PollRepository struct {
	DB *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{DB: db}
}

// CreateWithOptions 在一个事务内创建投票消息、投票和全部选项
func (r *PollRepository) CreateWithOptions(msg *model.Message, poll *model.Poll, options []model.PollOption) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		poll.MessageID = msg.ID
		if err := tx.Create(poll).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].PollID = poll.ID
			if err := tx.Create(&options[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PollRepository) GetWithOptions(id string) (*model.Poll, error) {
	var poll model.Poll
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("poll_options.option_order ASC")
	}).First(&poll, "id = ?", id).Error
	return &poll, err
}

// GetFull 取投票及其选项与全部响应（含投票人信息），供结算聚合使用
func (r *PollRepository) GetFull(id string) (*model.Poll, error) {
	var poll model.Poll
	err := r.DB.
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("poll_options.option_order ASC")
		}).
		Preload("Responses").
		Preload("Responses.User").
		First(&poll, "id = ?", id).Error
	return &poll, err
}

// UpsertResponse (poll_id, user_id) 冲突时覆盖选项——active 期间重复投票即改票
func (r *PollRepository) UpsertResponse(resp *model.PollResponse) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"option_id": resp.OptionID}),
	}).Create(resp).Error
}

func (r *PollRepository) CountDistinctResponders(pollID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.PollResponse{}).
		Where("poll_id = ?", pollID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// Complete 单次原子更新写入完成状态和总结；status 条件保证 active→completed 只发生一次
func (r *PollRepository) Complete(pollID string, summary string, completedAt time.Time) (bool, error) {
	res := r.DB.Model(&model.Poll{}).
		Where("id = ? AND status = ?", pollID, model.PollActive).
		Updates(map[string]interface{}{
			"status":          model.PollCompleted,
			"results_summary": summary,
			"completed_at":    completedAt,
		})
	return res.RowsAffected > 0, res.Error
}
