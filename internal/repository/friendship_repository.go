package repository

import (
	"context"
	"fmt"
	"social_chat_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type FriendshipRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewFriendshipRepository(db *gorm.DB, rdb *redis.Client) *FriendshipRepository {
	return &FriendshipRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func (r *FriendshipRepository) IsFriend(userID, otherID uint) (bool, error) {
	low, high := model.NormalizePair(userID, otherID)
	var count int64
	err := r.DB.Model(&model.Friendship{}).
		Where("user1_id = ? AND user2_id = ?", low, high).
		Count(&count).Error
	return count > 0, err
}

// HasPendingRequest 双向检查同一对用户之间是否存在待处理申请
func (r *FriendshipRepository) HasPendingRequest(userID, otherID uint) (bool, error) {
	low, high := model.NormalizePair(userID, otherID)
	var count int64
	err := r.DB.Model(&model.FriendRequest{}).
		Where("pair_low = ? AND pair_high = ? AND status = ?", low, high, model.RequestPending).
		Count(&count).Error
	return count > 0, err
}

func (r *FriendshipRepository) CreateRequest(req *model.FriendRequest) error {
	low, high := model.NormalizePair(req.SenderID, req.ReceiverID)
	req.PairLow = &low
	req.PairHigh = &high
	req.Status = model.RequestPending
	return r.DB.Create(req).Error
}

// GetPendingRequestFor 按 ID 取出发给指定接收者的待处理申请
func (r *FriendshipRepository) GetPendingRequestFor(id string, receiverID uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.Where("id = ? AND receiver_id = ? AND status = ?", id, receiverID, model.RequestPending).
		First(&req).Error
	return &req, err
}

// ResolveRequest 处理申请：更新状态、清除 pending 对唯一性占位，
// accept 时在同一事务内插入好友边——两者要么都生效要么都不生效
func (r *FriendshipRepository) ResolveRequest(req *model.FriendRequest, accept bool) (*model.Friendship, error) {
	status := model.RequestRejected
	if accept {
		status = model.RequestAccepted
	}

	var friendship *model.Friendship
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.FriendRequest{}).
			Where("id = ?", req.ID).
			Updates(map[string]interface{}{
				"status":    status,
				"pair_low":  nil,
				"pair_high": nil,
			}).Error; err != nil {
			return err
		}

		if accept {
			low, high := model.NormalizePair(req.SenderID, req.ReceiverID)
			friendship = &model.Friendship{User1ID: low, User2ID: high}
			return tx.Create(friendship).Error
		}
		return nil
	})

	if err == nil && accept && r.Redis != nil {
		// 清除关系缓存
		r.Redis.Del(r.ctx, fmt.Sprintf("chat:relation:friends:%d", req.SenderID))
		r.Redis.Del(r.ctx, fmt.Sprintf("chat:relation:friends:%d", req.ReceiverID))
	}
	return friendship, err
}

// GetFriendships 取用户的所有好友边，带两端用户信息
func (r *FriendshipRepository) GetFriendships(userID uint) ([]model.Friendship, error) {
	var edges []model.Friendship
	err := r.DB.Preload("User1").Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

func (r *FriendshipRepository) GetFriendIDs(userID uint) ([]uint, error) {
	var ids []uint
	rows, err := r.DB.Model(&model.Friendship{}).
		Select("user1_id, user2_id").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b uint
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		if a == userID {
			ids = append(ids, b)
		} else {
			ids = append(ids, a)
		}
	}
	return ids, rows.Err()
}

// GetFriendIDsCached 获取好友 ID 列表 (带缓存)
func (r *FriendshipRepository) GetFriendIDsCached(userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.GetFriendIDs(userID)
	}

	key := fmt.Sprintf("chat:relation:friends:%d", userID)
	cached, err := r.Redis.SMembers(r.ctx, key).Result()
	if err == nil && len(cached) > 0 {
		var ids []uint
		for _, s := range cached {
			var id uint
			fmt.Sscanf(s, "%d", &id)
			if id > 0 {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	// 缓存失效，回源数据库
	ids, err := r.GetFriendIDs(userID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, 24*time.Hour)
		pipe.Exec(r.ctx)
	} else if err == nil {
		// 防止缓存穿透：存一个占位值并设置短过期时间
		r.Redis.SAdd(r.ctx, key, 0)
		r.Redis.Expire(r.ctx, key, 5*time.Minute)
	}
	return ids, err
}

// GetRequests 取用户相关的好友申请（收到的与发出的），按时间倒序
func (r *FriendshipRepository) GetRequests(userID uint, limit, offset int) ([]model.FriendRequest, int64, error) {
	var reqs []model.FriendRequest
	var total int64

	db := r.DB.Model(&model.FriendRequest{}).
		Preload("Sender").Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", userID, userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&reqs).Error

	return reqs, total, err
}

// GetAllRequestsForUser 取用户参与的全部申请，供关系分类使用
func (r *FriendshipRepository) GetAllRequestsForUser(userID uint) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := r.DB.Where("sender_id = ? OR receiver_id = ?", userID, userID).Find(&reqs).Error
	return reqs, err
}
