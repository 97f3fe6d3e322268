package repository

import (
	"context"
	"fmt"
	"social_chat_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type GroupRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewGroupRepository(db *gorm.DB, rdb *redis.Client) *GroupRepository {
	return &GroupRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

// CreateWithAdmin 在一个事务内创建群组和创建者的管理员成员行
func (r *GroupRepository) CreateWithAdmin(group *model.Group) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		admin := &model.GroupMember{
			GroupID: group.ID,
			UserID:  group.AdminID,
			Role:    model.RoleAdmin,
		}
		return tx.Create(admin).Error
	})
}

func (r *GroupRepository) GetGroup(id string) (*model.Group, error) {
	var group model.Group
	err := r.DB.First(&group, "id = ?", id).Error
	return &group, err
}

func (r *GroupRepository) GetMember(groupID string, userID uint) (*model.GroupMember, error) {
	var member model.GroupMember
	err := r.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	return &member, err
}

// GetMembers 按加入时间升序取全部成员
func (r *GroupRepository) GetMembers(groupID string) ([]model.GroupMember, error) {
	var members []model.GroupMember
	err := r.DB.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *GroupRepository) GetMemberIDs(groupID string) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *GroupRepository) CountMembers(groupID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

func (r *GroupRepository) AddMember(member *model.GroupMember) error {
	err := r.DB.Create(member).Error
	if err == nil {
		r.invalidateMemberCache(member.GroupID)
	}
	return err
}

// AddMembers 批量插入普通成员
func (r *GroupRepository) AddMembers(groupID string, userIDs []uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range userIDs {
			member := &model.GroupMember{
				GroupID: groupID,
				UserID:  id,
				Role:    model.RoleMember,
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		r.invalidateMemberCache(groupID)
	}
	return err
}

// RemoveMember 仅移除普通成员
func (r *GroupRepository) RemoveMember(groupID string, userID uint) error {
	err := r.DB.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{}).Error
	if err == nil {
		r.invalidateMemberCache(groupID)
	}
	return err
}

// RemoveAdminWithSuccession 管理员退群：在一个事务内提升继任者并移除原管理员。
// 继任者由调用方按确定性规则（最早加入）选出
func (r *GroupRepository) RemoveAdminWithSuccession(groupID string, leavingID, successorID uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, successorID).
			Update("role", model.RoleAdmin).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Group{}).
			Where("id = ?", groupID).
			Update("admin_id", successorID).Error; err != nil {
			return err
		}
		return tx.Where("group_id = ? AND user_id = ?", groupID, leavingID).
			Delete(&model.GroupMember{}).Error
	})
	if err == nil {
		r.invalidateMemberCache(groupID)
	}
	return err
}

// DeleteGroupCascade 删除群组及其全部成员行（最后一名成员退群时）
func (r *GroupRepository) DeleteGroupCascade(groupID string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", groupID).Delete(&model.Group{}).Error
	})
	if err == nil {
		r.invalidateMemberCache(groupID)
	}
	return err
}

// ListGroupsForUser 取用户所属的全部群组，带管理员和成员信息
func (r *GroupRepository) ListGroupsForUser(userID uint) ([]model.Group, error) {
	var groupIDs []string
	if err := r.DB.Model(&model.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return []model.Group{}, nil
	}

	var groups []model.Group
	err := r.DB.Preload("Admin").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_members.joined_at ASC")
		}).
		Preload("Members.User").
		Where("id IN ?", groupIDs).
		Order("updated_at DESC").
		Find(&groups).Error
	return groups, err
}

// GetMemberIDsCached 群成员 ID 列表 (带缓存)，供实时层查在线关联用户
func (r *GroupRepository) GetMemberIDsCached(groupID string) ([]uint, error) {
	if r.Redis == nil {
		return r.GetMemberIDs(groupID)
	}

	key := fmt.Sprintf("chat:relation:members:%s", groupID)
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

	ids, err := r.GetMemberIDs(groupID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, 24*time.Hour)
		pipe.Exec(r.ctx)
	}
	return ids, err
}

func (r *GroupRepository) invalidateMemberCache(groupID string) {
	if r.Redis != nil {
		r.Redis.Del(r.ctx, fmt.Sprintf("chat:relation:members:%s", groupID))
	}
}
