package service

import (
	"errors"
	"fmt"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"gorm.io/gorm"
)

type GroupService struct {
	GroupRepo  *repository.GroupRepository
	FriendRepo *repository.FriendshipRepository
	UserRepo   *repository.UserRepository
}

func NewGroupService(groupRepo *repository.GroupRepository, friendRepo *repository.FriendshipRepository, userRepo *repository.UserRepository) *GroupService {
	return &GroupService{
		GroupRepo:  groupRepo,
		FriendRepo: friendRepo,
		UserRepo:   userRepo,
	}
}

// CreateGroup 创建群组，创建者自动成为管理员成员
func (s *GroupService) CreateGroup(creatorID uint, name, description string, isPublic bool) (*model.Group, error) {
	if name == "" {
		return nil, util.ErrGroupNameNeeded
	}
	group := &model.Group{
		Name:        name,
		Description: description,
		AdminID:     creatorID,
		IsPublic:    isPublic,
	}
	if err := s.GroupRepo.CreateWithAdmin(group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) getGroup(groupID string) (*model.Group, error) {
	group, err := s.GroupRepo.GetGroup(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

// JoinGroup 自助加入公开群组
func (s *GroupService) JoinGroup(groupID string, userID uint) (*model.Group, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsPublic {
		return nil, util.ErrGroupPrivate
	}

	if _, err := s.GroupRepo.GetMember(groupID, userID); err == nil {
		return nil, util.ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := &model.GroupMember{GroupID: groupID, UserID: userID, Role: model.RoleMember}
	if err := s.GroupRepo.AddMember(member); err != nil {
		// 并发入群撞复合主键时视为已加入
		return nil, util.ErrAlreadyMember.Wrap(err)
	}
	return group, nil
}

// LeaveResult 退群结果：群是否随之删除、继任管理员（如有）
type LeaveResult struct {
	GroupDeleted bool  `json:"groupDeleted"`
	NewAdminID   *uint `json:"newAdminId,omitempty"`
}

// LeaveGroup 退出群组
// 普通成员直接删成员行；管理员退出时提拔最早加入的其他成员为管理员，
// 若没有其他成员则连同消息外的群数据一并删除
func (s *GroupService) LeaveGroup(groupID string, userID uint) (*LeaveResult, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GroupRepo.GetMember(groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotGroupMember
		}
		return nil, err
	}

	if group.AdminID != userID {
		if err := s.GroupRepo.RemoveMember(groupID, userID); err != nil {
			return nil, err
		}
		return &LeaveResult{}, nil
	}

	// 管理员退出：按 joined_at 升序选出第一位非本人成员做继任
	members, err := s.GroupRepo.GetMembers(groupID)
	if err != nil {
		return nil, err
	}
	var successor *model.GroupMember
	for i := range members {
		if members[i].UserID != userID {
			successor = &members[i]
			break
		}
	}

	if successor == nil {
		if err := s.GroupRepo.DeleteGroupCascade(groupID); err != nil {
			return nil, err
		}
		return &LeaveResult{GroupDeleted: true}, nil
	}

	if err := s.GroupRepo.RemoveAdminWithSuccession(groupID, userID, successor.UserID); err != nil {
		return nil, err
	}
	newAdmin := successor.UserID
	return &LeaveResult{NewAdminID: &newAdmin}, nil
}

// AddMembersResult 批量拉人结果，新加入与已在群内的分别上报
type AddMembersResult struct {
	Added          []uint `json:"added"`
	AlreadyMembers []uint `json:"alreadyMembers"`
}

// AddMembers 管理员批量邀请好友入群
// 名单中出现任何非好友则整体失败并列出这些用户；其余按已在群内/新加入划分
func (s *GroupService) AddMembers(groupID string, inviterID uint, userIDs []uint) (*AddMembersResult, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if group.AdminID != inviterID {
		return nil, util.ErrNotGroupAdmin
	}

	friendIDs, err := s.FriendRepo.GetFriendIDsCached(inviterID)
	if err != nil {
		return nil, err
	}
	friendSet := make(map[uint]bool, len(friendIDs))
	for _, id := range friendIDs {
		friendSet[id] = true
	}

	memberIDs, err := s.GroupRepo.GetMemberIDs(groupID)
	if err != nil {
		return nil, err
	}
	memberSet := make(map[uint]bool, len(memberIDs))
	for _, id := range memberIDs {
		memberSet[id] = true
	}

	var targets []uint
	var nonFriends []uint
	seen := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || id == inviterID || seen[id] {
			continue
		}
		seen[id] = true
		if !friendSet[id] {
			nonFriends = append(nonFriends, id)
			continue
		}
		targets = append(targets, id)
	}
	if len(nonFriends) > 0 {
		return nil, util.NewError(util.KindConflict, fmt.Sprintf("只能邀请好友加入群组，非好友用户: %v", nonFriends))
	}

	result := &AddMembersResult{
		Added:          []uint{},
		AlreadyMembers: []uint{},
	}
	var toAdd []uint
	for _, id := range targets {
		if memberSet[id] {
			result.AlreadyMembers = append(result.AlreadyMembers, id)
			continue
		}
		toAdd = append(toAdd, id)
	}

	if len(toAdd) > 0 {
		if err := s.GroupRepo.AddMembers(groupID, toAdd); err != nil {
			return nil, err
		}
		result.Added = toAdd
	}
	return result, nil
}

// GetMembers 群成员列表，仅群成员可见
func (s *GroupService) GetMembers(groupID string, viewerID uint) ([]model.GroupMember, error) {
	if _, err := s.getGroup(groupID); err != nil {
		return nil, err
	}
	if _, err := s.GroupRepo.GetMember(groupID, viewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMemberOnly
		}
		return nil, err
	}
	members, err := s.GroupRepo.GetMembers(groupID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].User.Password = ""
	}
	return members, nil
}

func (s *GroupService) ListGroups(userID uint) ([]model.Group, error) {
	return s.GroupRepo.ListGroupsForUser(userID)
}

// IsMember 供消息/投票服务做群成员校验
func (s *GroupService) IsMember(groupID string, userID uint) (bool, error) {
	ids, err := s.GroupRepo.GetMemberIDsCached(groupID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
