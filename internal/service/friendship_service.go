package service

import (
	"errors"
	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"gorm.io/gorm"
)

type FriendshipService struct {
	FriendRepo *repository.FriendshipRepository
	UserRepo   *repository.UserRepository
}

func NewFriendshipService(friendRepo *repository.FriendshipRepository, userRepo *repository.UserRepository) *FriendshipService {
	return &FriendshipService{
		FriendRepo: friendRepo,
		UserRepo:   userRepo,
	}
}

// SubmitRequest 发起好友申请
// 自我申请、接收人不存在 → 参数错误；任一方向已有 pending 申请或已是好友 → 冲突
func (s *FriendshipService) SubmitRequest(senderID, receiverID uint) (*model.FriendRequest, error) {
	if receiverID == 0 || senderID == receiverID {
		return nil, util.ErrCannotAddSelf
	}

	if _, err := s.UserRepo.FindByID(receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrReceiverNotFound
		}
		return nil, err
	}

	isFriend, err := s.FriendRepo.IsFriend(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if isFriend {
		return nil, util.ErrAlreadyFriends
	}

	pending, err := s.FriendRepo.HasPendingRequest(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, util.ErrRequestExists
	}

	req := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
	}
	if err := s.FriendRepo.CreateRequest(req); err != nil {
		// pending 对唯一索引兜底并发的重复提交
		return nil, util.ErrRequestExists.Wrap(err)
	}
	return req, nil
}

// RespondToRequest 处理好友申请
// accept 时状态更新与好友边插入在同一事务内完成；返回新建的好友边（reject 为 nil）
func (s *FriendshipService) RespondToRequest(requestID string, responderID uint, accept bool) (*model.FriendRequest, *model.Friendship, error) {
	req, err := s.FriendRepo.GetPendingRequestFor(requestID, responderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrRequestNotFound
		}
		return nil, nil, err
	}

	friendship, err := s.FriendRepo.ResolveRequest(req, accept)
	if err != nil {
		return nil, nil, err
	}
	if accept {
		req.Status = model.RequestAccepted
	} else {
		req.Status = model.RequestRejected
	}
	return req, friendship, nil
}

// Classify 纯函数：根据两份读集推导 self 与 other 的关系状态。
// 所有列表/搜索类接口统一调用它，避免各处重复的 ad hoc 比较。
// 好友关系优先于任何申请；否则按申请方向区分已发送/已收到
func Classify(requests []model.FriendRequest, friendships []model.Friendship, selfID, otherID uint) model.RelationshipStatus {
	low, high := model.NormalizePair(selfID, otherID)
	for _, f := range friendships {
		if f.User1ID == low && f.User2ID == high {
			return model.RelationFriends
		}
	}
	for _, r := range requests {
		if r.Status != model.RequestPending {
			continue
		}
		if r.SenderID == selfID && r.ReceiverID == otherID {
			return model.RelationRequestSent
		}
		if r.SenderID == otherID && r.ReceiverID == selfID {
			return model.RelationRequestReceived
		}
	}
	return model.RelationNone
}

// FriendEntry 好友列表项：边 ID + 对端用户
type FriendEntry struct {
	ID        string     `json:"id"`
	Friend    model.User `json:"friend"`
	CreatedAt string     `json:"createdAt"`
}

// ListFriends 取好友列表，把无向边摊平成对端用户视角
func (s *FriendshipService) ListFriends(userID uint) ([]FriendEntry, error) {
	edges, err := s.FriendRepo.GetFriendships(userID)
	if err != nil {
		return nil, err
	}

	entries := make([]FriendEntry, 0, len(edges))
	for _, e := range edges {
		friend := e.User1
		if e.User1ID == userID {
			friend = e.User2
		}
		friend.Password = ""
		entries = append(entries, FriendEntry{
			ID:        e.ID,
			Friend:    friend,
			CreatedAt: e.CreatedAt.Format(util.TimeFormat),
		})
	}
	return entries, nil
}

func (s *FriendshipService) ListRequests(userID uint, limit, offset int) ([]model.FriendRequest, int64, error) {
	return s.FriendRepo.GetRequests(userID, limit, offset)
}

// SearchUsers 模糊搜索用户并附带与当前用户的关系状态
type UserWithRelation struct {
	model.User
	RelationshipStatus model.RelationshipStatus `json:"relationshipStatus"`
}

func (s *FriendshipService) SearchUsers(selfID uint, query string) ([]UserWithRelation, error) {
	if query == "" {
		return []UserWithRelation{}, nil
	}

	users, err := s.UserRepo.Search(selfID, query, 20)
	if err != nil {
		return nil, err
	}

	requests, err := s.FriendRepo.GetAllRequestsForUser(selfID)
	if err != nil {
		return nil, err
	}
	friendships, err := s.FriendRepo.GetFriendships(selfID)
	if err != nil {
		return nil, err
	}

	result := make([]UserWithRelation, 0, len(users))
	for _, u := range users {
		result = append(result, UserWithRelation{
			User:               u,
			RelationshipStatus: Classify(requests, friendships, selfID, u.ID),
		})
	}
	return result, nil
}

func (s *FriendshipService) IsFriend(userID, otherID uint) (bool, error) {
	return s.FriendRepo.IsFriend(userID, otherID)
}
