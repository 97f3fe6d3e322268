package service

import (
	"errors"
	"strings"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"gorm.io/gorm"
)

type MessageService struct {
	MessageRepo *repository.MessageRepository
	GroupRepo   *repository.GroupRepository
	FriendRepo  *repository.FriendshipRepository
}

func NewMessageService(messageRepo *repository.MessageRepository, groupRepo *repository.GroupRepository, friendRepo *repository.FriendshipRepository) *MessageService {
	return &MessageService{
		MessageRepo: messageRepo,
		GroupRepo:   groupRepo,
		FriendRepo:  friendRepo,
	}
}

// SendMessage 发送文本消息
// groupId 与 receiverId 必须且只能二选一；群聊校验成员身份，私聊校验好友关系
func (s *MessageService) SendMessage(senderID uint, content string, groupID *string, receiverID *uint) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyContent
	}
	hasGroup := groupID != nil && *groupID != ""
	hasReceiver := receiverID != nil && *receiverID != 0
	if hasGroup == hasReceiver {
		return nil, util.ErrTargetRequired
	}

	msg := &model.Message{
		SenderID: senderID,
		Content:  content,
		Type:     model.MessageText,
	}

	if hasGroup {
		if _, err := s.GroupRepo.GetGroup(*groupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrGroupNotFound
			}
			return nil, err
		}
		if _, err := s.GroupRepo.GetMember(*groupID, senderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrNotGroupSender
			}
			return nil, err
		}
		msg.GroupID = groupID
	} else {
		isFriend, err := s.FriendRepo.IsFriend(senderID, *receiverID)
		if err != nil {
			return nil, err
		}
		if !isFriend {
			return nil, util.ErrNotFriends
		}
		msg.ReceiverID = receiverID
	}

	if err := s.MessageRepo.Create(msg); err != nil {
		return nil, err
	}
	return s.MessageRepo.GetByID(msg.ID)
}

// ListMessages 拉取历史消息
// 按 created_at 倒序取最近一页，再反转为升序返回，配合前端从底部渲染
func (s *MessageService) ListMessages(viewerID uint, groupID *string, otherID *uint, limit, offset int) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	hasGroup := groupID != nil && *groupID != ""
	hasOther := otherID != nil && *otherID != 0
	if hasGroup == hasOther {
		return nil, util.ErrTargetRequired
	}

	var (
		msgs []model.Message
		err  error
	)
	if hasGroup {
		if _, memberErr := s.GroupRepo.GetMember(*groupID, viewerID); memberErr != nil {
			if errors.Is(memberErr, gorm.ErrRecordNotFound) {
				return nil, util.ErrMemberOnly
			}
			return nil, memberErr
		}
		msgs, err = s.MessageRepo.ListGroupMessages(*groupID, limit, offset)
	} else {
		msgs, err = s.MessageRepo.ListDirectMessages(viewerID, *otherID, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	for i := range msgs {
		sanitizeMessage(&msgs[i])
	}
	return msgs, nil
}

// CreateSystemMessage 写入系统消息（投票结算播报等），由机器人账号署名
func (s *MessageService) CreateSystemMessage(botID uint, groupID string, content string) (*model.Message, error) {
	msg := &model.Message{
		SenderID: botID,
		Content:  content,
		Type:     model.MessageSystem,
		GroupID:  &groupID,
	}
	if err := s.MessageRepo.Create(msg); err != nil {
		return nil, err
	}
	return s.MessageRepo.GetByID(msg.ID)
}

func sanitizeMessage(m *model.Message) {
	m.Sender.Password = ""
	if m.Receiver != nil {
		m.Receiver.Password = ""
	}
	if m.Poll != nil {
		for i := range m.Poll.Responses {
			m.Poll.Responses[i].User.Password = ""
		}
	}
}
