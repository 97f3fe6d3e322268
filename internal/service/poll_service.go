package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"
	"social_chat_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PollService struct {
	PollRepo    *repository.PollRepository
	GroupRepo   *repository.GroupRepository
	MessageRepo *repository.MessageRepository
	Summary     *SummaryService
	MessageSvc  *MessageService
	BotID       uint
}

func NewPollService(pollRepo *repository.PollRepository, groupRepo *repository.GroupRepository, messageRepo *repository.MessageRepository, summary *SummaryService, messageSvc *MessageService, botID uint) *PollService {
	return &PollService{
		PollRepo:    pollRepo,
		GroupRepo:   groupRepo,
		MessageRepo: messageRepo,
		Summary:     summary,
		MessageSvc:  messageSvc,
		BotID:       botID,
	}
}

// 选项标签：大写字母 + 右括号，如 "A) 周六 B) 周日"；
// 选项文本取两个标签之间的内容
var optionLabelPattern = regexp.MustCompile(`[A-Z]\)`)

// ParsePollContent 纯函数：从自由文本中解析出问题与选项。
// 问题以第一个问号（中英文均可）结尾，其后的剩余部分按字母标号切出选项
func ParsePollContent(content string) (question string, options []string, err error) {
	content = strings.TrimSpace(content)
	idx := strings.IndexAny(content, "?？")
	if idx < 0 {
		return "", nil, util.ErrPollParseFailed
	}
	// IndexAny 返回字节偏移，中文问号占 3 字节
	width := 1
	if content[idx] != '?' {
		width = len("？")
	}
	question = strings.TrimSpace(content[:idx+width])
	rest := strings.TrimSpace(content[idx+width:])
	if question == "" || rest == "" {
		return "", nil, util.ErrPollParseFailed
	}

	labels := optionLabelPattern.FindAllStringIndex(rest, -1)
	for i, label := range labels {
		end := len(rest)
		if i+1 < len(labels) {
			end = labels[i+1][0]
		}
		if text := strings.TrimSpace(rest[label[1]:end]); text != "" {
			options = append(options, text)
		}
	}
	if len(options) < 2 {
		return "", nil, util.ErrOptionsTooFew
	}
	return question, options, nil
}

// CreateFromWebhook 从外部文本创建投票
// 解析成功后在同一事务内写入 poll 类型消息、投票与全部选项
func (s *PollService) CreateFromWebhook(creatorID uint, groupID, content string) (*model.Message, error) {
	if _, err := s.GroupRepo.GetGroup(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrGroupNotFound
		}
		return nil, err
	}
	if _, err := s.GroupRepo.GetMember(groupID, creatorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotGroupMember
		}
		return nil, err
	}

	question, optionTexts, err := ParsePollContent(content)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		SenderID: creatorID,
		Content:  question,
		Type:     model.MessagePoll,
		GroupID:  &groupID,
	}
	poll := &model.Poll{
		Question:  question,
		GroupID:   groupID,
		CreatedBy: creatorID,
		Status:    model.PollActive,
	}
	options := make([]model.PollOption, 0, len(optionTexts))
	for i, text := range optionTexts {
		options = append(options, model.PollOption{OptionText: text, OptionOrder: i})
	}

	if err := s.PollRepo.CreateWithOptions(msg, poll, options); err != nil {
		return nil, err
	}
	return s.MessageRepo.GetByID(msg.ID)
}

// RecordResponse 记录/覆盖一次投票
// (poll, user) 唯一，重复投票更新为新选项；仅群成员可投，且投票须处于 active
func (s *PollService) RecordResponse(pollID string, userID uint, optionID string) (*model.Poll, error) {
	poll, err := s.PollRepo.GetWithOptions(pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPollNotFound
		}
		return nil, err
	}
	if poll.Status != model.PollActive {
		return nil, util.ErrPollNotFound
	}

	if _, err := s.GroupRepo.GetMember(poll.GroupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotPollMember
		}
		return nil, err
	}

	valid := false
	for _, o := range poll.Options {
		if o.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, util.ErrInvalidOption
	}

	resp := &model.PollResponse{PollID: pollID, UserID: userID, OptionID: optionID}
	if err := s.PollRepo.UpsertResponse(resp); err != nil {
		return nil, err
	}
	return s.PollRepo.GetFull(pollID)
}

// Finalize 结算投票
// 结算权限：群管理员，或全部群成员都已投票时的任意群成员。
// 状态翻转走条件更新，并发结算只有一个成功，其余幂等返回已完成的投票
func (s *PollService) Finalize(ctx context.Context, pollID string, userID uint) (*model.Poll, *model.Message, error) {
	poll, err := s.PollRepo.GetFull(pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrPollNotFound
		}
		return nil, nil, err
	}

	// 已完成的投票直接返回，保证 finalize 幂等
	if poll.Status == model.PollCompleted {
		return poll, nil, nil
	}

	group, err := s.GroupRepo.GetGroup(poll.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrGroupNotFound
		}
		return nil, nil, err
	}
	if _, err := s.GroupRepo.GetMember(poll.GroupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrNotPollMember
		}
		return nil, nil, err
	}

	memberCount, err := s.GroupRepo.CountMembers(poll.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != userID {
		responders, err := s.PollRepo.CountDistinctResponders(pollID)
		if err != nil {
			return nil, nil, err
		}
		if responders < memberCount {
			return nil, nil, util.ErrFinalizeDenied
		}
	}

	tallies, totalVoters := TallyPoll(poll)
	summary := s.buildSummary(ctx, poll.Question, tallies, totalVoters, int(memberCount))

	completedAt := time.Now()
	changed, err := s.PollRepo.Complete(pollID, summary, completedAt)
	if err != nil {
		return nil, nil, err
	}

	poll, err = s.PollRepo.GetFull(pollID)
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		// 并发结算被别人抢先，返回对方写入的结果
		return poll, nil, nil
	}

	// 机器人播报为尽力而为，失败不回滚结算
	var botMsg *model.Message
	if s.BotID != 0 {
		botMsg, err = s.MessageSvc.CreateSystemMessage(s.BotID, poll.GroupID, summary)
		if err != nil {
			logger.Log.Warn("failed to post poll summary message",
				zap.String("pollId", pollID),
				zap.Error(err))
			botMsg = nil
		}
	}
	return poll, botMsg, nil
}

func (s *PollService) buildSummary(ctx context.Context, question string, tallies []OptionTally, totalVoters, totalMembers int) string {
	if s.Summary != nil && s.Summary.Enabled() {
		summary, err := s.Summary.Summarize(ctx, question, tallies, totalVoters, totalMembers)
		if err == nil {
			return summary
		}
		logger.Log.Warn("summarizer unavailable, using fallback summary", zap.Error(err))
	}
	return FallbackSummary(question, tallies, totalVoters, totalMembers)
}

// GetPoll 查询投票详情，仅群成员可见
func (s *PollService) GetPoll(pollID string, viewerID uint) (*model.Poll, error) {
	poll, err := s.PollRepo.GetFull(pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPollNotFound
		}
		return nil, err
	}
	if _, err := s.GroupRepo.GetMember(poll.GroupID, viewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotPollMember
		}
		return nil, err
	}
	return poll, nil
}
