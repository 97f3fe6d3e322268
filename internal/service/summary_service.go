package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"social_chat_backend/internal/config"
	"social_chat_backend/internal/model"
)

// OptionTally 单个选项的票数统计，含投票人显示名
type OptionTally struct {
	OptionText string
	Votes      int
	Voters     []string
}

// SummaryService 投票结果总结服务，走 OpenAI 协议的 chat/completions 接口。
// 未配置 APIKey 或调用失败时由调用方回退到 FallbackSummary
type SummaryService struct {
	mu     sync.RWMutex
	config config.SummarizerConfig
	client *http.Client
}

func NewSummaryService(cfg config.SummarizerConfig) *SummaryService {
	return &SummaryService{
		config: cfg,
		client: &http.Client{Timeout: cfg.TimeoutSeconds},
	}
}

func (s *SummaryService) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.APIKey != "" && s.config.BaseURL != ""
}

// UpdateConfig 配置热加载时替换总结服务参数
func (s *SummaryService) UpdateConfig(cfg config.SummarizerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.client = &http.Client{Timeout: cfg.TimeoutSeconds}
}

type summarizerMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type summarizerRequest struct {
	Model       string              `json:"model"`
	Messages    []summarizerMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
}

type summarizerResponse struct {
	Choices []struct {
		Message summarizerMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize 调用模型生成一段简短的结果播报
func (s *SummaryService) Summarize(ctx context.Context, question string, tallies []OptionTally, totalVoters, totalMembers int) (string, error) {
	s.mu.RLock()
	cfg := s.config
	client := s.client
	s.mu.RUnlock()

	var sb strings.Builder
	for _, t := range tallies {
		if len(t.Voters) > 0 {
			fmt.Fprintf(&sb, "- %s: %d 票（%s）\n", t.OptionText, t.Votes, strings.Join(t.Voters, "、"))
		} else {
			fmt.Fprintf(&sb, "- %s: %d 票\n", t.OptionText, t.Votes)
		}
	}

	prompt := fmt.Sprintf(
		"请用一到两句话总结下面这次群投票的结果，语气轻松友好，不要罗列全部数字。\n\n问题：%s\n参与人数：%d/%d\n各选项票数与投票人：\n%s",
		question, totalVoters, totalMembers, sb.String(),
	)

	reqBody := summarizerRequest{
		Model: cfg.Model,
		Messages: []summarizerMessage{
			{Role: "system", Content: "你是一个群聊助手，负责播报投票结果。"},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result summarizerResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("summarizer API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("summarizer returned no content")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// FallbackSummary 纯函数：模型不可用时的确定性兜底文案。
// 报出最高票选项（并列时全部列出）、参与人数与群成员总数
func FallbackSummary(question string, tallies []OptionTally, totalVoters, totalMembers int) string {
	if totalVoters == 0 || len(tallies) == 0 {
		return fmt.Sprintf("投票「%s」已结束，%d 名成员中无人参与。", question, totalMembers)
	}

	maxVotes := 0
	for _, t := range tallies {
		if t.Votes > maxVotes {
			maxVotes = t.Votes
		}
	}
	var winners []string
	for _, t := range tallies {
		if t.Votes == maxVotes {
			winners = append(winners, t.OptionText)
		}
	}
	sort.Strings(winners)

	if len(winners) == 1 {
		return fmt.Sprintf("投票「%s」已结束，%d/%d 人参与，得票最高的是「%s」（%d 票）。",
			question, totalVoters, totalMembers, winners[0], maxVotes)
	}
	return fmt.Sprintf("投票「%s」已结束，%d/%d 人参与，「%s」以 %d 票并列最高。",
		question, totalVoters, totalMembers, strings.Join(winners, "」「"), maxVotes)
}

// TallyPoll 纯函数：从带响应的投票模型统计各选项票数与投票人显示名（保持选项原顺序）
func TallyPoll(poll *model.Poll) ([]OptionTally, int) {
	counts := make(map[string]int, len(poll.Options))
	voters := make(map[string][]string, len(poll.Options))
	for _, r := range poll.Responses {
		counts[r.OptionID]++
		if name := r.User.DisplayName; name != "" {
			voters[r.OptionID] = append(voters[r.OptionID], name)
		}
	}
	tallies := make([]OptionTally, 0, len(poll.Options))
	for _, o := range poll.Options {
		tallies = append(tallies, OptionTally{OptionText: o.OptionText, Votes: counts[o.ID], Voters: voters[o.ID]})
	}
	return tallies, len(poll.Responses)
}
