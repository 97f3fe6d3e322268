package service

import (
	"strings"
	"testing"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/util"
)

func TestParsePollContent(t *testing.T) {
	question, options, err := ParsePollContent("周末去哪玩? A) 爬山 B) 看电影 C) 在家躺着")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if question != "周末去哪玩?" {
		t.Errorf("question = %q", question)
	}
	if len(options) != 3 {
		t.Fatalf("options = %v", options)
	}
	if options[0] != "爬山" || options[1] != "看电影" || options[2] != "在家躺着" {
		t.Errorf("options = %v", options)
	}
}

func TestParsePollContentFullWidthQuestionMark(t *testing.T) {
	question, options, err := ParsePollContent("中午吃什么？ A) 面条 B) 米饭")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if question != "中午吃什么？" {
		t.Errorf("question = %q", question)
	}
	if len(options) != 2 {
		t.Errorf("options = %v", options)
	}
}

func TestParsePollContentOptionWithSpaces(t *testing.T) {
	_, options, err := ParsePollContent("Which movie? A) The Matrix B) Blade Runner")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if options[0] != "The Matrix" || options[1] != "Blade Runner" {
		t.Errorf("options = %v", options)
	}
}

func TestParsePollContentNoQuestionMark(t *testing.T) {
	_, _, err := ParsePollContent("A) 选项一 B) 选项二")
	if err != util.ErrPollParseFailed {
		t.Errorf("err = %v, want ErrPollParseFailed", err)
	}
}

func TestParsePollContentTooFewOptions(t *testing.T) {
	_, _, err := ParsePollContent("去不去? A) 去")
	if err != util.ErrOptionsTooFew {
		t.Errorf("err = %v, want ErrOptionsTooFew", err)
	}
	_, _, err = ParsePollContent("去不去? 没有选项")
	if err != util.ErrOptionsTooFew {
		t.Errorf("err = %v, want ErrOptionsTooFew", err)
	}
}

func TestFallbackSummarySingleWinner(t *testing.T) {
	got := FallbackSummary("去哪玩?", []OptionTally{
		{OptionText: "爬山", Votes: 3},
		{OptionText: "看电影", Votes: 1},
	}, 4, 5)
	if !strings.Contains(got, "爬山") || !strings.Contains(got, "4/5") {
		t.Errorf("summary = %q", got)
	}
	if strings.Contains(got, "并列") {
		t.Errorf("summary = %q, should not report a tie", got)
	}
}

func TestFallbackSummaryTie(t *testing.T) {
	got := FallbackSummary("去哪玩?", []OptionTally{
		{OptionText: "爬山", Votes: 2},
		{OptionText: "看电影", Votes: 2},
	}, 4, 4)
	if !strings.Contains(got, "并列") {
		t.Errorf("summary = %q, want tie report", got)
	}
	if !strings.Contains(got, "爬山") || !strings.Contains(got, "看电影") {
		t.Errorf("summary = %q, want both winners listed", got)
	}
}

func TestFallbackSummaryDeterministic(t *testing.T) {
	tallies := []OptionTally{
		{OptionText: "b", Votes: 1},
		{OptionText: "a", Votes: 1},
	}
	first := FallbackSummary("q?", tallies, 2, 3)
	for i := 0; i < 5; i++ {
		if got := FallbackSummary("q?", tallies, 2, 3); got != first {
			t.Fatalf("summary not deterministic: %q vs %q", first, got)
		}
	}
}

func TestFallbackSummaryNoVotes(t *testing.T) {
	got := FallbackSummary("去哪玩?", nil, 0, 6)
	if !strings.Contains(got, "无人参与") || !strings.Contains(got, "6 名成员") {
		t.Errorf("summary = %q", got)
	}
}

func TestTallyPoll(t *testing.T) {
	poll := &model.Poll{
		Options: []model.PollOption{
			{UUIDBase: model.UUIDBase{ID: "o1"}, OptionText: "爬山", OptionOrder: 0},
			{UUIDBase: model.UUIDBase{ID: "o2"}, OptionText: "看电影", OptionOrder: 1},
		},
		Responses: []model.PollResponse{
			{UserID: 1, OptionID: "o1", User: model.User{DisplayName: "小明"}},
			{UserID: 2, OptionID: "o1", User: model.User{DisplayName: "小红"}},
			{UserID: 3, OptionID: "o2", User: model.User{DisplayName: "小刚"}},
		},
	}

	tallies, total := TallyPoll(poll)
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if tallies[0].OptionText != "爬山" || tallies[0].Votes != 2 {
		t.Errorf("tallies[0] = %+v", tallies[0])
	}
	if tallies[1].OptionText != "看电影" || tallies[1].Votes != 1 {
		t.Errorf("tallies[1] = %+v", tallies[1])
	}
	if len(tallies[0].Voters) != 2 || tallies[0].Voters[0] != "小明" || tallies[0].Voters[1] != "小红" {
		t.Errorf("tallies[0].Voters = %v", tallies[0].Voters)
	}
	if len(tallies[1].Voters) != 1 || tallies[1].Voters[0] != "小刚" {
		t.Errorf("tallies[1].Voters = %v", tallies[1].Voters)
	}
}
