package service

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB 连接测试库，库不可达时跳过用例
// 默认连 127.0.0.1:3306/social_chat_test，可用 TEST_DATABASE_DSN 覆盖
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(127.0.0.1:3306)/social_chat_test?charset=utf8mb4&parseTime=True&loc=Local"
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Skipf("test database unreachable, skipping: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Message{},
		&model.Poll{},
		&model.PollOption{},
		&model.PollResponse{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Username:    fmt.Sprintf("%s_%d", name, time.Now().UnixNano()),
		DisplayName: name,
		Email:       fmt.Sprintf("%s_%d@test.local", name, time.Now().UnixNano()),
		Password:    "x",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createActivePoll 建一个带两名成员（admin + member）和两个选项的 active 投票
func createActivePoll(t *testing.T, db *gorm.DB, admin, member *model.User) *model.Poll {
	t.Helper()
	group := &model.Group{Name: "投票测试群", AdminID: admin.ID}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	members := []model.GroupMember{
		{GroupID: group.ID, UserID: admin.ID, Role: model.RoleAdmin},
		{GroupID: group.ID, UserID: member.ID, Role: model.RoleMember},
	}
	if err := db.Create(&members).Error; err != nil {
		t.Fatalf("create members: %v", err)
	}

	groupID := group.ID
	msg := &model.Message{SenderID: admin.ID, Content: "周末去哪玩? A) 爬山 B) 看电影", Type: model.MessagePoll, GroupID: &groupID}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	poll := &model.Poll{
		MessageID: msg.ID,
		Question:  "周末去哪玩?",
		GroupID:   group.ID,
		CreatedBy: admin.ID,
		Status:    model.PollActive,
		Options: []model.PollOption{
			{OptionText: "爬山", OptionOrder: 0},
			{OptionText: "看电影", OptionOrder: 1},
		},
	}
	if err := db.Create(poll).Error; err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return poll
}

func TestRecordResponseNonMemberRejected(t *testing.T) {
	db := testDB(t)
	admin := createTestUser(t, db, "admin")
	member := createTestUser(t, db, "member")
	outsider := createTestUser(t, db, "outsider")
	poll := createActivePoll(t, db, admin, member)

	svc := &PollService{
		PollRepo:  repository.NewPollRepository(db),
		GroupRepo: repository.NewGroupRepository(db, nil),
	}

	// 非群成员先被成员校验拦下，选项是否存在都不重要
	_, err := svc.RecordResponse(poll.ID, outsider.ID, "no-such-option")
	if !errors.Is(err, util.ErrNotPollMember) {
		t.Errorf("outsider vote err = %v, want ErrNotPollMember", err)
	}
	_, err = svc.RecordResponse(poll.ID, outsider.ID, poll.Options[0].ID)
	if !errors.Is(err, util.ErrNotPollMember) {
		t.Errorf("outsider vote on real option err = %v, want ErrNotPollMember", err)
	}
}

func TestRecordResponseInvalidOption(t *testing.T) {
	db := testDB(t)
	admin := createTestUser(t, db, "admin")
	member := createTestUser(t, db, "member")
	poll := createActivePoll(t, db, admin, member)

	svc := &PollService{
		PollRepo:  repository.NewPollRepository(db),
		GroupRepo: repository.NewGroupRepository(db, nil),
	}

	_, err := svc.RecordResponse(poll.ID, member.ID, "no-such-option")
	if !errors.Is(err, util.ErrInvalidOption) {
		t.Errorf("member vote on bogus option err = %v, want ErrInvalidOption", err)
	}

	// 合法选项正常落库
	updated, err := svc.RecordResponse(poll.ID, member.ID, poll.Options[0].ID)
	if err != nil {
		t.Fatalf("member vote: %v", err)
	}
	if len(updated.Responses) != 1 || updated.Responses[0].OptionID != poll.Options[0].ID {
		t.Errorf("responses = %+v", updated.Responses)
	}
}
