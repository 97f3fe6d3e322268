package repository

import (
	"fmt"
	"os"
	"testing"
	"time"

	"social_chat_backend/internal/model"

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
		&model.FriendRequest{},
		&model.Friendship{},
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

func TestFriendshipPairUnique(t *testing.T) {
	db := testDB(t)
	repo := NewFriendshipRepository(db, nil)

	a := createTestUser(t, db, "alice")
	b := createTestUser(t, db, "bob")

	low, high := model.NormalizePair(a.ID, b.ID)
	if err := db.Create(&model.Friendship{User1ID: low, User2ID: high}).Error; err != nil {
		t.Fatalf("create friendship: %v", err)
	}

	// 同一对用户第二条边必须被唯一索引拒绝
	if err := db.Create(&model.Friendship{User1ID: low, User2ID: high}).Error; err == nil {
		t.Fatal("duplicate friendship edge was accepted")
	}

	isFriend, err := repo.IsFriend(b.ID, a.ID)
	if err != nil {
		t.Fatalf("IsFriend: %v", err)
	}
	if !isFriend {
		t.Error("IsFriend reversed lookup returned false")
	}
}

func TestPendingRequestUnique(t *testing.T) {
	db := testDB(t)
	repo := NewFriendshipRepository(db, nil)

	a := createTestUser(t, db, "carol")
	b := createTestUser(t, db, "dave")

	req := &model.FriendRequest{SenderID: a.ID, ReceiverID: b.ID}
	if err := repo.CreateRequest(req); err != nil {
		t.Fatalf("create request: %v", err)
	}

	// 反方向的第二条 pending 申请同样命中归一化的唯一索引
	dup := &model.FriendRequest{SenderID: b.ID, ReceiverID: a.ID}
	if err := repo.CreateRequest(dup); err == nil {
		t.Fatal("second pending request for the pair was accepted")
	}

	// 申请被处理后 pair 列置空，新申请可以再次发起
	if _, err := repo.ResolveRequest(req, false); err != nil {
		t.Fatalf("resolve request: %v", err)
	}
	again := &model.FriendRequest{SenderID: b.ID, ReceiverID: a.ID}
	if err := repo.CreateRequest(again); err != nil {
		t.Fatalf("new request after rejection: %v", err)
	}
}

func TestResolveRequestAcceptCreatesFriendship(t *testing.T) {
	db := testDB(t)
	repo := NewFriendshipRepository(db, nil)

	a := createTestUser(t, db, "erin")
	b := createTestUser(t, db, "frank")

	req := &model.FriendRequest{SenderID: a.ID, ReceiverID: b.ID}
	if err := repo.CreateRequest(req); err != nil {
		t.Fatalf("create request: %v", err)
	}

	friendship, err := repo.ResolveRequest(req, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if friendship == nil {
		t.Fatal("accept did not return the new friendship")
	}

	low, high := model.NormalizePair(a.ID, b.ID)
	if friendship.User1ID != low || friendship.User2ID != high {
		t.Errorf("friendship pair = (%d, %d), want (%d, %d)", friendship.User1ID, friendship.User2ID, low, high)
	}

	isFriend, err := repo.IsFriend(a.ID, b.ID)
	if err != nil || !isFriend {
		t.Errorf("IsFriend after accept = %v, %v", isFriend, err)
	}
}

func TestGroupAdminSuccession(t *testing.T) {
	db := testDB(t)
	repo := NewGroupRepository(db, nil)

	admin := createTestUser(t, db, "gadmin")
	second := createTestUser(t, db, "gsecond")

	group := &model.Group{Name: "succession", AdminID: admin.ID, IsPublic: true}
	if err := repo.CreateWithAdmin(group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := repo.AddMember(&model.GroupMember{GroupID: group.ID, UserID: second.ID, Role: model.RoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	if err := repo.RemoveAdminWithSuccession(group.ID, admin.ID, second.ID); err != nil {
		t.Fatalf("succession: %v", err)
	}

	updated, err := repo.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if updated.AdminID != second.ID {
		t.Errorf("admin = %d, want %d", updated.AdminID, second.ID)
	}

	successor, err := repo.GetMember(group.ID, second.ID)
	if err != nil {
		t.Fatalf("get successor: %v", err)
	}
	if successor.Role != model.RoleAdmin {
		t.Errorf("successor role = %q", successor.Role)
	}

	if _, err := repo.GetMember(group.ID, admin.ID); err == nil {
		t.Error("leaving admin still has a member row")
	}
}

func TestPollResponseUpsert(t *testing.T) {
	db := testDB(t)
	groupRepo := NewGroupRepository(db, nil)
	pollRepo := NewPollRepository(db)

	creator := createTestUser(t, db, "pcreator")
	group := &model.Group{Name: "pollgroup", AdminID: creator.ID}
	if err := groupRepo.CreateWithAdmin(group); err != nil {
		t.Fatalf("create group: %v", err)
	}

	gid := group.ID
	msg := &model.Message{SenderID: creator.ID, Content: "去哪玩?", Type: model.MessagePoll, GroupID: &gid}
	poll := &model.Poll{Question: "去哪玩?", GroupID: gid, CreatedBy: creator.ID, Status: model.PollActive}
	options := []model.PollOption{
		{OptionText: "爬山", OptionOrder: 0},
		{OptionText: "看电影", OptionOrder: 1},
	}
	if err := pollRepo.CreateWithOptions(msg, poll, options); err != nil {
		t.Fatalf("create poll: %v", err)
	}

	full, err := pollRepo.GetWithOptions(poll.ID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}

	// 第一次投 A，第二次投 B，最终只保留一条指向 B 的记录
	if err := pollRepo.UpsertResponse(&model.PollResponse{PollID: poll.ID, UserID: creator.ID, OptionID: full.Options[0].ID}); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if err := pollRepo.UpsertResponse(&model.PollResponse{PollID: poll.ID, UserID: creator.ID, OptionID: full.Options[1].ID}); err != nil {
		t.Fatalf("second response: %v", err)
	}

	count, err := pollRepo.CountDistinctResponders(poll.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("responders = %d, want 1", count)
	}

	result, err := pollRepo.GetFull(poll.ID)
	if err != nil {
		t.Fatalf("get full: %v", err)
	}
	if len(result.Responses) != 1 || result.Responses[0].OptionID != full.Options[1].ID {
		t.Errorf("responses = %+v", result.Responses)
	}
}

func TestPollCompleteIdempotent(t *testing.T) {
	db := testDB(t)
	groupRepo := NewGroupRepository(db, nil)
	pollRepo := NewPollRepository(db)

	creator := createTestUser(t, db, "fcreator")
	group := &model.Group{Name: "finalgroup", AdminID: creator.ID}
	if err := groupRepo.CreateWithAdmin(group); err != nil {
		t.Fatalf("create group: %v", err)
	}

	gid := group.ID
	msg := &model.Message{SenderID: creator.ID, Content: "q?", Type: model.MessagePoll, GroupID: &gid}
	poll := &model.Poll{Question: "q?", GroupID: gid, CreatedBy: creator.ID, Status: model.PollActive}
	options := []model.PollOption{{OptionText: "a", OptionOrder: 0}, {OptionText: "b", OptionOrder: 1}}
	if err := pollRepo.CreateWithOptions(msg, poll, options); err != nil {
		t.Fatalf("create poll: %v", err)
	}

	changed, err := pollRepo.Complete(poll.ID, "first summary", time.Now())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !changed {
		t.Fatal("first complete reported no change")
	}

	// 第二次结算不生效，结果保持第一次写入的内容
	changed, err = pollRepo.Complete(poll.ID, "second summary", time.Now())
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if changed {
		t.Error("second complete overwrote a finished poll")
	}

	final, err := pollRepo.GetWithOptions(poll.ID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if final.Status != model.PollCompleted || final.ResultsSummary != "first summary" {
		t.Errorf("poll = status %q summary %q", final.Status, final.ResultsSummary)
	}
}
