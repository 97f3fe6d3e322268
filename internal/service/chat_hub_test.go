package service

import (
	"sort"
	"testing"

	"social_chat_backend/internal/model"
)

func TestDirectRoomCanonical(t *testing.T) {
	if got := DirectRoom(9, 3); got != "dm:3:9" {
		t.Errorf("DirectRoom(9,3) = %q", got)
	}
	// 两端得到同一个房间名
	if DirectRoom(3, 9) != DirectRoom(9, 3) {
		t.Error("DirectRoom is not symmetric")
	}
}

func TestUserRoom(t *testing.T) {
	if got := UserRoom(42); got != "user:42" {
		t.Errorf("UserRoom(42) = %q", got)
	}
}

func TestPresenceEvent(t *testing.T) {
	if got := presenceEvent(string(model.StatusOnline)); got != EventUserOnline {
		t.Errorf("presenceEvent(online) = %q", got)
	}
	if got := presenceEvent(string(model.StatusOffline)); got != EventUserOffline {
		t.Errorf("presenceEvent(offline) = %q", got)
	}
	// 未知状态按下线处理
	if got := presenceEvent("away"); got != EventUserOffline {
		t.Errorf("presenceEvent(away) = %q", got)
	}
}

func TestMemoryRoomRegistry(t *testing.T) {
	reg := NewMemoryRoomRegistry()

	reg.Join("g1", 1)
	reg.Join("g1", 2)
	reg.Join("g2", 1)

	members := reg.Members("g1")
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	if len(members) != 2 || members[0] != 1 || members[1] != 2 {
		t.Fatalf("g1 members = %v", members)
	}

	// 重复加入幂等
	reg.Join("g1", 1)
	if got := len(reg.Members("g1")); got != 2 {
		t.Errorf("g1 members after duplicate join = %d", got)
	}

	reg.Leave("g1", 2)
	if got := reg.Members("g1"); len(got) != 1 || got[0] != 1 {
		t.Errorf("g1 members after leave = %v", got)
	}

	// 连接断开时清掉该用户的全部订阅
	reg.LeaveAll(1)
	if got := reg.Members("g1"); len(got) != 0 {
		t.Errorf("g1 members after LeaveAll = %v", got)
	}
	if got := reg.Members("g2"); len(got) != 0 {
		t.Errorf("g2 members after LeaveAll = %v", got)
	}
}

func TestMemoryRoomRegistryUnknownRoom(t *testing.T) {
	reg := NewMemoryRoomRegistry()
	if got := reg.Members("nope"); len(got) != 0 {
		t.Errorf("Members on unknown room = %v", got)
	}
	// 对不存在的房间执行 Leave 不应 panic
	reg.Leave("nope", 1)
}
