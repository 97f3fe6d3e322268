package model

import "time"

// Friendship 好友关系表
// 无向边：始终按 User1ID < User2ID 归一化存储，(user1_id, user2_id) 唯一，
// 使"是否已是好友"的检查成为真正的并发安全约束而不只是预检查
type Friendship struct {
	UUIDBase
	User1ID   uint      `gorm:"uniqueIndex:idx_friend_pair;index;not null" json:"user1Id"`
	User2ID   uint      `gorm:"uniqueIndex:idx_friend_pair;index;not null" json:"user2Id"`
	User1     User      `gorm:"foreignKey:User1ID;references:ID;constraint:false" json:"user1,omitempty"`
	User2     User      `gorm:"foreignKey:User2ID;references:ID;constraint:false" json:"user2,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Friendship) TableName() string {
	return "friendships"
}

// NormalizePair 将用户对归一化为 (小, 大)
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// FriendRequest 好友申请表
// PairLow/PairHigh 仅在 pending 期间持有归一化的用户对，申请被处理后置 NULL；
// 唯一索引保证同一对用户最多只有一条待处理申请（MySQL 唯一索引允许多个 NULL）
type FriendRequest struct {
	UUIDBase
	SenderID   uint      `gorm:"index;not null" json:"senderId"`
	Sender     User      `gorm:"foreignKey:SenderID;references:ID;constraint:false" json:"sender,omitempty"`
	ReceiverID uint      `gorm:"index;not null" json:"receiverId"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;references:ID;constraint:false" json:"receiver,omitempty"`
	Status     string    `gorm:"type:enum('pending','accepted','rejected');default:'pending'" json:"status"`
	PairLow    *uint     `gorm:"uniqueIndex:idx_pending_pair" json:"-"`
	PairHigh   *uint     `gorm:"uniqueIndex:idx_pending_pair" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// RelationshipStatus 当前用户与另一用户的关系状态，供搜索/列表类接口统一使用
type RelationshipStatus string

const (
	RelationNone            RelationshipStatus = "none"
	RelationFriends         RelationshipStatus = "friends"
	RelationRequestSent     RelationshipStatus = "request_sent"
	RelationRequestReceived RelationshipStatus = "request_received"
)
