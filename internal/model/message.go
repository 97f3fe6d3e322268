package model

import "time"

// Message 消息记录
// GroupID 与 ReceiverID 互斥：群聊消息只有 GroupID，私聊消息只有 ReceiverID。
// 系统/机器人消息的 SenderID 指向内置 bot 账号
type Message struct {
	UUIDBase
	SenderID   uint      `gorm:"index;not null" json:"senderId"`
	Sender     User      `gorm:"foreignKey:SenderID;references:ID;constraint:false" json:"sender,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Type       string    `gorm:"type:enum('text','poll','system');default:'text'" json:"type"`
	GroupID    *string   `gorm:"index;index:idx_group_created;type:varchar(36)" json:"groupId"`
	ReceiverID *uint     `gorm:"index" json:"receiverId"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID;references:ID;constraint:false" json:"receiver,omitempty"`
	Poll       *Poll     `gorm:"foreignKey:MessageID" json:"poll,omitempty"`
	CreatedAt  time.Time `gorm:"index:idx_group_created" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

const (
	MessageText   = "text"
	MessagePoll   = "poll"
	MessageSystem = "system"
)
