package model

import "time"

// Group 群组表
// 只要还有成员存在，admin_id 必须指向当前唯一的管理员
type Group struct {
	UUIDBase
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description string        `gorm:"size:255" json:"description"`
	AdminID     uint          `gorm:"index;not null" json:"adminId"`
	Admin       User          `gorm:"foreignKey:AdminID;references:ID;constraint:false" json:"admin,omitempty"`
	IsPublic    bool          `gorm:"default:false" json:"isPublic"`
	Members     []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupMember 群成员表，每群有且仅有一行 role=admin
type GroupMember struct {
	GroupID  string    `gorm:"primaryKey;type:varchar(36)" json:"groupId"`
	UserID   uint      `gorm:"primaryKey;index" json:"userId"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	Role     string    `gorm:"type:enum('member','admin');default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)
