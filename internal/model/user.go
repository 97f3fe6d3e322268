package model

import (
	"time"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusAway    UserStatus = "away"
)

// swagger:model User
type User struct {
	BaseModel
	Username    string     `gorm:"size:50;unique;not null" json:"username"`
	DisplayName string     `gorm:"size:100;not null" json:"displayName"`
	Email       string     `gorm:"size:100;unique;not null" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	AvatarURL   string     `gorm:"size:255" json:"avatarUrl"`
	Status      UserStatus `gorm:"type:enum('online','offline','away');default:'offline'" json:"status"`
	IsBot       bool       `gorm:"default:false" json:"-"`
	Disabled    bool       `gorm:"default:false" json:"-"`
	LastSeen    time.Time  `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
