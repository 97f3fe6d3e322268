package model

import "time"

// Poll 投票表，状态只允许 active→completed 单向一次
type Poll struct {
	UUIDBase
	MessageID      string         `gorm:"index;type:varchar(36);not null" json:"messageId"`
	Question       string         `gorm:"size:255;not null" json:"question"`
	GroupID        string         `gorm:"index;type:varchar(36);not null" json:"groupId"`
	CreatedBy      uint           `gorm:"index" json:"createdBy"`
	Status         string         `gorm:"type:enum('active','completed');default:'active'" json:"status"`
	ResultsSummary string         `gorm:"type:text" json:"resultsSummary"`
	CompletedAt    *time.Time     `json:"completedAt"`
	Options        []PollOption   `gorm:"foreignKey:PollID" json:"options,omitempty"`
	Responses      []PollResponse `gorm:"foreignKey:PollID" json:"responses,omitempty"`
}

func (Poll) TableName() string {
	return "polls"
}

const (
	PollActive    = "active"
	PollCompleted = "completed"
)

// PollOption 投票选项，order 在同一投票内唯一
type PollOption struct {
	UUIDBase
	PollID      string `gorm:"index;uniqueIndex:idx_poll_order;type:varchar(36);not null" json:"pollId"`
	OptionText  string `gorm:"size:255;not null" json:"optionText"`
	OptionOrder int    `gorm:"uniqueIndex:idx_poll_order;not null" json:"optionOrder"`
}

func (PollOption) TableName() string {
	return "poll_options"
}

// PollResponse 投票响应，(poll_id, user_id) 唯一；active 期间重复投票覆盖旧选择
type PollResponse struct {
	UUIDBase
	PollID   string     `gorm:"uniqueIndex:idx_poll_user;index;type:varchar(36);not null" json:"pollId"`
	UserID   uint       `gorm:"uniqueIndex:idx_poll_user;index;not null" json:"userId"`
	User     User       `gorm:"foreignKey:UserID;references:ID;constraint:false" json:"user,omitempty"`
	OptionID string     `gorm:"index;type:varchar(36);not null" json:"optionId"`
	Option   PollOption `gorm:"foreignKey:OptionID;references:ID;constraint:false" json:"option,omitempty"`
}

func (PollResponse) TableName() string {
	return "poll_responses"
}
