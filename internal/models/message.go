package models

import "time"

// Message 代表存储在数据库中的聊天消息。
type Message struct {
	BaseModel
	DiscussionID uint      `gorm:"index;not null" json:"discussionId"` // 指向 Discussion 模型的外键
	SenderID     uint      `gorm:"index;not null" json:"senderId"`     // 指向 User 模型（发送者）的外键
	Text         string    `gorm:"type:text;not null" json:"text"`
	SentAt       time.Time `gorm:"index;not null" json:"sentAt"`
}

// TableName 指定 Message 模型的表名。
func (Message) TableName() string {
	return "messages"
}
