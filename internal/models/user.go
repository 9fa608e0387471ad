package models

// User 代表系统中的用户。
// SongIDs / SwipeIDs / DiscussionIDs 是引用列表，与 Song、Swipe、Discussion 记录互相镜像。
type User struct {
	BaseModel
	Username          string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash      string `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	Email             string `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	ProfilePictureURL string `gorm:"type:varchar(255)" json:"profilePictureUrl,omitempty"`

	SongIDs       IDList `gorm:"serializer:json;type:text" json:"songIds"`
	SwipeIDs      IDList `gorm:"serializer:json;type:text" json:"swipeIds"`
	DiscussionIDs IDList `gorm:"serializer:json;type:text" json:"discussionIds"`
}

// UserBasicInfo holds minimal public information about a user.
// Used for creator names in the feed and the other participant of a discussion.
type UserBasicInfo struct {
	ID                uint   `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
