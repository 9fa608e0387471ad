package models

import "time"

// Discussion 代表两个用户之间的私聊会话。
// 参与者对在创建后不可变，ParticipantLowID < ParticipantHighID，
// (ParticipantLowID, ParticipantHighID) 上的唯一索引保证每对用户只有一个会话。
type Discussion struct {
	BaseModel
	ParticipantLowID  uint `gorm:"not null;uniqueIndex:idx_discussion_pair" json:"participantLowId"`
	ParticipantHighID uint `gorm:"not null;uniqueIndex:idx_discussion_pair;index" json:"participantHighId"`

	// 最后一条消息的冗余副本，用于会话列表预览。
	LastMessageText     string     `gorm:"type:text" json:"lastMessageText,omitempty"`
	LastMessageSenderID *uint      `json:"lastMessageSenderId,omitempty"`
	LastMessageAt       *time.Time `json:"lastMessageAt,omitempty"`
}

// TableName 指定 Discussion 模型的表名。
func (Discussion) TableName() string {
	return "discussions"
}

// NewDiscussion builds a discussion for the pair in canonical order.
func NewDiscussion(userID1, userID2 uint) *Discussion {
	low, high := CanonicalPair(userID1, userID2)
	return &Discussion{ParticipantLowID: low, ParticipantHighID: high}
}

// CanonicalPair returns the two ids with the smaller one first.
func CanonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID is one of the two participants.
func (d *Discussion) HasParticipant(userID uint) bool {
	return d.ParticipantLowID == userID || d.ParticipantHighID == userID
}

// OtherParticipant returns the participant that is not userID.
// The second return value is false if userID is not a participant.
func (d *Discussion) OtherParticipant(userID uint) (uint, bool) {
	switch userID {
	case d.ParticipantLowID:
		return d.ParticipantHighID, true
	case d.ParticipantHighID:
		return d.ParticipantLowID, true
	}
	return 0, false
}

// DiscussionSummary 是会话列表中的一项。
type DiscussionSummary struct {
	ID          uint            `json:"id"`
	Participant *UserBasicInfo  `json:"participant"`
	LastMessage *MessagePreview `json:"lastMessage"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MessagePreview is the denormalized last-message snippet.
type MessagePreview struct {
	Text      string    `json:"text"`
	SenderID  uint      `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}
