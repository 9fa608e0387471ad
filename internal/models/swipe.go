package models

import "time"

// SwipeAction 定义了一次滑动的决定。
type SwipeAction string

const (
	SwipeLike      SwipeAction = "like"
	SwipeSkip      SwipeAction = "skip"
	SwipeSuperLike SwipeAction = "super_like"
)

// Valid reports whether a is one of the known actions.
func (a SwipeAction) Valid() bool {
	switch a {
	case SwipeLike, SwipeSkip, SwipeSuperLike:
		return true
	}
	return false
}

// Liked reports whether the action puts the song in the library.
func (a SwipeAction) Liked() bool {
	return a == SwipeLike || a == SwipeSuperLike
}

// Swipe 是用户对一首歌的滑动记录。
// 没有嵌入 BaseModel：Deleted 是资料库的软删除标记，撤销 (undo) 则是硬删除。
type Swipe struct {
	ID       uint        `gorm:"primarykey" json:"id"`
	UserID   uint        `gorm:"index:idx_swipes_user;not null" json:"userId"`
	SongID   uint        `gorm:"index;not null" json:"songId"`
	Action   SwipeAction `gorm:"type:varchar(20);not null" json:"action"`
	Liked    bool        `gorm:"index:idx_swipes_user;not null;default:false" json:"liked"`
	Deleted  bool        `gorm:"index:idx_swipes_user;not null;default:false" json:"deleted"`
	SwipedAt time.Time   `gorm:"not null" json:"swipedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定 Swipe 模型的表名。
func (Swipe) TableName() string {
	return "swipes"
}
