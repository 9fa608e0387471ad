package models

// Song 是用户上传的一首曲子（原应用中称为 beat）。
type Song struct {
	BaseModel
	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	Key       string `gorm:"type:varchar(20)" json:"key"`
	BPM       int    `gorm:"default:0" json:"bpm"`
	CoverURL  string `gorm:"type:varchar(255)" json:"coverUrl"`
	AudioURL  string `gorm:"type:varchar(255)" json:"audioUrl"`
	CreatorID uint   `gorm:"index;not null" json:"creatorId"`

	SwipeIDs IDList `gorm:"serializer:json;type:text" json:"swipeIds"`
}

// TableName 指定 Song 模型的表名。
func (Song) TableName() string {
	return "songs"
}

// FeedSong is a song as presented in the swipe feed, joined to its creator's display name.
type FeedSong struct {
	Song
	CreatorUsername string `json:"creatorUsername"`
}
