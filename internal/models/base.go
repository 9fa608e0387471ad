package models

import (
	"slices"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// BaseModel defines the common fields for all models.
// It includes an auto-incrementing ID, and CreatedAt and UpdatedAt timestamps.
type BaseModel struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"` // For soft deletes
}

// IDString returns the ID as a string.
func (b *BaseModel) IDString() string {
	return strconv.FormatUint(uint64(b.ID), 10)
}

// IDList 是存储为 JSON 数组的引用列表（例如用户的 swipe id 列表）。
// 顺序没有业务含义，元素不重复。
type IDList []uint

// Add 追加 id，已存在时返回 false。
func (l *IDList) Add(id uint) bool {
	if l.Contains(id) {
		return false
	}
	*l = append(*l, id)
	return true
}

// Remove 删除 id 的所有出现，未找到时返回 false。
func (l *IDList) Remove(id uint) bool {
	before := len(*l)
	*l = slices.DeleteFunc(*l, func(v uint) bool { return v == id })
	return len(*l) != before
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id uint) bool {
	return slices.Contains(l, id)
}
