package musetypes

import (
	"context"
	"errors"
)

// ErrHistoryEmpty 表示用户没有可撤销的滑动记录。
var ErrHistoryEmpty = errors.New("swipe history is empty")

// SwipeHistory 保存每个用户最近的滑动 id，用于撤销。实现位于 internal/redis。
type SwipeHistory interface {
	// Push 记录一次新的滑动；超出容量时丢弃最旧的记录
	Push(ctx context.Context, userID uint, swipeID uint) error
	// Pop 取出并移除最近一次滑动，历史为空时返回 ErrHistoryEmpty
	Pop(ctx context.Context, userID uint) (uint, error)
}
