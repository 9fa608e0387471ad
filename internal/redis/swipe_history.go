package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"muse-go/internal/config"
	"muse-go/internal/musetypes"
)

const swipeHistoryKeyPrefix = "muse:swipes:history:"

// redisSwipeHistory 用一个 Redis list 保存每个用户最近的滑动 id，表头是最新的一次。
type redisSwipeHistory struct {
	client *redis.Client
	size   int64
	ttl    time.Duration
}

// NewRedisSwipeHistory 创建 musetypes.SwipeHistory 的 Redis 实现。
func NewRedisSwipeHistory(client *redis.Client, cfg config.SwipesConfig) musetypes.SwipeHistory {
	size := int64(cfg.UndoHistorySize)
	if size <= 0 {
		size = 50
	}
	return &redisSwipeHistory{client: client, size: size, ttl: cfg.UndoHistoryTTL}
}

func historyKey(userID uint) string {
	return swipeHistoryKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Push LPUSH 新的 id 并裁剪到容量上限。
func (h *redisSwipeHistory) Push(ctx context.Context, userID uint, swipeID uint) error {
	key := historyKey(userID)
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, swipeID)
		pipe.LTrim(ctx, key, 0, h.size-1)
		if h.ttl > 0 {
			pipe.Expire(ctx, key, h.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入滑动历史失败 (user %d): %w", userID, err)
	}
	return nil
}

// Pop 取出最近一次滑动。
func (h *redisSwipeHistory) Pop(ctx context.Context, userID uint) (uint, error) {
	val, err := h.client.LPop(ctx, historyKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, musetypes.ErrHistoryEmpty
	}
	if err != nil {
		return 0, fmt.Errorf("读取滑动历史失败 (user %d): %w", userID, err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("滑动历史中的 id 无效 %q: %w", val, err)
	}
	return uint(id), nil
}
