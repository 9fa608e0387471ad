package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"muse-go/internal/config"
	"muse-go/internal/models"
	"muse-go/internal/storage"
)

// FeedService 返回用户还没有滑过的歌曲。
type FeedService interface {
	// GetFeed 返回最多 limit 首歌曲；limit <= 0 时使用配置的默认页大小
	GetFeed(ctx context.Context, userID uint, limit int) ([]*models.FeedSong, error)
}

type feedService struct {
	songRepo storage.SongRepository
	userRepo storage.UserRepository
	cfg      config.FeedConfig
}

// NewFeedService 创建一个新的 FeedService 实例。
func NewFeedService(songRepo storage.SongRepository, userRepo storage.UserRepository, cfg config.FeedConfig) FeedService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}
	return &feedService{songRepo: songRepo, userRepo: userRepo, cfg: cfg}
}

func (s *feedService) GetFeed(ctx context.Context, userID uint, limit int) ([]*models.FeedSong, error) {
	if limit <= 0 {
		limit = s.cfg.PageSize
	}
	limit = min(limit, s.cfg.MaxPageSize)

	// 排除集合在数据库端用子查询计算，没有大小上限
	songs, err := s.songRepo.ListUnswiped(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的 feed 失败: %w", userID, err)
	}

	creatorIDs := make([]uint, 0, len(songs))
	seen := make(map[uint]struct{}, len(songs))
	for _, song := range songs {
		if _, ok := seen[song.CreatorID]; !ok {
			seen[song.CreatorID] = struct{}{}
			creatorIDs = append(creatorIDs, song.CreatorID)
		}
	}

	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("批量获取创建者信息失败: %w", err)
	}
	names := make(map[uint]string, len(infos))
	for _, info := range infos {
		names[info.ID] = info.Username
	}

	feed := make([]*models.FeedSong, 0, len(songs))
	for _, song := range songs {
		name, ok := names[song.CreatorID]
		if !ok {
			log.Warn("feed song creator missing", "song_id", song.ID, "creator_id", song.CreatorID)
			name = UnknownUsername
		}
		feed = append(feed, &models.FeedSong{Song: *song, CreatorUsername: name})
	}
	return feed, nil
}
