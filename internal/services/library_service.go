package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"muse-go/internal/models"
	"muse-go/internal/storage"
)

// LibraryEntry 是曲库中的一首已喜欢的歌曲。
type LibraryEntry struct {
	SwipeID  uint               `json:"swipeId"`
	SongID   uint               `json:"songId"`
	Title    string             `json:"title"`
	CoverURL string             `json:"coverUrl"`
	Action   models.SwipeAction `json:"action"`
	SwipedAt time.Time          `json:"swipedAt"`
}

// LibraryGroup 是按相对日期分组后的一组曲库条目。
type LibraryGroup struct {
	Label   string          `json:"label"`
	DaysAgo int             `json:"daysAgo"`
	Entries []*LibraryEntry `json:"entries"`
}

// LibraryService 定义了曲库相关服务的接口。
type LibraryService interface {
	// GetLibrary 返回按相对日期分组的曲库，最新的组在前
	GetLibrary(ctx context.Context, userID uint, now time.Time) ([]*LibraryGroup, error)
}

type libraryService struct {
	swipeRepo storage.SwipeRepository
	songRepo  storage.SongRepository
}

// NewLibraryService 创建一个新的 LibraryService 实例。
func NewLibraryService(swipeRepo storage.SwipeRepository, songRepo storage.SongRepository) LibraryService {
	return &libraryService{swipeRepo: swipeRepo, songRepo: songRepo}
}

func (s *libraryService) GetLibrary(ctx context.Context, userID uint, now time.Time) ([]*LibraryGroup, error) {
	swipes, err := s.swipeRepo.ListLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的曲库失败: %w", userID, err)
	}

	songIDs := make([]uint, 0, len(swipes))
	for _, sw := range swipes {
		songIDs = append(songIDs, sw.SongID)
	}
	songs, err := s.songRepo.GetByIDs(ctx, songIDs)
	if err != nil {
		return nil, fmt.Errorf("批量获取曲库歌曲失败: %w", err)
	}
	byID := make(map[uint]*models.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}

	entries := make([]*LibraryEntry, 0, len(swipes))
	for _, sw := range swipes {
		entry := &LibraryEntry{
			SwipeID:  sw.ID,
			SongID:   sw.SongID,
			Action:   sw.Action,
			SwipedAt: sw.SwipedAt,
		}
		if song, ok := byID[sw.SongID]; ok {
			entry.Title = song.Title
			entry.CoverURL = song.CoverURL
		} else {
			// 歌曲已被删除时保留条目，封面为空
			log.Warn("library song missing", "user_id", userID, "swipe_id", sw.ID, "song_id", sw.SongID)
		}
		entries = append(entries, entry)
	}
	return GroupByRelativeDate(entries, now), nil
}

// DaysBetween 返回 t 到 now 之间完整的 24 小时周期数。t 晚于 now 时返回 0。
func DaysBetween(t, now time.Time) int {
	d := now.Sub(t)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// RelativeDateLabel 把天数转换为分组标题。
func RelativeDateLabel(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	default:
		return strconv.Itoa(days) + " days ago"
	}
}

// GroupByRelativeDate 按相对天数对条目分组。组按天数升序（最新在前），
// 组内保持输入顺序。
func GroupByRelativeDate(entries []*LibraryEntry, now time.Time) []*LibraryGroup {
	index := make(map[int]*LibraryGroup)
	for _, e := range entries {
		days := DaysBetween(e.SwipedAt, now)
		g, ok := index[days]
		if !ok {
			g = &LibraryGroup{Label: RelativeDateLabel(days), DaysAgo: days}
			index[days] = g
		}
		g.Entries = append(g.Entries, e)
	}

	groups := make([]*LibraryGroup, 0, len(index))
	for _, g := range index {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b *LibraryGroup) int { return cmp.Compare(a.DaysAgo, b.DaysAgo) })
	return groups
}
