package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"muse-go/internal/models"
	"muse-go/internal/musetypes"
	"muse-go/internal/storage"
)

// SwipedSong 是曲库弹窗中展示的一条滑动记录及其歌曲。
type SwipedSong struct {
	Swipe *models.Swipe `json:"swipe"`
	Song  *models.Song  `json:"song"`
}

// RepairReport 汇总 RepairReferences 的修改。
type RepairReport struct {
	UsersUpdated int `json:"usersUpdated"`
	SongsUpdated int `json:"songsUpdated"`
	IDsAdded     int `json:"idsAdded"`
	IDsRemoved   int `json:"idsRemoved"`
}

// SwipeService 定义了滑动记录相关服务的接口。
type SwipeService interface {
	RecordSwipe(ctx context.Context, userID, songID uint, action models.SwipeAction) (*models.Swipe, error)
	// UndoLastSwipe 撤销用户最近一次滑动。记录或歌曲已不存在时不做修改，返回 (nil, nil)
	UndoLastSwipe(ctx context.Context, userID uint) (*models.Swipe, error)
	RemoveFromLibrary(ctx context.Context, userID, swipeID uint) error
	GetSwipedSong(ctx context.Context, userID, swipeID uint) (*SwipedSong, error)
	RepairReferences(ctx context.Context) (*RepairReport, error)
}

type swipeService struct {
	db        *gorm.DB
	userRepo  storage.UserRepository
	songRepo  storage.SongRepository
	swipeRepo storage.SwipeRepository
	history   musetypes.SwipeHistory
	now       func() time.Time
}

// NewSwipeService 创建一个新的 SwipeService 实例。
func NewSwipeService(db *gorm.DB, userRepo storage.UserRepository, songRepo storage.SongRepository, swipeRepo storage.SwipeRepository, history musetypes.SwipeHistory) SwipeService {
	return &swipeService{
		db:        db,
		userRepo:  userRepo,
		songRepo:  songRepo,
		swipeRepo: swipeRepo,
		history:   history,
		now:       time.Now,
	}
}

// RecordSwipe 在一个事务中创建滑动记录并更新用户和歌曲的 SwipeIDs。
func (s *swipeService) RecordSwipe(ctx context.Context, userID, songID uint, action models.SwipeAction) (*models.Swipe, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSwipeAction, action)
	}

	swipe := &models.Swipe{
		UserID:   userID,
		SongID:   songID,
		Action:   action,
		Liked:    action.Liked(),
		SwipedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, song, err := s.lockUserAndSong(ctx, tx, userID, songID)
		if err != nil {
			return err
		}

		if err := s.swipeRepo.CreateWithTx(ctx, tx, swipe); err != nil {
			return fmt.Errorf("创建滑动记录失败: %w", err)
		}
		user.SwipeIDs.Add(swipe.ID)
		song.SwipeIDs.Add(swipe.ID)
		if err := s.userRepo.SaveReferencesWithTx(ctx, tx, user); err != nil {
			return fmt.Errorf("更新用户 %d 的 SwipeIDs 失败: %w", userID, err)
		}
		if err := s.songRepo.SaveReferencesWithTx(ctx, tx, song); err != nil {
			return fmt.Errorf("更新歌曲 %d 的 SwipeIDs 失败: %w", songID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.history.Push(ctx, userID, swipe.ID); err != nil {
		// 滑动已经落库，只是无法撤销
		log.Warn("failed to push swipe onto undo history", "user_id", userID, "swipe_id", swipe.ID, "err", err)
	}
	return swipe, nil
}

func (s *swipeService) UndoLastSwipe(ctx context.Context, userID uint) (*models.Swipe, error) {
	swipeID, err := s.history.Pop(ctx, userID)
	if err != nil {
		if errors.Is(err, musetypes.ErrHistoryEmpty) {
			return nil, ErrNothingToUndo
		}
		return nil, fmt.Errorf("读取撤销历史失败: %w", err)
	}

	var undone *models.Swipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swipe, err := s.swipeRepo.GetByIDWithTx(ctx, tx, swipeID)
		if err != nil {
			if storage.IsNotFound(err) {
				log.Warn("undo: swipe no longer exists", "user_id", userID, "swipe_id", swipeID)
				return nil
			}
			return fmt.Errorf("读取滑动记录 %d 失败: %w", swipeID, err)
		}
		if swipe.UserID != userID {
			log.Warn("undo: swipe belongs to another user", "user_id", userID, "swipe_id", swipeID, "owner_id", swipe.UserID)
			return nil
		}

		user, song, err := s.lockUserAndSong(ctx, tx, userID, swipe.SongID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrSongNotFound) {
				log.Warn("undo: referenced record no longer exists", "user_id", userID, "swipe_id", swipeID, "song_id", swipe.SongID, "err", err)
				return nil
			}
			return err
		}

		user.SwipeIDs.Remove(swipe.ID)
		song.SwipeIDs.Remove(swipe.ID)
		if err := s.userRepo.SaveReferencesWithTx(ctx, tx, user); err != nil {
			return fmt.Errorf("更新用户 %d 的 SwipeIDs 失败: %w", userID, err)
		}
		if err := s.songRepo.SaveReferencesWithTx(ctx, tx, song); err != nil {
			return fmt.Errorf("更新歌曲 %d 的 SwipeIDs 失败: %w", song.ID, err)
		}
		if err := s.swipeRepo.DeleteWithTx(ctx, tx, swipe.ID); err != nil {
			return fmt.Errorf("删除滑动记录 %d 失败: %w", swipe.ID, err)
		}
		undone = swipe
		return nil
	})
	if err != nil {
		// 事务没有提交，放回历史，下次撤销的仍是这一条
		if pushErr := s.history.Push(context.WithoutCancel(ctx), userID, swipeID); pushErr != nil {
			log.Error("undo: failed to restore swipe onto history", "user_id", userID, "swipe_id", swipeID, "err", pushErr)
		}
		return nil, err
	}
	return undone, nil
}

// lockUserAndSong 锁定用户和歌曲行。所有同时修改两者 SwipeIDs 的事务都必须经过这里，
// 锁顺序固定为先用户后歌曲。
func (s *swipeService) lockUserAndSong(ctx context.Context, tx *gorm.DB, userID, songID uint) (*models.User, *models.Song, error) {
	user, err := s.userRepo.GetByIDForUpdateWithTx(ctx, tx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("读取用户 %d 失败: %w", userID, err)
	}
	song, err := s.songRepo.GetByIDForUpdateWithTx(ctx, tx, songID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil, ErrSongNotFound
		}
		return nil, nil, fmt.Errorf("读取歌曲 %d 失败: %w", songID, err)
	}
	return user, song, nil
}

// RemoveFromLibrary 只设置 deleted 标记，记录本身保留，歌曲也不会回到 feed。
func (s *swipeService) RemoveFromLibrary(ctx context.Context, userID, swipeID uint) error {
	ok, err := s.swipeRepo.MarkDeleted(ctx, userID, swipeID)
	if err != nil {
		return fmt.Errorf("从曲库删除滑动记录 %d 失败: %w", swipeID, err)
	}
	if !ok {
		return ErrSwipeNotFound
	}
	return nil
}

func (s *swipeService) GetSwipedSong(ctx context.Context, userID, swipeID uint) (*SwipedSong, error) {
	swipe, err := s.swipeRepo.GetByID(ctx, swipeID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrSwipeNotFound
		}
		return nil, fmt.Errorf("读取滑动记录 %d 失败: %w", swipeID, err)
	}
	if swipe.UserID != userID {
		return nil, ErrSwipeNotFound
	}
	song, err := s.songRepo.GetByID(ctx, swipe.SongID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("读取歌曲 %d 失败: %w", swipe.SongID, err)
	}
	return &SwipedSong{Swipe: swipe, Song: song}, nil
}

const repairBatchSize = 200

// RepairReferences 以 swipes 表为准重建用户和歌曲的 SwipeIDs：补上缺失的 id，删除悬空的 id。
// 每一行在自己的事务中加锁后再读取 swipes 表，与并发的 RecordSwipe/UndoLastSwipe 串行。
func (s *swipeService) RepairReferences(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{}

	err := s.userRepo.FindInBatches(ctx, repairBatchSize, func(users []*models.User) error {
		for _, u := range users {
			added, removed, err := s.repairUser(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("修复用户 %d 失败: %w", u.ID, err)
			}
			if added+removed > 0 {
				report.UsersUpdated++
				report.IDsAdded += added
				report.IDsRemoved += removed
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	err = s.songRepo.FindInBatches(ctx, repairBatchSize, func(songs []*models.Song) error {
		for _, song := range songs {
			added, removed, err := s.repairSong(ctx, song.ID)
			if err != nil {
				return fmt.Errorf("修复歌曲 %d 失败: %w", song.ID, err)
			}
			if added+removed > 0 {
				report.SongsUpdated++
				report.IDsAdded += added
				report.IDsRemoved += removed
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	log.Info("swipe references repaired", "users", report.UsersUpdated, "songs", report.SongsUpdated, "added", report.IDsAdded, "removed", report.IDsRemoved)
	return report, nil
}

func (s *swipeService) repairUser(ctx context.Context, userID uint) (added, removed int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByIDForUpdateWithTx(ctx, tx, userID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil
			}
			return err
		}
		valid, err := s.swipeRepo.ListIDsByUserWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		var fixed models.IDList
		fixed, added, removed = reconcileIDs(user.SwipeIDs, valid)
		if added == 0 && removed == 0 {
			return nil
		}
		user.SwipeIDs = fixed
		return s.userRepo.SaveReferencesWithTx(ctx, tx, user)
	})
	if err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

func (s *swipeService) repairSong(ctx context.Context, songID uint) (added, removed int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		song, err := s.songRepo.GetByIDForUpdateWithTx(ctx, tx, songID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil
			}
			return err
		}
		valid, err := s.swipeRepo.ListIDsBySongWithTx(ctx, tx, songID)
		if err != nil {
			return err
		}
		var fixed models.IDList
		fixed, added, removed = reconcileIDs(song.SwipeIDs, valid)
		if added == 0 && removed == 0 {
			return nil
		}
		song.SwipeIDs = fixed
		return s.songRepo.SaveReferencesWithTx(ctx, tx, song)
	})
	if err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

// reconcileIDs 保留 current 中仍然有效的 id 的原有顺序，再按升序追加缺失的 id。
func reconcileIDs(current models.IDList, valid []uint) (models.IDList, int, int) {
	validSet := make(map[uint]struct{}, len(valid))
	for _, id := range valid {
		validSet[id] = struct{}{}
	}

	fixed := make(models.IDList, 0, len(valid))
	removed := 0
	for _, id := range current {
		if _, ok := validSet[id]; !ok || fixed.Contains(id) {
			removed++
			continue
		}
		fixed = append(fixed, id)
	}

	missing := make([]uint, 0)
	for _, id := range valid {
		if !fixed.Contains(id) {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	fixed = append(fixed, missing...)
	return fixed, len(missing), removed
}
