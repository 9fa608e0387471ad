package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"muse-go/internal/kafka"
	"muse-go/internal/models"
	"muse-go/internal/musetypes"
	"muse-go/internal/storage"
)

// DiscussionService 定义了一对一讨论相关服务的接口。
type DiscussionService interface {
	// ResolveOrCreateDiscussion 返回两个用户之间唯一的讨论，不存在时创建
	ResolveOrCreateDiscussion(ctx context.Context, userID, otherUserID uint) (*models.Discussion, error)
	// ResolveForSong 与歌曲创建者开始（或继续）讨论
	ResolveForSong(ctx context.Context, userID, songID uint) (*models.Discussion, error)
	ListDiscussions(ctx context.Context, userID uint) ([]*models.DiscussionSummary, error)
	GetParticipantInfo(ctx context.Context, userID, discussionID uint) (*models.UserBasicInfo, error)
	GetForParticipant(ctx context.Context, userID, discussionID uint) (*models.Discussion, error)
}

type discussionService struct {
	db             *gorm.DB
	userRepo       storage.UserRepository
	songRepo       storage.SongRepository
	discussionRepo storage.DiscussionRepository
	publisher      kafka.ChatEventPublisher
}

// NewDiscussionService 创建一个新的 DiscussionService 实例。publisher 可以为 nil。
func NewDiscussionService(db *gorm.DB, userRepo storage.UserRepository, songRepo storage.SongRepository, discussionRepo storage.DiscussionRepository, publisher kafka.ChatEventPublisher) DiscussionService {
	return &discussionService{
		db:             db,
		userRepo:       userRepo,
		songRepo:       songRepo,
		discussionRepo: discussionRepo,
		publisher:      publisher,
	}
}

func (s *discussionService) ResolveOrCreateDiscussion(ctx context.Context, userID, otherUserID uint) (*models.Discussion, error) {
	if userID == otherUserID {
		return nil, ErrSelfDiscussion
	}

	var (
		discussion *models.Discussion
		created    bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []uint{userID, otherUserID} {
			ok, err := s.userRepo.ExistsWithTx(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("检查用户 %d 是否存在失败: %w", id, err)
			}
			if !ok {
				return ErrUserNotFound
			}
		}

		var err error
		discussion, created, err = s.discussionRepo.FindOrCreateByPairWithTx(ctx, tx, userID, otherUserID)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		// 只有创建讨论的事务写入双方的 DiscussionIDs；按 id 顺序加锁避免死锁
		low, high := models.CanonicalPair(userID, otherUserID)
		for _, id := range []uint{low, high} {
			u, err := s.userRepo.GetByIDForUpdateWithTx(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("读取用户 %d 失败: %w", id, err)
			}
			if u.DiscussionIDs.Add(discussion.ID) {
				if err := s.userRepo.SaveReferencesWithTx(ctx, tx, u); err != nil {
					return fmt.Errorf("更新用户 %d 的 DiscussionIDs 失败: %w", id, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Info("discussion created", "discussion_id", discussion.ID, "low", discussion.ParticipantLowID, "high", discussion.ParticipantHighID)
		s.publish(ctx, musetypes.ChatEvent{
			Type:         musetypes.EventDiscussionCreated,
			RecipientID:  otherUserID,
			DiscussionID: discussion.ID,
			SenderID:     userID,
			Timestamp:    discussion.CreatedAt,
		})
	}
	return discussion, nil
}

func (s *discussionService) ResolveForSong(ctx context.Context, userID, songID uint) (*models.Discussion, error) {
	song, err := s.songRepo.GetByID(ctx, songID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("获取歌曲 %d 失败: %w", songID, err)
	}
	return s.ResolveOrCreateDiscussion(ctx, userID, song.CreatorID)
}

func (s *discussionService) ListDiscussions(ctx context.Context, userID uint) ([]*models.DiscussionSummary, error) {
	discussions, err := s.discussionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的讨论列表失败: %w", userID, err)
	}

	otherIDs := make([]uint, 0, len(discussions))
	for _, d := range discussions {
		other, _ := d.OtherParticipant(userID)
		otherIDs = append(otherIDs, other)
	}
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("批量获取参与者信息失败: %w", err)
	}
	byID := make(map[uint]*models.UserBasicInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	summaries := make([]*models.DiscussionSummary, 0, len(discussions))
	for _, d := range discussions {
		other, _ := d.OtherParticipant(userID)
		info, ok := byID[other]
		if !ok {
			info = unknownUser(other)
		}
		summary := &models.DiscussionSummary{
			ID:          d.ID,
			Participant: info,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		}
		if d.LastMessageAt != nil {
			preview := &models.MessagePreview{Text: d.LastMessageText, CreatedAt: *d.LastMessageAt}
			if d.LastMessageSenderID != nil {
				preview.SenderID = *d.LastMessageSenderID
			}
			summary.LastMessage = preview
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *discussionService) GetParticipantInfo(ctx context.Context, userID, discussionID uint) (*models.UserBasicInfo, error) {
	d, err := s.GetForParticipant(ctx, userID, discussionID)
	if err != nil {
		return nil, err
	}
	other, _ := d.OtherParticipant(userID)
	info, err := s.userRepo.GetBasicInfoByID(ctx, other)
	if err != nil {
		if storage.IsNotFound(err) {
			log.Warn("discussion participant missing", "discussion_id", discussionID, "user_id", other)
			return unknownUser(other), nil
		}
		return nil, fmt.Errorf("获取参与者 %d 信息失败: %w", other, err)
	}
	return info, nil
}

// GetForParticipant 读取讨论并确认 userID 是参与者。
func (s *discussionService) GetForParticipant(ctx context.Context, userID, discussionID uint) (*models.Discussion, error) {
	d, err := s.discussionRepo.GetByID(ctx, discussionID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("获取讨论 %d 失败: %w", discussionID, err)
	}
	if !d.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return d, nil
}

func (s *discussionService) publish(ctx context.Context, ev musetypes.ChatEvent) {
	if s.publisher == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if err := s.publisher.PublishChatEvent(ctx, ev); err != nil {
		log.Warn("failed to publish chat event", "type", ev.Type, "recipient_id", ev.RecipientID, "discussion_id", ev.DiscussionID, "err", err)
	}
}

func unknownUser(id uint) *models.UserBasicInfo {
	return &models.UserBasicInfo{ID: id, Username: UnknownUsername}
}
