package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"muse-go/internal/kafka"
	"muse-go/internal/models"
	"muse-go/internal/musetypes"
	"muse-go/internal/storage"
)

const maxMessageLength = 4000

// MessageService 定义了消息相关服务的接口。
type MessageService interface {
	// SendMessage 持久化消息并更新讨论的最后一条消息，提交后向接收者推送事件
	SendMessage(ctx context.Context, senderID, discussionID uint, text string) (*models.Message, error)
	ListMessages(ctx context.Context, userID, discussionID uint, limit, offset int) ([]*models.Message, error)
}

type messageService struct {
	db             *gorm.DB
	msgRepo        storage.MessageRepository
	discussionRepo storage.DiscussionRepository
	publisher      kafka.ChatEventPublisher
	now            func() time.Time
}

// NewMessageService 创建一个新的 MessageService 实例。publisher 可以为 nil。
func NewMessageService(db *gorm.DB, msgRepo storage.MessageRepository, discussionRepo storage.DiscussionRepository, publisher kafka.ChatEventPublisher) MessageService {
	return &messageService{
		db:             db,
		msgRepo:        msgRepo,
		discussionRepo: discussionRepo,
		publisher:      publisher,
		now:            time.Now,
	}
}

func (s *messageService) SendMessage(ctx context.Context, senderID, discussionID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len(text) > maxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d bytes", ErrInvalidInput, maxMessageLength)
	}

	discussion, err := s.discussionRepo.GetByID(ctx, discussionID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("获取讨论 %d 失败: %w", discussionID, err)
	}
	recipientID, ok := discussion.OtherParticipant(senderID)
	if !ok {
		return nil, ErrNotParticipant
	}

	msg := &models.Message{
		DiscussionID: discussionID,
		SenderID:     senderID,
		Text:         text,
		SentAt:       s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.msgRepo.CreateWithTx(ctx, tx, msg); err != nil {
			return fmt.Errorf("存储消息失败: %w", err)
		}
		if err := s.discussionRepo.UpdateLastMessageWithTx(ctx, tx, discussionID, msg); err != nil {
			return fmt.Errorf("更新讨论 %d 的最后一条消息失败: %w", discussionID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		ev := musetypes.ChatEvent{
			Type:         musetypes.EventMessageCreated,
			RecipientID:  recipientID,
			DiscussionID: discussionID,
			MessageID:    msg.ID,
			SenderID:     senderID,
			Text:         msg.Text,
			Timestamp:    msg.SentAt,
		}
		if err := s.publisher.PublishChatEvent(ctx, ev); err != nil {
			// 消息已经保存，接收者下次拉取时会看到
			log.Warn("failed to publish message event", "message_id", msg.ID, "recipient_id", recipientID, "err", err)
		}
	}
	return msg, nil
}

func (s *messageService) ListMessages(ctx context.Context, userID, discussionID uint, limit, offset int) ([]*models.Message, error) {
	discussion, err := s.discussionRepo.GetByID(ctx, discussionID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("获取讨论 %d 失败: %w", discussionID, err)
	}
	if !discussion.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, err := s.msgRepo.GetByDiscussionID(ctx, discussionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("获取讨论 %d 的消息失败: %w", discussionID, err)
	}
	return messages, nil
}
