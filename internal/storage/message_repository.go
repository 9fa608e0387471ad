package storage

import (
	"context"

	"gorm.io/gorm"

	"muse-go/internal/models"
)

// MessageRepository 定义了消息数据操作的接口。
type MessageRepository interface {
	CreateWithTx(ctx context.Context, tx *gorm.DB, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetByDiscussionID(ctx context.Context, discussionID uint, limit int, offset int) ([]*models.Message, error)
}

// gormMessageRepository 使用 GORM 实现 MessageRepository。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建一个新的基于 GORM 的 MessageRepository。
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// CreateWithTx 在数据库中创建一条新的消息记录。
func (r *gormMessageRepository) CreateWithTx(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	return dbFrom(r.db, tx).WithContext(ctx).Create(message).Error
}

// GetByID 通过ID检索消息。
func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetByDiscussionID 通过讨论ID检索消息列表，支持分页，最新的在前。
func (r *gormMessageRepository) GetByDiscussionID(ctx context.Context, discussionID uint, limit int, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	query := r.db.WithContext(ctx).Where("discussion_id = ?", discussionID).Order("sent_at DESC").Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
