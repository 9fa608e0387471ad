package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"muse-go/internal/models"
)

// DiscussionRepository 定义了一对一讨论（会话）的数据操作接口。
type DiscussionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Discussion, error)
	// FindByPair 按排序后的参与者对查找，未找到时返回 (nil, nil)
	FindByPair(ctx context.Context, userID1 uint, userID2 uint) (*models.Discussion, error)
	// FindOrCreateByPairWithTx 在事务中查找或创建讨论，created 表示本次调用是否插入了新行
	FindOrCreateByPairWithTx(ctx context.Context, tx *gorm.DB, userID1 uint, userID2 uint) (d *models.Discussion, created bool, err error)
	// ListByUser 返回用户参与的讨论，最近活跃的在前
	ListByUser(ctx context.Context, userID uint) ([]*models.Discussion, error)
	UpdateLastMessageWithTx(ctx context.Context, tx *gorm.DB, discussionID uint, msg *models.Message) error
	GetDB() *gorm.DB
}

type gormDiscussionRepository struct {
	db *gorm.DB
}

// NewGormDiscussionRepository 创建一个新的基于 GORM 的 DiscussionRepository。
func NewGormDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &gormDiscussionRepository{db: db}
}

func (r *gormDiscussionRepository) GetByID(ctx context.Context, id uint) (*models.Discussion, error) {
	var d models.Discussion
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *gormDiscussionRepository) FindByPair(ctx context.Context, userID1 uint, userID2 uint) (*models.Discussion, error) {
	d, err := findByPair(r.db.WithContext(ctx), userID1, userID2)
	if IsNotFound(err) {
		return nil, nil
	}
	return d, err
}

func findByPair(db *gorm.DB, userID1 uint, userID2 uint) (*models.Discussion, error) {
	low, high := models.CanonicalPair(userID1, userID2)
	var d models.Discussion
	err := db.Where("participant_low_id = ? AND participant_high_id = ?", low, high).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *gormDiscussionRepository) FindOrCreateByPairWithTx(ctx context.Context, tx *gorm.DB, userID1 uint, userID2 uint) (*models.Discussion, bool, error) {
	db := dbFrom(r.db, tx).WithContext(ctx)

	existing, err := findByPair(db, userID1, userID2)
	if err == nil {
		return existing, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, fmt.Errorf("查找讨论失败: %w", err)
	}

	// 唯一索引 idx_discussion_pair 保证同一对用户只有一行；并发插入时输的一方不报错，重新读取即可
	d := models.NewDiscussion(userID1, userID2)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if result.Error != nil {
		return nil, false, fmt.Errorf("创建讨论失败: %w", result.Error)
	}
	if result.RowsAffected > 0 && d.ID != 0 {
		return d, true, nil
	}

	existing, err = findByPair(db, userID1, userID2)
	if err != nil {
		return nil, false, fmt.Errorf("重新读取讨论失败: %w", err)
	}
	return existing, false, nil
}

func (r *gormDiscussionRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Discussion, error) {
	var discussions []*models.Discussion
	err := r.db.WithContext(ctx).
		Where("participant_low_id = ? OR participant_high_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Find(&discussions).Error
	return discussions, err
}

func (r *gormDiscussionRepository) UpdateLastMessageWithTx(ctx context.Context, tx *gorm.DB, discussionID uint, msg *models.Message) error {
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return dbFrom(r.db, tx).WithContext(ctx).Model(&models.Discussion{}).
		Where("id = ?", discussionID).
		Updates(map[string]any{
			"last_message_text":      msg.Text,
			"last_message_sender_id": msg.SenderID,
			"last_message_at":        sentAt,
		}).Error
}

func (r *gormDiscussionRepository) GetDB() *gorm.DB {
	return r.db
}
