package storage

import (
	"context"

	"gorm.io/gorm"

	"muse-go/internal/models"
)

// SwipeRepository 定义了滑动记录的数据操作接口。
type SwipeRepository interface {
	CreateWithTx(ctx context.Context, tx *gorm.DB, swipe *models.Swipe) error
	GetByID(ctx context.Context, id uint) (*models.Swipe, error)
	GetByIDWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Swipe, error)
	// DeleteWithTx 物理删除滑动记录，仅用于撤销
	DeleteWithTx(ctx context.Context, tx *gorm.DB, id uint) error
	// MarkDeleted 将用户自己的滑动记录标记为已从曲库删除，返回是否命中
	MarkDeleted(ctx context.Context, userID uint, swipeID uint) (bool, error)
	// ListLibrary 返回 liked=true 且 deleted=false 的记录，最新的在前
	ListLibrary(ctx context.Context, userID uint) ([]*models.Swipe, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Swipe, error)
	// ListIDsByUserWithTx / ListIDsBySongWithTx 返回当前存在的滑动记录 id（升序），用于修复引用列表
	ListIDsByUserWithTx(ctx context.Context, tx *gorm.DB, userID uint) ([]uint, error)
	ListIDsBySongWithTx(ctx context.Context, tx *gorm.DB, songID uint) ([]uint, error)
	GetDB() *gorm.DB
}

type gormSwipeRepository struct {
	db *gorm.DB
}

// NewGormSwipeRepository 创建一个新的基于 GORM 的 SwipeRepository。
func NewGormSwipeRepository(db *gorm.DB) SwipeRepository {
	return &gormSwipeRepository{db: db}
}

func (r *gormSwipeRepository) CreateWithTx(ctx context.Context, tx *gorm.DB, swipe *models.Swipe) error {
	return dbFrom(r.db, tx).WithContext(ctx).Create(swipe).Error
}

func (r *gormSwipeRepository) GetByID(ctx context.Context, id uint) (*models.Swipe, error) {
	return r.GetByIDWithTx(ctx, nil, id)
}

func (r *gormSwipeRepository) GetByIDWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Swipe, error) {
	var swipe models.Swipe
	if err := dbFrom(r.db, tx).WithContext(ctx).First(&swipe, id).Error; err != nil {
		return nil, err
	}
	return &swipe, nil
}

func (r *gormSwipeRepository) DeleteWithTx(ctx context.Context, tx *gorm.DB, id uint) error {
	return dbFrom(r.db, tx).WithContext(ctx).Delete(&models.Swipe{}, id).Error
}

func (r *gormSwipeRepository) MarkDeleted(ctx context.Context, userID uint, swipeID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Swipe{}).
		Where("id = ? AND user_id = ?", swipeID, userID).
		Update("deleted", true)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	// 已经是 deleted=true 时部分驱动返回 0 行，再确认一次记录是否存在
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Swipe{}).
		Where("id = ? AND user_id = ?", swipeID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormSwipeRepository) ListLibrary(ctx context.Context, userID uint) ([]*models.Swipe, error) {
	var swipes []*models.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND liked = ? AND deleted = ?", userID, true, false).
		Order("swiped_at DESC, id DESC").
		Find(&swipes).Error
	return swipes, err
}

func (r *gormSwipeRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Swipe, error) {
	var swipes []*models.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("swiped_at DESC, id DESC").
		Find(&swipes).Error
	return swipes, err
}

func (r *gormSwipeRepository) ListIDsByUserWithTx(ctx context.Context, tx *gorm.DB, userID uint) ([]uint, error) {
	return r.pluckIDs(ctx, tx, "user_id", userID)
}

func (r *gormSwipeRepository) ListIDsBySongWithTx(ctx context.Context, tx *gorm.DB, songID uint) ([]uint, error) {
	return r.pluckIDs(ctx, tx, "song_id", songID)
}

func (r *gormSwipeRepository) pluckIDs(ctx context.Context, tx *gorm.DB, column string, id uint) ([]uint, error) {
	var ids []uint
	err := dbFrom(r.db, tx).WithContext(ctx).
		Model(&models.Swipe{}).
		Where(column+" = ?", id).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *gormSwipeRepository) GetDB() *gorm.DB {
	return r.db
}
