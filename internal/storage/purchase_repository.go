package storage

import (
	"context"

	"gorm.io/gorm"

	"muse-go/internal/models"
)

// PurchaseRepository 定义了购买记录的数据操作接口。
type PurchaseRepository interface {
	CreateWithTx(ctx context.Context, tx *gorm.DB, p *models.Purchase) error
	// GetLatestWithTx 返回用户对某首歌最近的一条购买记录
	GetLatestWithTx(ctx context.Context, tx *gorm.DB, userID uint, songID uint) (*models.Purchase, error)
	GetByProviderRefForUpdateWithTx(ctx context.Context, tx *gorm.DB, providerRef string) (*models.Purchase, error)
	UpdateWithTx(ctx context.Context, tx *gorm.DB, p *models.Purchase) error
	GetDB() *gorm.DB
}

type gormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository 创建一个新的基于 GORM 的 PurchaseRepository。
func NewGormPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &gormPurchaseRepository{db: db}
}

func (r *gormPurchaseRepository) CreateWithTx(ctx context.Context, tx *gorm.DB, p *models.Purchase) error {
	return dbFrom(r.db, tx).WithContext(ctx).Create(p).Error
}

func (r *gormPurchaseRepository) GetLatestWithTx(ctx context.Context, tx *gorm.DB, userID uint, songID uint) (*models.Purchase, error) {
	var p models.Purchase
	err := dbFrom(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND song_id = ?", userID, songID).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormPurchaseRepository) GetByProviderRefForUpdateWithTx(ctx context.Context, tx *gorm.DB, providerRef string) (*models.Purchase, error) {
	var p models.Purchase
	err := lockForUpdate(dbFrom(r.db, tx).WithContext(ctx)).
		Where("provider_ref = ?", providerRef).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormPurchaseRepository) UpdateWithTx(ctx context.Context, tx *gorm.DB, p *models.Purchase) error {
	return dbFrom(r.db, tx).WithContext(ctx).Model(p).
		Select("status", "confirmed_at", "failure_reason").
		Updates(p).Error
}

func (r *gormPurchaseRepository) GetDB() *gorm.DB {
	return r.db
}
