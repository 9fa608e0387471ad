package storage

import (
	"context"

	"gorm.io/gorm"

	"muse-go/internal/models"
)

// SongRepository 定义了歌曲数据操作的接口。
type SongRepository interface {
	CreateWithTx(ctx context.Context, tx *gorm.DB, song *models.Song) error
	GetByID(ctx context.Context, id uint) (*models.Song, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Song, error)
	ListByCreator(ctx context.Context, creatorID uint) ([]*models.Song, error)
	// ListUnswiped 返回用户没有任何滑动记录的歌曲（包括已从曲库删除的），按 id 升序
	ListUnswiped(ctx context.Context, userID uint, limit int) ([]*models.Song, error)

	GetByIDForUpdateWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Song, error)
	SaveReferencesWithTx(ctx context.Context, tx *gorm.DB, song *models.Song) error
	FindInBatches(ctx context.Context, batchSize int, fn func(songs []*models.Song) error) error
	GetDB() *gorm.DB
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建一个新的基于 GORM 的 SongRepository。
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) CreateWithTx(ctx context.Context, tx *gorm.DB, song *models.Song) error {
	return dbFrom(r.db, tx).WithContext(ctx).Create(song).Error
}

func (r *gormSongRepository) GetByID(ctx context.Context, id uint) (*models.Song, error) {
	var song models.Song
	if err := r.db.WithContext(ctx).First(&song, id).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

// GetByIDs 批量读取歌曲，缺失的 id 直接跳过。
func (r *gormSongRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Song, error) {
	var songs []*models.Song
	if len(ids) == 0 {
		return songs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) ListByCreator(ctx context.Context, creatorID uint) ([]*models.Song, error) {
	var songs []*models.Song
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) ListUnswiped(ctx context.Context, userID uint, limit int) ([]*models.Song, error) {
	var songs []*models.Song
	swiped := r.db.WithContext(ctx).Model(&models.Swipe{}).Select("song_id").Where("user_id = ?", userID)

	query := r.db.WithContext(ctx).
		Where("id NOT IN (?)", swiped).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) GetByIDForUpdateWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Song, error) {
	var song models.Song
	if err := lockForUpdate(tx.WithContext(ctx)).First(&song, id).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

func (r *gormSongRepository) SaveReferencesWithTx(ctx context.Context, tx *gorm.DB, song *models.Song) error {
	if song.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return dbFrom(r.db, tx).WithContext(ctx).Model(song).Select("swipe_ids").Updates(song).Error
}

func (r *gormSongRepository) FindInBatches(ctx context.Context, batchSize int, fn func(songs []*models.Song) error) error {
	var songs []*models.Song
	return r.db.WithContext(ctx).FindInBatches(&songs, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(songs)
	}).Error
}

func (r *gormSongRepository) GetDB() *gorm.DB {
	return r.db
}
