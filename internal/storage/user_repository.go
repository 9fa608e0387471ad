package storage

import (
	"context"

	"gorm.io/gorm"

	"muse-go/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error)
	GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error)
	ExistsWithTx(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	// GetByIDForUpdateWithTx 在事务中读取并锁定用户行，用于修改引用列表
	GetByIDForUpdateWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	// SaveReferencesWithTx 只写回 song_ids / swipe_ids / discussion_ids 三列
	SaveReferencesWithTx(ctx context.Context, tx *gorm.DB, user *models.User) error
	// FindInBatches 按 id 顺序分批遍历所有用户
	FindInBatches(ctx context.Context, batchSize int, fn func(users []*models.User) error) error
	GetDB() *gorm.DB
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create creates a new user record in the database.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err // Handles gorm.ErrRecordNotFound as well
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username.
func (r *gormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the profile columns of an existing user.
// Reference lists are only written through SaveReferencesWithTx.
func (r *gormUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return r.db.WithContext(ctx).Model(user).
		Select("username", "email", "profile_picture_url", "password_hash").
		Updates(user).Error
}

// GetBasicInfoByID retrieves minimal public user info by ID.
func (r *gormUserRepository) GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error) {
	var basicInfo models.UserBasicInfo
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "username", "profile_picture_url").
		Where("id = ?", id).
		First(&basicInfo).Error
	if err != nil {
		return nil, err
	}
	return &basicInfo, nil
}

// GetMultipleBasicInfoByIDs retrieves minimal public user info for a list of user IDs.
func (r *gormUserRepository) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	var basicInfos []*models.UserBasicInfo
	if len(userIDs) == 0 {
		return basicInfos, nil
	}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "username", "profile_picture_url").
		Where("id IN ?", userIDs).
		Find(&basicInfos).Error
	if err != nil {
		// 批量查询不返回 ErrRecordNotFound，缺失的用户由调用方处理
		return nil, err
	}
	return basicInfos, nil
}

func (r *gormUserRepository) ExistsWithTx(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := dbFrom(r.db, tx).WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepository) GetByIDForUpdateWithTx(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := lockForUpdate(tx.WithContext(ctx)).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) SaveReferencesWithTx(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if user.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return dbFrom(r.db, tx).WithContext(ctx).Model(user).
		Select("song_ids", "swipe_ids", "discussion_ids").
		Updates(user).Error
}

func (r *gormUserRepository) FindInBatches(ctx context.Context, batchSize int, fn func(users []*models.User) error) error {
	var users []*models.User
	return r.db.WithContext(ctx).FindInBatches(&users, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(users)
	}).Error
}

// GetDB returns the underlying gorm.DB instance
func (r *gormUserRepository) GetDB() *gorm.DB {
	return r.db
}
