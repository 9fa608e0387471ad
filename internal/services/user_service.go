package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"muse-go/internal/models"
	"muse-go/internal/storage"
)

// UserService 定义了用户资料相关服务的接口。
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	// UpdateProfile 完成资料设置：空字符串表示不修改该字段
	UpdateProfile(ctx context.Context, userID uint, username, profilePictureURL string) (*models.User, error)
	GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error)
}

type userService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetProfile 获取用户的个人资料，包括三个引用列表。
func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %d 失败: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, username, profilePictureURL string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("更新用户资料失败，用户 %d: %w", userID, err)
	}

	updated := false
	username = strings.TrimSpace(username)
	if username != "" && username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != userID:
			return nil, ErrUserAlreadyExists
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("检查用户名时出错: %w", err)
		}
		user.Username = username
		updated = true
	}
	if profilePictureURL != "" && profilePictureURL != user.ProfilePictureURL {
		user.ProfilePictureURL = profilePictureURL
		updated = true
	}

	if updated {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("更新用户 %d 资料失败: %w", userID, err)
		}
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error) {
	info, err := s.userRepo.GetBasicInfoByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户 %d 基本信息失败: %w", userID, err)
	}
	return info, nil
}
