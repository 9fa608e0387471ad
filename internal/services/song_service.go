package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"muse-go/internal/models"
	"muse-go/internal/storage"
)

// SongInput 是创建歌曲时客户端提交的字段，封面和音频需先通过上传接口拿到 URL。
type SongInput struct {
	Title    string `json:"title"`
	Key      string `json:"key"`
	BPM      int    `json:"bpm"`
	CoverURL string `json:"coverUrl"`
	AudioURL string `json:"audioUrl"`
}

// SongService 定义了歌曲相关服务的接口。
type SongService interface {
	CreateSong(ctx context.Context, creatorID uint, input SongInput) (*models.Song, error)
	GetSong(ctx context.Context, songID uint) (*models.Song, error)
	ListByCreator(ctx context.Context, creatorID uint) ([]*models.Song, error)
}

type songService struct {
	db       *gorm.DB
	userRepo storage.UserRepository
	songRepo storage.SongRepository
}

// NewSongService 创建一个新的 SongService 实例。
func NewSongService(db *gorm.DB, userRepo storage.UserRepository, songRepo storage.SongRepository) SongService {
	return &songService{db: db, userRepo: userRepo, songRepo: songRepo}
}

// CreateSong 在一个事务中创建歌曲并把 id 追加到创建者的 SongIDs。
func (s *songService) CreateSong(ctx context.Context, creatorID uint, input SongInput) (*models.Song, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.BPM < 0 {
		return nil, fmt.Errorf("%w: bpm must not be negative", ErrInvalidInput)
	}

	song := &models.Song{
		Title:     input.Title,
		Key:       strings.TrimSpace(input.Key),
		BPM:       input.BPM,
		CoverURL:  input.CoverURL,
		AudioURL:  input.AudioURL,
		CreatorID: creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, err := s.userRepo.GetByIDForUpdateWithTx(ctx, tx, creatorID)
		if err != nil {
			if storage.IsNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("读取创建者 %d 失败: %w", creatorID, err)
		}
		if err := s.songRepo.CreateWithTx(ctx, tx, song); err != nil {
			return fmt.Errorf("创建歌曲失败: %w", err)
		}
		creator.SongIDs.Add(song.ID)
		if err := s.userRepo.SaveReferencesWithTx(ctx, tx, creator); err != nil {
			return fmt.Errorf("更新创建者 %d 的歌曲列表失败: %w", creatorID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return song, nil
}

func (s *songService) GetSong(ctx context.Context, songID uint) (*models.Song, error) {
	song, err := s.songRepo.GetByID(ctx, songID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("获取歌曲 %d 失败: %w", songID, err)
	}
	return song, nil
}

func (s *songService) ListByCreator(ctx context.Context, creatorID uint) ([]*models.Song, error) {
	songs, err := s.songRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 的歌曲失败: %w", creatorID, err)
	}
	return songs, nil
}
