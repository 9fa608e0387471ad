package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"muse-go/internal/config"
	"muse-go/internal/models"
	"muse-go/internal/storage"
)

// PurchaseService 驱动歌曲购买的状态机：idle -> pending -> purchased | failed，failed 可以重新发起。
// 状态变化只来自支付方的回调，没有定时器。
type PurchaseService interface {
	StartPurchase(ctx context.Context, userID, songID uint) (*models.Purchase, error)
	// ConfirmPayment 处理支付回调；重复的相同回调不产生变化
	ConfirmPayment(ctx context.Context, providerRef string, succeeded bool, reason string) (*models.Purchase, error)
	// GetStatus 返回最近一次购买的状态，没有记录时为 idle（purchase 为 nil）
	GetStatus(ctx context.Context, userID, songID uint) (models.PurchaseStatus, *models.Purchase, error)
	// VerifySignature 校验回调 body 的 HMAC-SHA256 签名（十六进制）
	VerifySignature(body []byte, signature string) bool
}

type purchaseService struct {
	db           *gorm.DB
	userRepo     storage.UserRepository
	songRepo     storage.SongRepository
	purchaseRepo storage.PurchaseRepository
	cfg          config.PaymentsConfig
	now          func() time.Time
}

// NewPurchaseService 创建一个新的 PurchaseService 实例。
func NewPurchaseService(db *gorm.DB, userRepo storage.UserRepository, songRepo storage.SongRepository, purchaseRepo storage.PurchaseRepository, cfg config.PaymentsConfig) PurchaseService {
	return &purchaseService{
		db:           db,
		userRepo:     userRepo,
		songRepo:     songRepo,
		purchaseRepo: purchaseRepo,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *purchaseService) StartPurchase(ctx context.Context, userID, songID uint) (*models.Purchase, error) {
	if _, err := s.songRepo.GetByID(ctx, songID); err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("获取歌曲 %d 失败: %w", songID, err)
	}

	var purchase *models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住用户行，同一用户的并发请求串行执行
		if _, err := s.userRepo.GetByIDForUpdateWithTx(ctx, tx, userID); err != nil {
			if storage.IsNotFound(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("读取用户 %d 失败: %w", userID, err)
		}

		latest, err := s.purchaseRepo.GetLatestWithTx(ctx, tx, userID, songID)
		switch {
		case err == nil && (latest.Status == models.PurchasePending || latest.Status == models.PurchasePurchased):
			purchase = latest
			return nil
		case err != nil && !storage.IsNotFound(err):
			return fmt.Errorf("读取购买记录失败: %w", err)
		}

		purchase = &models.Purchase{
			UserID:      userID,
			SongID:      songID,
			Status:      models.PurchasePending,
			ProviderRef: uuid.NewString(),
			AmountCents: s.cfg.SongPriceCents,
			Currency:    s.cfg.Currency,
		}
		if err := s.purchaseRepo.CreateWithTx(ctx, tx, purchase); err != nil {
			return fmt.Errorf("创建购买记录失败: %w", err)
		}
		log.Info("purchase started", "user_id", userID, "song_id", songID, "provider_ref", purchase.ProviderRef)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *purchaseService) ConfirmPayment(ctx context.Context, providerRef string, succeeded bool, reason string) (*models.Purchase, error) {
	target := models.PurchaseFailed
	if succeeded {
		target = models.PurchasePurchased
	}

	var purchase *models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.purchaseRepo.GetByProviderRefForUpdateWithTx(ctx, tx, providerRef)
		if err != nil {
			if storage.IsNotFound(err) {
				return ErrPurchaseNotFound
			}
			return fmt.Errorf("读取购买记录 %s 失败: %w", providerRef, err)
		}
		purchase = p

		if p.Status == target {
			return nil
		}
		if !p.Status.CanTransition(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, target)
		}

		p.Status = target
		if succeeded {
			now := s.now()
			p.ConfirmedAt = &now
			p.FailureReason = ""
		} else {
			p.FailureReason = reason
		}
		return s.purchaseRepo.UpdateWithTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	log.Info("purchase confirmed", "provider_ref", providerRef, "status", purchase.Status)
	return purchase, nil
}

func (s *purchaseService) GetStatus(ctx context.Context, userID, songID uint) (models.PurchaseStatus, *models.Purchase, error) {
	p, err := s.purchaseRepo.GetLatestWithTx(ctx, nil, userID, songID)
	if err != nil {
		if storage.IsNotFound(err) {
			return models.PurchaseIdle, nil, nil
		}
		return "", nil, fmt.Errorf("读取购买记录失败: %w", err)
	}
	return p.Status, p, nil
}

func (s *purchaseService) VerifySignature(body []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(SignPayload(s.cfg.WebhookSecret, body), expected)
}

// SignPayload 计算 body 的 HMAC-SHA256。
func SignPayload(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
