package models

import "time"

// PurchaseStatus is the state of a song purchase.
//
//	idle -> pending -> purchased
//	           \-> failed -> pending (retry)
//
// Transitions out of pending are driven only by payment-provider callbacks.
type PurchaseStatus string

const (
	PurchaseIdle      PurchaseStatus = "idle" // 没有购买记录，不落库
	PurchasePending   PurchaseStatus = "pending"
	PurchasePurchased PurchaseStatus = "purchased"
	PurchaseFailed    PurchaseStatus = "failed"
)

// CanTransition reports whether moving from s to next is allowed.
func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	switch s {
	case PurchaseIdle, PurchaseFailed:
		return next == PurchasePending
	case PurchasePending:
		return next == PurchasePurchased || next == PurchaseFailed
	}
	return false
}

// Purchase 记录一次歌曲购买。
type Purchase struct {
	BaseModel
	UserID        uint           `gorm:"index:idx_purchase_user_song;not null" json:"userId"`
	SongID        uint           `gorm:"index:idx_purchase_user_song;not null" json:"songId"`
	Status        PurchaseStatus `gorm:"type:varchar(20);not null" json:"status"`
	ProviderRef   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"providerRef"`
	AmountCents   int64          `gorm:"not null" json:"amountCents"`
	Currency      string         `gorm:"type:varchar(3);not null" json:"currency"`
	ConfirmedAt   *time.Time     `json:"confirmedAt,omitempty"`
	FailureReason string         `gorm:"type:text" json:"failureReason,omitempty"`
}

// TableName 指定 Purchase 模型的表名。
func (Purchase) TableName() string {
	return "purchases"
}
