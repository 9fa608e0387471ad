package apiserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"muse-go/internal/middleware"
	"muse-go/internal/models"
	"muse-go/internal/services"
)

// SignatureHeader 携带支付回调 body 的十六进制 HMAC-SHA256 签名。
const SignatureHeader = "X-Payment-Signature"

const maxCallbackBody = 64 << 10

// PurchaseHandler 处理歌曲购买和支付回调。
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler 创建一个新的 PurchaseHandler 实例。
func NewPurchaseHandler(purchaseService services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// PurchaseStatusResponse 是购买状态查询的返回。
type PurchaseStatusResponse struct {
	Status   models.PurchaseStatus `json:"status"`
	Purchase *models.Purchase      `json:"purchase,omitempty"`
}

// PaymentCallback 是支付提供方回调的请求体。
type PaymentCallback struct {
	ProviderRef string `json:"providerRef"`
	Succeeded   bool   `json:"succeeded"`
	Reason      string `json:"reason,omitempty"`
}

// StartPurchase 处理 POST /songs/{songID}/purchase。
func (h *PurchaseHandler) StartPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	songID, ok := pathID(w, r, "songID")
	if !ok {
		return
	}
	purchase, err := h.purchaseService.StartPurchase(r.Context(), userID, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, purchase)
}

// GetPurchaseStatus 处理 GET /songs/{songID}/purchase。
func (h *PurchaseHandler) GetPurchaseStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return
	}
	songID, ok := pathID(w, r, "songID")
	if !ok {
		return
	}
	status, purchase, err := h.purchaseService.GetStatus(r.Context(), userID, songID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, PurchaseStatusResponse{Status: status, Purchase: purchase})
}

// PaymentCallbackHandler 处理 POST /payments/callback，签名错误直接拒绝。
func (h *PurchaseHandler) PaymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		writeJSONError(w, "读取请求体失败", http.StatusBadRequest)
		return
	}
	if !h.purchaseService.VerifySignature(body, r.Header.Get(SignatureHeader)) {
		log.Warn("支付回调签名无效", "remote", r.RemoteAddr)
		writeJSONError(w, "签名无效", http.StatusUnauthorized)
		return
	}
	var cb PaymentCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.ProviderRef == "" {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	purchase, err := h.purchaseService.ConfirmPayment(r.Context(), cb.ProviderRef, cb.Succeeded, cb.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, purchase)
}
