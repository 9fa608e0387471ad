package chatserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"muse-go/internal/auth"
	"muse-go/internal/config"
	"muse-go/internal/middleware"
	"muse-go/internal/musetypes"
	"muse-go/internal/services"
	ws "muse-go/internal/websocket"
)

// errSendFailed 是返回给客户端的通用错误，具体原因只记录在日志里。
var errSendFailed = errors.New("消息发送失败，请稍后重试")

// WebSocketHandler 负责处理 WebSocket 连接请求。
type WebSocketHandler struct {
	ctx            context.Context
	hub            *ws.Hub
	messageService services.MessageService
	blacklist      auth.TokenBlacklist
	cfg            config.Config
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。ctx 在服务器关闭时取消。
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub, msgService services.MessageService, blacklist auth.TokenBlacklist, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:            ctx,
		hub:            hub,
		messageService: msgService,
		blacklist:      blacklist,
		cfg:            cfg,
	}
}

// ServeWS 认证请求（Authorization 头或 ?token=），然后升级为 WebSocket 连接。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		http.Error(w, "缺少认证令牌", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Warn("WebSocket 连接认证失败", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "令牌无效", http.StatusUnauthorized)
		return
	}

	ws.ServeWsPerConnection(h.ctx, h.hub, h.handleInbound, claims.UserID, w, r, h.cfg.WebSocket)
}

func (h *WebSocketHandler) handleInbound(ctx context.Context, senderID uint, in musetypes.InboundMessage) (uint, error) {
	msg, err := h.messageService.SendMessage(ctx, senderID, in.DiscussionID, in.Text)
	if err != nil {
		return 0, publicError(err)
	}
	return msg.ID, nil
}

// publicError 保留客户端可以处理的业务错误，其余错误只记录日志。
func publicError(err error) error {
	for _, known := range []error{
		services.ErrEmptyMessage,
		services.ErrNotParticipant,
		services.ErrDiscussionNotFound,
		services.ErrInvalidInput,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	log.Error("处理 WebSocket 消息失败", "err", err)
	return errSendFailed
}
