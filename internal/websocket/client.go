package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"muse-go/internal/config"
	"muse-go/internal/musetypes"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
	sendBufferSize        = 256
)

// InboundHandler 持久化客户端发来的一条消息，返回消息 id。
// 返回的 error 文本会原样放进确认消息里。
type InboundHandler func(ctx context.Context, senderID uint, in musetypes.InboundMessage) (uint, error)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. 只由 Hub 关闭。
	send chan []byte

	// Authenticated User ID for this client.
	UserID uint

	limiter *rate.Limiter
	handle  InboundHandler
}

type timing struct {
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	maxSize    int64
}

func timingFrom(cfg config.WebSocketConfig) timing {
	t := timing{
		writeWait: time.Duration(cfg.WriteWaitSeconds) * time.Second,
		pongWait:  time.Duration(cfg.PongWaitSeconds) * time.Second,
		maxSize:   int64(cfg.MaxMessageSizeBytes),
	}
	if t.writeWait <= 0 {
		t.writeWait = defaultWriteWait
	}
	if t.pongWait <= 0 {
		t.pongWait = defaultPongWait
	}
	t.pingPeriod = time.Duration(cfg.PingPeriodSeconds) * time.Second
	// Must be less than pongWait.
	if t.pingPeriod <= 0 || t.pingPeriod >= t.pongWait {
		t.pingPeriod = (t.pongWait * 9) / 10
	}
	if t.maxSize <= 0 {
		t.maxSize = defaultMaxMessageSize
	}
	return t
}

func newLimiter(cfg config.WebSocketConfig) *rate.Limiter {
	if cfg.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), burst)
}

// readPump 读取入站消息并交给 handle，每条消息回复一个确认。
func (c *Client) readPump(ctx context.Context, t timing) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(t.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(t.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(t.pongWait))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket 读取错误", "user_id", c.UserID, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			log.Debug("忽略非文本消息", "user_id", c.UserID, "type", messageType)
			continue
		}

		var in musetypes.InboundMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			c.ack(musetypes.OutboundAck{Type: musetypes.EventError, Error: "消息格式无效"})
			continue
		}
		if !c.limiter.Allow() {
			c.ack(musetypes.OutboundAck{Type: musetypes.EventError, ClientMsgID: in.ClientMsgID, Error: "发送过于频繁"})
			continue
		}

		id, err := c.handle(ctx, c.UserID, in)
		if err != nil {
			c.ack(musetypes.OutboundAck{Type: musetypes.EventError, ClientMsgID: in.ClientMsgID, Error: err.Error()})
			continue
		}
		c.ack(musetypes.OutboundAck{Type: musetypes.EventMessageAck, ClientMsgID: in.ClientMsgID, MessageID: id})
	}
}

func (c *Client) ack(a musetypes.OutboundAck) {
	payload, err := json.Marshal(a)
	if err != nil {
		log.Error("无法序列化确认消息", "err", err)
		return
	}
	c.hub.sendTo(c, payload)
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump(t timing) {
	ticker := time.NewTicker(t.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWsPerConnection 升级连接并为已认证的用户注册一个客户端。
// ctx 是服务器生命周期的 context，入站消息的处理使用它。
func ServeWsPerConnection(ctx context.Context, hub *Hub, handle InboundHandler, userID uint, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 来源由 JWT 认证保证
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade 失败", "user_id", userID, "err", err)
		return
	}
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		UserID:  userID,
		limiter: newLimiter(wsCfg),
		handle:  handle,
	}
	if !hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	t := timingFrom(wsCfg)
	go client.writePump(t)
	go client.readPump(ctx, t)

	log.Info("客户端已连接", "user_id", userID)
}
