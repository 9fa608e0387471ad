package websocket

import (
	"context"

	"github.com/charmbracelet/log"
)

// delivery 是交给 Hub goroutine 的一次投递。client 非 nil 时只发给该连接。
type delivery struct {
	userID  uint
	client  *Client
	payload []byte
	result  chan bool
}

// Hub 持有所有在线连接。clients 只在 Run 所在的 goroutine 中读写。
type Hub struct {
	// 一个用户可以有多个连接（多设备）
	clients map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery

	// Run 退出时关闭
	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *delivery),
		done:       make(chan struct{}),
	}
}

// Register 把连接加入 Hub。Hub 已停止时返回 false。
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 移除连接并关闭它的发送通道，重复调用无副作用。
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// DeliverToUser 把 payload 推送给用户的所有连接，返回是否至少有一个连接收到。
func (h *Hub) DeliverToUser(userID uint, payload []byte) bool {
	return h.submit(&delivery{userID: userID, payload: payload})
}

// sendTo 只发给指定连接，用于回复入站消息的确认。
func (h *Hub) sendTo(c *Client, payload []byte) bool {
	return h.submit(&delivery{userID: c.UserID, client: c, payload: payload})
}

func (h *Hub) submit(d *delivery) bool {
	d.result = make(chan bool, 1)
	select {
	case h.deliver <- d:
	case <-h.done:
		return false
	}
	return <-d.result
}

// Done 在 Run 返回后关闭。
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run 处理注册、注销和投递，直到 ctx 被取消。退出时关闭所有连接的发送通道。
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for c := range conns {
					close(c.send)
				}
			}
			h.clients = make(map[uint]map[*Client]struct{})
			log.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			conns, ok := h.clients[c.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[c.UserID] = conns
			}
			conns[c] = struct{}{}
			log.Debug("客户端已注册", "user_id", c.UserID, "connections", len(conns))

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.deliver:
			d.result <- h.dispatch(d)
		}
	}
}

func (h *Hub) remove(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	log.Debug("客户端已注销", "user_id", c.UserID)
}

func (h *Hub) dispatch(d *delivery) bool {
	conns := h.clients[d.userID]
	delivered := false
	for c := range conns {
		if d.client != nil && c != d.client {
			continue
		}
		select {
		case c.send <- d.payload:
			delivered = true
		default:
			// 发送缓冲已满，认为客户端过慢，断开它
			log.Warn("发送通道已满，移除客户端", "user_id", c.UserID)
			h.remove(c)
		}
	}
	return delivered
}
