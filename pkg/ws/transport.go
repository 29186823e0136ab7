package ws

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsTransport gorilla 连接的 Transport 实现
// 写操作只在 writePump 中进行，控制帧通过 WriteControl 并发写出
type wsTransport struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeWait time.Duration
}

func newTransport(conn *websocket.Conn, cfg *Config) *wsTransport {
	return &wsTransport{
		conn:      conn,
		send:      make(chan []byte, cfg.SendQueueSize),
		done:      make(chan struct{}),
		writeWait: cfg.WriteWait,
	}
}

func (t *wsTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

func (t *wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeWait))
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeWait))
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// writePump 顺序写出发送队列，保证单连接内的消息顺序
func (t *wsTransport) writePump() {
	defer t.Close()

	for {
		select {
		case <-t.done:
			return
		case msg := <-t.send:
			if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeWait)); err != nil {
				return
			}
			if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// newUpgrader 创建升级器
func newUpgrader(cfg *Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:    cfg.ReadBufferSize,
		WriteBufferSize:   cfg.WriteBufferSize,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		EnableCompression: cfg.EnableCompression,
		CheckOrigin:       checkOrigin(cfg.AllowedOrigins),
	}
}

// checkOrigin 白名单为空时只允许同源或无 Origin 的请求，"*" 放行全部
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
