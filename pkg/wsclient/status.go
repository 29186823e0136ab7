package wsclient

import "encoding/json"

// Status 连接状态
type Status string

const (
	StatusDisconnected  Status = "disconnected"
	StatusConnecting    Status = "connecting"
	StatusConnected     Status = "connected"
	StatusAuthenticated Status = "authenticated"
	StatusReconnecting  Status = "reconnecting"
	StatusError         Status = "error"
)

// EventStatus 状态变更事件名，重连逻辑应使用持久处理器订阅
const EventStatus = "connection:status"

// StatusEvent 状态变更
type StatusEvent struct {
	Status   Status `json:"status"`
	Previous Status `json:"previous"`
	Attempts int    `json:"attempts"`

	// Resumed 曾经认证过的会话重新建立了传输连接
	Resumed bool   `json:"resumed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DecodeStatus 解析状态事件
func DecodeStatus(msg *Message) (StatusEvent, error) {
	var ev StatusEvent
	err := json.Unmarshal(msg.Payload, &ev)
	return ev, err
}
