package ws

import (
	"encoding/json"
	"time"
)

// InboundKind 客户端上行消息类型（封闭集合）
type InboundKind string

const (
	KindAuthenticate InboundKind = "authenticate"
	KindPing         InboundKind = "ping"

	KindAddTransaction    InboundKind = "addTransaction"
	KindUpdateTransaction InboundKind = "updateTransaction"
	KindDeleteTransaction InboundKind = "deleteTransaction"
	KindAddBudget         InboundKind = "addBudget"
	KindUpdateBudget      InboundKind = "updateBudget"
	KindDeleteBudget      InboundKind = "deleteBudget"
	KindAddSavingsGoal    InboundKind = "addSavingsGoal"
	KindUpdateSavingsGoal InboundKind = "updateSavingsGoal"
	KindDeleteSavingsGoal InboundKind = "deleteSavingsGoal"
)

// MutationKinds 需要认证的领域变更消息
var MutationKinds = []InboundKind{
	KindAddTransaction, KindUpdateTransaction, KindDeleteTransaction,
	KindAddBudget, KindUpdateBudget, KindDeleteBudget,
	KindAddSavingsGoal, KindUpdateSavingsGoal, KindDeleteSavingsGoal,
}

// Known 是否为已定义的上行类型
func (k InboundKind) Known() bool {
	switch k {
	case KindAuthenticate, KindPing:
		return true
	}
	for _, m := range MutationKinds {
		if k == m {
			return true
		}
	}
	return false
}

// Public 认证前允许处理的类型，仅认证与心跳
func (k InboundKind) Public() bool {
	return k == KindAuthenticate || k == KindPing
}

// Inbound 上行消息，判别字段为 type，兼容 event
type Inbound struct {
	Type      string          `json:"type"`
	Event     string          `json:"event,omitempty"`
	Token     string          `json:"token,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Kind 消息类型
func (m *Inbound) Kind() InboundKind {
	if m.Type != "" {
		return InboundKind(m.Type)
	}
	return InboundKind(m.Event)
}

// DecodeInbound 解析上行消息，缺少判别字段视为无效
func DecodeInbound(data []byte) (*Inbound, error) {
	var m Inbound
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ErrInvalidMessage.WithError(err)
	}
	if m.Kind() == "" {
		return nil, ErrInvalidMessage
	}
	return &m, nil
}

// 下行消息类型
const (
	TypeWelcome       = "welcome"
	TypeAuthenticated = "authenticated"
	TypeUnauthorized  = "unauthorized"
	TypeError         = "error"
	TypePong          = "pong"
	TypeAck           = "ack"
)

// Frame 下行消息
type Frame struct {
	Type         string `json:"type"`
	Event        string `json:"event,omitempty"`
	Payload      any    `json:"payload,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Message      string `json:"message,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	Data         any    `json:"data,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Encode 序列化
func (f *Frame) Encode() ([]byte, error) {
	if f.Timestamp == 0 {
		f.Timestamp = time.Now().UnixMilli()
	}
	return json.Marshal(f)
}

func welcomeFrame(connID string) *Frame {
	return &Frame{Type: TypeWelcome, ConnectionID: connID}
}

func authenticatedFrame(userID string) *Frame {
	return &Frame{Type: TypeAuthenticated, UserID: userID}
}

func unauthorizedFrame(message string) *Frame {
	return &Frame{Type: TypeUnauthorized, Message: message}
}

func errorFrame(requestID, message string) *Frame {
	return &Frame{Type: TypeError, RequestID: requestID, Message: message}
}

func pongFrame() *Frame {
	return &Frame{Type: TypePong}
}

func ackFrame(requestID string, data any) *Frame {
	return &Frame{Type: TypeAck, RequestID: requestID, Data: data}
}

// Entity 同步实体类型
type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityBudget      Entity = "budget"
	EntitySavingsGoal Entity = "savingsGoal"
)

// Entities 全部实体类型
var Entities = []Entity{EntityTransaction, EntityBudget, EntitySavingsGoal}

// Action 变更动作
type Action string

const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EventKind 领域事件名 {entity}:{action}
type EventKind string

// NewEventKind 组合事件名
func NewEventKind(e Entity, a Action) EventKind {
	return EventKind(string(e) + ":" + string(a))
}

var eventKinds = func() map[EventKind][2]string {
	m := make(map[EventKind][2]string, 9)
	for _, e := range Entities {
		for _, a := range []Action{ActionAdded, ActionUpdated, ActionDeleted} {
			m[NewEventKind(e, a)] = [2]string{string(e), string(a)}
		}
	}
	return m
}()

// ParseEventKind 解析事件名，非封闭集合内的名称返回 false
func ParseEventKind(s string) (Entity, Action, bool) {
	parts, ok := eventKinds[EventKind(s)]
	if !ok {
		return "", "", false
	}
	return Entity(parts[0]), Action(parts[1]), true
}

// Valid 是否为已定义事件
func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// Event 领域事件
// TargetUserID 为空表示广播给全部已认证连接
type Event struct {
	Kind         EventKind
	Payload      any
	TargetUserID string
}

// DeletedPayload 删除事件只携带 id
type DeletedPayload struct {
	ID string `json:"id"`
}

func (e Event) frame() *Frame {
	return &Frame{Type: string(e.Kind), Event: string(e.Kind), Payload: e.Payload}
}
