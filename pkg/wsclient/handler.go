package wsclient

import (
	"encoding/json"
	"sync"
)

// Message 下行消息
type Message struct {
	// Name 消息类型或事件名
	Name         string          `json:"-"`
	Type         string          `json:"type"`
	Event        string          `json:"event,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	Message      string          `json:"message,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
}

// Handler 消息处理器
type Handler func(msg *Message)

// HandlerID 处理器标识，用于 Off
type HandlerID uint64

type handlerEntry struct {
	id      HandlerID
	handler Handler
}

// handlerSet 两组处理器：transient 在 Destroy 时清空，persistent 跨重连与销毁保留
type handlerSet struct {
	mu         sync.RWMutex
	next       HandlerID
	transient  map[string][]handlerEntry
	persistent map[string][]handlerEntry
}

func newHandlerSet() *handlerSet {
	return &handlerSet{
		transient:  make(map[string][]handlerEntry),
		persistent: make(map[string][]handlerEntry),
	}
}

func (s *handlerSet) add(event string, h Handler, persistent bool) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	entry := handlerEntry{id: s.next, handler: h}
	if persistent {
		s.persistent[event] = append(s.persistent[event], entry)
	} else {
		s.transient[event] = append(s.transient[event], entry)
	}
	return entry.id
}

func (s *handlerSet) remove(event string, id HandlerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range []map[string][]handlerEntry{s.transient, s.persistent} {
		entries := m[event]
		for i, e := range entries {
			if e.id == id {
				m[event] = append(entries[:i:i], entries[i+1:]...)
				if len(m[event]) == 0 {
					delete(m, event)
				}
				return true
			}
		}
	}
	return false
}

func (s *handlerSet) clearTransient() {
	s.mu.Lock()
	s.transient = make(map[string][]handlerEntry)
	s.mu.Unlock()
}

// dispatch 先调用持久处理器，再调用临时处理器
func (s *handlerSet) dispatch(msg *Message) int {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.persistent[msg.Name])+len(s.transient[msg.Name]))
	for _, e := range s.persistent[msg.Name] {
		handlers = append(handlers, e.handler)
	}
	for _, e := range s.transient[msg.Name] {
		handlers = append(handlers, e.handler)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return len(handlers)
}
