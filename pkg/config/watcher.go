package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch 配置文件变更后调用 fn，直到 ctx 结束
// 同一窗口内的多次写入只触发一次，回调执行时新值已可读取
func (s *Source) Watch(ctx context.Context, fn func()) error {
	s.mu.Lock()
	if s.v.ConfigFileUsed() == "" {
		s.mu.Unlock()
		return ErrNoFile
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	if !s.watching {
		s.v.OnConfigChange(s.onEvent)
		s.v.WatchConfig()
		s.watching = true
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}()
	return nil
}

// onEvent viper 重新读取文件后调用
func (s *Source) onEvent(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.watching {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.notify)
}

func (s *Source) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
