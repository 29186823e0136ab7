package config

import (
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/tokmz/fintrack/pkg/errors"
)

// decodeHook 在 viper 默认钩子之外支持 encoding.TextUnmarshaler（如日志级别）
var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.TextUnmarshallerHookFunc(),
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

// Source 分层配置源，优先级：环境变量 > 配置文件 > 默认值
type Source struct {
	v  *viper.Viper
	mu sync.RWMutex

	file      string
	name      string
	paths     []string
	defaults  map[string]any
	envPrefix string
	debounce  time.Duration

	watching  bool
	timer     *time.Timer
	nextID    int
	listeners map[int]func()
}

// New 创建配置源，调用 Load 后生效
func New(opts ...Option) *Source {
	s := &Source{
		v:         viper.New(),
		debounce:  200 * time.Millisecond,
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load 读取默认值、环境变量与配置文件
// 未指定文件时只使用默认值与环境变量
func (s *Source) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.defaults {
		s.v.SetDefault(k, v)
	}
	if s.envPrefix != "" {
		s.v.SetEnvPrefix(s.envPrefix)
		s.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		s.v.AutomaticEnv()
	}

	switch {
	case s.file != "":
		s.v.SetConfigFile(s.file)
	case s.name != "":
		s.v.SetConfigName(s.name)
		for _, p := range s.paths {
			s.v.AddConfigPath(p)
		}
	default:
		return nil
	}

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return ErrNotFound.WithError(err)
		}
		return ErrRead.WithError(err)
	}
	return nil
}

// Decode 将全部配置解码到 out，out 中已有的值在键缺失时保留
func (s *Source) Decode(out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.v.Unmarshal(out, decodeHook); err != nil {
		return ErrDecode.WithError(err)
	}
	return nil
}

// DecodeKey 解码单个分段
func (s *Source) DecodeKey(key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.v.UnmarshalKey(key, out, decodeHook); err != nil {
		return ErrDecode.WithError(err)
	}
	return nil
}

// GetString 读取字符串值
func (s *Source) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

// GetDuration 读取时间间隔
func (s *Source) GetDuration(key string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetDuration(key)
}

// IsSet 任一层提供了该键
func (s *Source) IsSet(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.IsSet(key)
}

// File 实际加载的配置文件，未加载时为空
func (s *Source) File() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.ConfigFileUsed()
}

// Close 移除全部监听，之后的文件变更不再回调
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watching = false
	clear(s.listeners)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
