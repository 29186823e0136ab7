package config

import "time"

// Option Source 选项
type Option func(*Source)

// WithFile 使用指定路径的配置文件，格式由扩展名决定
func WithFile(path string) Option {
	return func(s *Source) { s.file = path }
}

// WithSearch 在 paths 中按文件名查找配置文件，找不到时报 ErrNotFound
func WithSearch(name string, paths ...string) Option {
	return func(s *Source) {
		s.name = name
		s.paths = paths
	}
}

// WithDefaults 最低优先级的键值，也是环境变量能覆盖的键的清单
func WithDefaults(defaults map[string]any) Option {
	return func(s *Source) { s.defaults = defaults }
}

// WithEnv 读取 PREFIX_SECTION_KEY 形式的环境变量
func WithEnv(prefix string) Option {
	return func(s *Source) { s.envPrefix = prefix }
}

// WithDebounce 合并窗口内的多次文件事件，默认 200ms
func WithDebounce(d time.Duration) Option {
	return func(s *Source) { s.debounce = d }
}
