package logger

import "io"

// Option 配置选项
type Option func(*Config)

// WithLevel 设置级别
func WithLevel(level Level) Option {
	return func(c *Config) { c.Level = level }
}

// WithFormat 设置格式
func WithFormat(format Format) Option {
	return func(c *Config) { c.Format = format }
}

// WithName 设置名称
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithOutput 追加输出，测试中用于捕获日志
func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.Output = w }
}

// WithFile 追加文件输出
func WithFile(path string) Option {
	return func(c *Config) { c.File = path }
}

// WithRotate 追加轮转文件输出
func WithRotate(rotate *RotateConfig) Option {
	return func(c *Config) { c.Rotate = rotate }
}

// WithSampling 开启采样
func WithSampling(s *SamplingConfig) Option {
	return func(c *Config) { c.Sampling = s }
}

// WithCaller 记录调用位置
func WithCaller(enable bool) Option {
	return func(c *Config) { c.EnableCaller = enable }
}

// WithRedact 替换默认脱敏字段，不传参数时关闭脱敏
func WithRedact(keys ...string) Option {
	return func(c *Config) { c.Redact = append([]string{}, keys...) }
}
