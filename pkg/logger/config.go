package logger

import (
	"io"
	"slices"
)

// Format 日志格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// IsValid 是否为支持的格式
func (f Format) IsValid() bool {
	return f == JSONFormat || f == ConsoleFormat
}

// DefaultRedact 默认脱敏的字段名
var DefaultRedact = []string{"token", "secret", "password", "authorization"}

// Config 日志配置
type Config struct {
	Level  Level  `mapstructure:"level"`
	Format Format `mapstructure:"format"`
	Name   string `mapstructure:"name"`

	// 输出，全部为空时写控制台
	Console bool          `mapstructure:"console"`
	File    string        `mapstructure:"file"`
	Rotate  *RotateConfig `mapstructure:"rotate"`
	Output  io.Writer     `mapstructure:"-"`

	Sampling         *SamplingConfig `mapstructure:"sampling"`
	EnableCaller     bool            `mapstructure:"caller"`
	EnableStacktrace bool            `mapstructure:"stacktrace"`

	// Redact 值会被替换的字段名（不区分大小写），nil 时使用 DefaultRedact
	Redact []string `mapstructure:"redact"`
}

// RotateConfig lumberjack 文件轮转
type RotateConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // 天
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SamplingConfig 每秒前 Initial 条全部记录，之后每 Thereafter 条记录一条
type SamplingConfig struct {
	Initial    int `mapstructure:"initial"`
	Thereafter int `mapstructure:"thereafter"`
}

// normalize 返回补全默认值后的副本，不修改调用方的配置
func (c Config) normalize() Config {
	if c.Format == "" {
		c.Format = JSONFormat
	}
	if !c.Console && c.File == "" && c.Rotate == nil && c.Output == nil {
		c.Console = true
	}
	if c.Rotate != nil {
		r := *c.Rotate
		r.MaxSize = cmp(r.MaxSize, 100)
		r.MaxAge = cmp(r.MaxAge, 30)
		r.MaxBackups = cmp(r.MaxBackups, 10)
		c.Rotate = &r
	}
	if c.Sampling != nil {
		s := *c.Sampling
		s.Initial = cmp(s.Initial, 100)
		s.Thereafter = cmp(s.Thereafter, 100)
		c.Sampling = &s
	}
	if c.Redact == nil {
		c.Redact = DefaultRedact
	}
	c.Redact = slices.Clone(c.Redact)
	return c
}

func cmp(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
