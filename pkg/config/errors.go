package config

import "github.com/tokmz/fintrack/pkg/errors"

// 3000 段错误码：配置
var (
	ErrNotFound = errors.New(3001, 500, "config file not found", nil)
	ErrRead     = errors.New(3002, 500, "read config", nil)
	ErrDecode   = errors.New(3003, 500, "decode config", nil)
	ErrNoFile   = errors.New(3004, 500, "no config file to watch", nil)
)
