package logger

import "github.com/tokmz/fintrack/pkg/errors"

// 1200 段错误码：日志
var (
	ErrInvalidConfig = errors.New(1201, 500, "invalid log config", nil)
	ErrOpenFile      = errors.New(1202, 500, "open log file", nil)
)
